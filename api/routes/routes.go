// Package routes defines the HTTP surface: controller registration,
// named middleware units, and the route table.
package routes

import (
	"taskboard/internal/handlers"
	authctl "taskboard/internal/handlers/auth"
	taskctl "taskboard/internal/handlers/tasks"
	userctl "taskboard/internal/handlers/users"
	"taskboard/internal/router"
)

// Register wires controllers, units, and routes into the registry.
// The auth unit guards authenticated routes; throttle (optional)
// slows credential guessing on /login.
func Register(reg *router.Registry, h *handlers.Handler, authUnit, throttle router.Middleware) {
	reg.RegisterMiddleware("auth", authUnit)
	if throttle != nil {
		reg.RegisterMiddleware("throttle", throttle)
	}

	reg.RegisterController("AuthController", authctl.NewAuthController(h).Actions())
	reg.RegisterController("TaskController", taskctl.NewTaskController(h).Actions())
	reg.RegisterController("UserController", userctl.NewUserController(h).Actions())

	reg.Handle("/", []string{"GET", "POST"}, func(c *router.Context) any {
		return router.OK("Welcome to the task API", nil)
	})

	reg.Post("/login", "AuthController@login").Middleware("throttle")
	reg.Post("/log-out", "AuthController@logout").Middleware("auth")
	reg.Post("/me", "AuthController@me").Middleware("auth")

	reg.Get("/get-tasks", "TaskController@index").Middleware("auth")
	reg.Get("/get-task/{id}", "TaskController@show").Middleware("auth").Where("id", "[0-9]+")
	reg.Post("/create-task", "TaskController@create").Middleware("auth")
	reg.Put("/update-task/{id}", "TaskController@update").Middleware("auth").Where("id", "[0-9]+")
	reg.Delete("/remove-task/{id}", "TaskController@remove").Middleware("auth").Where("id", "[0-9]+")
	reg.Put("/complete-task/{id}", "TaskController@complete").Middleware("auth").Where("id", "[0-9]+")
	reg.Put("/uncomplete-task/{id}", "TaskController@uncomplete").Middleware("auth").Where("id", "[0-9]+")
	reg.Get("/export-tasks", "TaskController@export").Middleware("auth")

	reg.Get("/get-users", "UserController@index").Middleware("auth")
	reg.Get("/get-user/{id}", "UserController@show").Middleware("auth").Where("id", "[0-9]+")
	reg.Post("/create-user", "UserController@create")
	reg.Put("/update-user/{id}", "UserController@update").Middleware("auth").Where("id", "[0-9]+")
	reg.Delete("/remove-user/{id}", "UserController@remove").Middleware("auth").Where("id", "[0-9]+")
}
