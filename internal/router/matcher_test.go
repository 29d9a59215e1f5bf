package router

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		match   bool
		params  map[string]string
	}{
		{"/users", "/users", true, map[string]string{}},
		{"/users", "/users/", false, nil}, // matching runs on normalized paths
		{"/users", "/user", false, nil},
		{"/users", "/userss", false, nil},
		{"/users", "/api/users", false, nil},
		{"/get-task/{id}", "/get-task/42", true, map[string]string{"id": "42"}},
		{"/get-task/{id}", "/get-task/abc-def_9", true, map[string]string{"id": "abc-def_9"}},
		{"/get-task/{id}", "/get-task/a%20b", true, map[string]string{"id": "a%20b"}},
		{"/get-task/{id}", "/get-task/1/extra", false, nil},
		{"/get-task/{id}", "/get-task/", false, nil},
		{"/get-task/{id}", "/get-task/a.b", false, nil},
		{"/get-task/{id}", "/get-task/a/b", false, nil},
		{"/a/{x}/b/{y}", "/a/1/b/2", true, map[string]string{"x": "1", "y": "2"}},
	}

	for _, tt := range tests {
		route := &Route{pattern: tt.pattern}
		params, ok := route.matchPath(tt.path)
		if ok != tt.match {
			t.Errorf("matchPath(%q, %q) = %v, want %v", tt.pattern, tt.path, ok, tt.match)
			continue
		}
		if !tt.match {
			continue
		}
		if len(params) != len(tt.params) {
			t.Errorf("matchPath(%q, %q) params = %v, want %v", tt.pattern, tt.path, params, tt.params)
			continue
		}
		for name, want := range tt.params {
			if got := params[name]; got != want {
				t.Errorf("matchPath(%q, %q) param %q = %q, want %q", tt.pattern, tt.path, name, got, want)
			}
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"/tasks", "/tasks"},
		{"/tasks/", "/tasks"},
		{"tasks", "/tasks"},
		{"//tasks//", "/tasks"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchLastRegistrationWins(t *testing.T) {
	reg := NewRegistry(discardLogger())
	reg.Get("/items/{id}", func(c *Context) any { return "first" })
	reg.Get("/items/{slug}", func(c *Context) any { return "second" })

	match := reg.Match("GET", "/items/7")
	if match == nil {
		t.Fatal("Match returned nil, want a match")
	}
	if got := match.Route.Pattern(); got != "/items/{slug}" {
		t.Errorf("winning pattern = %q, want %q", got, "/items/{slug}")
	}
	if got := match.Params["slug"]; got != "7" {
		t.Errorf("captured slug = %q, want %q", got, "7")
	}
}

func TestMatchReplacedPattern(t *testing.T) {
	reg := NewRegistry(discardLogger())
	reg.Get("/ping", func(c *Context) any { return "old" })
	reg.Get("/ping", func(c *Context) any { return "new" })

	routes := reg.AllRoutes()
	if len(routes) != 1 {
		t.Fatalf("len(AllRoutes()) = %d, want 1", len(routes))
	}

	match := reg.Match("GET", "/ping")
	if match == nil {
		t.Fatal("Match returned nil, want a match")
	}
	handler, err := reg.ResolveHandler(match.Route)
	if err != nil {
		t.Fatalf("ResolveHandler: %v", err)
	}
	if got := handler(nil); got != "new" {
		t.Errorf("handler result = %v, want %q", got, "new")
	}
}

func TestMatchConstraintFailureAbandonsMatch(t *testing.T) {
	reg := NewRegistry(discardLogger())
	reg.Get("/get-task/{slug}", func(c *Context) any { return "loose" })
	reg.Get("/get-task/{id}", func(c *Context) any { return "strict" }).Where("id", "[0-9]+")

	match := reg.Match("GET", "/get-task/42")
	if match == nil {
		t.Fatal("Match(/get-task/42) = nil, want a match")
	}
	if got := match.Route.Pattern(); got != "/get-task/{id}" {
		t.Errorf("winning pattern = %q, want %q", got, "/get-task/{id}")
	}
	// The constrained route wins the pattern scan but its capture
	// fails the constraint. The match is abandoned outright; the
	// earlier {slug} route is never consulted.
	if match := reg.Match("GET", "/get-task/abc"); match != nil {
		t.Errorf("Match(/get-task/abc) = %+v, want nil", match)
	}
}

func TestMatchMethodFiltering(t *testing.T) {
	reg := NewRegistry(discardLogger())
	reg.Post("/create-task", func(c *Context) any { return nil })

	if match := reg.Match("GET", "/create-task"); match != nil {
		t.Errorf("Match(GET /create-task) = %+v, want nil", match)
	}
	if match := reg.Match("POST", "/create-task"); match == nil {
		t.Error("Match(POST /create-task) = nil, want a match")
	}
	if !reg.MatchAnyMethod("/create-task") {
		t.Error("MatchAnyMethod(/create-task) = false, want true")
	}
	if reg.MatchAnyMethod("/no-such-route") {
		t.Error("MatchAnyMethod(/no-such-route) = true, want false")
	}
}

func TestMatchTrailingSlash(t *testing.T) {
	reg := NewRegistry(discardLogger())
	reg.Get("/tasks", func(c *Context) any { return nil })

	if match := reg.Match("GET", "/tasks/"); match == nil {
		t.Error("Match(GET /tasks/) = nil, want a match")
	}
}

func TestResolveHandlerReferences(t *testing.T) {
	reg := NewRegistry(discardLogger())
	reg.RegisterController("TaskController", map[string]HandlerFunc{
		"index": func(c *Context) any { return "index" },
	})

	tests := []struct {
		name    string
		handler any
		want    string
		wantErr bool
	}{
		{"func", func(c *Context) any { return "fn" }, "fn", false},
		{"string ref", "TaskController@index", "index", false},
		{"pair ref", [2]string{"TaskController", "index"}, "index", false},
		{"unknown controller", "UserController@index", "", true},
		{"unknown action", "TaskController@show", "", true},
		{"malformed ref", "TaskControllerIndex", "", true},
		{"unsupported type", 42, "", true},
	}

	for _, tt := range tests {
		route := &Route{pattern: "/x", handler: tt.handler}
		handler, err := reg.ResolveHandler(route)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: ResolveHandler returned nil error, want error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: ResolveHandler: %v", tt.name, err)
			continue
		}
		if got := handler(nil); got != tt.want {
			t.Errorf("%s: handler result = %v, want %q", tt.name, got, tt.want)
		}
	}
}
