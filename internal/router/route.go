package router

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// HandlerFunc is the signature route handlers implement. A *Response
// result is written verbatim; any other non-nil result is wrapped as
// the data of a 200 envelope.
type HandlerFunc func(c *Context) any

// Middleware is a pre-handler capability unit. A non-nil result
// short-circuits the chain: no further unit or the handler runs.
type Middleware interface {
	Handle(c *Context) *Response
}

// MiddlewareFunc adapts a plain function to the Middleware interface
type MiddlewareFunc func(c *Context) *Response

func (f MiddlewareFunc) Handle(c *Context) *Response {
	return f(c)
}

// Route is a single registered route. Immutable after startup; the
// builder methods are only safe during route definition.
type Route struct {
	pattern     string
	methods     []string
	handler     any // HandlerFunc, "Controller@method" string, or [2]string
	middleware  []string
	constraints map[string]string

	compiled *regexp.Regexp
}

// Pattern returns the raw registered pattern
func (r *Route) Pattern() string {
	return r.pattern
}

// Methods returns the allowed HTTP methods
func (r *Route) Methods() []string {
	return r.methods
}

// Middleware appends named middleware units to the route chain
func (r *Route) Middleware(names ...string) *Route {
	r.middleware = append(r.middleware, names...)
	return r
}

// Where constrains a captured parameter with a regex. A capture that
// fails its constraint discards the whole match.
func (r *Route) Where(param, expr string) *Route {
	if r.constraints == nil {
		r.constraints = map[string]string{}
	}
	r.constraints[param] = expr
	return r
}

// AllowsMethod reports whether the route accepts the given verb
func (r *Route) AllowsMethod(method string) bool {
	method = strings.ToUpper(method)
	for _, m := range r.methods {
		if m == method {
			return true
		}
	}
	return false
}

// Registry holds the route table, the named middleware units, and the
// controller registry. Built once at startup, read-only afterwards.
type Registry struct {
	routes map[string]*Route // keyed by raw pattern, last registration replaces
	order  []string          // pattern registration order, drives last-match-wins

	units       map[string]Middleware
	controllers map[string]map[string]HandlerFunc

	logger *slog.Logger
}

// NewRegistry creates an empty route registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		routes:      make(map[string]*Route),
		units:       make(map[string]Middleware),
		controllers: make(map[string]map[string]HandlerFunc),
		logger:      logger,
	}
}

// Handle registers a route. Registering the same pattern again
// replaces the earlier route in place.
func (reg *Registry) Handle(pattern string, methods []string, handler any) *Route {
	upper := make([]string, len(methods))
	for i, m := range methods {
		upper[i] = strings.ToUpper(m)
	}

	route := &Route{
		pattern: pattern,
		methods: upper,
		handler: handler,
	}

	if _, exists := reg.routes[pattern]; !exists {
		reg.order = append(reg.order, pattern)
	}
	reg.routes[pattern] = route

	reg.logger.Debug("route registered", "pattern", pattern, "methods", upper)
	return route
}

// Get registers a GET route
func (reg *Registry) Get(pattern string, handler any) *Route {
	return reg.Handle(pattern, []string{"GET"}, handler)
}

// Post registers a POST route
func (reg *Registry) Post(pattern string, handler any) *Route {
	return reg.Handle(pattern, []string{"POST"}, handler)
}

// Put registers a PUT route
func (reg *Registry) Put(pattern string, handler any) *Route {
	return reg.Handle(pattern, []string{"PUT"}, handler)
}

// Delete registers a DELETE route
func (reg *Registry) Delete(pattern string, handler any) *Route {
	return reg.Handle(pattern, []string{"DELETE"}, handler)
}

// RoutesForMethod returns candidate routes accepting the verb, in
// registration order
func (reg *Registry) RoutesForMethod(method string) []*Route {
	method = strings.ToUpper(method)
	var candidates []*Route
	for _, pattern := range reg.order {
		route := reg.routes[pattern]
		if route.AllowsMethod(method) {
			candidates = append(candidates, route)
		}
	}
	return candidates
}

// AllRoutes returns every registered route in registration order
func (reg *Registry) AllRoutes() []*Route {
	routes := make([]*Route, 0, len(reg.order))
	for _, pattern := range reg.order {
		routes = append(routes, reg.routes[pattern])
	}
	return routes
}

// RegisterMiddleware makes a named unit available to route definitions
func (reg *Registry) RegisterMiddleware(name string, unit Middleware) {
	reg.units[name] = unit
}

// RegisterController binds a controller name to its action handlers,
// resolving "Controller@method" handler references at dispatch time
func (reg *Registry) RegisterController(name string, actions map[string]HandlerFunc) {
	reg.controllers[name] = actions
	reg.logger.Debug("controller registered", "name", name, "actions", len(actions))
}

// ResolveHandler turns a route's handler reference into an invocable
// function. Fails when the controller or action is unknown.
func (reg *Registry) ResolveHandler(route *Route) (HandlerFunc, error) {
	switch h := route.handler.(type) {
	case HandlerFunc:
		return h, nil
	case func(c *Context) any:
		return h, nil
	case string:
		name, action, found := strings.Cut(h, "@")
		if !found {
			return nil, fmt.Errorf("malformed handler reference %q", h)
		}
		return reg.lookupAction(name, action)
	case [2]string:
		return reg.lookupAction(h[0], h[1])
	default:
		return nil, fmt.Errorf("unsupported handler type %T for %s", route.handler, route.pattern)
	}
}

func (reg *Registry) lookupAction(controller, action string) (HandlerFunc, error) {
	actions, ok := reg.controllers[controller]
	if !ok {
		return nil, fmt.Errorf("unknown controller %q", controller)
	}
	handler, ok := actions[action]
	if !ok {
		return nil, fmt.Errorf("controller %q has no action %q", controller, action)
	}
	return handler, nil
}

// middlewareChain resolves the route's named units, skipping names
// with no registered unit
func (reg *Registry) middlewareChain(route *Route) []Middleware {
	var chain []Middleware
	for _, name := range route.middleware {
		unit, ok := reg.units[name]
		if !ok {
			reg.logger.Warn("unknown middleware ignored", "name", name, "pattern", route.pattern)
			continue
		}
		chain = append(chain, unit)
	}
	return chain
}
