package router

import (
	"fmt"
	"log/slog"
	"net/http"
)

// DispatcherConfig holds dispatcher settings
type DispatcherConfig struct {
	// Debug surfaces real failure messages in 503 responses instead
	// of a generic one
	Debug bool
}

// Dispatcher drives a request through matching, method validation,
// the middleware chain and handler invocation. Every branch, rejected
// or not, ends with exactly one response written.
type Dispatcher struct {
	registry *Registry
	resolver IdentityResolver
	cors     Middleware
	config   *DispatcherConfig
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over a finished route registry.
// The cors unit runs on every route ahead of route-declared
// middleware.
func NewDispatcher(registry *Registry, resolver IdentityResolver, cors Middleware, config *DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config == nil {
		config = &DispatcherConfig{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		resolver: resolver,
		cors:     cors,
		config:   config,
		logger:   logger,
	}
}

// ServeHTTP implements http.Handler
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	c := NewContext(w, req, d.resolver, d.logger)
	d.Dispatch(c)
}

// Dispatch runs the request through the full pipeline. Re-entrant
// calls on the same context are ignored, so one request produces one
// response.
func (d *Dispatcher) Dispatch(c *Context) {
	if c.dispatched {
		return
	}
	c.dispatched = true

	response := d.dispatch(c)
	if response == nil {
		return
	}
	if err := response.Write(c.Writer); err != nil {
		d.logger.Error("failed to write response",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
	}
}

func (d *Dispatcher) dispatch(c *Context) *Response {
	method := c.Request.Method
	path := c.Request.URL.Path

	match := d.registry.Match(method, path)
	if match == nil {
		// A path served under another verb is a 405, anything else
		// is a 404. Preflight requests never reach a registered
		// OPTIONS route, so the CORS unit answers them here.
		if d.registry.MatchAnyMethod(path) {
			if result := d.runUnit(d.cors, c); result != nil {
				return result
			}
			return MethodNotAllowed("Method not allowed")
		}
		return NotFound("Route not found")
	}

	c.Params = match.Params

	if result := d.runUnit(d.cors, c); result != nil {
		return result
	}
	for _, unit := range d.registry.middlewareChain(match.Route) {
		if result := d.runUnit(unit, c); result != nil {
			return result
		}
	}

	handler, err := d.registry.ResolveHandler(match.Route)
	if err != nil {
		d.logger.Error("handler resolution failed",
			"pattern", match.Route.Pattern(),
			"error", err,
		)
		return d.dispatchFailure(err)
	}

	return d.invoke(c, handler)
}

// invoke runs the handler, converting panics into a 503 so a broken
// handler cannot take the worker down
func (d *Dispatcher) invoke(c *Context, handler HandlerFunc) (response *Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"panic", r,
			)
			response = d.dispatchFailure(fmt.Errorf("%v", r))
		}
	}()

	result := handler(c)
	switch v := result.(type) {
	case nil:
		return OK("", nil)
	case *Response:
		return v
	case sent:
		return nil
	case error:
		d.logger.Error("handler failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", v,
		)
		return d.dispatchFailure(v)
	default:
		return OK("", v)
	}
}

func (d *Dispatcher) runUnit(unit Middleware, c *Context) *Response {
	if unit == nil {
		return nil
	}
	return unit.Handle(c)
}

func (d *Dispatcher) dispatchFailure(err error) *Response {
	if d.config.Debug {
		return ServiceUnavailable(err.Error())
	}
	return ServiceUnavailable("Service unavailable")
}
