package router

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern recognizes {name} segments in route patterns
var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// compilePattern converts a route pattern into an anchored regexp.
// Each {name} placeholder becomes a named capture accepting a single
// path segment: letters, digits, underscore, hyphen and percent, never
// a slash.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	trimmed := strings.Trim(pattern, "/")

	var b strings.Builder
	b.WriteString("^/")

	segments := strings.Split(trimmed, "/")
	for i, segment := range segments {
		if i > 0 {
			b.WriteString("/")
		}
		if m := placeholderPattern.FindStringSubmatch(segment); m != nil && m[0] == segment {
			b.WriteString(`(?P<` + m[1] + `>[-%\w]+)`)
			continue
		}
		b.WriteString(regexp.QuoteMeta(segment))
	}
	b.WriteString("$")

	compiled, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid route pattern %q: %w", pattern, err)
	}
	return compiled, nil
}

// regexpFor returns the route's compiled pattern, compiling lazily on
// first use. Routes are registered before the server accepts traffic,
// so the compile happens at most once without locking in practice; the
// result is cached on the route.
func (r *Route) regexpFor() (*regexp.Regexp, error) {
	if r.compiled != nil {
		return r.compiled, nil
	}
	compiled, err := compilePattern(r.pattern)
	if err != nil {
		return nil, err
	}
	r.compiled = compiled
	return compiled, nil
}

// Match is a resolved route plus its captured path parameters
type Match struct {
	Route  *Route
	Params map[string]string
}

// matchPath tries the route's pattern against a request path,
// returning the captured parameters on success
func (r *Route) matchPath(path string) (map[string]string, bool) {
	compiled, err := r.regexpFor()
	if err != nil {
		return nil, false
	}

	groups := compiled.FindStringSubmatch(path)
	if groups == nil {
		return nil, false
	}

	params := map[string]string{}
	for i, name := range compiled.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		params[name] = groups[i]
	}
	return params, true
}

// checkConstraints validates captured parameters against the route's
// declared Where expressions
func (r *Route) checkConstraints(params map[string]string) bool {
	for param, expr := range r.constraints {
		value, ok := params[param]
		if !ok {
			continue
		}
		matched, err := regexp.MatchString("^"+expr+"$", value)
		if err != nil || !matched {
			return false
		}
	}
	return true
}

// Match scans the candidate routes for the verb and keeps the LAST
// one whose compiled pattern matches the path, so later registrations
// win on overlapping patterns. A winning match whose captures fail a
// Where constraint is abandoned outright, not retried against earlier
// candidates.
func (reg *Registry) Match(method, path string) *Match {
	path = normalizePath(path)

	var winner *Match
	for _, route := range reg.RoutesForMethod(method) {
		params, ok := route.matchPath(path)
		if !ok {
			continue
		}
		winner = &Match{Route: route, Params: params}
	}

	if winner == nil {
		return nil
	}
	if !winner.Route.checkConstraints(winner.Params) {
		return nil
	}
	return winner
}

// MatchAnyMethod reports whether the path matches any registered
// route regardless of verb. Used to distinguish 405 from 404.
// Constraints apply here too: a capture failing its Where expression
// reads as unmatched, so such a path stays a 404 rather than
// surfacing as another verb's route.
func (reg *Registry) MatchAnyMethod(path string) bool {
	path = normalizePath(path)
	for _, route := range reg.AllRoutes() {
		params, ok := route.matchPath(path)
		if !ok {
			continue
		}
		if route.checkConstraints(params) {
			return true
		}
	}
	return false
}

// normalizePath guarantees a single leading slash and no trailing
// slash (the root path stays "/")
func normalizePath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed
}
