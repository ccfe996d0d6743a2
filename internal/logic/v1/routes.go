package v1

import (
	"net/http"
	"net/url"
	"strings"
)

// PublicRoute describes an endpoint reachable without an access token.
// Path segments starting with ':' are named parameters.
type PublicRoute struct {
	Path   string
	Method string
}

// DefaultPublicRoutes is the public route table of the service.
var DefaultPublicRoutes = []PublicRoute{
	{Path: "/health", Method: http.MethodGet},
	{Path: "/ready", Method: http.MethodGet},
	{Path: "/metrics", Method: http.MethodGet},
	{Path: "/login", Method: http.MethodPost},
	{Path: "/signup", Method: http.MethodPost},
	{Path: "/renew-access-token", Method: http.MethodPost},
	{Path: "/users/:userId", Method: http.MethodGet},
}

// RouteClassifier decides whether a request targets a public route.
// Anything that does not cleanly match the table is protected.
type RouteClassifier struct {
	routes []compiledRoute
}

type compiledRoute struct {
	method   string
	segments []string
}

// NewRouteClassifier compiles an ordered public route table.
func NewRouteClassifier(routes []PublicRoute) *RouteClassifier {
	compiled := make([]compiledRoute, 0, len(routes))
	for _, r := range routes {
		compiled = append(compiled, compiledRoute{
			method:   strings.ToUpper(r.Method),
			segments: splitPath(r.Path),
		})
	}
	return &RouteClassifier{routes: compiled}
}

// IsPublic reports whether method + path hit a public route. The query
// string is ignored. A parameter whose name ends in "Id" must hold a 24-hex
// identifier, otherwise the match is discarded.
func (rc *RouteClassifier) IsPublic(path, method string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	method = strings.ToUpper(method)
	segments := splitPath(path)

	for _, r := range rc.routes {
		if r.method != method {
			continue
		}
		params, ok := r.match(segments)
		if !ok {
			continue
		}
		return validParams(params)
	}
	return false
}

func (r compiledRoute) match(segments []string) (map[string]string, bool) {
	if len(r.segments) != len(segments) {
		return nil, false
	}

	params := make(map[string]string)
	for i, pattern := range r.segments {
		if name, isParam := strings.CutPrefix(pattern, ":"); isParam {
			value, err := url.PathUnescape(segments[i])
			if err != nil || value == "" {
				return nil, false
			}
			params[name] = value
			continue
		}
		if pattern != segments[i] {
			return nil, false
		}
	}
	return params, true
}

func validParams(params map[string]string) bool {
	for name, value := range params {
		if strings.HasSuffix(name, "Id") && !IsValidID(value) {
			return false
		}
	}
	return true
}

// splitPath turns "/users/42" into ["users", "42"]. A trailing slash yields
// a final empty segment, so "/login/" does not match "/login".
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
