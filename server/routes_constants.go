package server

// Route path constants
const (
	RouteSessions    = "/api/sessions"
	RouteMe          = "/api/me"
	RouteHealthcheck = "/healthcheck"
	RouteMetrics     = "/metrics"
)

const contentTypeJSON = "application/json"
