package server

import "net/http"

func (s *Server) initRoutes(metricsHandler http.Handler) {
	s.RegisterRouteFunc("GET "+RouteHealthcheck, s.HealthcheckHandler())
	if metricsHandler != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, metricsHandler)
	}

	// Sessions
	s.RegisterRouteHandler("POST "+RouteSessions, ChainMiddleware(s.CreateSessionHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteSessions, ChainMiddleware(s.ListSessionsHandler(), s.APIMiddleware(s.RequireUser)...))
	s.RegisterRouteHandler("DELETE "+RouteSessions, ChainMiddleware(s.DeleteSessionHandler(), s.APIMiddleware(s.RequireUser)...))
	s.RegisterRouteHandler("OPTIONS "+RouteSessions, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireUser)...))
	s.RegisterRouteHandler("OPTIONS "+RouteMe, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
