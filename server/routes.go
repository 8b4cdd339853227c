package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("POST "+s.config.GetLoginPath(), ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+s.config.GetRegisterPath(), ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+s.config.GetRefreshPath(), ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+s.config.GetLogoutPath(), ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// API routes (require a valid bearer access token)
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIPatients, ChainMiddleware(s.PatientsHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAnyRole(patientViewers...))...))
	s.RegisterRouteHandler("POST "+RouteAPIPatients, ChainMiddleware(s.CreatePatientHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAnyRole(patientViewers...))...))
	s.RegisterRouteHandler("GET "+RouteAPIServices, ChainMiddleware(s.ServicesHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPINotices, ChainMiddleware(s.NoticesHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Operations
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("GET "+RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
