package server

// Route path constants
// The auth routes are the defaults; the served paths follow config.APIConfig.
const (
	// Auth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthRegister = "/auth/register"
	RouteAuthRefresh  = "/auth/refresh"
	RouteAuthLogout   = "/auth/logout"

	// API Routes
	RouteAPIMe       = "/api/me"
	RouteAPIPatients = "/api/patients"
	RouteAPIServices = "/api/services"
	RouteAPINotices  = "/api/notices"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)

// refreshCookieName holds the opaque refresh token. It is scoped to the
// directory of the refresh route so that it only travels with auth calls.
const refreshCookieName = "clinic_refresh"
