package gate

import "github.com/jrsteele09/go-clinic-client/users"

// Client route path constants
const (
	// Unauthenticated entry points
	RouteLogin    = "/login"
	RouteRegister = "/register"

	// Any signed-in user
	RouteDashboard = "/dashboard"
	RouteProfile   = "/profile"
	RouteNotices   = "/notices/*"
	RouteServices  = "/services"

	// Admin
	RouteAdmin       = "/admin/*"
	RouteEmployees   = "/employees/*"
	RouteNewServices = "/services/new"

	// Doctor
	RoutePatients = "/patients/*"
	RouteTests    = "/tests/*"

	// Receptionist
	RouteReception = "/reception/*"

	// Patient
	RouteAppointments = "/appointments/*"
	RouteFeedback     = "/feedback/*"
)

// DefaultRoutes is the clinic client's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Pattern: RouteLogin, Public: true},
		{Pattern: RouteRegister, Public: true},

		{Pattern: RouteDashboard},
		{Pattern: RouteProfile},
		{Pattern: RouteNotices},
		{Pattern: RouteServices},

		{Pattern: RouteAdmin, RequiredRole: users.RoleAdmin},
		{Pattern: RouteEmployees, RequiredRole: users.RoleAdmin},
		{Pattern: RouteNewServices, RequiredRole: users.RoleAdmin},

		{Pattern: RoutePatients, RequiredRole: users.RoleDoctor},
		{Pattern: RouteTests, RequiredRole: users.RoleDoctor},

		{Pattern: RouteReception, RequiredRole: users.RoleReceptionist},

		{Pattern: RouteAppointments, RequiredRole: users.RolePatient},
		{Pattern: RouteFeedback, RequiredRole: users.RolePatient},
	}
}
