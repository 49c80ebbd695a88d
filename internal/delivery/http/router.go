package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"schoolevents/internal/delivery/http/controllers"
	"schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/delivery/http/middleware"
	"schoolevents/internal/domain"
)

// Pinger reports whether a backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps holds everything NewRouter needs besides the controllers.
type RouterDeps struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	AllowedOrigins []string
	DB             Pinger
}

var (
	staffRoles   = []domain.Role{domain.RoleTeacher, domain.RoleAdmin, domain.RoleSuperAdmin}
	managerRoles = []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}
)

// NewRouter initializes the HTTP router with all application routes and wraps it with CORS and
// access logging.
func NewRouter(deps RouterDeps,
	eventController *controllers.EventController,
	participationController *controllers.ParticipationController,
	hubController *controllers.HubController,
) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(deps.Verifier, deps.Logger)
	authed := func(h http.HandlerFunc) http.HandlerFunc { return requireAuth(h) }
	withRoles := func(roles []domain.Role, h http.HandlerFunc) http.HandlerFunc {
		return requireAuth(middleware.RequireRole(roles...)(h))
	}
	student := func(h http.HandlerFunc) http.HandlerFunc {
		return withRoles([]domain.Role{domain.RoleStudent}, h)
	}

	// Events
	mux.HandleFunc("POST /events", withRoles(managerRoles, eventController.CreateEvent))
	mux.HandleFunc("GET /events", withRoles(staffRoles, eventController.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", authed(eventController.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", withRoles(managerRoles, eventController.UpdateEvent))
	mux.HandleFunc("PATCH /events/{eventID}/status", withRoles(managerRoles, eventController.UpdateEventStatus))
	mux.HandleFunc("DELETE /events/{eventID}", withRoles(managerRoles, eventController.DeleteEvent))
	mux.HandleFunc("GET /school/event-capacity", withRoles(staffRoles, eventController.SchoolCapacity))

	// Student participation
	mux.HandleFunc("POST /events/{eventID}/participate", student(participationController.RequestParticipation))
	mux.HandleFunc("GET /events/{eventID}/participate", student(participationController.GetMyParticipation))
	mux.HandleFunc("DELETE /events/{eventID}/participate", student(participationController.CancelRequest))
	mux.HandleFunc("DELETE /events/{eventID}/withdraw", student(participationController.Withdraw))
	mux.HandleFunc("POST /participation-requests/{requestID}/enroll", authed(participationController.ConfirmEnrollment))

	// Staff review and roster management
	mux.HandleFunc("PUT /events/{eventID}/approve", withRoles(staffRoles, participationController.ReviewRequests))
	mux.HandleFunc("GET /events/{eventID}/approve", withRoles(staffRoles, participationController.ListPendingRequests))
	mux.HandleFunc("PUT /events/{eventID}/manage/reject", withRoles(staffRoles, participationController.RejectRequests))
	mux.HandleFunc("POST /events/{eventID}/manage/student/add", withRoles(staffRoles, participationController.AddStudent))
	mux.HandleFunc("DELETE /events/{eventID}/manage/student/{studentID}", withRoles(staffRoles, participationController.RemoveStudent))
	mux.HandleFunc("POST /events/{eventID}/roster/reconcile", withRoles(managerRoles, participationController.ReconcileRoster))

	// Student hub
	mux.HandleFunc("GET /events/hub/available", student(hubController.AvailableEvents))
	mux.HandleFunc("GET /events/hub/my-requests", student(hubController.MyRequests))
	mux.HandleFunc("GET /events/hub/past", student(hubController.PastEvents))
	mux.HandleFunc("GET /student/eligible-events", student(hubController.EligibleEvents))

	mux.HandleFunc("GET /healthz", healthz(deps.DB))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return middleware.CORS(deps.AllowedOrigins, middleware.LoggingMiddleware(deps.Logger, mux))
}

// HealthResponse is the data payload for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// healthz godoc
// @Summary Liveness probe
// @Description Reports ok when the database answers a ping within two seconds.
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data.status: ok"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /healthz [get]
func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeUnavailable, "database unreachable")
			return
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
