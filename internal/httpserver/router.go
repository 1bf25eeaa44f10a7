package httpserver

import (
	"net/http"

	"erpcore/internal/auth"
	"erpcore/internal/httpserver/handlers"
	"erpcore/internal/metrics"
	"erpcore/internal/models"
	"erpcore/internal/services/address"
	"erpcore/internal/services/audit"
	"erpcore/internal/services/authn"
	"erpcore/internal/services/startup"
	"erpcore/internal/services/user"
	"erpcore/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const APIPrefix = "/api/v1"

type Deps struct {
	Users      *user.Directory
	Addresses  *address.Service
	Audit      *audit.Recorder
	Auth       *authn.Gateway
	Startup    *startup.Bootstrapper
	Tokens     *auth.Signer
	Validator  *validation.Validator
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	StartupKey string
	Log        *zap.SugaredLogger
}

func NewRouter(d Deps) http.Handler {
	lg := d.Log
	v := d.Validator
	if v == nil {
		v = validation.NewValidator()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, requestLogger(lg, d.Metrics), auth.ClientMetadata)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.Fail(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.Fail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", handlers.Health(d.Startup))
	r.Post("/startup/init", handlers.StartupInit(d.Startup, d.StartupKey, lg))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route(APIPrefix, func(api chi.Router) {
		api.Post("/auth/register", handlers.Register(d.Auth, v, lg))
		api.Post("/auth/login", handlers.Login(d.Auth, v, lg))
		api.Post("/auth/refresh", handlers.Refresh(d.Auth, v, lg))
		api.Post("/auth/validate", handlers.ValidateToken(d.Auth, lg))

		api.Group(func(protected chi.Router) {
			protected.Use(auth.JWTAuth(d.Tokens, handlers.Fail))
			protected.Get("/auth/me", handlers.Me(d.Auth, lg))

			protected.Route("/users", func(users chi.Router) {
				users.Get("/", handlers.ListUsers(d.Users, lg))
				users.Post("/", handlers.CreateUser(d.Users, v, lg))
				users.Get("/{id}", handlers.GetUser(d.Users, lg))
				users.Put("/{id}", handlers.UpdateUser(d.Users, v, lg))
				users.With(auth.RequireRole(models.RoleAdministrator, handlers.Fail)).
					Delete("/{id}", handlers.DeleteUser(d.Users, lg))
				users.Delete("/{id}/deactivate", handlers.DeactivateUser(d.Users, lg))
				users.Post("/{id}/activate", handlers.ActivateUser(d.Users, lg))
				users.Get("/{id}/addresses", handlers.UserAddresses(d.Addresses, "id", lg))
			})

			protected.Route("/addresses", func(addresses chi.Router) {
				addresses.Get("/users/{userId}", handlers.UserAddresses(d.Addresses, "userId", lg))
				addresses.Post("/users/{userId}", handlers.CreateAddress(d.Addresses, v, lg))
				addresses.Get("/{id}", handlers.GetAddress(d.Addresses, lg))
				addresses.Put("/{id}", handlers.UpdateAddress(d.Addresses, v, lg))
				addresses.Delete("/{id}", handlers.DeleteAddress(d.Addresses, lg))
				addresses.Post("/{id}/set-primary", handlers.SetPrimaryAddress(d.Addresses, lg))
			})

			protected.Route("/audit", func(a chi.Router) {
				a.Get("/cpf/{cpf}", handlers.AuditByCPF(d.Audit, lg))
				a.Get("/user/{userId}", handlers.AuditByUser(d.Audit, lg))
				a.Get("/entity/{entityType}/{entityId}", handlers.AuditByEntity(d.Audit, lg))
				a.Get("/period", handlers.AuditByPeriod(d.Audit, lg))
				a.Get("/action/{fieldName}", handlers.AuditByAction(d.Audit, lg))
			})
		})
	})
	return r
}
