package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sumii/sumii-core/internal/handler"
	"github.com/sumii/sumii-core/internal/middleware"
	"github.com/sumii/sumii-core/internal/service"
)

// Dependencies bundles every service and handler this router wires,
// grounded on the teacher's internal/router/router.go Dependencies struct.
type Dependencies struct {
	DB                 handler.DBPinger
	AuthService        *service.AuthService
	FrontendURL        string
	Version            string
	Metrics            *middleware.Metrics
	MetricsReg         *prometheus.Registry
	InternalAuthSecret string

	Chat          *handler.ChatHandler
	Events        *handler.EventsHandler
	Webhooks      handler.WebhookDeps
	Sync          *handler.SyncHandler
	Conversations *handler.ConversationHandler
	Documents     *handler.DocumentHandler
	Summaries     *handler.SummaryHandler
	Anwalt        *handler.AnwaltHandler
	Users         *handler.UserHandler
	Status        *handler.StatusHandler

	AdminMigrateDeps handler.AdminMigrateDeps

	// Rate limiters; nil disables limiting for that group.
	GeneralRateLimiter *middleware.RateLimiter
	ChatRateLimiter    *middleware.RateLimiter
}

func internalAuthOnly(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Internal-Auth")
		if secret == "" || token != secret {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	}
}

// New builds the chi router wiring every handler in Dependencies to its
// route, following the teacher's middleware-chain and per-route-timeout
// composition (internal/router/router.go).
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/api/health", handler.Health(deps.DB, deps.Version))
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	r.Post("/api/admin/migrate", internalAuthOnly(deps.InternalAuthSecret,
		handler.AdminMigrate(deps.AdminMigrateDeps)))

	// Lawyer directory webhook — authenticated by shared secret, not a
	// bearer token, so it lives outside the RequireAuth group (§4.3).
	r.Post("/api/v1/webhooks/lawyer-response", handler.LawyerResponse(deps.Webhooks))

	// The chat websocket and SSE event stream authenticate via a query-
	// param token rather than an Authorization header (browsers/mobile
	// clients cannot set headers on an upgrade/EventSource request), so
	// they are registered outside the bearer-auth group too.
	r.Get("/ws/chat/{conversationId}", deps.Chat.Serve)
	r.Get("/api/v1/events/subscribe", deps.Events.Subscribe)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.AuthService))
		if deps.GeneralRateLimiter != nil {
			r.Use(middleware.RateLimit(deps.GeneralRateLimiter))
		}

		timeout30s := middleware.Timeout(30 * time.Second)

		r.With(timeout30s).Get("/api/v1/sync", deps.Sync.Delta)
		r.With(timeout30s).Get("/api/v1/status", deps.Status.Health)
		r.With(timeout30s).Get("/api/v1/status/agents", deps.Status.Agents)
		r.With(timeout30s).Get("/api/v1/status/conversations/{id}", deps.Status.ConversationStatus)

		r.With(timeout30s).Get("/api/v1/users/me", deps.Users.Me)
		r.With(timeout30s).Patch("/api/v1/users/profile", deps.Users.UpdateProfile)
		r.With(timeout30s).Put("/api/v1/users/push-token", deps.Users.UpdatePushToken)

		r.With(timeout30s).Post("/api/v1/conversations", deps.Conversations.Create)
		r.With(timeout30s).Get("/api/v1/conversations", deps.Conversations.List)
		r.With(timeout30s).Get("/api/v1/conversations/{id}", deps.Conversations.Get)
		r.With(timeout30s).Patch("/api/v1/conversations/{id}", deps.Conversations.Update)
		r.With(timeout30s).Delete("/api/v1/conversations/{id}", deps.Conversations.Delete)

		r.With(timeout30s).Post("/api/v1/documents", deps.Documents.Upload)
		r.With(timeout30s).Get("/api/v1/documents/{id}", deps.Documents.Get)
		r.With(timeout30s).Patch("/api/v1/documents/{id}", deps.Documents.Update)
		r.With(timeout30s).Delete("/api/v1/documents/{id}", deps.Documents.Delete)
		r.With(timeout30s).Get("/api/v1/documents/conversation/{id}", deps.Documents.ListByConversation)

		r.With(timeout30s).Post("/api/v1/summaries", deps.Summaries.Generate)
		r.With(timeout30s).Get("/api/v1/summaries", deps.Summaries.List)
		r.With(timeout30s).Get("/api/v1/summaries/{id}", deps.Summaries.Get)
		r.With(timeout30s).Get("/api/v1/summaries/{id}/pdf", deps.Summaries.PDF)
		r.With(timeout30s).Get("/api/v1/summaries/conversation/{id}", deps.Summaries.ByConversation)
		r.With(timeout30s).Patch("/api/v1/summaries/{id}", deps.Summaries.Patch)
		r.With(timeout30s).Delete("/api/v1/summaries/{id}", deps.Summaries.Delete)
		r.With(timeout30s).Post("/api/v1/summaries/{id}/regenerate", deps.Summaries.Regenerate)

		r.With(timeout30s).Get("/api/v1/anwalt/search", deps.Anwalt.Search)
		r.With(timeout30s).Post("/api/v1/anwalt/connect", deps.Anwalt.Connect)
		r.With(timeout30s).Get("/api/v1/anwalt/connections", deps.Anwalt.List)
		r.With(timeout30s).Patch("/api/v1/anwalt/connections/{id}", deps.Anwalt.UpdateStatus)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "route not found"})
	})

	return r
}
