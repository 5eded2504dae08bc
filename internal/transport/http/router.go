// Package httpapi exposes the scan engine over HTTP. Handlers decode, call a
// service, and map errors; domain decisions never live here.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attservice "gatepass/internal/attendance/service"
	credservice "gatepass/internal/credential/service"
	"gatepass/internal/directory"
	"gatepass/internal/jwtauth"
	operatorservice "gatepass/internal/operator/service"
	"gatepass/internal/platform/metrics"
	"gatepass/internal/platform/middleware"
	scanservice "gatepass/internal/scan/service"
	flagservice "gatepass/internal/securityflag/service"
	visitservice "gatepass/internal/visit/service"
	"gatepass/pkg/audit"
	"gatepass/pkg/qrimage"
)

// Services bundles everything the router serves.
type Services struct {
	Verifier   *credservice.Verifier
	Issuer     *credservice.Issuer
	Renderer   qrimage.Renderer
	Visits     *visitservice.Service
	Attendance *attservice.Service
	Flags      *flagservice.Service
	Scans      *scanservice.Orchestrator
	Operators  *operatorservice.Service
	Directory  directory.Store
	AuditLog   audit.Store
	Tokens     *jwtauth.Service

	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	StorageTimeout time.Duration
}

func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(s.Logger))
	r.Use(middleware.Logger(s.Logger))
	r.Use(middleware.Latency(s.Metrics))
	r.Use(middleware.Timeout(s.StorageTimeout + 5*time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.Tokens, s.Logger))
			r.Use(middleware.Device)

			r.Post("/auth/register", s.handleRegister)

			r.Post("/scans", s.handleScan)
			r.Post("/credentials/verify", s.handleVerify)
			r.Get("/credentials/{code}/image", s.handleCredentialImage)
			r.Post("/credentials/{id}/revoke", s.handleRevokeCredential)

			r.Post("/visits", s.handleCreateVisit)
			r.Get("/visits/active", s.handleActiveVisits)
			r.Get("/visits/{id}", s.handleGetVisit)
			r.Post("/visits/{id}/transition", s.handleTransitionVisit)
			r.Post("/visits/{id}/credential", s.handleIssueVisitorCredential)
			r.Post("/visits/checkin", s.handleCheckIn)
			r.Post("/visits/checkout", s.handleCheckOut)

			r.Post("/attendance/toggle", s.handleToggle)
			r.Post("/employees/{id}/credential", s.handleIssueEmployeeCredential)
			r.Get("/employees/{id}/late", s.handleLateCount)
			r.Get("/employees/{id}/earnings", s.handleEarnings)

			r.Post("/flags", s.handleCreateFlag)
			r.Get("/flags/active", s.handleActiveFlags)

			r.Get("/audit", s.handleListAudit)

			r.Post("/visitors", s.handleCreateVisitor)
			r.Post("/employees", s.handleCreateEmployee)
			r.Post("/sites", s.handleCreateSite)
		})
	})
	return r
}
