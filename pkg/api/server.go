// Package api serves the local view API: session state, actions and the event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/export"
	"lxmf-chat/pkg/model"
	"lxmf-chat/pkg/session"
	"lxmf-chat/pkg/version"
)

// Inspector reads backend data that the session does not cache.
type Inspector interface {
	Raw(ctx context.Context, peer, file string) (model.RawPayload, error)
	TelemetryHistory(ctx context.Context, peer, rng string) ([]model.TelemetrySample, error)
}

// AuditLister reads the audit journal.
type AuditLister interface {
	ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

// Deps are the collaborators of the view API. Sessions is required.
type Deps struct {
	Sessions    *session.Manager
	Inspector   Inspector
	Journal     AuditLister
	Exporter    export.Writer
	Hub         *Hub
	Auth        *AuthHandler
	CORSOrigins []string
	Logger      zerolog.Logger

	// BackgroundCtx bounds work that outlives a request, such as propagation sync.
	BackgroundCtx context.Context
}

type Server struct {
	deps Deps
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	if d.Hub == nil {
		d.Hub = NewHub()
	}
	if d.Auth == nil {
		d.Auth = &AuthHandler{}
	}
	if d.BackgroundCtx == nil {
		d.BackgroundCtx = context.Background()
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	s := &Server{deps: d}

	r := chi.NewRouter()
	r.Use(requestMetrics)
	r.Use(chimw.RequestID)
	r.Use(requestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.health)
	r.Post("/api/v1/auth/login", d.Auth.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.RequireAuth)

		r.Get("/api/v1/ws", d.Hub.HandleWS)

		r.Get("/api/v1/identities", s.listIdentities)
		r.Post("/api/v1/identities/select", s.selectIdentity)
		r.Get("/api/v1/audit", s.listAudit)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/api/v1/state", s.state)
			r.Get("/api/v1/peers", s.peers)
			r.Get("/api/v1/thread", s.thread)
			r.Get("/api/v1/telemetry", s.telemetryPeers)
			r.Get("/api/v1/telemetry/{peer}", s.telemetry)
			r.Get("/api/v1/packets/{peer}", s.packets)
			r.Get("/api/v1/transfers", s.transfers)
			r.Get("/api/v1/unread", s.unread)
			r.Get("/api/v1/raw/{peer}/{file}", s.raw)
			r.Get("/api/v1/history/{peer}", s.history)
			r.Get("/api/v1/config", s.getConfig)

			r.Post("/api/v1/select", s.selectPeer)
			r.Post("/api/v1/tab", s.setTab)
			r.Post("/api/v1/sort", s.setSort)
			r.Post("/api/v1/send", s.send)
			r.Post("/api/v1/send-file", s.sendFile)
			r.Post("/api/v1/retry", s.retry)
			r.Post("/api/v1/sync", s.sync)
			r.Post("/api/v1/favorite", s.favorite)
			r.Post("/api/v1/group", s.group)
			r.Post("/api/v1/config", s.saveConfig)
			r.Post("/api/v1/export", s.export)
		})
	})
	return r
}

type ctxKey struct{}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.deps.Sessions.Current()
		if sess == nil {
			writeError(w, http.StatusServiceUnavailable, "no active identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(ctxKey{}).(*session.Session)
	return sess
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]interface{}{"status": "ok", "version": version.Build}
	if sess := s.deps.Sessions.Current(); sess != nil {
		body["session"] = sess.ID()
		body["identity"] = sess.Identity().IdentityHash
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps session and backend errors to HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	var be *backend.Error
	switch {
	case errors.Is(err, session.ErrNoPeerSelected),
		errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrNotRetryable),
		errors.Is(err, model.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrUnknownPeer):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &be):
		writeError(w, http.StatusBadGateway, be.Message)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}
