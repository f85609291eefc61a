package ledgerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sufield/didchain/internal/debug"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/dto"
	"github.com/sufield/didchain/internal/logging"
	"github.com/sufield/didchain/internal/ports"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Ledger is the message store served by the API.
type Ledger interface {
	PublishIntegration(ctx context.Context, doc *domain.Document) (domain.MessageID, error)
	PublishDiff(ctx context.Context, integrationID domain.MessageID, diff *domain.DiffMessage) (domain.MessageID, error)
	Messages(ctx context.Context, did domain.DID) ([]*domain.ResolvedDocument, []*domain.DiffMessage, error)
	ReadDocument(ctx context.Context, did domain.DID) (*domain.ResolvedDocument, error)
}

// Notifier is implemented by ledgers that can stream publish notifications.
// The watch route is mounted only for them.
type Notifier interface {
	Subscribe(did domain.DID) (<-chan domain.MessageID, func())
}

// Option customizes the router.
type Option func(*handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) { h.logger = logger }
}

// WithFaults mounts POST /_debug/faults, which arms one-shot failures in
// profile.
func WithFaults(profile *debug.FaultProfile) Option {
	return func(h *handler) { h.faults = profile }
}

type handler struct {
	ledger   Ledger
	notifier Notifier
	logger   *slog.Logger
	faults   *debug.FaultProfile
}

// NewRouter returns the HTTP API of ledger:
//
//	GET  /healthz
//	POST /v1/integration                 publish a signed document
//	POST /v1/diff/{integrationID}        publish a signed diff
//	GET  /v1/identities/{did}/messages   every stored message, unvalidated
//	GET  /v1/identities/{did}            the folded, validated document
//	GET  /v1/identities/{did}/watch      websocket stream of dto.Notification
//
// The watch route exists only when ledger implements Notifier.
func NewRouter(ledger Ledger, opts ...Option) http.Handler {
	h := &handler{ledger: ledger}
	h.notifier, _ = ledger.(Notifier)
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrNop(h.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(api chi.Router) {
		api.Post("/integration", h.publishIntegration)
		api.Post("/diff/{integrationID}", h.publishDiff)
		api.Get("/identities/{did}/messages", h.messages)
		api.Get("/identities/{did}", h.resolve)
		if h.notifier != nil {
			api.Get("/identities/{did}/watch", h.watch)
		}
	})

	if h.faults != nil {
		r.Post("/_debug/faults", h.applyFaults)
	}
	return r
}

func (h *handler) publishIntegration(w http.ResponseWriter, r *http.Request) {
	var doc domain.Document
	if !decode(w, r, &doc) {
		return
	}
	if _, err := domain.ParseDID(string(doc.ID)); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := h.ledger.PublishIntegration(r.Context(), &doc)
	if err != nil {
		h.ledgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.PublishResponse{MessageID: id})
}

func (h *handler) publishDiff(w http.ResponseWriter, r *http.Request) {
	index, err := domain.ParseMessageID(chi.URLParam(r, "integrationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if index.IsNull() {
		writeError(w, http.StatusBadRequest, errors.New("diff index is the null message id"))
		return
	}

	var diff domain.DiffMessage
	if !decode(w, r, &diff) {
		return
	}
	if err := diff.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := h.ledger.PublishDiff(r.Context(), index, &diff)
	if err != nil {
		h.ledgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.PublishResponse{MessageID: id})
}

func (h *handler) messages(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(w, r)
	if !ok {
		return
	}
	integration, diffs, err := h.ledger.Messages(r.Context(), did)
	if err != nil {
		h.ledgerError(w, r, err)
		return
	}
	if len(integration) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", ports.ErrIdentityNotFound, did))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewMessages(did, integration, diffs))
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(w, r)
	if !ok {
		return
	}
	resolved, err := h.ledger.ReadDocument(r.Context(), did)
	if err != nil {
		h.ledgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (h *handler) applyFaults(w http.ResponseWriter, r *http.Request) {
	var req debug.FaultRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.faults.Apply(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.logger.Warn("fault injection armed", "faults", h.faults.Snapshot())
	writeJSON(w, http.StatusOK, h.faults.Snapshot())
}

func (h *handler) ledgerError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ports.ErrIdentityNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	h.logger.Error("ledger operation failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err)
	writeError(w, http.StatusServiceUnavailable, err)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func didParam(w http.ResponseWriter, r *http.Request) (domain.DID, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "did"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	did, err := domain.ParseDID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	return did, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, dto.Error{Error: err.Error()})
}
