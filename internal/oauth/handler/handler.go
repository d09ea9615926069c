package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"authserver/internal/oauth/models"
	"authserver/internal/oauth/secrets"
	"authserver/pkg/platform/httputil"
	"authserver/pkg/platform/middleware/metadata"
	"authserver/pkg/platform/sentinel"
	"authserver/pkg/requestcontext"
)

// Registry is the client registry the admin endpoints manage.
type Registry interface {
	Save(ctx context.Context, c *models.ClientRegistration) error
	FindByID(ctx context.Context, id string) (*models.ClientRegistration, error)
	FindByClientID(ctx context.Context, clientID string) (*models.ClientRegistration, error)
}

// Authorizations is the read side of the authorization store.
type Authorizations interface {
	FindByID(ctx context.Context, id string) (*models.AuthorizationSession, error)
}

// Handler wires the admin endpoints to the registry and the authorization
// store.
type Handler struct {
	registry       Registry
	authorizations Authorizations
	logger         *slog.Logger
}

// New constructs an admin handler with its dependencies.
func New(registry Registry, authorizations Authorizations, logger *slog.Logger) *Handler {
	return &Handler{
		registry:       registry,
		authorizations: authorizations,
		logger:         logger,
	}
}

// Register mounts the admin endpoints on the router. Callers guard the
// router with the admin token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Put("/admin/clients/{id}", h.HandlePutClient)
	r.Get("/admin/clients/{id}", h.HandleGetClient)
	r.Get("/admin/clients/by-client-id/{clientID}", h.HandleGetClientByClientID)
	r.Get("/admin/authorizations/{id}", h.HandleGetAuthorization)
}

// HandlePutClient handles PUT /admin/clients/{id}. A new registration gets
// the request time as its issue time; an existing one keeps its issue time
// and, unless a new one is supplied, its secret.
func (h *Handler) HandlePutClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req ClientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	c := req.ToModel(id)

	existing, err := h.registry.FindByID(ctx, id)
	switch {
	case err == nil:
		c.ClientIDIssuedAt = existing.ClientIDIssuedAt
		c.ClientSecret = existing.ClientSecret
	case errors.Is(err, sentinel.ErrNotFound):
		now := requestcontext.Now(ctx)
		c.ClientIDIssuedAt = &now
	default:
		h.fail(ctx, w, "load client registration failed", err, "id", id)
		return
	}

	plain := req.ClientSecret
	if req.GenerateSecret {
		if plain, err = secrets.Generate(); err != nil {
			h.fail(ctx, w, "generate client secret failed", err, "id", id)
			return
		}
	}
	switch {
	case plain == "":
	case secrets.IsEncoded(plain):
		c.ClientSecret = plain
	default:
		if c.ClientSecret, err = secrets.Hash(plain); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	if err := h.registry.Save(ctx, c); err != nil {
		h.fail(ctx, w, "save client registration failed", err, "id", id, "client_id", c.ClientID)
		return
	}

	args := []any{
		"request_id", chimiddleware.GetReqID(ctx),
		"id", id,
		"client_id", c.ClientID,
		"created", existing == nil,
	}
	h.logger.InfoContext(ctx, "client registration saved", append(args, metadata.FromContext(ctx).LogAttrs()...)...)

	resp := ClientResponse{ClientRegistration: c, Confidential: c.IsConfidential()}
	if req.GenerateSecret {
		resp.ClientSecret = plain
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetClient handles GET /admin/clients/{id}.
func (h *Handler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	c, err := h.registry.FindByID(ctx, id)
	if err != nil {
		h.fail(ctx, w, "load client registration failed", err, "id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ClientResponse{ClientRegistration: c, Confidential: c.IsConfidential()})
}

// HandleGetClientByClientID handles GET /admin/clients/by-client-id/{clientID}.
func (h *Handler) HandleGetClientByClientID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "clientID")

	c, err := h.registry.FindByClientID(ctx, clientID)
	if err != nil {
		h.fail(ctx, w, "load client registration failed", err, "client_id", clientID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ClientResponse{ClientRegistration: c, Confidential: c.IsConfidential()})
}

// HandleGetAuthorization handles GET /admin/authorizations/{id}.
func (h *Handler) HandleGetAuthorization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	a, err := h.authorizations.FindByID(ctx, id)
	if err != nil {
		h.fail(ctx, w, "load authorization failed", err, "id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuthorizationResponse(a))
}

// fail writes err and logs it unless it is an expected client-side outcome.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, args ...any) {
	if status, _ := httputil.StatusFor(err); status >= http.StatusInternalServerError {
		args = append(args, "request_id", chimiddleware.GetReqID(ctx), "error", err)
		h.logger.ErrorContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}
