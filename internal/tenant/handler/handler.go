package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hearthgate/internal/tenant/models"
	id "hearthgate/pkg/domain"
	dErrors "hearthgate/pkg/domain-errors"
	"hearthgate/pkg/platform/httputil"
	"hearthgate/pkg/platform/sentinel"
	"hearthgate/pkg/requestcontext"
)

// Store reads households.
type Store interface {
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Register registers the household routes. They must sit behind the
// authentication filter, which puts the caller's tenant in the context.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/household", h.HandleGetHousehold)
}

// HandleGetHousehold returns the signed-in user's household.
func (h *Handler) HandleGetHousehold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	tenant, err := h.store.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "household not found"))
			return
		}
		h.logger.ErrorContext(ctx, "get household failed",
			"error", err,
			"tenant_id", tenantID.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load household"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}
