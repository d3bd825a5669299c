package accounts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carteira-app/carteira/internal/platform/httpx"
	"github.com/carteira-app/carteira/internal/shared"
)

// Handler exposes account and access request endpoints.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, logger: logger, validate: validate}
}

// MountRoutes attaches account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.list)
	r.Post("/accounts", h.create)
	r.Get("/accounts/{id}", h.get)
	r.Put("/accounts/{id}", h.update)
	r.Delete("/accounts/{id}", h.delete)
	r.Post("/accounts/{id}/activate", h.activate)
	r.Post("/accounts/{id}/deactivate", h.deactivate)
	r.Get("/accounts/{id}/members", h.listMembers)
	r.Delete("/accounts/{id}/members/{userID}", h.removeMember)

	r.Post("/accounts/{id}/access-requests", h.requestAccess)
	r.Get("/access-requests/received", h.listReceived)
	r.Get("/access-requests/sent", h.listSent)
	r.Post("/access-requests/{id}/approve", h.approve)
	r.Post("/access-requests/{id}/reject", h.reject)
	r.Post("/access-requests/{id}/cancel", h.cancel)
}

type accountPayload struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type accountResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	OwnerID     int64   `json:"owner_id"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

func toAccountResponse(acc Account) accountResponse {
	return accountResponse{
		ID:          acc.ID,
		Name:        acc.Name,
		Description: acc.Description,
		OwnerID:     acc.OwnerID,
		IsActive:    acc.IsActive,
		CreatedAt:   acc.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	var payload accountPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	acc, err := h.service.Create(r.Context(), CreateAccountInput{
		Name:        payload.Name,
		Description: payload.Description,
		OwnerID:     userID,
	})
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	list, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, acc := range list {
		out = append(out, toAccountResponse(acc))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload accountPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	acc, err := h.service.Update(r.Context(), id, userID, UpdateAccountInput{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.SetActive(r.Context(), id, userID, active)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(acc))
}

type memberResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	UserID      int64  `json:"user_id"`
	CanAddUsers bool   `json:"can_add_users"`
	JoinedAt    string `json:"joined_at"`
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	members, err := h.service.ListMembers(r.Context(), id, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			ID:          m.ID,
			AccountID:   m.AccountID,
			UserID:      m.UserID,
			CanAddUsers: m.CanAddUsers,
			JoinedAt:    m.JoinedAt.Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	accountID, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	memberUserID, err := pathID(r, "userID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveMember(r.Context(), accountID, memberUserID, userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type requestAccessPayload struct {
	Message *string `json:"message" validate:"omitempty,max=500"`
}

type requestResponse struct {
	ID          int64   `json:"id"`
	AccountID   int64   `json:"account_id"`
	RequesterID int64   `json:"requester_id"`
	OwnerID     int64   `json:"owner_id"`
	Status      string  `json:"status"`
	Message     *string `json:"message,omitempty"`
	RespondedAt *string `json:"responded_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toRequestResponse(req AccessRequest) requestResponse {
	out := requestResponse{
		ID:          req.ID,
		AccountID:   req.AccountID,
		RequesterID: req.RequesterID,
		OwnerID:     req.OwnerID,
		Status:      string(req.Status),
		Message:     req.Message,
		CreatedAt:   req.CreatedAt.Format(time.RFC3339),
	}
	if req.RespondedAt != nil {
		formatted := req.RespondedAt.Format(time.RFC3339)
		out.RespondedAt = &formatted
	}
	return out
}

func (h *Handler) requestAccess(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	accountID, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload requestAccessPayload
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
			return
		}
		if err := h.validate.Struct(payload); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	req, err := h.service.RequestAccess(r.Context(), accountID, userID, payload.Message)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRequestResponse(req))
}

func (h *Handler) listReceived(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.service.ListReceived)
}

func (h *Handler) listSent(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.service.ListSent)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, userID int64) ([]AccessRequest, error)) {
	userID := shared.UserIDFromContext(r.Context())
	list, err := fetch(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(list))
	for _, req := range list {
		out = append(out, toRequestResponse(req))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Reject)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Cancel)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, act func(ctx context.Context, requestID, actorID int64) error) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := act(r.Context(), id, userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrInvalidArgument
	}
	return id, nil
}
