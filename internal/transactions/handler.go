package transactions

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/platform/httpx"
	"github.com/carteira-app/carteira/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler exposes transaction endpoints.
type Handler struct {
	service  *Service
	query    *Query
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, query *Query, validate *validator.Validate) *Handler {
	return &Handler{service: service, query: query, logger: logger, validate: validate}
}

// MountRoutes attaches transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions", h.create)
	r.Get("/transactions", h.list)
	r.Get("/transactions/period", h.listByPeriod)
	r.Get("/transactions/category/{categoryID}", h.listByCategory)
	r.Get("/transactions/kind/{kind}", h.listByKind)
	r.Get("/transactions/status/{status}", h.listByStatus)
	r.Get("/transactions/overdue", h.listOverdue)
	r.Get("/transactions/recurring", h.listRecurring)
	r.Get("/transactions/summary", h.summary)
	r.Get("/transactions/{id}", h.get)
	r.Put("/transactions/{id}", h.update)
	r.Delete("/transactions/{id}", h.delete)
	r.Post("/transactions/{id}/pay", h.pay)
	r.Post("/transactions/{id}/unpay", h.unpay)
	r.Post("/transactions/{id}/cancel", h.cancel)
	r.Post("/transactions/{id}/installments", h.generateInstallments)
}

type transactionPayload struct {
	Description  string          `json:"description" validate:"required,max=250"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	DueDate      string          `json:"due_date" validate:"required"`
	Kind         string          `json:"kind" validate:"required,oneof=INCOME EXPENSE"`
	Notes        *string         `json:"notes" validate:"omitempty,max=1000"`
	CategoryID   int64           `json:"category_id" validate:"required,gt=0"`
	AccountID    int64           `json:"account_id" validate:"required,gt=0"`
	IsRecurring  bool            `json:"is_recurring"`
	Recurrence   string          `json:"recurrence" validate:"omitempty,oneof=NONE DAILY WEEKLY MONTHLY YEARLY"`
	Installments *int            `json:"installments" validate:"omitempty,gt=0,lte=360"`
}

func (p transactionPayload) toInput() (Input, error) {
	due, err := time.Parse(dateLayout, p.DueDate)
	if err != nil {
		return Input{}, shared.ErrInvalidArgument
	}
	recurrence := RecurrenceNone
	if p.Recurrence != "" {
		recurrence = Recurrence(p.Recurrence)
	}
	return Input{
		Description:  p.Description,
		Amount:       p.Amount,
		DueDate:      due,
		Kind:         Kind(p.Kind),
		Notes:        p.Notes,
		CategoryID:   p.CategoryID,
		AccountID:    p.AccountID,
		IsRecurring:  p.IsRecurring,
		Recurrence:   recurrence,
		Installments: p.Installments,
	}, nil
}

type transactionResponse struct {
	ID           int64           `json:"id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      string          `json:"due_date"`
	PaymentDate  *string         `json:"payment_date,omitempty"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	Overdue      bool            `json:"overdue"`
	Notes        *string         `json:"notes,omitempty"`
	CategoryID   int64           `json:"category_id"`
	AccountID    int64           `json:"account_id"`
	IsRecurring  bool            `json:"is_recurring"`
	Recurrence   string          `json:"recurrence"`
	Installments *int            `json:"installments,omitempty"`
	Installment  *int            `json:"installment,omitempty"`
	ParentID     *int64          `json:"parent_id,omitempty"`
}

func toTransactionResponse(tx Transaction, now time.Time) transactionResponse {
	out := transactionResponse{
		ID:           tx.ID,
		Description:  tx.Description,
		Amount:       tx.Amount,
		DueDate:      tx.DueDate.Format(dateLayout),
		Kind:         string(tx.Kind),
		Status:       string(tx.Status),
		Overdue:      tx.IsOverdue(now),
		Notes:        tx.Notes,
		CategoryID:   tx.CategoryID,
		AccountID:    tx.AccountID,
		IsRecurring:  tx.IsRecurring,
		Recurrence:   string(tx.Recurrence),
		Installments: tx.Installments,
		Installment:  tx.Installment,
		ParentID:     tx.ParentID,
	}
	if tx.PaymentDate != nil {
		formatted := tx.PaymentDate.Format(dateLayout)
		out.PaymentDate = &formatted
	}
	return out
}

func (h *Handler) respondList(w http.ResponseWriter, list []Transaction) {
	now := time.Now().UTC()
	out := make([]transactionResponse, 0, len(list))
	for _, tx := range list {
		out = append(out, toTransactionResponse(tx, now))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	var payload transactionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := payload.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tx, err := h.service.Create(r.Context(), input, userID)
	if err != nil {
		h.logger.Error("create transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(tx, time.Now().UTC()))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	list, err := h.query.ListForUser(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, list)
}

func (h *Handler) listByPeriod(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	accountIDs, err := accountIDsParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, to, err := rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.query.ListByPeriod(r.Context(), userID, accountIDs, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, list)
}

func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accountIDs, err := accountIDsParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.query.ListByCategory(r.Context(), userID, categoryID, accountIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, list)
}

func (h *Handler) listByKind(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	kind := Kind(strings.ToUpper(chi.URLParam(r, "kind")))
	if kind != KindIncome && kind != KindExpense {
		httpx.RespondError(w, shared.ErrInvalidArgument)
		return
	}
	accountIDs, err := accountIDsParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.query.ListByKind(r.Context(), userID, kind, accountIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, list)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	status := Status(strings.ToUpper(chi.URLParam(r, "status")))
	if status != StatusPending && status != StatusPaid && status != StatusCancelled {
		httpx.RespondError(w, shared.ErrInvalidArgument)
		return
	}
	accountIDs, err := accountIDsParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.query.ListByStatus(r.Context(), userID, status, accountIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, list)
}

func (h *Handler) listOverdue(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	accountIDs, err := accountIDsParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.query.ListOverdue(r.Context(), userID, accountIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, list)
}

func (h *Handler) listRecurring(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	accountIDs, err := accountIDsParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.query.ListRecurring(r.Context(), userID, accountIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondList(w, list)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	accountIDs, err := accountIDsParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, to, err := rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.query.Summary(r.Context(), userID, accountIDs, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tx, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(tx, time.Now().UTC()))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload transactionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := payload.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tx, err := h.service.Update(r.Context(), id, input, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(tx, time.Now().UTC()))
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

type payPayload struct {
	PaymentDate *string `json:"payment_date"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload payPayload
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
			return
		}
	}
	var paymentDate *time.Time
	if payload.PaymentDate != nil {
		parsed, err := time.Parse(dateLayout, *payload.PaymentDate)
		if err != nil {
			httpx.RespondError(w, shared.ErrInvalidArgument)
			return
		}
		paymentDate = &parsed
	}
	tx, err := h.service.MarkPaid(r.Context(), id, paymentDate, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(tx, time.Now().UTC()))
}

func (h *Handler) unpay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkPending)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, act func(ctx context.Context, id, userID int64) (Transaction, error)) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tx, err := act(r.Context(), id, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(tx, time.Now().UTC()))
}

func (h *Handler) generateInstallments(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	children, err := h.service.GenerateInstallments(r.Context(), id, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	now := time.Now().UTC()
	out := make([]transactionResponse, 0, len(children))
	for _, tx := range children {
		out = append(out, toTransactionResponse(tx, now))
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrInvalidArgument
	}
	return id, nil
}

// accountIDsParam parses the mandatory accounts=1,2,3 query parameter.
// Emptiness is rejected in the gate, not here, so the error taxonomy stays in
// one place.
func accountIDsParam(r *http.Request) ([]int64, error) {
	raw := r.URL.Query().Get("accounts")
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, shared.ErrInvalidArgument
		}
		out = append(out, id)
	}
	return out, nil
}

func rangeParams(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, shared.ErrInvalidArgument
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, shared.ErrInvalidArgument
	}
	return from, to, nil
}
