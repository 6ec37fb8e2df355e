package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/usecase"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/xerrors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

// Handler maps the core's transport-agnostic contracts 1:1 onto HTTP.
type Handler struct {
	accountUC *usecase.AccountUsecase
	txUC      *usecase.TransactionUsecase
}

func NewHandler(accountUC *usecase.AccountUsecase, txUC *usecase.TransactionUsecase) *Handler {
	return &Handler{accountUC: accountUC, txUC: txUC}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(ActorFromHeaders)

		r.Post("/v1/accounts", h.createAccount)
		r.Get("/v1/accounts/{id}", h.getAccount)
		r.Get("/v1/accounts/{id}/balance", h.getBalance)
		r.Get("/v1/accounts/{id}/ledger", h.getStatement)
		r.Patch("/v1/accounts/{id}/status", h.setAccountStatus)

		r.Post("/v1/transactions", h.createTransfer)
		r.Post("/v1/transactions/system-funds", h.createSystemFunds)
		r.Get("/v1/transactions/{id}", h.getTransaction)
	})

	return r
}

type createAccountJSON struct {
	OwnerID  string `json:"owner_id,omitempty"`
	Currency string `json:"currency,omitempty"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var in createAccountJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := actorFrom(r)
	ownerID := actor.UserID
	if in.OwnerID != "" {
		// Only the provisioning system may open accounts for other owners.
		if !actor.IsSystem {
			writeError(w, http.StatusForbidden, "cannot create account for another owner")
			return
		}
		ownerID = in.OwnerID
	}

	account, err := h.accountUC.CreateAccount(r.Context(), ownerID, in.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.GetAccount(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	balance, err := h.accountUC.GetBalance(r.Context(), accountID, actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account_id": accountID,
		"balance":    balance.String(),
	})
}

func (h *Handler) getStatement(w http.ResponseWriter, r *http.Request) {
	entries, err := h.accountUC.Statement(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type setStatusJSON struct {
	Status domain.AccountStatus `json:"status"`
}

func (h *Handler) setAccountStatus(w http.ResponseWriter, r *http.Request) {
	var in setStatusJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accountUC.SetStatus(r.Context(), chi.URLParam(r, "id"), in.Status, actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type createTransferJSON struct {
	FromAccount    string          `json:"from_account"`
	ToAccount      string          `json:"to_account"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var in createTransferJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.txUC.CreateTransfer(r.Context(), &domain.TransferRequest{
		FromAccountID:  in.FromAccount,
		ToAccountID:    in.ToAccount,
		Amount:         in.Amount,
		IdempotencyKey: in.IdempotencyKey,
		Actor:          actorFrom(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, resultHTTPStatus(result), result)
}

type systemFundsJSON struct {
	ToAccount      string          `json:"to_account"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (h *Handler) createSystemFunds(w http.ResponseWriter, r *http.Request) {
	var in systemFundsJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.txUC.CreateSystemFunds(r.Context(), &domain.SystemFundingRequest{
		ToAccountID:    in.ToAccount,
		Amount:         in.Amount,
		IdempotencyKey: in.IdempotencyKey,
		Actor:          actorFrom(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, resultHTTPStatus(result), result)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.txUC.GetTransaction(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func resultHTTPStatus(result *domain.TransactionResult) int {
	switch result.Status {
	case domain.ResultAccepted:
		return http.StatusCreated
	case domain.ResultAlreadyProcessed:
		return http.StatusOK
	case domain.ResultStillProcessing:
		return http.StatusAccepted
	default:
		return http.StatusConflict
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidRequest),
		errors.Is(err, xerrors.ErrSelfTransfer),
		errors.Is(err, xerrors.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrAccountNotFound),
		errors.Is(err, xerrors.ErrTransactionNotFound),
		errors.Is(err, xerrors.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrAccountInactive),
		errors.Is(err, xerrors.ErrAccountClosed),
		errors.Is(err, xerrors.ErrAccountExists),
		errors.Is(err, xerrors.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, xerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, xerrors.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, xerrors.ErrCommitFailed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
