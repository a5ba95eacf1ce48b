package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/models"
	"github.com/riteshkumar/ledger-assistant/internal/service"
	u "github.com/riteshkumar/ledger-assistant/internal/utils"
)

type AccountHandler struct {
	accountService service.AccountService
	logger         *zap.Logger
}

func NewAccountHandler(accountService service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/transactions", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)
}

// ListAccounts returns every account, or the single account matching ?name=.
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		account, err := h.accountService.FindAccountByName(r.Context(), name)
		if err != nil {
			handleServiceError(w, h.logger, err, "find account by name")
			return
		}
		u.WriteJSON(w, http.StatusOK, models.NewAccountResponse(*account))
		return
	}

	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list accounts")
		return
	}
	u.WriteJSON(w, http.StatusOK, newAccountResponses(accounts))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, h.logger, err, "get account")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.NewAccountResponse(*account))
}

func (h *AccountHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			u.WriteError(w, http.StatusBadRequest, "invalid limit", "limit must be an integer")
			return
		}
		limit = n
	}

	history, err := h.accountService.GetHistory(r.Context(), accountID, limit)
	if err != nil {
		handleServiceError(w, h.logger, err, "get history")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.NewTransactionResponses(history))
}

// Reset restores the demo accounts.
func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.Reset(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "reset")
		return
	}
	u.WriteJSON(w, http.StatusOK, newAccountResponses(accounts))
}

func newAccountResponses(accounts []models.Account) []models.AccountResponse {
	out := make([]models.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, models.NewAccountResponse(a))
	}
	return out
}
