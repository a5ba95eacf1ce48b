package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/models"
	"github.com/riteshkumar/ledger-assistant/internal/service"
	u "github.com/riteshkumar/ledger-assistant/internal/utils"
)

type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *zap.Logger
}

func NewTransactionHandler(transactionService service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts/{id}/deposit", h.Deposit).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/withdraw", h.Withdraw).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/exchange", h.Exchange).Methods(http.MethodPost)
	router.HandleFunc("/transfers", h.Transfer).Methods(http.MethodPost)
	router.HandleFunc("/rates", h.GetRates).Methods(http.MethodGet)
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req models.AmountRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid deposit request", zap.Error(err))
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	receipt, err := h.transactionService.Deposit(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "deposit")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.OperationResponse{
		Account:     models.NewAccountResponse(receipt.Account),
		Transaction: models.NewTransactionResponse(receipt.Transaction),
	})
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req models.AmountRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid withdraw request", zap.Error(err))
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	receipt, err := h.transactionService.Withdraw(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "withdraw")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.OperationResponse{
		Account:     models.NewAccountResponse(receipt.Account),
		Transaction: models.NewTransactionResponse(receipt.Transaction),
	})
}

func (h *TransactionHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req models.ExchangeRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid exchange request", zap.Error(err))
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	receipt, err := h.transactionService.Exchange(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "exchange")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.OperationResponse{
		Account:     models.NewAccountResponse(receipt.Account),
		Transaction: models.NewTransactionResponse(receipt.Transaction),
	})
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid transfer request", zap.Error(err))
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	receipt, err := h.transactionService.Transfer(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "transfer")
		return
	}

	u.WriteJSON(w, http.StatusCreated, models.TransferResponse{
		From:     models.NewAccountResponse(receipt.From),
		To:       models.NewAccountResponse(receipt.To),
		Sent:     models.NewTransactionResponse(receipt.Sent),
		Received: models.NewTransactionResponse(receipt.Received),
	})
}

func (h *TransactionHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.transactionService.Rates(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get rates")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.RatesResponse{
		Home:  models.HomeDenomination,
		Rates: rates.Rates(),
	})
}
