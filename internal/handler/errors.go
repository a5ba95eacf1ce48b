package handler

import (
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/repository"
	u "github.com/riteshkumar/ledger-assistant/internal/utils"
)

// handleServiceError maps ledger and service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	switch {
	case errors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "account not found", err.Error())
	case stderrors.Is(err, repository.ErrJournalEntryNotFound):
		u.WriteError(w, http.StatusNotFound, "journal entry not found", "")
	case errors.IsInsufficientFunds(err):
		u.WriteError(w, http.StatusBadRequest, "insufficient funds", err.Error())
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	case stderrors.Is(err, errors.ErrInvalidAccountID):
		u.WriteError(w, http.StatusBadRequest, "invalid account ID", "")
	case stderrors.Is(err, errors.ErrSameAccount):
		u.WriteError(w, http.StatusBadRequest, "same source and destination account", err.Error())
	case stderrors.Is(err, errors.ErrInvalidAmount):
		u.WriteError(w, http.StatusBadRequest, "invalid amount", err.Error())
	case errors.IsUnknownDenomination(err):
		u.WriteError(w, http.StatusBadRequest, "unknown denomination", err.Error())
	case stderrors.Is(err, errors.ErrUnsupportedExchange):
		u.WriteError(w, http.StatusBadRequest, "unsupported exchange", err.Error())
	case stderrors.Is(err, errors.ErrInvalidRate):
		u.WriteError(w, http.StatusBadRequest, "invalid rate", err.Error())
	case stderrors.Is(err, errors.ErrRatesUnavailable):
		u.WriteError(w, http.StatusServiceUnavailable, "exchange rates unavailable", "")
	default:
		logger.Error("internal server error during "+action, zap.Error(err))
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
