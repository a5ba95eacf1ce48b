package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/service"
	u "github.com/riteshkumar/ledger-assistant/internal/utils"
)

type AuditHandler struct {
	auditService service.AuditService
	logger       *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

func (h *AuditHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts/{id}/audit", h.GetAccountAuditLogs).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/journal", h.GetJournal).Methods(http.MethodGet)
	router.HandleFunc("/journal/{id}", h.GetJournalEntry).Methods(http.MethodGet)
	router.HandleFunc("/audit/resets", h.GetResetAuditLogs).Methods(http.MethodGet)
}

func (h *AuditHandler) GetAccountAuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.auditService.GetAccountAuditLogs(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, h.logger, err, "get audit logs")
		return
	}
	u.WriteJSON(w, http.StatusOK, logs)
}

func (h *AuditHandler) GetResetAuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.auditService.GetResetAuditLogs(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get reset audit logs")
		return
	}
	u.WriteJSON(w, http.StatusOK, logs)
}

func (h *AuditHandler) GetJournal(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			u.WriteError(w, http.StatusBadRequest, "invalid limit", "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.auditService.GetJournal(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		handleServiceError(w, h.logger, err, "get journal")
		return
	}
	u.WriteJSON(w, http.StatusOK, entries)
}

func (h *AuditHandler) GetJournalEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.auditService.GetJournalEntry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, h.logger, err, "get journal entry")
		return
	}
	u.WriteJSON(w, http.StatusOK, entry)
}
