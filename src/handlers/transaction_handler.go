package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/capfolio/backend/src/logger"
	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/services"
	"github.com/username/capfolio/backend/src/utils"
)

type TransactionHandler struct {
	uploadService services.UploadService
}

func NewTransactionHandler(service services.UploadService) *TransactionHandler {
	return &TransactionHandler{
		uploadService: service,
	}
}

// HandleGetCanonicalTransactions returns the user's imported crypto
// transactions in canonical form, oldest first.
func (h *TransactionHandler) HandleGetCanonicalTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	transactions, err := h.uploadService.GetCanonicalTransactions(userID)
	if err != nil {
		logger.L.Error("Error retrieving canonical transactions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error retrieving transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []models.CanonicalTransaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// HandleGetEquitySales returns the user's imported broker 1099-B rows.
func (h *TransactionHandler) HandleGetEquitySales(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	sales, err := h.uploadService.GetEquitySales(userID)
	if err != nil {
		logger.L.Error("Error retrieving equity sales", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error retrieving equity sales", http.StatusInternalServerError)
		return
	}
	if sales == nil {
		sales = []models.ReportableTransaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sales)
}

// HandleDeleteAllTransactions wipes every imported row for the user, both
// equity and crypto.
func (h *TransactionHandler) HandleDeleteAllTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.uploadService.DeleteAllTransactions(userID); err != nil {
		logger.L.Error("Error deleting transactions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error deleting transactions", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Deleted all transactions for user", "userID", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "All transactions deleted"})
}
