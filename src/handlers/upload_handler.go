package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/capfolio/backend/src/config"
	"github.com/username/capfolio/backend/src/database"
	"github.com/username/capfolio/backend/src/logger"
	"github.com/username/capfolio/backend/src/model"
	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers"
	"github.com/username/capfolio/backend/src/security/validation"
	"github.com/username/capfolio/backend/src/services"
	"github.com/username/capfolio/backend/src/utils"
)

type UploadHandler struct {
	uploadService services.UploadService
}

func NewUploadHandler(service services.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: service,
	}
}

// parseOptionsFromForm reads the optional parse preferences the frontend
// sends alongside the file: a forced source, a date format hint, and a
// manual column mapping for the generic parsers.
func parseOptionsFromForm(r *http.Request, domain string) (parsers.Options, error) {
	opts := parsers.Options{
		Source: r.FormValue("source"),
	}

	if df := r.FormValue("date_format"); df != "" {
		switch models.DateFormat(df) {
		case models.DateFormatMDY, models.DateFormatDMY, models.DateFormatYMD, models.DateFormatISO:
			opts.DateFormat = models.DateFormat(df)
		default:
			return opts, fmt.Errorf("unknown date_format %q", df)
		}
	} else {
		opts.DateFormat = models.DateFormat(config.Cfg.DefaultDateFormat)
	}

	if mappingJSON := r.FormValue("mapping"); mappingJSON != "" {
		mapping := map[string]int{}
		if err := json.Unmarshal([]byte(mappingJSON), &mapping); err != nil {
			return opts, fmt.Errorf("mapping must be a JSON object of field name to column index: %w", err)
		}
		if domain == "crypto" {
			opts.CryptoMapping = models.CryptoColumnMapping(mapping)
		} else {
			opts.Mapping = models.ColumnMapping(mapping)
		}
	}

	return opts, nil
}

func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	domain := r.FormValue("domain")
	if domain != "equity" && domain != "crypto" {
		utils.SendJSONError(w, "Form field 'domain' must be 'equity' or 'crypto'", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file header reports size too large", "userID", userID, "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		logger.L.Warn("Invalid client-declared file type", "userID", userID, "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		logger.L.Warn("Server-side file content validation failed", "userID", userID, "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L.Debug("File content validated", "userID", userID, "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

	opts, err := parseOptionsFromForm(r, domain)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.L.Info("Processing upload request", "userID", userID, "filename", fileHeader.Filename, "domain", domain, "source", opts.Source)

	var result interface{}
	if domain == "equity" {
		result, err = h.uploadService.ProcessEquityUpload(file, userID, opts)
	} else {
		result, err = h.uploadService.ProcessCryptoUpload(file, userID, opts)
	}
	if err != nil {
		if errors.Is(err, services.ErrParsingFailed) {
			logger.L.Warn("Upload processing failed due to CSV parsing errors", "userID", userID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV file: %v", err), http.StatusBadRequest)
		} else if errors.Is(err, services.ErrNoUsableRows) {
			logger.L.Warn("Upload contained no usable rows", "userID", userID, "filename", fileHeader.Filename)
			utils.SendJSONError(w, "No usable rows found in the uploaded file", http.StatusBadRequest)
		} else {
			logger.L.Error("Internal error processing upload", "userID", userID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for upload result", "userID", userID, "error", err)
	}
}

// resolveMethod picks the cost basis method for a report request: the
// ?method= query parameter wins, then the user's stored default, then the
// server-wide default.
func resolveMethod(r *http.Request, userID int64) (models.CostBasisMethod, error) {
	if methodStr := r.URL.Query().Get("method"); methodStr != "" {
		return models.ParseCostBasisMethod(methodStr)
	}
	if user, err := model.GetUserByID(database.DB, userID); err == nil && user.DefaultCostBasisMethod != "" {
		if method, err := models.ParseCostBasisMethod(user.DefaultCostBasisMethod); err == nil {
			return method, nil
		}
	}
	return models.ParseCostBasisMethod(config.Cfg.DefaultCostBasisMethod)
}

func (h *UploadHandler) HandleGetRealizedGainsData(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	method, err := resolveMethod(r, userID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.uploadService.GetRealizedGainsReport(userID, method)
	if err != nil {
		logger.L.Error("Error building realized gains report", "userID", userID, "method", method.String(), "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving realized gains data for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}

	if report.EquityTransactions == nil {
		report.EquityTransactions = []models.ReportableTransaction{}
	}
	if report.CryptoTransactions == nil {
		report.CryptoTransactions = []models.ReportableTransaction{}
	}
	if report.Holdings == nil {
		report.Holdings = []models.Lot{}
	}

	payload, err := json.Marshal(report)
	if err != nil {
		logger.L.Error("Error marshalling realized gains report", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error preparing response", http.StatusInternalServerError)
		return
	}

	etag, err := utils.GenerateETag(json.RawMessage(payload))
	if err != nil {
		logger.L.Error("Error generating ETag", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error preparing response", http.StatusInternalServerError)
		return
	}
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (h *UploadHandler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	method, err := resolveMethod(r, userID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	holdings, err := h.uploadService.GetHoldings(userID, method)
	if err != nil {
		logger.L.Error("Error retrieving holdings", "userID", userID, "method", method.String(), "error", err)
		utils.SendJSONError(w, "Error retrieving holdings", http.StatusInternalServerError)
		return
	}
	if holdings == nil {
		holdings = []models.Lot{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"method":   method.String(),
		"holdings": holdings,
	})
}
