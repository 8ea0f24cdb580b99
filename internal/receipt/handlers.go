package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/zombor/card-receipts/internal/card"
	"github.com/zombor/card-receipts/internal/imaging"
	"github.com/zombor/card-receipts/internal/pdf"
)

// maxUploadSize bounds one upload request
const maxUploadSize = int64(100 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v as the JSON response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes an error response with CORS headers set
func writeError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, card.ErrInvalidDateTime), errors.Is(err, pdf.ErrEmptyBatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// idsParam reads a comma separated ids query parameter
func idsParam(r *http.Request) []string {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// readUpload reads one multipart file part
func readUpload(fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}

	// Phones often send application/octet-stream for HEIC
	contentType := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = imaging.ContentTypeFor(fh.Filename)
	}

	return Upload{Filename: fh.Filename, Data: data, ContentType: contentType}, nil
}

// handleUploadReceipts accepts one or more "file" parts and processes them as a batch
func (s *Server) handleUploadReceipts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "Upload is too large. Maximum size is 100MB per request."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, "No file was selected. Please choose one or more receipt images.", http.StatusBadRequest)
		return
	}

	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh)
		if err != nil {
			slog.Error("Error reading file data", "error", err, "filename", fh.Filename)
			writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, u)
	}

	result := s.service.ProcessBatch(uploads)

	code := http.StatusCreated
	if len(result.Transactions) == 0 {
		code = http.StatusBadRequest
	}
	setCORSHeaders(w)
	writeJSON(w, code, result)
}

// handleListTransactions returns all transactions, optionally sorted
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	column, direction, err := card.ParseSort(r.URL.Query().Get("sort"), r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	txns, err := s.service.ListTransactions(column, direction)
	if err != nil {
		slog.Error("Error listing transactions", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, txns)
}

// handleGetTransaction returns a single transaction
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := s.service.GetTransaction(r.PathValue("id"))
	if err != nil {
		writeError(w, "Transaction not found", statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

// handleUpdateTransaction applies a partial correction
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var edit card.Edit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if edit.Empty() {
		writeError(w, "No fields to update", http.StatusBadRequest)
		return
	}

	txn, err := s.service.UpdateTransaction(r.PathValue("id"), edit)
	if err != nil {
		slog.Error("Error updating transaction", "id", r.PathValue("id"), "error", err)
		writeError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

// handleDeleteTransaction deletes a transaction
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTransaction(r.PathValue("id")); err != nil {
		code := statusFor(err)
		msg := "Error deleting transaction"
		if code == http.StatusNotFound {
			msg = "Transaction not found"
		}
		writeError(w, msg, code)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetTransactionImage returns the source image of a transaction
func (s *Server) handleGetTransactionImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetTransactionImage(r.PathValue("id"))
	if err != nil {
		writeError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleListCategories returns the selectable expense labels
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Categories())
}

// handleSuggestCategory returns the suggested expense type for a merchant
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.service.SuggestCategory(r.URL.Query().Get("merchant"))
	if !ok {
		writeError(w, "No suggestion for merchant", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// exportFormats maps an export kind to its producer, MIME type and file name
var exportFormats = map[string]struct {
	contentType string
	filename    string
	produce     func(*Service, []string) ([]byte, error)
}{
	"pdf": {"application/pdf", "receipts.pdf", (*Service).ExportPDF},
	"csv": {"text/csv; charset=utf-8", "transactions.csv", (*Service).ExportCSV},
	"zip": {"application/zip", "receipts.zip", (*Service).ExportBundle},
}

// handleExport downloads the PDF, CSV or ZIP export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFormats[r.PathValue("kind")]
	if !ok {
		writeError(w, "Unknown export format", http.StatusNotFound)
		return
	}

	data, err := format.produce(s.service, idsParam(r))
	if err != nil {
		slog.Error("Error exporting transactions", "kind", r.PathValue("kind"), "error", err)
		writeError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.filename))
	w.Write(data)
}

// handleSummary returns totals over all transactions
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary()
	if err != nil {
		slog.Error("Error summarizing transactions", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleListReports returns a list of all reports
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports()
	if err != nil {
		slog.Error("Error listing reports", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if reports == nil {
		reports = []*ExpenseReport{}
	}

	writeJSON(w, http.StatusOK, reports)
}

// handleCreateReport files transactions into a new report
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionIDs []string `json:"transaction_ids"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := s.service.CreateReport(req.TransactionIDs)
	if err != nil {
		slog.Error("Error creating report", "error", err)
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// handleGetReport returns a report with its transactions
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, txns, err := s.service.GetReportWithTransactions(r.PathValue("id"))
	if err != nil {
		writeError(w, "Report not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report":       report,
		"transactions": txns,
	})
}

// handleExportReport downloads the ZIP bundle of a report
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := s.service.ExportReport(id)
	if err != nil {
		slog.Error("Error exporting report", "id", id, "error", err)
		writeError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.zip"`, id))
	w.Write(data)
}
