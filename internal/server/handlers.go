package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TheoLangborg/MinFakturaKoll/internal/history"
	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
	"github.com/TheoLangborg/MinFakturaKoll/internal/market"
	"github.com/TheoLangborg/MinFakturaKoll/internal/scanning"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses with the
// Swedish messages the frontend shows.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrMissingInput):
		writeError(w, http.StatusBadRequest, "Skicka med fakturatext eller en fil för analys.")
	case errors.Is(err, history.ErrValidation):
		writeError(w, http.StatusBadRequest, "Ogiltig förfrågan. Kontrollera historik-id och försök igen.")
	case errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, "Historikposten finns inte.")
	default:
		slog.Error("Unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "Ett oväntat fel inträffade. Försök igen.")
	}
}

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScanInvoice extracts invoice fields from pasted text or an
// uploaded file and records the scan in the caller's history.
func (s *Server) handleScanInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string                `json:"text"`
		File *scanning.FilePayload `json:"file"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Kunde inte läsa förfrågan. Kontrollera formatet och försök igen.")
		return
	}

	result, err := s.service.ScanInvoice(s.ownerID(r), req.Text, req.File)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"extracted":     result.Entry.Invoice,
		"fieldMeta":     result.Entry.FieldMeta,
		"actions":       result.Actions,
		"missingFields": result.MissingFields,
		"analysisMode":  result.Entry.AnalysisMode,
		"billingType":   result.Entry.BillingType,
		"status":        result.Entry.Status,
		"warning":       result.Warning,
		"historyId":     result.Entry.ID,
	})
}

// handleListInvoices returns the caller's history entries
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil {
			limit = parsed
		}
	}

	entries, err := s.service.List(s.ownerID(r), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// handleUpdateInvoice replaces the extracted fields of a history entry
func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		invoice.Invoice
		BillingType string `json:"billingType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Kunde inte läsa förfrågan. Kontrollera formatet och försök igen.")
		return
	}

	entry, err := s.service.Update(s.ownerID(r), r.PathValue("id"), &req.Invoice, req.BillingType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// handleDeleteInvoice deletes a single history entry
func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(s.ownerID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deletedCount": 1})
}

// handleDeleteInvoices deletes a batch of history entries
func (s *Server) handleDeleteInvoices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Kunde inte läsa förfrågan. Kontrollera formatet och försök igen.")
		return
	}

	count, err := s.service.DeleteMany(s.ownerID(r), req.IDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deletedCount": count})
}

// handleDeleteAllInvoices clears the caller's history
func (s *Server) handleDeleteAllInvoices(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.DeleteAll(s.ownerID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deletedCount": count})
}

// handleSavings runs the recurring-cost analysis over the caller's history
func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.AnalyzeSavings(s.ownerID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleMarketCompare compares submitted subscriptions against market prices
func (s *Server) handleMarketCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []market.Item `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Kunde inte läsa förfrågan. Kontrollera formatet och försök igen.")
		return
	}

	result, err := s.comparator.Compare(r.Context(), req.Items)
	if err != nil {
		slog.Error("Market comparison failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Prisjämförelsen kunde inte genomföras just nu.")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
