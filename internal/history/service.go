package history

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
	"github.com/TheoLangborg/MinFakturaKoll/internal/savings"
	"github.com/TheoLangborg/MinFakturaKoll/internal/scanning"
)

const (
	defaultListLimit = 40
	maxListLimit     = 200
)

// IDGenerator generates unique IDs for history entries
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles invoice scanning and history operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	order       invoice.TemplateOrder
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// A nil scanner means AI analysis is disabled and the rule engine carries
// every scan.
func NewService(db DB, scanner scanning.Scanner, order invoice.TemplateOrder) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		order:       order,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, order invoice.TemplateOrder, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		order:       order,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ScanResult is the outcome of one invoice scan.
type ScanResult struct {
	Entry         *invoice.Entry          `json:"entry"`
	MissingFields []string                `json:"missingFields"`
	Actions       []invoice.EmailTemplate `json:"actions"`
	Warning       string                  `json:"warning"`
}

// ScanInvoice extracts invoice fields from pasted text or an uploaded
// file, stores the result in the owner's history, and prepares the
// follow-up email actions. AI failures degrade to rule-based analysis
// and surface as a warning, never as an error.
func (s *Service) ScanInvoice(ownerID, text string, file *scanning.FilePayload) (*ScanResult, error) {
	text = strings.TrimSpace(text)
	file = scanning.NormalizeFilePayload(file)
	if text == "" && file == nil {
		return nil, fmt.Errorf("%w: provide invoice text or a file", ErrMissingInput)
	}

	var raw *scanning.RawResult
	analysisMode := "rules"
	warning := ""

	if s.scanner == nil {
		warning = "AI-analys är inte aktiverad eftersom ingen Gemini-nyckel är konfigurerad. Regelbaserad analys används tills nyckeln är konfigurerad."
	} else {
		scanned, err := s.scanner.ExtractInvoice(text, file)
		if err != nil {
			slog.Error("AI invoice analysis failed, falling back to rules",
				"owner_id", ownerID,
				"has_file", file != nil,
				"text_length", len(text),
				"error", err,
			)
			warning = "AI-analysen kunde inte genomföras just nu. Regelbaserad analys användes som reserv."
		} else {
			raw = scanned
			analysisMode = "ai"
		}
	}

	extracted, fieldMeta := invoice.Normalize(raw, text)

	now := s.timeSource.Now()
	sourceType := "text"
	fileName := ""
	if file != nil {
		sourceType = "file"
		fileName = file.Name
	}

	entry := &invoice.Entry{
		Invoice:      *extracted,
		ID:           s.idGenerator.Generate(),
		OwnerID:      ownerID,
		BillingType:  invoice.InferBillingType("", extracted.Category, extracted.MonthlyCost, extracted.TotalAmount),
		Status:       invoice.InferStatus(extracted.DueDate, now),
		SourceType:   sourceType,
		FileName:     fileName,
		FilePreview:  buildFilePreview(sourceType, fileName, file, text),
		AnalysisMode: analysisMode,
		FieldMeta:    fieldMeta,
		ScannedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.SaveEntry(entry); err != nil {
		slog.Error("Failed to save history entry", "owner_id", ownerID, "error", err)
		entry.ID = ""
		warning = joinWarnings(warning, "Historikposten kunde inte sparas just nu.")
	}

	return &ScanResult{
		Entry:         entry,
		MissingFields: invoice.MissingFields(extracted),
		Actions:       invoice.EmailActions(extracted, s.order),
		Warning:       warning,
	}, nil
}

// List returns the owner's history entries, newest first. Limit is
// clamped to 1..200 and defaults to 40. Entries stored before status and
// billing type tracking get both backfilled on the way out.
func (s *Service) List(ownerID string, limit int) ([]*invoice.Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	entries, err := s.db.ListEntriesByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing history entries: %w", err)
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	now := s.timeSource.Now()
	for _, entry := range entries {
		if entry.Status == "" {
			entry.Status = invoice.InferStatus(entry.DueDate, now)
		}
		if entry.BillingType == "" {
			entry.BillingType = invoice.InferBillingType("", entry.Category, entry.MonthlyCost, entry.TotalAmount)
		}
	}

	return entries, nil
}

// Update replaces the extracted fields of an owned history entry and
// recomputes its status and billing type.
func (s *Service) Update(ownerID, id string, updated *invoice.Invoice, billingType string) (*invoice.Entry, error) {
	entry, err := s.getOwned(ownerID, id)
	if err != nil {
		return nil, err
	}

	if updated.Currency == "" {
		updated.Currency = "SEK"
	}
	entry.Invoice = *updated
	entry.BillingType = invoice.InferBillingType(billingType, updated.Category, updated.MonthlyCost, updated.TotalAmount)
	entry.Status = invoice.InferStatus(updated.DueDate, s.timeSource.Now())
	entry.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveEntry(entry); err != nil {
		return nil, fmt.Errorf("saving updated entry: %w", err)
	}
	return entry, nil
}

// Delete removes one owned history entry.
func (s *Service) Delete(ownerID, id string) error {
	if _, err := s.getOwned(ownerID, id); err != nil {
		return err
	}
	if err := s.db.DeleteEntry(strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}

// DeleteMany removes the owner's entries among the given ids and reports
// how many were deleted. Missing ids and entries owned by someone else
// are skipped, not errors.
func (s *Service) DeleteMany(ownerID string, ids []string) (int, error) {
	seen := make(map[string]bool)
	safeIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		safeIDs = append(safeIDs, id)
	}
	if len(safeIDs) == 0 {
		return 0, fmt.Errorf("%w: no valid history ids", ErrValidation)
	}

	deleted := 0
	for _, id := range safeIDs {
		entry, err := s.db.GetEntry(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return deleted, fmt.Errorf("checking entry %s: %w", id, err)
		}
		if entry.OwnerID != ownerID {
			continue
		}
		if err := s.db.DeleteEntry(id); err != nil {
			return deleted, fmt.Errorf("deleting entry %s: %w", id, err)
		}
		deleted++
	}

	return deleted, nil
}

// DeleteAll removes every entry the owner has and reports the count.
func (s *Service) DeleteAll(ownerID string) (int, error) {
	entries, err := s.db.ListEntriesByOwner(ownerID)
	if err != nil {
		return 0, fmt.Errorf("listing entries for deletion: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if err := s.db.DeleteEntry(entry.ID); err != nil {
			return deleted, fmt.Errorf("deleting entry %s: %w", entry.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

// AnalyzeSavings runs the recurring-cost analysis over the owner's full
// history.
func (s *Service) AnalyzeSavings(ownerID string) (*savings.Report, error) {
	entries, err := s.db.ListEntriesByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing entries for analysis: %w", err)
	}
	return savings.Analyze(entries), nil
}

func (s *Service) getOwned(ownerID, id string) (*invoice.Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: missing history entry id", ErrValidation)
	}

	entry, err := s.db.GetEntry(id)
	if err != nil {
		return nil, err
	}
	if entry.OwnerID != ownerID {
		slog.Warn("History access with mismatched owner", "owner_id", ownerID, "entry_id", id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, nil
}

func joinWarnings(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + " " + extra
}
