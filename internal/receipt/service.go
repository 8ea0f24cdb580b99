package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/card-receipts/internal/card"
	"github.com/zombor/card-receipts/internal/expense"
	"github.com/zombor/card-receipts/internal/parser"
	"github.com/zombor/card-receipts/internal/scanning"
)

// DefaultBatchConcurrency bounds parallel OCR calls in ProcessBatch
const DefaultBatchConcurrency = 4

// IDGenerator generates unique IDs for transactions and reports
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

// Service handles transaction operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	detector    *expense.Detector
	idGenerator IDGenerator
	timeSource  TimeSource
	concurrency int
}

// NewService creates a new Service with the default expense rules, ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return NewServiceWithDeps(db, scanner, storage, expense.DefaultDetector, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, detector *expense.Detector, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		detector:    detector,
		idGenerator: idGen,
		timeSource:  timeSrc,
		concurrency: DefaultBatchConcurrency,
	}
}

// SetBatchConcurrency changes how many uploads ProcessBatch recognizes at once
func (s *Service) SetBatchConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.concurrency = n
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Phone exports have very long names; keep 50 characters of the base
	if runes := []rune(base); len(runes) > 50 {
		base = string(runes[:50])
	}

	if base == "" {
		base = "receipt"
	}

	return base + strings.ToLower(ext)
}

// parse extracts a transaction from recognized text and suggests a category
func (s *Service) parse(u Upload, text string) (*card.Transaction, error) {
	txn, err := parser.Parse(u.Filename, text)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}
	txn.ContentType = u.ContentType

	if rec, ok := s.detector.Detect(txn.Merchant); ok {
		txn.Category = rec.Label
	}
	return txn, nil
}

// recognize runs OCR on the upload and parses the result
func (s *Service) recognize(u Upload) (*card.Transaction, error) {
	text, err := s.scanner.RecognizeText(u.Data, u.ContentType)
	if err != nil {
		slog.Error("Failed to recognize receipt text",
			"filename", u.Filename,
			"content_type", u.ContentType,
			"file_size", len(u.Data),
			"error", err,
		)
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	txn, err := s.parse(u, text)
	if err != nil {
		slog.Warn("Failed to parse receipt text", "filename", u.Filename, "error", err)
		return nil, err
	}
	return txn, nil
}

// persist stores the image and the transaction. The image is removed again
// when the transaction cannot be saved.
func (s *Service) persist(txn *card.Transaction, data []byte) error {
	txn.ID = s.idGenerator.Generate()
	now := s.timeSource.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", txn.ID, sanitizeFilename(txn.Filename)), data)
	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	txn.ImagePath = savedPath

	if err := s.db.SaveTransaction(txn); err != nil {
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedPath, "error", delErr)
		}
		return fmt.Errorf("saving transaction to database: %w", err)
	}
	return nil
}

// ProcessReceipt recognizes, parses and saves one receipt image
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*card.Transaction, error) {
	u := Upload{Filename: filename, Data: data, ContentType: contentType}
	txn, err := s.recognize(u)
	if err != nil {
		return nil, err
	}
	if err := s.persist(txn, data); err != nil {
		return nil, err
	}
	return txn, nil
}

// ProcessText saves a receipt whose text was recognized elsewhere
func (s *Service) ProcessText(filename string, data []byte, contentType string, text string) (*card.Transaction, error) {
	txn, err := s.parse(Upload{Filename: filename, Data: data, ContentType: contentType}, text)
	if err != nil {
		return nil, err
	}
	if err := s.persist(txn, data); err != nil {
		return nil, err
	}
	return txn, nil
}

// ProcessBatch recognizes uploads concurrently and saves them in upload
// order. Transactions come back sorted by date-time; uploads that failed
// are reported separately and do not stop the others.
func (s *Service) ProcessBatch(uploads []Upload) *BatchResult {
	results := make([]*card.Transaction, len(uploads))
	errs := make([]error, len(uploads))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range uploads {
		g.Go(func() error {
			results[i], errs[i] = s.recognize(u)
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult{
		Transactions: make([]*card.Transaction, 0, len(uploads)),
		Failures:     make([]Failure, 0),
	}
	for i, u := range uploads {
		if errs[i] == nil {
			errs[i] = s.persist(results[i], u.Data)
		}
		if errs[i] != nil {
			batch.Failures = append(batch.Failures, Failure{Filename: u.Filename, Error: errs[i].Error()})
			continue
		}
		batch.Transactions = append(batch.Transactions, results[i])
	}

	card.Sort(batch.Transactions, card.SortByDateTime, card.Ascending)
	slog.Info("Processed receipt batch",
		"uploads", len(uploads),
		"transactions", len(batch.Transactions),
		"failures", len(batch.Failures),
	)
	return batch
}

// GetTransaction retrieves a transaction by ID
func (s *Service) GetTransaction(id string) (*card.Transaction, error) {
	txn, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions returns all transactions ordered by column and direction.
// card.SortByIndex keeps upload order.
func (s *Service) ListTransactions(column card.SortColumn, direction card.SortDirection) ([]*card.Transaction, error) {
	txns, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].CreatedAt.Before(txns[j].CreatedAt)
	})
	card.Sort(txns, column, direction)
	return txns, nil
}

// UpdateTransaction applies a user correction
func (s *Service) UpdateTransaction(id string, edit card.Edit) (*card.Transaction, error) {
	txn, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction for update: %w", err)
	}
	if err := txn.Apply(edit); err != nil {
		return nil, err
	}
	txn.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveTransaction(txn); err != nil {
		return nil, fmt.Errorf("updating transaction: %w", err)
	}
	return txn, nil
}

// DeleteTransaction removes a transaction and its image
func (s *Service) DeleteTransaction(id string) error {
	txn, err := s.db.GetTransaction(id)
	if err != nil {
		return fmt.Errorf("getting transaction for deletion: %w", err)
	}

	if err := s.storage.Delete(txn.ImagePath); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", txn.ImagePath, "error", err)
	}

	if err := s.db.DeleteTransaction(id); err != nil {
		return fmt.Errorf("deleting transaction from database: %w", err)
	}
	return nil
}

// GetTransactionImage retrieves the source image of a transaction
func (s *Service) GetTransactionImage(id string) ([]byte, string, error) {
	txn, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting transaction: %w", err)
	}

	data, err := s.storage.Get(txn.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("getting transaction image: %w", err)
	}

	return data, txn.ContentType, nil
}

// Summary totals all transactions, overall and per category
func (s *Service) Summary() (*Summary, error) {
	txns, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	summary := &Summary{Count: len(txns), ByCategory: make(map[string]uint64)}
	for _, txn := range txns {
		summary.ByCategory[txn.CategoryOrDash()] += txn.Amount
	}
	summary.Total = card.Total(txns)
	summary.Formatted = card.FormatAmount(summary.Total)
	return summary, nil
}

// Categories lists the expense labels that can be assigned
func (s *Service) Categories() []string {
	return s.detector.Labels()
}

// SuggestCategory returns the expense type the rules suggest for merchant
func (s *Service) SuggestCategory(merchant string) (expense.Recommendation, bool) {
	return s.detector.Detect(merchant)
}

// CreateReport files the given transactions together as one expense report
func (s *Service) CreateReport(transactionIDs []string) (*ExpenseReport, error) {
	if len(transactionIDs) == 0 {
		return nil, fmt.Errorf("at least one transaction is required")
	}

	now := s.timeSource.Now()
	id := s.idGenerator.Generate()

	seen := make(map[string]bool, len(transactionIDs))
	txns := make([]*card.Transaction, 0, len(transactionIDs))
	for _, txnID := range transactionIDs {
		if seen[txnID] {
			return nil, fmt.Errorf("transaction %s is listed more than once", txnID)
		}
		seen[txnID] = true

		txn, err := s.db.GetTransaction(txnID)
		if err != nil {
			return nil, fmt.Errorf("getting transaction %s: %w", txnID, err)
		}
		if txn.ReportID != "" {
			return nil, fmt.Errorf("transaction %s is already in report %s", txnID, txn.ReportID)
		}

		filed := *txn
		filed.ReportID = id
		filed.UpdatedAt = now
		txns = append(txns, &filed)
	}

	report := &ExpenseReport{
		ID:             id,
		TransactionIDs: transactionIDs,
		TotalAmount:    card.Total(txns),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.db.SaveReport(report, txns); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	return report, nil
}

// GetReportWithTransactions retrieves a report with its transactions in date-time order
func (s *Service) GetReportWithTransactions(id string) (*ExpenseReport, []*card.Transaction, error) {
	report, err := s.db.GetReport(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting report: %w", err)
	}

	txns := make([]*card.Transaction, 0, len(report.TransactionIDs))
	for _, txnID := range report.TransactionIDs {
		txn, err := s.db.GetTransaction(txnID)
		if err != nil {
			return nil, nil, fmt.Errorf("getting transaction %s: %w", txnID, err)
		}
		txns = append(txns, txn)
	}
	card.Sort(txns, card.SortByDateTime, card.Ascending)

	return report, txns, nil
}

// ListReports returns all reports
func (s *Service) ListReports() ([]*ExpenseReport, error) {
	reports, err := s.db.ListReports()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

// IsNotFound reports whether err means the requested record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
