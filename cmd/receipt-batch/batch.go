package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/card-receipts/internal/card"
	"github.com/zombor/card-receipts/internal/expense"
	"github.com/zombor/card-receipts/internal/imaging"
	"github.com/zombor/card-receipts/internal/parser"
	"github.com/zombor/card-receipts/internal/pdf"
	"github.com/zombor/card-receipts/internal/receipt"
	"github.com/zombor/card-receipts/internal/scanning"
)

// sidecarExt marks a file holding text recognized ahead of time, e.g. IMG_01.jpg.txt
const sidecarExt = ".txt"

var errNoScanner = errors.New("no sidecar text and OCR is disabled")

// collectPaths expands directories into the receipt images they contain.
// Files named explicitly are kept as given.
func collectPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && imaging.Supported(e.Name()) {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	return paths, nil
}

// sidecarText returns the contents of path's sidecar, if there is one
func sidecarText(path string) (string, bool, error) {
	data, err := os.ReadFile(path + sidecarExt)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading sidecar: %w", err)
	}
	return string(data), true, nil
}

// processor turns receipt files into transactions. scanner may be nil, in
// which case every file needs a sidecar.
type processor struct {
	scanner     scanning.Scanner
	detector    *expense.Detector
	concurrency int
}

func (p *processor) processFile(path string) (*card.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	contentType := imaging.ContentTypeFor(path)

	text, ok, err := sidecarText(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		if p.scanner == nil {
			return nil, errNoScanner
		}
		if text, err = p.scanner.RecognizeText(data, contentType); err != nil {
			return nil, fmt.Errorf("recognizing text: %w", err)
		}
	}

	txn, err := parser.Parse(filepath.Base(path), text)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}
	txn.ContentType = contentType
	txn.ImageBytes = data
	if rec, ok := p.detector.Detect(txn.Merchant); ok {
		txn.Category = rec.Label
	}
	return txn, nil
}

// process handles paths concurrently. Successes come back in date-time
// order, failures in input order.
func (p *processor) process(paths []string) *receipt.BatchResult {
	txns := make([]*card.Transaction, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(max(p.concurrency, 1))
	for i, path := range paths {
		g.Go(func() error {
			txns[i], errs[i] = p.processFile(path)
			return nil
		})
	}
	_ = g.Wait()

	result := &receipt.BatchResult{
		Transactions: make([]*card.Transaction, 0, len(paths)),
		Failures:     make([]receipt.Failure, 0),
	}
	for i, path := range paths {
		if errs[i] != nil {
			result.Failures = append(result.Failures, receipt.Failure{Filename: path, Error: errs[i].Error()})
			continue
		}
		result.Transactions = append(result.Transactions, txns[i])
	}
	card.Sort(result.Transactions, card.SortByDateTime, card.Ascending)
	return result
}

// printTable renders txns with a total row
func printTable(w io.Writer, txns []*card.Transaction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "날짜/시간", "가맹점", "비용종류", "금액"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
	})

	for i, txn := range txns {
		table.Append([]string{
			strconv.Itoa(i + 1),
			txn.DateTime.In(time.UTC).Format("2006-01-02 15:04"),
			txn.Merchant,
			txn.CategoryOrDash(),
			card.FormatAmount(txn.Amount),
		})
	}
	table.SetFooter([]string{"", "", "", "합계", card.FormatAmount(card.Total(txns))})
	table.Render()
}

// printFailures lists the files that could not be read
func printFailures(w io.Writer, failures []receipt.Failure) {
	for _, f := range failures {
		fmt.Fprintf(w, "failed: %s: %s\n", f.Filename, f.Error)
	}
}

// writeBundle writes the ZIP bundle of txns to path
func writeBundle(path string, txns []*card.Transaction, modified time.Time) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()
	return receipt.WriteBundle(f, txns, modified)
}

// writePDF writes the receipt book of txns to path
func writePDF(path string, txns []*card.Transaction) error {
	doc, err := pdf.Encode(txns)
	if err != nil {
		return fmt.Errorf("encoding pdf: %w", err)
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
