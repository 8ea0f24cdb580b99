package receipt

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/zombor/card-receipts/internal/card"
	"github.com/zombor/card-receipts/internal/pdf"
)

// Names of the fixed entries in an export bundle
const (
	BundleCSVName = "transactions.csv"
	BundlePDFName = "receipts.pdf"
)

const utf8BOM = "\ufeff"

// csvRow is one line of the expense import sheet. The merchant column
// carries the expense label when one is assigned.
type csvRow struct {
	Filename string `csv:"파일명"`
	Date     string `csv:"날짜"`
	Merchant string `csv:"가맹점"`
	Amount   uint64 `csv:"금액"`
}

func toCSVRows(txns []*card.Transaction) []*csvRow {
	rows := make([]*csvRow, 0, len(txns))
	for _, txn := range txns {
		merchant := txn.Merchant
		if txn.Category != "" {
			merchant = txn.Category
		}
		rows = append(rows, &csvRow{
			Filename: txn.Filename,
			Date:     txn.DateTime.In(time.UTC).Format("01.02 15:04"),
			Merchant: merchant,
			Amount:   txn.Amount,
		})
	}
	return rows
}

// WriteCSV writes txns as a spreadsheet-friendly CSV with a UTF-8 BOM
func WriteCSV(w io.Writer, txns []*card.Transaction) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	if err := gocsv.Marshal(toCSVRows(txns), w); err != nil {
		return fmt.Errorf("marshaling csv: %w", err)
	}
	return nil
}

// bundleImageName numbers images by their position in the document
func bundleImageName(i int, txn *card.Transaction) string {
	return fmt.Sprintf("%02d_%s", i+1, filepath.Base(txn.Filename))
}

// WriteBundle writes a ZIP with every source image, the CSV and the PDF.
// txns must have their images loaded. Every entry is stamped with modified.
func WriteBundle(w io.Writer, txns []*card.Transaction, modified time.Time) error {
	doc, err := pdf.Encode(txns)
	if err != nil {
		return fmt.Errorf("encoding pdf: %w", err)
	}

	var sheet bytes.Buffer
	if err := WriteCSV(&sheet, txns); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for i, txn := range txns {
		if err := writeZipEntry(zw, bundleImageName(i, txn), txn.ImageBytes, modified); err != nil {
			return err
		}
	}
	if err := writeZipEntry(zw, BundleCSVName, sheet.Bytes(), modified); err != nil {
		return err
	}
	if err := writeZipEntry(zw, BundlePDFName, doc, modified); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing zip: %w", err)
	}
	return nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("adding %s to zip: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s to zip: %w", name, err)
	}
	return nil
}

// selectTransactions returns the given transactions, or all of them when
// ids is empty, in date-time order.
func (s *Service) selectTransactions(ids []string) ([]*card.Transaction, error) {
	var txns []*card.Transaction
	if len(ids) == 0 {
		all, err := s.db.ListTransactions()
		if err != nil {
			return nil, fmt.Errorf("listing transactions: %w", err)
		}
		txns = all
	} else {
		txns = make([]*card.Transaction, 0, len(ids))
		for _, id := range ids {
			txn, err := s.db.GetTransaction(id)
			if err != nil {
				return nil, fmt.Errorf("getting transaction %s: %w", id, err)
			}
			txns = append(txns, txn)
		}
	}
	card.Sort(txns, card.SortByDateTime, card.Ascending)
	return txns, nil
}

// exportTransactions is selectTransactions with the images loaded
func (s *Service) exportTransactions(ids []string) ([]*card.Transaction, error) {
	txns, err := s.selectTransactions(ids)
	if err != nil {
		return nil, err
	}
	for _, txn := range txns {
		data, err := s.storage.Get(txn.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("loading image for %s: %w", txn.ID, err)
		}
		txn.ImageBytes = data
	}
	return txns, nil
}

// ExportPDF renders the receipt book for ids, or for every transaction
func (s *Service) ExportPDF(ids []string) ([]byte, error) {
	txns, err := s.exportTransactions(ids)
	if err != nil {
		return nil, err
	}
	return pdf.Encode(txns)
}

// ExportCSV writes the expense sheet for ids, or for every transaction
func (s *Service) ExportCSV(ids []string) ([]byte, error) {
	txns, err := s.selectTransactions(ids)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, txns); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportBundle writes the ZIP bundle for ids, or for every transaction
func (s *Service) ExportBundle(ids []string) ([]byte, error) {
	txns, err := s.exportTransactions(ids)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteBundle(&buf, txns, s.timeSource.Now()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportReport writes the ZIP bundle for the transactions of a report
func (s *Service) ExportReport(id string) ([]byte, error) {
	report, err := s.db.GetReport(id)
	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return s.ExportBundle(report.TransactionIDs)
}
