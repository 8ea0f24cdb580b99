package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/card-receipts/internal/expense"
	"github.com/zombor/card-receipts/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

var (
	errUsage          = errors.New("usage: receipt-batch [flags] <image or directory>...")
	errNoTransactions = errors.New("no receipt could be read")
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("receipt-batch failed", "error", err)
		os.Exit(1)
	}
}

// run processes the receipts named by args, printing the table to stdout
// and the failures to stderr
func run(args []string, stdout, stderr io.Writer) error {
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Fprintln(stdout, version)
			return nil
		}
	}

	fs := ff.NewFlagSet("receipt-batch")
	var (
		scannerType = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		noOCR       = fs.BoolLong("no-ocr", "Only use .txt sidecars, never call a scanner")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		concurrency = fs.IntLong("concurrency", 4, "Receipts recognized in parallel")
		zipPath     = fs.StringLong("zip", "", "Write the images, CSV and PDF to this ZIP file")
		pdfPath     = fs.StringLong("pdf", "", "Write the receipt PDF to this file")
		_           = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("CARD_RECEIPTS"),
	); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	paths, err := collectPaths(fs.GetArgs())
	if err != nil {
		return fmt.Errorf("collecting receipt files: %w", err)
	}
	if len(paths) == 0 {
		return errUsage
	}

	p := &processor{detector: expense.DefaultDetector, concurrency: *concurrency}
	if !*noOCR {
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		scanner, err := scanning.New(scanning.Config{
			Provider:    *scannerType,
			GeminiKey:   apiKey,
			GeminiModel: *geminiModel,
			OllamaURL:   *ollamaURL,
			OllamaModel: *ollamaModel,
		})
		if err != nil {
			return fmt.Errorf("initializing scanner: %w", err)
		}
		defer scanner.Close()
		p.scanner = scanner
	}

	result := p.process(paths)
	printTable(stdout, result.Transactions)
	printFailures(stderr, result.Failures)

	if len(result.Transactions) == 0 {
		return errNoTransactions
	}
	if *zipPath != "" {
		if err := writeBundle(*zipPath, result.Transactions, time.Now()); err != nil {
			return fmt.Errorf("writing bundle: %w", err)
		}
		slog.Info("Wrote bundle", "path", *zipPath)
	}
	if *pdfPath != "" {
		if err := writePDF(*pdfPath, result.Transactions); err != nil {
			return fmt.Errorf("writing pdf: %w", err)
		}
		slog.Info("Wrote pdf", "path", *pdfPath)
	}
	return nil
}
