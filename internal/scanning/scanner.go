package scanning

import (
	"errors"
	"fmt"
)

// ErrNoText is returned when the model response contains no transcription
var ErrNoText = errors.New("no text recognized")

// Scanner defines the interface for receipt text recognition
type Scanner interface {
	// RecognizeText transcribes all text in a receipt image or PDF, line by line
	RecognizeText(imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// transcribePrompt is the shared prompt used by all LLM providers
const transcribePrompt = `You are an OCR engine. Transcribe every piece of text in this card payment receipt or card app screenshot exactly as printed.

Rules:
- Output one visual line of the receipt per line of text, top to bottom
- Keep labels and values on the same line when they are on the same row, e.g. "승인금액 27,600 원"
- Keep Korean, numbers, punctuation, currency units and dates exactly as shown; do not translate or reformat them
- Do not summarize, explain, or add any text that is not in the image
- Do not use markdown code blocks`

// Config selects and configures a Scanner provider
type Config struct {
	Provider    string // "gemini" or "ollama"
	GeminiKey   string
	GeminiModel string
	OllamaURL   string
	OllamaModel string
}

// New creates the Scanner named by cfg.Provider
func New(cfg Config) (Scanner, error) {
	var (
		s   Scanner
		err error
	)
	switch cfg.Provider {
	case "gemini":
		s, err = NewGemini(cfg.GeminiKey, cfg.GeminiModel)
	case "ollama":
		s, err = NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("invalid scanner type %q: valid types are gemini and ollama", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
