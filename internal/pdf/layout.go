package pdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/zombor/card-receipts/internal/card"
)

// A4 portrait in points, with the margin and the footer band reserved
// under each image for the transaction line.
const (
	PageWidth  = 595.276
	PageHeight = 841.890
	Margin     = 28.35
	FooterBand = 42.52
	FontSize   = 10
)

// Placement is where an image is drawn on the page, in points from the
// lower-left corner.
type Placement struct {
	X, Y          float64
	Width, Height float64
}

// Fit scales an image of imgW x imgH pixels to the largest size that fits
// the printable area without distortion and centers it there.
func Fit(imgW, imgH int) Placement {
	availW := PageWidth - 2*Margin
	availH := PageHeight - FooterBand - 2*Margin

	w, h := float64(imgW), float64(imgH)
	scale := min(availW/w, availH/h)
	drawW, drawH := w*scale, h*scale

	return Placement{
		X:      Margin + (availW-drawW)/2,
		Y:      FooterBand + Margin + (availH-drawH)/2,
		Width:  drawW,
		Height: drawH,
	}
}

// FooterText is the line printed under the i-th (0-based) image
func FooterText(i int, txn *card.Transaction) string {
	return fmt.Sprintf("%d. %s  %s  %s",
		i+1,
		txn.DateTime.In(time.UTC).Format("2006-01-02 15:04"),
		card.FormatAmount(txn.Amount),
		txn.CategoryOrDash(),
	)
}

// toWinAnsi replaces everything outside printable ASCII, which the
// standard Helvetica encoding cannot show for Korean text.
func toWinAnsi(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, s)
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// escapeLiteral makes s safe inside a PDF (...) string
func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}
