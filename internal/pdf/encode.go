// Package pdf writes a receipt book: one A4 page per transaction with the
// receipt image scaled to fit and a one-line footer underneath.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/card-receipts/internal/card"
	"github.com/zombor/card-receipts/internal/imaging"
)

// ErrEmptyBatch is returned when there is nothing to put in the document
var ErrEmptyBatch = errors.New("no transactions to export")

// ImageDecodeError reports the 1-based position of an image that could not
// be decoded. Nothing is written when it occurs.
type ImageDecodeError struct {
	Index int
	Err   error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("image %d could not be decoded: %v", e.Index, e.Err)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Err
}

// Objects 1-3 are shared; each page adds a page, a content stream and an image.
const (
	catalogObj = 1
	pagesObj   = 2
	fontObj    = 3
	objsPerPg  = 3
)

func pageObj(i int) int    { return 4 + objsPerPg*i }
func contentObj(i int) int { return 5 + objsPerPg*i }
func imageObj(i int) int   { return 6 + objsPerPg*i }

// Encode renders txns in the given order into a single PDF 1.4 document
func Encode(txns []*card.Transaction) ([]byte, error) {
	if len(txns) == 0 {
		return nil, ErrEmptyBatch
	}

	images, err := encodeImages(txns)
	if err != nil {
		return nil, err
	}

	w := newWriter(len(txns))
	w.header()

	w.object(catalogObj, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj))

	var kids bytes.Buffer
	for i := range txns {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", pageObj(i))
	}
	w.object(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(txns)))

	w.object(fontObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, txn := range txns {
		img := images[i]

		w.object(pageObj(i), fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.3f %.3f] /Contents %d 0 R "+
				"/Resources << /Font << /F1 %d 0 R >> /XObject << /Im%d %d 0 R >> >> >>",
			pagesObj, PageWidth, PageHeight, contentObj(i), fontObj, i, imageObj(i)))

		w.stream(contentObj(i), "", pageContent(i, txn, img))

		w.stream(imageObj(i), fmt.Sprintf(
			"/Type /XObject /Subtype /Image /Width %d /Height %d "+
				"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode ",
			img.Width, img.Height), img.Data)
	}

	w.trailer()
	return w.buf.Bytes(), nil
}

// encodeImages re-encodes every image as JPEG in parallel. On failure the
// lowest failing position is reported regardless of completion order.
func encodeImages(txns []*card.Transaction) ([]*imaging.JPEG, error) {
	images := make([]*imaging.JPEG, len(txns))
	errs := make([]error, len(txns))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, txn := range txns {
		g.Go(func() error {
			images[i], errs[i] = imaging.ToJPEG(txn.ImageBytes)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &ImageDecodeError{Index: i + 1, Err: err}
		}
	}
	return images, nil
}

func pageContent(i int, txn *card.Transaction, img *imaging.JPEG) []byte {
	p := Fit(img.Width, img.Height)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "q\n%.2f 0 0 %.2f %.2f %.2f cm\n/Im%d Do\nQ\n", p.Width, p.Height, p.X, p.Y, i)
	fmt.Fprintf(&buf, "BT\n/F1 %d Tf\n%.2f %.2f Td\n(%s) Tj\nET\n",
		FontSize, Margin, FooterBand/2-5, escapeLiteral(toWinAnsi(FooterText(i, txn))))
	return buf.Bytes()
}

// writer appends objects to buf and remembers where each one starts
type writer struct {
	buf     bytes.Buffer
	offsets []int
}

func newWriter(pages int) *writer {
	return &writer{offsets: make([]int, fontObj+objsPerPg*pages+1)}
}

func (w *writer) header() {
	w.buf.WriteString("%PDF-1.4\n")
	w.buf.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})
}

func (w *writer) object(num int, body string) {
	w.offsets[num] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

// stream writes a stream object; extra goes into the dictionary before /Length
func (w *writer) stream(num int, extra string, data []byte) {
	w.offsets[num] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< %s/Length %d >>\nstream\n", num, extra, len(data))
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func (w *writer) trailer() {
	xref := w.buf.Len()
	size := len(w.offsets)

	fmt.Fprintf(&w.buf, "xref\n0 %d\n", size)
	w.buf.WriteString("0000000000 65535 f \n")
	for _, off := range w.offsets[1:] {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, catalogObj, xref)
}
