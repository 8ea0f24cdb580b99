package receipt

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/card-receipts/internal/card"
	"github.com/zombor/card-receipts/internal/expense"
	"github.com/zombor/card-receipts/internal/pdf"
)

func pngBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func zipEntries(data []byte) map[string][]byte {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	Expect(err).NotTo(HaveOccurred())

	entries := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		Expect(err).NotTo(HaveOccurred())
		content, err := io.ReadAll(rc)
		Expect(err).NotTo(HaveOccurred())
		rc.Close()
		entries[f.Name] = content
	}
	return entries
}

func zipNames(data []byte) []string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	Expect(err).NotTo(HaveOccurred())

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

var _ = Describe("WriteCSV", func() {
	It("writes a BOM, the header and one row per transaction", func() {
		txns := []*card.Transaction{
			{Filename: "a.jpg", DateTime: dateTime(2026, 1, 22, 16, 35, 39), Merchant: "네이버파이낸셜(주)", Category: "Office expense", Amount: 27600},
			{Filename: "b.jpg", DateTime: dateTime(2026, 1, 31, 14, 59, 27), Merchant: "해진구도일주유소일산지점", Amount: 43489},
		}

		var buf bytes.Buffer
		Expect(WriteCSV(&buf, txns)).To(Succeed())
		Expect(buf.String()).To(Equal("\ufeff파일명,날짜,가맹점,금액\n" +
			"a.jpg,01.22 16:35,Office expense,27600\n" +
			"b.jpg,01.31 14:59,해진구도일주유소일산지점,43489\n"))
	})

	It("writes only the header for no transactions", func() {
		var buf bytes.Buffer
		Expect(WriteCSV(&buf, nil)).To(Succeed())
		Expect(buf.String()).To(HavePrefix("\ufeff파일명,날짜,가맹점,금액"))
	})
})

var _ = Describe("WriteBundle", func() {
	bundleTime := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	It("numbers the images and adds the sheet and the document", func() {
		txns := []*card.Transaction{
			{Filename: "photos/first.png", DateTime: dateTime(2026, 1, 22, 16, 35, 0), Merchant: "가", Amount: 100, ImageBytes: pngBytes(20, 30)},
			{Filename: "second.png", DateTime: dateTime(2026, 1, 23, 9, 0, 0), Merchant: "나", Amount: 200, ImageBytes: pngBytes(30, 20)},
		}

		var buf bytes.Buffer
		Expect(WriteBundle(&buf, txns, bundleTime)).To(Succeed())

		Expect(zipNames(buf.Bytes())).To(Equal([]string{"01_first.png", "02_second.png", BundleCSVName, BundlePDFName}))
		entries := zipEntries(buf.Bytes())
		Expect(entries["01_first.png"]).To(Equal(txns[0].ImageBytes))
		Expect(string(entries[BundleCSVName])).To(ContainSubstring("second.png,01.23 09:00,나,200"))
		Expect(entries[BundlePDFName]).To(HavePrefix("%PDF-"))
	})

	It("stamps every entry with the given time", func() {
		txns := []*card.Transaction{
			{Filename: "a.png", DateTime: dateTime(2026, 1, 22, 16, 35, 0), Merchant: "가", Amount: 100, ImageBytes: pngBytes(20, 30)},
		}

		var first, second bytes.Buffer
		Expect(WriteBundle(&first, txns, bundleTime)).To(Succeed())
		Expect(WriteBundle(&second, txns, bundleTime)).To(Succeed())
		Expect(first.Bytes()).To(Equal(second.Bytes()))

		zr, err := zip.NewReader(bytes.NewReader(first.Bytes()), int64(first.Len()))
		Expect(err).NotTo(HaveOccurred())
		for _, f := range zr.File {
			Expect(f.Modified).To(BeTemporally("==", bundleTime))
		}
	})

	It("fails without transactions", func() {
		err := WriteBundle(io.Discard, nil, bundleTime)
		Expect(errors.Is(err, pdf.ErrEmptyBatch)).To(BeTrue())
	})
})

var _ = Describe("Service exports", func() {
	var (
		db       *mockDB
		storage  *mockStorage
		scanner  *mockScanner
		service  *Service
		hanaImg  []byte
		naverImg []byte
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		scanner = newMockScanner()
		service = NewServiceWithDeps(db, scanner, storage, expense.DefaultDetector, &mockIDGenerator{},
			&mockTimeSource{now: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)})

		hanaImg = pngBytes(30, 40)
		naverImg = pngBytes(40, 30)
		scanner.texts[string(hanaImg)] = hanaText
		scanner.texts[string(naverImg)] = naverText

		result := service.ProcessBatch([]Upload{
			{Filename: "naver.png", Data: naverImg, ContentType: "image/png"},
			{Filename: "hana.png", Data: hanaImg, ContentType: "image/png"},
		})
		Expect(result.Failures).To(BeEmpty())
	})

	Describe("ExportBundle", func() {
		It("bundles every transaction in date-time order", func() {
			data, err := service.ExportBundle(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(zipNames(data)).To(Equal([]string{"01_hana.png", "02_naver.png", BundleCSVName, BundlePDFName}))
			Expect(zipEntries(data)["02_naver.png"]).To(Equal(naverImg))
		})

		It("bundles only the selected transactions", func() {
			data, err := service.ExportBundle([]string{"id-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(zipNames(data)).To(Equal([]string{"01_naver.png", BundleCSVName, BundlePDFName}))
		})

		It("stamps the entries with the service clock", func() {
			data, err := service.ExportBundle(nil)
			Expect(err).NotTo(HaveOccurred())
			again, err := service.ExportBundle(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(data))

			zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			Expect(err).NotTo(HaveOccurred())
			Expect(zr.File[0].Modified).To(BeTemporally("==", time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)))
		})

		It("fails when an image is missing", func() {
			delete(storage.files, "id-1_naver.png")
			_, err := service.ExportBundle(nil)
			Expect(err).To(MatchError(ContainSubstring("loading image for id-1")))
		})
	})

	Describe("ExportCSV", func() {
		It("uses the expense label in the merchant column", func() {
			data, err := service.ExportCSV(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("hana.png,01.22 16:35,Office expense,27600"))
			Expect(string(data)).To(ContainSubstring("naver.png,01.31 14:59,Gas,43489"))
		})
	})

	Describe("ExportPDF", func() {
		It("renders a document", func() {
			data, err := service.ExportPDF(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(HavePrefix("%PDF-1.4"))
		})

		It("reports unknown IDs", func() {
			_, err := service.ExportPDF([]string{"missing"})
			Expect(IsNotFound(err)).To(BeTrue())
		})

		It("fails on an empty database", func() {
			empty := NewServiceWithDeps(newMockDB(), scanner, storage, expense.DefaultDetector, &mockIDGenerator{}, &mockTimeSource{})
			_, err := empty.ExportPDF(nil)
			Expect(errors.Is(err, pdf.ErrEmptyBatch)).To(BeTrue())
		})
	})

	Describe("ExportReport", func() {
		It("bundles the transactions of the report", func() {
			report, err := service.CreateReport([]string{"id-2"})
			Expect(err).NotTo(HaveOccurred())

			data, err := service.ExportReport(report.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(zipNames(data)).To(Equal([]string{"01_hana.png", BundleCSVName, BundlePDFName}))
		})

		It("reports unknown reports", func() {
			_, err := service.ExportReport("missing")
			Expect(IsNotFound(err)).To(BeTrue())
		})
	})
})
