package receipt_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/card-receipts/internal/card"
	"github.com/zombor/card-receipts/internal/receipt"
)

// textScanner answers with canned text keyed by image content
type textScanner struct {
	texts map[string]string
}

func (s *textScanner) RecognizeText(imageData []byte, contentType string) (string, error) {
	return s.texts[string(imageData)], nil
}

func (s *textScanner) Close() error {
	return nil
}

func receiptImage(w, h int) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)))).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Integration", func() {
	var (
		tempDir     string
		dbPath      string
		storagePath string
		db          *receipt.BoltDB
		store       receipt.Storage
		scanner     *textScanner
		server      *receipt.Server
		ghServer    *ghttp.Server
		taxiImage   []byte
		gasImage    []byte
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tempDir, "test.db")
		storagePath = filepath.Join(tempDir, "receipts")

		var err error
		db, err = receipt.NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(storagePath)
		Expect(err).NotTo(HaveOccurred())

		taxiImage = receiptImage(30, 60)
		gasImage = receiptImage(60, 30)
		scanner = &textScanner{texts: map[string]string{
			string(taxiImage): "카드이용내역\n상세 이용내역\n카카오모빌리티\n15,200원\n거래일 2026.01.20 23:41\n",
			string(gasImage):  "결제 정보\n해진구도일주유소일산지점\n43,489원\n거래 일자 26. 1. 31 · 14:59:27\n",
		}}

		service := receipt.NewService(db, scanner, store)
		server = receipt.NewServer(service, receipt.BasicAuth{})
		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if db != nil {
			db.Close()
		}
	})

	It("uploads receipts, files them in a report and exports it", func() {
		// Upload, correct, report, export
		ghServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		for name, data := range map[string][]byte{"gas.png": gasImage, "taxi.png": taxiImage} {
			part, err := writer.CreateFormFile("file", name)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(data)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/transactions", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var result receipt.BatchResult
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(respBody, &result)).To(Succeed())
		Expect(result.Failures).To(BeEmpty())
		Expect(result.Transactions).To(HaveLen(2))

		taxi, gas := result.Transactions[0], result.Transactions[1]
		Expect(taxi.Merchant).To(Equal("카카오모빌리티"))
		Expect(taxi.Category).To(Equal("Taxi"))
		Expect(gas.Amount).To(Equal(uint64(43489)))

		// The image is on disk under its stored name
		Expect(filepath.Join(storagePath, taxi.ImagePath)).To(BeAnExistingFile())

		req, err := http.NewRequest("PATCH", ghServer.URL()+"/api/transactions/"+taxi.ID, strings.NewReader(`{"amount":15300}`))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		resp, err = http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		reqBody, err := json.Marshal(map[string][]string{"transaction_ids": {gas.ID, taxi.ID}})
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.Post(ghServer.URL()+"/api/reports", "application/json", bytes.NewReader(reqBody))
		Expect(err).NotTo(HaveOccurred())
		var report receipt.ExpenseReport
		respBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(json.Unmarshal(respBody, &report)).To(Succeed())
		Expect(report.TotalAmount).To(Equal(uint64(15300 + 43489)))

		resp, err = http.Get(ghServer.URL() + "/api/reports/" + report.ID + "/export")
		Expect(err).NotTo(HaveOccurred())
		archive, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
		Expect(err).NotTo(HaveOccurred())
		var names []string
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		Expect(names).To(Equal([]string{"01_taxi.png", "02_gas.png", receipt.BundleCSVName, receipt.BundlePDFName}))

		// Everything survives a restart
		Expect(db.Close()).To(Succeed())
		db, err = receipt.NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())

		saved, err := db.GetTransaction(taxi.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Amount).To(Equal(uint64(15300)))
		Expect(saved.ReportID).To(Equal(report.ID))
		Expect(saved.Format).To(Equal(card.FormatCardApp))

		images, err := os.ReadDir(storagePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(images).To(HaveLen(2))
	})
})
