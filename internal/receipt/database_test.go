package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/card-receipts/internal/card"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newTransaction := func(id string) *card.Transaction {
		return &card.Transaction{
			ID:          id,
			Filename:    id + ".jpg",
			DateTime:    dateTime(2026, 1, 22, 16, 35, 39),
			Merchant:    "네이버파이낸셜(주)",
			Amount:      27600,
			RawText:     hanaText,
			Format:      card.FormatHanaCard,
			Category:    "Office expense",
			ContentType: "image/jpeg",
			ImagePath:   id + "_receipt.jpg",
			CreatedAt:   time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		}
	}

	Describe("SaveTransaction", func() {
		var (
			txn *card.Transaction
			err error
		)

		BeforeEach(func() {
			txn = newTransaction("test-id")
		})

		JustBeforeEach(func() {
			err = db.SaveTransaction(txn)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should keep every field", func() {
				saved, getErr := db.GetTransaction("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.DateTime).To(Equal(txn.DateTime))
				Expect(saved.Merchant).To(Equal(txn.Merchant))
				Expect(saved.Amount).To(Equal(txn.Amount))
				Expect(saved.Format).To(Equal(card.FormatHanaCard))
				Expect(saved.RawText).To(Equal(hanaText))
				Expect(saved.CreatedAt).To(BeTemporally("==", txn.CreatedAt))
			})

			It("should not store the image bytes", func() {
				txn.ImageBytes = []byte("image")
				Expect(db.SaveTransaction(txn)).To(Succeed())
				saved, getErr := db.GetTransaction("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ImageBytes).To(BeNil())
			})
		})

		When("saving an existing ID", func() {
			It("replaces the stored transaction", func() {
				txn.Merchant = "고친 가맹점"
				Expect(db.SaveTransaction(txn)).To(Succeed())
				saved, getErr := db.GetTransaction("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Merchant).To(Equal("고친 가맹점"))
			})
		})
	})

	Describe("GetTransaction", func() {
		When("the transaction does not exist", func() {
			It("returns a not found error", func() {
				_, err := db.GetTransaction("missing")
				Expect(IsNotFound(err)).To(BeTrue())
				Expect(err).To(MatchError("transactions missing: not found"))
			})
		})
	})

	Describe("ListTransactions", func() {
		When("the database is empty", func() {
			It("returns an empty list", func() {
				txns, err := db.ListTransactions()
				Expect(err).NotTo(HaveOccurred())
				Expect(txns).To(BeEmpty())
				Expect(txns).NotTo(BeNil())
			})
		})

		When("transactions exist", func() {
			BeforeEach(func() {
				Expect(db.SaveTransaction(newTransaction("b"))).To(Succeed())
				Expect(db.SaveTransaction(newTransaction("a"))).To(Succeed())
			})

			It("returns them in key order", func() {
				txns, err := db.ListTransactions()
				Expect(err).NotTo(HaveOccurred())
				Expect(txns).To(HaveLen(2))
				Expect(txns[0].ID).To(Equal("a"))
				Expect(txns[1].ID).To(Equal("b"))
			})
		})
	})

	Describe("DeleteTransaction", func() {
		BeforeEach(func() {
			Expect(db.SaveTransaction(newTransaction("test-id"))).To(Succeed())
		})

		It("removes the transaction", func() {
			Expect(db.DeleteTransaction("test-id")).To(Succeed())
			_, err := db.GetTransaction("test-id")
			Expect(IsNotFound(err)).To(BeTrue())
		})

		It("ignores unknown IDs", func() {
			Expect(db.DeleteTransaction("missing")).To(Succeed())
		})
	})

	Describe("reports", func() {
		var report *ExpenseReport

		BeforeEach(func() {
			report = &ExpenseReport{
				ID:             "report-1",
				TransactionIDs: []string{"t1", "t2"},
				TotalAmount:    44100,
				CreatedAt:      time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
				UpdatedAt:      time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
			}
			filed := newTransaction("t1")
			filed.ReportID = "report-1"
			Expect(db.SaveReport(report, []*card.Transaction{filed})).To(Succeed())
		})

		It("saves the filed transactions with the report", func() {
			saved, err := db.GetTransaction("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ReportID).To(Equal("report-1"))
		})

		It("writes nothing when one of the transactions cannot be stored", func() {
			next := &ExpenseReport{ID: "report-2", TransactionIDs: []string{"t2", ""}}
			err := db.SaveReport(next, []*card.Transaction{newTransaction("t2"), newTransaction("")})
			Expect(err).To(MatchError(ContainSubstring(`putting transaction ""`)))

			_, err = db.GetReport("report-2")
			Expect(IsNotFound(err)).To(BeTrue())
			_, err = db.GetTransaction("t2")
			Expect(IsNotFound(err)).To(BeTrue())
		})

		It("reads a saved report back", func() {
			saved, err := db.GetReport("report-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.TransactionIDs).To(Equal([]string{"t1", "t2"}))
			Expect(saved.TotalAmount).To(Equal(uint64(44100)))
		})

		It("lists reports", func() {
			reports, err := db.ListReports()
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(1))
			Expect(reports[0].ID).To(Equal("report-1"))
		})

		It("returns a not found error for unknown reports", func() {
			_, err := db.GetReport("missing")
			Expect(IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("reopening", func() {
		It("keeps data across restarts", func() {
			Expect(db.SaveTransaction(newTransaction("test-id"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			saved, err := db.GetTransaction("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Amount).To(Equal(uint64(27600)))
		})
	})
})
