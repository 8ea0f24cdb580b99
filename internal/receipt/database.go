package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/card-receipts/internal/card"
)

const (
	transactionBucketName = "transactions"
	reportBucketName      = "reports"
)

// ErrNotFound is wrapped by lookups of IDs that are not stored
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveTransaction inserts or replaces a transaction
	SaveTransaction(txn *card.Transaction) error

	// GetTransaction retrieves a transaction by ID
	GetTransaction(id string) (*card.Transaction, error)

	// ListTransactions returns all transactions in key order
	ListTransactions() ([]*card.Transaction, error)

	// DeleteTransaction removes a transaction
	DeleteTransaction(id string) error

	// SaveReport inserts or replaces a report together with the
	// transactions it files. Either all of them are written or none is.
	SaveReport(report *ExpenseReport, txns []*card.Transaction) error

	// GetReport retrieves a report by ID
	GetReport(id string) (*ExpenseReport, error)

	// ListReports returns all reports
	ListReports() ([]*ExpenseReport, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{transactionBucketName, reportBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func put(db *bbolt.DB, bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", bucket, err)
	}
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func get(db *bbolt.DB, bucket, key string, value any) error {
	return db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s %s: %w", bucket, key, ErrNotFound)
		}
		return json.Unmarshal(data, value)
	})
}

// SaveTransaction saves a transaction to the database
func (b *BoltDB) SaveTransaction(txn *card.Transaction) error {
	return put(b.db, transactionBucketName, txn.ID, txn)
}

// GetTransaction retrieves a transaction by ID
func (b *BoltDB) GetTransaction(id string) (*card.Transaction, error) {
	var txn card.Transaction
	if err := get(b.db, transactionBucketName, id, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListTransactions returns all transactions
func (b *BoltDB) ListTransactions() ([]*card.Transaction, error) {
	txns := make([]*card.Transaction, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(transactionBucketName)).ForEach(func(k, v []byte) error {
			var txn card.Transaction
			if err := json.Unmarshal(v, &txn); err != nil {
				return fmt.Errorf("unmarshaling transaction %s: %w", k, err)
			}
			txns = append(txns, &txn)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// DeleteTransaction removes a transaction from the database
func (b *BoltDB) DeleteTransaction(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(transactionBucketName)).Delete([]byte(id))
	})
}

// SaveReport saves a report and its transactions in one bolt transaction
func (b *BoltDB) SaveReport(report *ExpenseReport, txns []*card.Transaction) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", reportBucketName, err)
	}
	txnData := make([][]byte, len(txns))
	for i, txn := range txns {
		if txnData[i], err = json.Marshal(txn); err != nil {
			return fmt.Errorf("marshaling %s: %w", transactionBucketName, err)
		}
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(reportBucketName)).Put([]byte(report.ID), data); err != nil {
			return fmt.Errorf("putting report %s: %w", report.ID, err)
		}
		bucket := tx.Bucket([]byte(transactionBucketName))
		for i, txn := range txns {
			if err := bucket.Put([]byte(txn.ID), txnData[i]); err != nil {
				return fmt.Errorf("putting transaction %q: %w", txn.ID, err)
			}
		}
		return nil
	})
}

// GetReport retrieves a report by ID
func (b *BoltDB) GetReport(id string) (*ExpenseReport, error) {
	var report ExpenseReport
	if err := get(b.db, reportBucketName, id, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns all reports
func (b *BoltDB) ListReports() ([]*ExpenseReport, error) {
	reports := make([]*ExpenseReport, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reportBucketName)).ForEach(func(k, v []byte) error {
			var report ExpenseReport
			if err := json.Unmarshal(v, &report); err != nil {
				return fmt.Errorf("unmarshaling report %s: %w", k, err)
			}
			reports = append(reports, &report)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
