// Package database stores comparison reports in bbolt, one bucket per dataset source.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	storage "github.com/go-sod/sodfilter/internal/database"
	"github.com/go-sod/sodfilter/internal/report"
)

const (
	sourceKeys = "source:keys:"
	prefix     = "report:"
)

var ErrNotFound = errors.New("report not found")

type FilterFn func(r report.Report) bool

func New(db *storage.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *storage.DB
}

func (db *DB) extractKey(key string) string {
	prefixPos := strings.Index(key, prefix)

	return key[prefixPos+len(prefix):]
}

// Sources lists every dataset source with stored reports.
func (db *DB) Sources() ([]string, error) {
	var keys []string
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sourceKeys))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, db.extractKey(string(k)))
		}
		return nil
	})

	return keys, err
}

func (db *DB) Store(_ context.Context, r *report.Report) error {
	bytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(prefix + r.Source))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if err := b.Put([]byte(r.ID.String()), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		keys, err := tx.CreateBucketIfNotExists([]byte(sourceKeys))
		if err != nil {
			return fmt.Errorf("unable create sources bucket: %w", err)
		}
		if err := keys.Put([]byte(prefix+r.Source), []byte{0x0}); err != nil {
			return fmt.Errorf("unable put to sources bucket: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) Delete(_ context.Context, id uuid.UUID) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, key, err := db.locate(tx, id)
		if err != nil {
			return err
		}
		return b.Delete(key)
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// Prune keeps the newest keep reports of source and deletes the rest.
func (db *DB) Prune(_ context.Context, source string, keep int) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + source))
		if b == nil {
			return nil
		}
		reports, err := db.scan(b, nil)
		if err != nil {
			return err
		}
		if len(reports) <= keep {
			return nil
		}
		sort.SliceStable(reports, func(i, j int) bool {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		})
		for _, r := range reports[keep:] {
			if err := b.Delete([]byte(r.ID.String())); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) FindByID(_ context.Context, id uuid.UUID) (*report.Report, error) {
	var r report.Report
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b, key, err := db.locate(tx, id)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b.Get(key), &r); err != nil {
			return fmt.Errorf("json unmarshal error, %q", err)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return &r, nil
}

// FindAll returns the stored reports of every source in key order. A nil filter keeps all.
func (db *DB) FindAll(_ context.Context, filter FilterFn) ([]report.Report, error) {
	var reports []report.Report
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		keys := tx.Bucket([]byte(sourceKeys))
		if keys == nil {
			return nil
		}
		return keys.ForEach(func(k, _ []byte) error {
			found, err := db.scan(tx.Bucket(k), filter)
			if err != nil {
				return err
			}
			reports = append(reports, found...)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return reports, nil
}

func (db *DB) FindBySource(source string, filter FilterFn) ([]report.Report, error) {
	var reports []report.Report
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		found, err := db.scan(tx.Bucket([]byte(prefix+source)), filter)
		reports = found
		return err
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return reports, nil
}

func (db *DB) CountBySource(source string) (int, error) {
	var length int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + source))
		if b == nil {
			return nil
		}
		length = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}

	return length, nil
}

func (db *DB) scan(b *bolt.Bucket, filter FilterFn) ([]report.Report, error) {
	if b == nil {
		return nil, nil
	}
	var list []report.Report
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var r report.Report
		if err := json.Unmarshal(v, &r); err != nil {
			return nil, fmt.Errorf("json unmarshal error, %q", err)
		}
		if filter == nil || filter(r) {
			list = append(list, r)
		}
	}
	return list, nil
}

func (db *DB) locate(tx *bolt.Tx, id uuid.UUID) (*bolt.Bucket, []byte, error) {
	keys := tx.Bucket([]byte(sourceKeys))
	if keys == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	key := []byte(id.String())
	c := keys.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		b := tx.Bucket(k)
		if b != nil && b.Get(key) != nil {
			return b, key, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}
