package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"reclist/pkg/types"
)

const scanPrefix = "scan:"

// HistoryStore keeps summaries of past scans. It never stores listing results.
type HistoryStore struct {
	db *badger.DB
}

// New opens the store in dataDir, or an in-memory store when dataDir is empty.
func New(dataDir string) (*HistoryStore, error) {
	opts := badger.DefaultOptions(dataDir)
	if dataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Disable BadgerDB logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	return &HistoryStore{
		db: db,
	}, nil
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// scanKey orders records by time; the id keeps keys unique within one nanosecond.
func scanKey(rec *types.ScanRecord) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", scanPrefix, rec.ScannedAt.UnixNano(), rec.ID))
}

func (s *HistoryStore) RecordScan(rec *types.ScanRecord) error {
	if rec.ID == "" {
		return errors.New("scan record id is required")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal scan record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(scanKey(rec), data)
	})
}

// RecentScans returns up to limit records, newest first. A limit <= 0 returns all.
func (s *HistoryStore) RecentScans(limit int) ([]types.ScanRecord, error) {
	records := []types.ScanRecord{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		iter := txn.NewIterator(opts)
		defer iter.Close()

		// seek past the largest possible key under the prefix
		seek := append([]byte(scanPrefix), 0xFF)
		for iter.Seek(seek); iter.ValidForPrefix([]byte(scanPrefix)); iter.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			err := iter.Item().Value(func(val []byte) error {
				var rec types.ScanRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read scan history: %w", err)
	}

	return records, nil
}

func (s *HistoryStore) CountScans() (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // We only need to count, not read values
		iter := txn.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(scanPrefix)
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			count++
		}
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to count scan records: %w", err)
	}

	return count, nil
}

// Prune deletes all but the newest keep records and returns how many were removed.
func (s *HistoryStore) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		iter := txn.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(scanPrefix)
		seen := 0
		for iter.Seek(append([]byte(scanPrefix), 0xFF)); iter.ValidForPrefix(prefix); iter.Next() {
			seen++
			if seen > keep {
				stale = append(stale, iter.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan history for pruning: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("failed to delete scan record: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush pruned scan records: %w", err)
	}

	return len(stale), nil
}

// RunGarbageCollection reclaims value log space. It is a no-op for in-memory stores.
func (s *HistoryStore) RunGarbageCollection() error {
	if s.db.Opts().InMemory {
		return nil
	}
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}
