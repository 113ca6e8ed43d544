// Package selstore persists the active-host selection across boots,
// standing in for the firmware's flash storage.
package selstore

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

var selectedKey = []byte("host/selected")

type Store struct {
	log *zap.Logger
	db  *badger.DB
}

func New(log *zap.Logger, db *badger.DB) *Store {
	return &Store{log: log, db: db}
}

// Selected returns the persisted host index, or ok=false when nothing has
// been stored yet.
func (s *Store) Selected() (index int, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(selectedKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			index, err = strconv.Atoi(string(val))
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read host selection: %w", err)
	}
	return index, true, nil
}

// Persist stores the host index for the next boot. It implements the
// command-mode Selector.
func (s *Store) Persist(index int) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(selectedKey, []byte(strconv.Itoa(index)))
	})
	if err != nil {
		return fmt.Errorf("failed to persist host selection: %w", err)
	}
	s.log.Info("host selection persisted", zap.Int("index", index))
	return nil
}
