package kvstore

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
	"go.uber.org/zap"
)

// Badger is a Store on top of an embedded badger database.
type Badger struct {
	db     *badger.DB
	logger *zap.Logger
	locks  Locks
	stop   chan struct{}
}

// Open opens (or creates) a badger database in dir. dbLogger receives
// badger's own log output; nil keeps badger's default logger.
func Open(dir string, logger *zap.Logger, dbLogger badger.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Truncate = true
	opts.ValueLogLoadingMode = options.FileIO
	opts.NumVersionsToKeep = 1
	if dbLogger != nil {
		opts.Logger = dbLogger
	}

	db, err := badger.Open(opts)
	if err != nil {
		logger.Error("failed to open badger", zap.String("dir", dir), zap.Error(err))
		return nil, err
	}

	s := &Badger{
		db:     db,
		logger: logger,
		stop:   make(chan struct{}),
	}
	go s.runGC()

	return s, nil
}

func (s *Badger) Close() error {
	close(s.stop)
	return s.db.Close()
}

func (s *Badger) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to read value", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return value, nil
}

func (s *Badger) Update(key string, fn func(old []byte) ([]byte, error)) error {
	unlock := s.locks.Lock(key)
	defer unlock()

	// the key lock keeps this process from racing itself, so a conflict can
	// only come from a transaction that does not go through Update
	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			var old []byte
			item, err := txn.Get([]byte(key))
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if old, err = item.ValueCopy(nil); err != nil {
					return err
				}
			}

			value, err := fn(old)
			if err != nil {
				return err
			}
			if value == nil {
				if old == nil {
					return nil
				}
				return txn.Delete([]byte(key))
			}
			return txn.Set([]byte(key), value)
		})
		if errors.Is(err, badger.ErrConflict) {
			s.logger.Debug("transaction conflict, retrying", zap.String("key", key))
			continue
		}
		return err
	}
}

func (s *Badger) runGC() {
	gcTicker := time.NewTicker(time.Hour)
	defer gcTicker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-gcTicker.C:
		}
		for {
			err := s.db.RunValueLogGC(0.7)
			if err != nil {
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Error("failed to run gc", zap.Error(err))
				}
				break
			}
		}
	}
}
