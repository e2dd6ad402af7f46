// Package sqlitestore is an embedded, disk-backed implementation of
// store.Store used by the binary behind its -sqlite flag, as a real (if
// lightweight) backend instead of the in-memory fake; no test uses it. It
// is a reference implementation, not the production path — redisstore
// fills that role.
//
// Grounded on the reconnect-and-retry shape of the teacher's pkg/db.DB:
// a lazily (re)dialed handle guarded by a mutex, health-checked on a
// ticker, with every query going through the same two narrow choke points.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"hostd/internal/store"
	"hostd/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_scalar (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	field TEXT NOT NULL,
	ival INTEGER,
	sval TEXT,
	has_int INTEGER NOT NULL,
	PRIMARY KEY (namespace, key, field)
);
CREATE TABLE IF NOT EXISTS kv_list (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	field TEXT NOT NULL,
	idx INTEGER NOT NULL,
	value BLOB NOT NULL,
	PRIMARY KEY (namespace, key, field, idx)
);
CREATE TABLE IF NOT EXISTS kv_set (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	field TEXT NOT NULL,
	member TEXT NOT NULL,
	PRIMARY KEY (namespace, key, field, member)
);
`

// Store is a sqlite-backed store.Store.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	path     string
	log      logger.Logger
	healthy  bool
}

// New opens (creating if needed) the sqlite database at path and applies
// the schema. A background ticker mirrors the teacher's DB.Healthcheck
// loop, re-opening the handle if a ping starts failing.
func New(path string, log logger.Logger) (*Store, error) {
	s := &Store{path: path, log: log}

	if err := s.open(); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(30 * time.Second)
	go func() {
		for range ticker.C {
			s.healthcheck()
		}
	}()

	return s, nil
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("sqlitestore: open %q: %w", s.path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("sqlitestore: apply schema: %w", err)
	}

	s.mu.Lock()
	s.db = db
	s.healthy = true
	s.mu.Unlock()

	return nil
}

func (s *Store) healthcheck() {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()

	if db == nil || db.Ping() != nil {
		s.log.Trace(logger.Warning, "store", fmt.Sprintf("sqlite handle at %q unhealthy, reopening", s.path))
		if err := s.open(); err != nil {
			s.log.Trace(logger.Error, "store", fmt.Sprintf("failed to reopen sqlite handle: %v", err))
		}
	}
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("sqlitestore: no open connection")
	}
	return s.db, nil
}

func (s *Store) GetInt(namespace, key, field string) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	var ival sql.NullInt64
	row := db.QueryRow(`SELECT ival FROM kv_scalar WHERE namespace=? AND key=? AND field=? AND has_int=1`, namespace, key, field)
	if err := row.Scan(&ival); err != nil {
		if err == sql.ErrNoRows {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return ival.Int64, nil
}

func (s *Store) SetInt(namespace, key, field string, value int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO kv_scalar (namespace, key, field, ival, sval, has_int) VALUES (?, ?, ?, ?, '', 1)
		ON CONFLICT(namespace, key, field) DO UPDATE SET ival=excluded.ival, has_int=1`, namespace, key, field, value)
	return err
}

func (s *Store) GetString(namespace, key, field string) (string, error) {
	db, err := s.handle()
	if err != nil {
		return "", err
	}

	var sval string
	row := db.QueryRow(`SELECT sval FROM kv_scalar WHERE namespace=? AND key=? AND field=? AND has_int=0`, namespace, key, field)
	if err := row.Scan(&sval); err != nil {
		if err == sql.ErrNoRows {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return sval, nil
}

func (s *Store) SetString(namespace, key, field string, value string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO kv_scalar (namespace, key, field, ival, sval, has_int) VALUES (?, ?, ?, 0, ?, 0)
		ON CONFLICT(namespace, key, field) DO UPDATE SET sval=excluded.sval, has_int=0`, namespace, key, field, value)
	return err
}

func (s *Store) GetList(namespace, key, field string) ([][]byte, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT value FROM kv_list WHERE namespace=? AND key=? AND field=? ORDER BY idx`, namespace, key, field)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) SetList(namespace, key, field string, values [][]byte) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM kv_list WHERE namespace=? AND key=? AND field=?`, namespace, key, field); err != nil {
		return err
	}
	for i, v := range values {
		if _, err := tx.Exec(`INSERT INTO kv_list (namespace, key, field, idx, value) VALUES (?, ?, ?, ?, ?)`, namespace, key, field, i, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) AppendList(namespace, key, field string, value []byte) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	var next int
	row := db.QueryRow(`SELECT COALESCE(MAX(idx), -1) + 1 FROM kv_list WHERE namespace=? AND key=? AND field=?`, namespace, key, field)
	if err := row.Scan(&next); err != nil {
		return err
	}

	_, err = db.Exec(`INSERT INTO kv_list (namespace, key, field, idx, value) VALUES (?, ?, ?, ?, ?)`, namespace, key, field, next, value)
	return err
}

func (s *Store) GetSet(namespace, key, field string) ([]string, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT member FROM kv_set WHERE namespace=? AND key=? AND field=?`, namespace, key, field)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) AddToSet(namespace, key, field string, member string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT OR IGNORE INTO kv_set (namespace, key, field, member) VALUES (?, ?, ?, ?)`, namespace, key, field, member)
	return err
}

func (s *Store) RemoveFromSet(namespace, key, field string, member string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.Exec(`DELETE FROM kv_set WHERE namespace=? AND key=? AND field=? AND member=?`, namespace, key, field, member)
	return err
}

func (s *Store) Delete(namespace, key, field string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	if _, err := db.Exec(`DELETE FROM kv_scalar WHERE namespace=? AND key=? AND field=?`, namespace, key, field); err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM kv_list WHERE namespace=? AND key=? AND field=?`, namespace, key, field); err != nil {
		return err
	}
	_, err = db.Exec(`DELETE FROM kv_set WHERE namespace=? AND key=? AND field=?`, namespace, key, field)
	return err
}

var _ store.Store = (*Store)(nil)
