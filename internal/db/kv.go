package db

import (
	"database/sql"
	"errors"
)

// GetValue returns the value stored under key. ok is false when the key is absent.
func GetValue(db *sql.DB, key string) (value string, ok bool, err error) {
	err = db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetValue stores value under key, replacing any previous value.
func SetValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	return err
}

// DeleteValue removes key. Deleting an absent key is not an error.
func DeleteValue(db *sql.DB, key string) error {
	_, err := db.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

// KV adapts the kv table to a get/set storage interface.
type KV struct {
	db *sql.DB
}

// NewKV wraps an open database.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// Get returns the value stored under key.
func (s *KV) Get(key string) (string, bool, error) {
	return GetValue(s.db, key)
}

// Set stores value under key.
func (s *KV) Set(key, value string) error {
	return SetValue(s.db, key, value)
}
