// Package session persists the authenticated user's session on disk.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterbourgon/diskv/v3"

	"smart-spend/internal/models"
)

var ErrNotFound = errors.New("no stored session")

const sessionKey = "session"

type Store struct {
	d *diskv.Diskv
}

// NewStore keeps session state under {dataDir}/session.
func NewStore(dataDir string) (*Store, error) {
	base := filepath.Join(dataDir, "session")
	if err := os.MkdirAll(base, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{d: diskv.New(diskv.Options{
		BasePath:  base,
		Transform: func(string) []string { return []string{} },
		FilePerm:  0600,
		PathPerm:  0700,
	})}, nil
}

func (s *Store) Load() (*models.Session, error) {
	if !s.d.Has(sessionKey) {
		return nil, ErrNotFound
	}
	val, err := s.d.Read(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if sess.UserID == "" {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *Store) Save(sess *models.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.d.Write(sessionKey, b); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear removes every key this store has written.
func (s *Store) Clear() error {
	if err := s.d.EraseAll(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
