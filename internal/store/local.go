package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/cybercaution/cybercaution/internal/session"
)

// FSStore implements session.LocalStore as one JSON snapshot file per
// session under a namespaced directory. Writes go through a temp file and
// rename so a crash mid-write never corrupts the previous snapshot.
type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	dir := filepath.Join(base, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: dir}, nil
}

func (s *FSStore) path(id string) string {
	return filepath.Join(s.base, filepath.Clean(id)+".json")
}

func (s *FSStore) Save(sess session.Session) error {
	if sess.SessionID == "" {
		return errors.New("empty session id")
	}
	buf, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	dst := s.path(sess.SessionID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func (s *FSStore) Load(id string) (session.Session, error) {
	buf, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}
	var sess session.Session
	if err := json.Unmarshal(buf, &sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}
