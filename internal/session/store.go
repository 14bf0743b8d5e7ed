package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/dimitarkovachev/planner/internal/api"
)

var (
	bucketName = []byte("session")
	keyToken   = []byte("auth_token")
	keyUser    = []byte("auth_user")
)

// Session is the authenticated state: who the user is and the bearer token
// proving it. The user object may be stale relative to the server; it is
// only refreshed by logging in again.
type Session struct {
	User  api.User
	Token string
}

// Store is the single owner of session state. It keeps the in-memory
// session and the durable copy in agreement after every mutation; nothing
// else in the program reads the session database. Readers subscribe for
// change notifications.
type Store struct {
	db *bolt.DB

	mu      sync.RWMutex
	current *Session
	subs    []func(*Session)
}

// Open opens the session database at path and restores any persisted
// session. A stored user value that is not valid JSON is discarded rather
// than failing the restore.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening session db at %s: %w", path, err)
	}

	// Reason: bucket must exist before any read/write operations
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session bucket: %w", err)
	}

	s := &Store{db: db}
	if err := s.restore(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// restore loads the persisted session into memory. Absence of a token
// means logged out regardless of what else is stored.
func (s *Store) restore() error {
	var sess *Session

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		token := b.Get(keyToken)
		if len(token) == 0 {
			return nil
		}

		sess = &Session{Token: string(token)}
		if raw := b.Get(keyUser); raw != nil {
			var u api.User
			if err := json.Unmarshal(raw, &u); err != nil {
				log.WithError(err).Warn("discarding corrupt stored user")
			} else {
				sess.User = u
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return nil
}

// Login persists the user and token and makes them the current session.
func (s *Store) Login(user api.User, token string) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshaling user: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Put(keyToken, []byte(token)); err != nil {
			return err
		}
		return b.Put(keyUser, raw)
	})
	if err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}

	s.mu.Lock()
	s.current = &Session{User: user, Token: token}
	s.mu.Unlock()

	log.WithField("user_id", user.ID).Info("session started")
	s.notify()
	return nil
}

// Logout clears both the durable and in-memory session.
func (s *Store) Logout() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Delete(keyToken); err != nil {
			return err
		}
		return b.Delete(keyUser)
	})
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	log.Info("session cleared")
	s.notify()
	return nil
}

// Current returns a copy of the active session, or nil when logged out.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Subscribe registers fn to run after every session change. The argument
// is nil on logout.
func (s *Store) Subscribe(fn func(*Session)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(*Session), len(s.subs))
	copy(subs, s.subs)
	cur := s.current
	var cp *Session
	if cur != nil {
		c := *cur
		cp = &c
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(cp)
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
