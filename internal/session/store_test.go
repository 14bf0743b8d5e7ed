package session

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dimitarkovachev/planner/internal/api"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.db")
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoginRoundTrip(t *testing.T) {
	path := tempDBPath(t)
	s := openStore(t, path)

	u := api.User{ID: 1, Name: "A", Email: "a@b.com"}
	if err := s.Login(u, "T1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	s.Close()

	// reopening simulates a reload
	s2 := openStore(t, path)
	sess := s2.Current()
	if sess == nil {
		t.Fatal("expected a restored session")
	}
	if sess.Token != "T1" {
		t.Fatalf("expected token T1, got %q", sess.Token)
	}
	if sess.User != u {
		t.Fatalf("expected user %+v, got %+v", u, sess.User)
	}
}

func TestLogoutClearsDurableState(t *testing.T) {
	path := tempDBPath(t)
	s := openStore(t, path)

	if err := s.Login(api.User{ID: 1, Name: "A"}, "T1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := s.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if s.Current() != nil {
		t.Fatal("expected no session after logout")
	}
	s.Close()

	s2 := openStore(t, path)
	if s2.Current() != nil {
		t.Fatal("expected no session after reopen")
	}
	if s2.Token() != "" {
		t.Fatal("expected empty token after reopen")
	}
}

func TestRestoreDiscardsCorruptUser(t *testing.T) {
	path := tempDBPath(t)

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		t.Fatalf("failed to open raw db: %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("session"))
		if err != nil {
			return err
		}
		if err := b.Put([]byte("auth_token"), []byte("T1")); err != nil {
			return err
		}
		return b.Put([]byte("auth_user"), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("failed to seed raw db: %v", err)
	}
	db.Close()

	s := openStore(t, path)
	sess := s.Current()
	if sess == nil {
		t.Fatal("expected session: token is present")
	}
	if sess.Token != "T1" {
		t.Fatalf("expected token T1, got %q", sess.Token)
	}
	if sess.User != (api.User{}) {
		t.Fatalf("expected corrupt user to be discarded, got %+v", sess.User)
	}
}

func TestSubscribeNotifiedOnChange(t *testing.T) {
	s := openStore(t, tempDBPath(t))

	var got []*Session
	s.Subscribe(func(sess *Session) { got = append(got, sess) })

	if err := s.Login(api.User{ID: 2, Name: "B"}, "T2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := s.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0] == nil || got[0].Token != "T2" {
		t.Fatalf("expected login notification with token T2, got %+v", got[0])
	}
	if got[1] != nil {
		t.Fatalf("expected nil logout notification, got %+v", got[1])
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(tempDBPath(t), "impossible", "path.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}
