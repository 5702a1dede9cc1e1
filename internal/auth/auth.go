// Package auth implements the broker's authentication policy
// (spec.md §4.7): an in-memory ANON/USER_ONLY/USER_PASS mode derived
// once from broker configuration, optionally backed by a SQLite
// credential store for USER_PASS instead of a single configured
// password.
package auth

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/nullwave/goqtt/pkg/er"
	h "github.com/nullwave/goqtt/pkg/hash"
)

// Mode is the authentication policy derived once at config time.
type Mode int

const (
	// ModeAnon accepts all clients regardless of CONNECT flags.
	ModeAnon Mode = iota
	// ModeUserOnly requires the username flag and an allowed username.
	ModeUserOnly
	// ModeUserPass requires both flags, an allowed username, and a
	// matching password.
	ModeUserPass
)

// Policy implements spec.md §4.7's three authentication modes.
type Policy struct {
	mode     Mode
	allowed  map[string]struct{} // lowercased, trimmed usernames
	password string
	store    *Store // optional SQLite-backed credential store
}

// NewPolicy derives a Policy from the configured username (possibly a
// comma-separated allow-list) and password. An empty username yields
// ModeAnon; username with no password yields ModeUserOnly; both
// yields ModeUserPass.
func NewPolicy(username, password string) *Policy {
	p := &Policy{password: password}

	trimmedUser := strings.TrimSpace(username)
	if trimmedUser == "" {
		p.mode = ModeAnon
		return p
	}

	p.allowed = make(map[string]struct{})
	for _, u := range strings.Split(trimmedUser, ",") {
		u = strings.ToLower(strings.TrimSpace(u))
		if u != "" {
			p.allowed[u] = struct{}{}
		}
	}

	if strings.TrimSpace(password) == "" {
		p.mode = ModeUserOnly
	} else {
		p.mode = ModeUserPass
	}
	return p
}

// WithStore layers a SQLite-backed credential store underneath
// ModeUserPass: when set, password verification is delegated to the
// store (bcrypt-hashed, per-user secrets) instead of the single
// configured password.
func (p *Policy) WithStore(store *Store) *Policy {
	p.store = store
	return p
}

// Authenticate enforces spec.md §4.7. hasUsername/hasPassword mirror
// the CONNECT flags' presence bits; username/password are the
// presented values (password is never logged).
func (p *Policy) Authenticate(hasUsername bool, username string, hasPassword bool, password string) error {
	switch p.mode {
	case ModeAnon:
		return nil

	case ModeUserOnly:
		if !hasUsername {
			return &er.Err{Context: "Auth", Message: er.ErrNotAuthorized}
		}
		if !p.usernameAllowed(username) {
			return &er.Err{Context: "Auth", Message: er.ErrUserNotFound}
		}
		return nil

	case ModeUserPass:
		if !hasUsername || !hasPassword {
			return &er.Err{Context: "Auth", Message: er.ErrNotAuthorized}
		}
		if !p.usernameAllowed(username) {
			return &er.Err{Context: "Auth", Message: er.ErrUserNotFound}
		}
		if p.store != nil {
			return p.store.Authenticate(username, password)
		}
		if password != p.password {
			return &er.Err{Context: "Auth", Message: er.ErrInvalidPassword}
		}
		return nil

	default:
		return &er.Err{Context: "Auth", Message: er.ErrNotAuthorized}
	}
}

func (p *Policy) usernameAllowed(username string) bool {
	_, ok := p.allowed[strings.ToLower(strings.TrimSpace(username))]
	return ok
}

// Store is an optional SQLite-backed credential store, bcrypt-hashed
// (pkg/hash), used underneath ModeUserPass in place of a single
// configured password.
type Store struct {
	db *sql.DB
}

// New wraps an already-open *sql.DB expected to hold a "users" table
// with columns (username, secret) where secret is a bcrypt hash.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Authenticate verifies username/password against the stored bcrypt
// hash.
func (s *Store) Authenticate(username, password string) error {
	var hash string

	err := s.db.QueryRow("SELECT secret FROM users WHERE username = ?", username).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &er.Err{Context: "Auth", Message: er.ErrUserNotFound}
		}
		return &er.Err{Context: "Auth", Message: er.ErrNotAuthorized}
	}

	if !h.VerifyPasswd(hash, password) {
		return &er.Err{Context: "Auth", Message: er.ErrInvalidPassword}
	}

	return nil
}
