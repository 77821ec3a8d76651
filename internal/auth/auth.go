// Package auth maps bearer tokens onto user ids and guards HTTP routes.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/iancoleman/orderedmap"
)

var (
	// ErrUnauthorized indicates a missing or unknown bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidUsers indicates a malformed users file.
	ErrInvalidUsers = errors.New("invalid users file")
)

// Users is the fixed user table: id -> token, in file order.
type Users struct {
	ids     []string
	tokens  map[string]string
	adminID string
}

// NewUsers builds a table from ids and their tokens. Duplicate ids keep the
// first position and the last token.
func NewUsers(ids []string, tokens map[string]string, adminID string) (*Users, error) {
	u := &Users{tokens: make(map[string]string, len(ids)), adminID: adminID}
	for _, id := range ids {
		tok, ok := tokens[id]
		if !ok || tok == "" {
			return nil, fmt.Errorf("%w: empty token for %q", ErrInvalidUsers, id)
		}
		if _, seen := u.tokens[id]; !seen {
			u.ids = append(u.ids, id)
		}
		u.tokens[id] = tok
	}
	return u, nil
}

// LoadUsers reads a users file from disk.
func LoadUsers(path, adminID string) (*Users, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open users: %w", err)
	}
	defer f.Close()
	return ParseUsers(f, adminID)
}

// ParseUsers decodes a JSON object of {"id": "token"} pairs, keeping the
// key order of the document.
func ParseUsers(r io.Reader, adminID string) (*Users, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	om := orderedmap.New()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUsers, err)
	}
	ids := om.Keys()
	tokens := make(map[string]string, len(ids))
	for _, id := range ids {
		v, _ := om.Get(id)
		tok, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: token for %q is not a string", ErrInvalidUsers, id)
		}
		tokens[id] = tok
	}
	return NewUsers(ids, tokens, adminID)
}

// IDs returns every user id in file order, the admin included.
func (u *Users) IDs() []string {
	return append([]string(nil), u.ids...)
}

// AdminID returns the privileged user id.
func (u *Users) AdminID() string { return u.adminID }

// IsAdmin reports whether id is the privileged user.
func (u *Users) IsAdmin(id string) bool {
	return id != "" && id == u.adminID
}

// Authenticate returns the user owning token.
func (u *Users) Authenticate(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	match := ""
	for _, id := range u.ids {
		if subtle.ConstantTimeCompare([]byte(token), []byte(u.tokens[id])) == 1 {
			match = id
		}
	}
	if match == "" {
		return "", ErrUnauthorized
	}
	return match, nil
}

type ctxKey struct{}

// ContextWithUser stores the authenticated user id.
func ContextWithUser(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserFromContext returns the authenticated user id, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Middleware enforces bearer token auth on every path not listed in exempt.
func Middleware(users *Users, exempt ...string) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		public[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if header == "" || token == header {
				unauthorized(w)
				return
			}
			id, err := users.Authenticate(token)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="astrogator"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
