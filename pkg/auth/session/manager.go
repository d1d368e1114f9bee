package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/config"
	redisclient "github.com/peersenco/storefront-backend/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// record is the value stored under the session key.
type record struct {
	RefreshToken string    `json:"refresh_token"`
	UserID       uuid.UUID `json:"user_id"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Issued is a freshly created session: the id goes into the access token as
// its jti, the refresh token goes to the client.
type Issued struct {
	ID           string
	RefreshToken string
}

// Manager keeps refresh sessions in Redis, one key per access token id.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

// AccessSessionChecker is the read-only surface the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, errors.New("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl, now: time.Now}, nil
}

// Issue opens a session for userID.
func (m *Manager) Issue(ctx context.Context, userID uuid.UUID) (Issued, error) {
	id := uuid.NewString()
	token, err := generateRefreshToken()
	if err != nil {
		return Issued{}, err
	}
	if err := m.put(ctx, id, record{RefreshToken: token, UserID: userID, IssuedAt: m.now().UTC()}); err != nil {
		return Issued{}, err
	}
	return Issued{ID: id, RefreshToken: token}, nil
}

// Rotate checks provided against the session oldID, replaces the session and
// returns the new one with the user it belongs to.
func (m *Manager) Rotate(ctx context.Context, oldID, provided string) (Issued, uuid.UUID, error) {
	if strings.TrimSpace(oldID) == "" || strings.TrimSpace(provided) == "" {
		return Issued{}, uuid.Nil, ErrInvalidRefreshToken
	}

	rec, err := m.get(ctx, oldID)
	if err != nil {
		return Issued{}, uuid.Nil, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.RefreshToken), []byte(provided)) != 1 {
		return Issued{}, uuid.Nil, ErrInvalidRefreshToken
	}

	next, err := m.Issue(ctx, rec.UserID)
	if err != nil {
		return Issued{}, uuid.Nil, err
	}
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(oldID)); err != nil {
		return Issued{}, uuid.Nil, err
	}
	return next, rec.UserID, nil
}

// Revoke ends the session id. Unknown ids are ignored.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(id))
}

// HasSession reports whether id is still active.
func (m *Manager) HasSession(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("session id is required")
	}
	_, err := m.get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrInvalidRefreshToken):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) put(ctx context.Context, id string, rec record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.store.Set(ctx, m.keyer.AccessSessionKey(id), string(payload), m.ttl)
}

func (m *Manager) get(ctx context.Context, id string) (record, error) {
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(id))
	if errors.Is(err, redisclient.ErrNil) {
		return record{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
