/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth/store"
)

// AuditRecorder persists ApiKey lifecycle events outside the in-memory
// tables, so the history survives a soft-deleted or disabled key (spec.md
// §4.3). internal/auth/store.Store satisfies this.
type AuditRecorder interface {
	RecordKeyEvent(ctx context.Context, ev store.KeyEvent) error
}

// defaultSessionTimeout is spec.md §4.3's default of 24h of inactivity.
const defaultSessionTimeout = 24 * time.Hour

// Credentials is the input to AuthenticateBasic: spec.md §4.3 accepts any
// of user_id/username/uid as the identifier field.
type Credentials struct {
	UserID   string
	Username string
	UID      string
	Password string
}

// identifier returns whichever of UserID/Username/UID is set, in that
// priority order (spec.md §6 REST surface lists user_id|username|uid|user_name
// as equivalent request fields).
func (c Credentials) identifier() string {
	for _, v := range []string{c.UserID, c.Username, c.UID} {
		if v != "" {
			return v
		}
	}
	return ""
}

// userRecord is the stored credential + profile for basic authentication.
type userRecord struct {
	principal    Principal
	passwordHash string
}

// Manager implements AuthManager (spec.md §4.3). Session and API-key
// tables are guarded by a reader-writer lock (spec.md §5); validation is
// read-only and parallel.
type Manager struct {
	log            logr.Logger
	mu             sync.RWMutex
	users          map[string]*userRecord // identifier -> record
	sessions       map[string]*Session    // token -> session
	apiKeys        map[string]*ApiKey     // hash -> key
	partialIndex   map[string]string      // partial -> hash
	jwtSecret      []byte
	sessionTimeout time.Duration
	audit          AuditRecorder
}

// WithAuditStore attaches an optional AuditRecorder; every subsequent
// create/disable/enable/delete on an ApiKey also records a best-effort
// event through it. A nil recorder restores the default (in-memory-only)
// behavior.
func (m *Manager) WithAuditStore(rec AuditRecorder) *Manager {
	m.audit = rec
	return m
}

// recordKeyEvent is best-effort: a failure to persist the audit trail
// never fails the caller's request, since the in-memory tables already
// hold the authoritative state.
func (m *Manager) recordKeyEvent(keyID, principalID, action, actorID string) {
	if m.audit == nil {
		return
	}
	ev := store.KeyEvent{KeyID: keyID, PrincipalID: principalID, Action: action, ActorID: actorID, At: time.Now()}
	if err := m.audit.RecordKeyEvent(context.Background(), ev); err != nil {
		m.log.Error(err, "recording api key audit event", "key_id", keyID, "action", action)
	}
}

// New creates a Manager. jwtSecret signs session bearer tokens (HS256).
func New(log logr.Logger, jwtSecret []byte) *Manager {
	return &Manager{
		log:            log.WithName("auth"),
		users:          make(map[string]*userRecord),
		sessions:       make(map[string]*Session),
		apiKeys:        make(map[string]*ApiKey),
		partialIndex:   make(map[string]string),
		jwtSecret:      jwtSecret,
		sessionTimeout: defaultSessionTimeout,
	}
}

// SetSessionTimeout overrides the default 24h inactivity timeout.
func (m *Manager) SetSessionTimeout(d time.Duration) { m.sessionTimeout = d }

// PutUser registers (or replaces) a user's credentials and principal
// profile. This stands in for the external persistence port spec.md §1
// excludes from the core; callers load it from the users store at startup.
func (m *Manager) PutUser(identifier, password string, principal Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[identifier] = &userRecord{
		principal:    principal,
		passwordHash: hashPassword(password),
	}
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// AuthenticateBasic verifies username/password and creates a Session
// (spec.md §4.3).
func (m *Manager) AuthenticateBasic(creds Credentials) (*Session, error) {
	id := creds.identifier()
	if id == "" || creds.Password == "" {
		return nil, apierr.New(apierr.InvalidCredentials, "missing credentials")
	}

	m.mu.RLock()
	rec, ok := m.users[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apierr.New(apierr.InvalidCredentials, "unknown user")
	}

	want := hashPassword(creds.Password)
	if subtle.ConstantTimeCompare([]byte(want), []byte(rec.passwordHash)) != 1 {
		return nil, apierr.New(apierr.InvalidCredentials, "bad password")
	}

	token, err := m.signToken(rec.principal.PrincipalID)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "signing session token", err)
	}

	now := time.Now()
	sess := &Session{Token: token, PrincipalID: rec.principal.PrincipalID, CreatedAt: now, LastUsedAt: now}
	m.mu.Lock()
	m.sessions[token] = sess
	m.mu.Unlock()

	return sess, nil
}

// ValidateBearer resolves a bearer token to its Session, refreshing its
// last-used timestamp, or InvalidToken if absent, expired, or idle past the
// timeout.
func (m *Manager) ValidateBearer(token string) (*Session, error) {
	if _, err := m.parseToken(token); err != nil {
		return nil, apierr.Wrap(apierr.InvalidToken, "malformed bearer token", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[token]
	if !ok {
		return nil, apierr.New(apierr.InvalidToken, "session not found")
	}
	now := time.Now()
	if sess.idle(now, m.sessionTimeout) {
		delete(m.sessions, token)
		return nil, apierr.New(apierr.InvalidToken, "session expired")
	}
	sess.LastUsedAt = now
	cp := *sess
	return &cp, nil
}

// Logout destroys a session, so subsequent ValidateBearer calls yield
// InvalidToken (spec.md §8 property).
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// PrincipalFor resolves the full Principal profile backing a session or
// api-key principal id. It is the join point between the auth tables and
// the profile data registered via PutUser/CreateApiKey.
func (m *Manager) PrincipalFor(principalID string) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.users {
		if rec.principal.PrincipalID == principalID {
			p := rec.principal
			return &p, nil
		}
	}
	return nil, apierr.Newf(apierr.Internal, "no principal profile for %q", principalID)
}

// CreateApiKey mints a new long-lived credential bound to principal,
// returning the full key value exactly once (spec.md §4.3).
func (m *Manager) CreateApiKey(principal Principal, createdBy string) (fullKey string, key *ApiKey, err error) {
	fullKey, err = GenerateKey()
	if err != nil {
		return "", nil, apierr.Wrap(apierr.Internal, "generating api key", err)
	}
	hash := HashKey(fullKey)

	m.mu.Lock()
	m.users[principal.PrincipalID] = &userRecord{principal: principal}
	rec := &ApiKey{
		ID:          uuid.NewString(),
		Hash:        hash,
		Partial:     PartialOf(fullKey),
		PrincipalID: principal.PrincipalID,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
	m.apiKeys[hash] = rec
	m.partialIndex[rec.Partial] = hash
	m.mu.Unlock()

	m.recordKeyEvent(rec.ID, rec.PrincipalID, "created", createdBy)
	return fullKey, rec, nil
}

// ValidateApiKey resolves a full key value to its Principal, per spec.md
// §4.3's ValidateApiKey contract: InvalidKey | Expired | Disabled.
func (m *Manager) ValidateApiKey(fullKey string) (*Principal, error) {
	hash := HashKey(fullKey)

	m.mu.Lock()
	rec, ok := m.apiKeys[hash]
	if !ok {
		m.mu.Unlock()
		return nil, apierr.New(apierr.InvalidKey, "unknown api key")
	}
	now := time.Now()
	if rec.DeletedAt != nil {
		m.mu.Unlock()
		return nil, apierr.New(apierr.InvalidKey, "api key deleted")
	}
	if rec.Disabled {
		m.mu.Unlock()
		return nil, apierr.New(apierr.InvalidKey, "api key disabled")
	}
	if rec.ExpiresAt != nil && now.After(*rec.ExpiresAt) {
		m.mu.Unlock()
		return nil, apierr.New(apierr.InvalidKey, "api key expired")
	}
	rec.LastUsedAt = &now
	principalID := rec.PrincipalID
	m.mu.Unlock()

	return m.PrincipalFor(principalID)
}

// FindApiKeyByPartial looks up a key record by its displayed partial form,
// used by admin operations (spec.md §4.3).
func (m *Manager) FindApiKeyByPartial(partial string) (*ApiKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hash, ok := m.partialIndex[partial]
	if !ok {
		return nil, apierr.New(apierr.ToolNotFound, "api key not found")
	}
	rec := *m.apiKeys[hash]
	return &rec, nil
}

// SetApiKeyDisabled enables/disables a key without removing its audit
// trail.
func (m *Manager) SetApiKeyDisabled(hash string, disabled bool) error {
	m.mu.Lock()
	rec, ok := m.apiKeys[hash]
	if !ok {
		m.mu.Unlock()
		return apierr.New(apierr.ToolNotFound, "api key not found")
	}
	if disabled && m.isAdminPrincipalLocked(rec.PrincipalID) {
		m.mu.Unlock()
		return apierr.New(apierr.Conflict, "cannot disable the last admin credential")
	}
	rec.Disabled = disabled
	keyID, principalID := rec.ID, rec.PrincipalID
	m.mu.Unlock()

	action := "enabled"
	if disabled {
		action = "disabled"
	}
	m.recordKeyEvent(keyID, principalID, action, "")
	return nil
}

// DeleteApiKey soft-deletes a key, preserving its audit trail (spec.md
// §4.3).
func (m *Manager) DeleteApiKey(hash string) error {
	m.mu.Lock()
	rec, ok := m.apiKeys[hash]
	if !ok {
		m.mu.Unlock()
		return apierr.New(apierr.ToolNotFound, "api key not found")
	}
	if m.isAdminPrincipalLocked(rec.PrincipalID) {
		m.mu.Unlock()
		return apierr.New(apierr.Conflict, "cannot delete the last admin credential")
	}
	now := time.Now()
	rec.DeletedAt = &now
	delete(m.partialIndex, rec.Partial)
	keyID, principalID := rec.ID, rec.PrincipalID
	m.mu.Unlock()

	m.recordKeyEvent(keyID, principalID, "deleted", "")
	return nil
}

// isAdminPrincipalLocked reports whether principalID is the sole admin
// principal, implementing "an admin user cannot be disabled or deleted"
// (spec.md §4.3) by refusing to remove the last standing admin credential.
// Callers must hold m.mu.
func (m *Manager) isAdminPrincipalLocked(principalID string) bool {
	rec, ok := m.users[principalID]
	if !ok || !rec.principal.IsAdmin() {
		return false
	}
	admins := 0
	for _, u := range m.users {
		if u.principal.IsAdmin() {
			admins++
		}
	}
	return admins <= 1
}

// ResolveRequest resolves headers to a Principal, preferring X-API-Key
// then Authorization: Bearer <token> (spec.md §4.3).
func (m *Manager) ResolveRequest(h http.Header) (*Principal, error) {
	if key := h.Get("X-API-Key"); key != "" {
		return m.ValidateApiKey(key)
	}
	if auth := h.Get("Authorization"); auth != "" {
		if token, ok := bearerToken(auth); ok {
			sess, err := m.ValidateBearer(token)
			if err != nil {
				return nil, err
			}
			return m.PrincipalFor(sess.PrincipalID)
		}
	}
	return nil, apierr.New(apierr.InvalidCredentials, "no credentials presented")
}

var bearerRE = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

func bearerToken(header string) (string, bool) {
	m := bearerRE.FindStringSubmatch(header)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (m *Manager) signToken(principalID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   principalID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.jwtSecret)
}

func (m *Manager) parseToken(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}
