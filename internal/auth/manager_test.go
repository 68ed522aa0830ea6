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
	"net/http"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth/store"
)

func newTestManager() *Manager {
	return New(logr.Discard(), []byte("test-secret"))
}

type recordingAuditor struct {
	events []store.KeyEvent
}

func (r *recordingAuditor) RecordKeyEvent(_ context.Context, ev store.KeyEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func TestWithAuditStoreRecordsLifecycleEvents(t *testing.T) {
	m := newTestManager()
	rec := &recordingAuditor{}
	m.WithAuditStore(rec)

	_, key, err := m.CreateApiKey(Principal{PrincipalID: "svc", ToolAccessMode: AccessAllowAll}, "admin")
	require.NoError(t, err)
	require.NoError(t, m.SetApiKeyDisabled(key.Hash, true))
	require.NoError(t, m.DeleteApiKey(key.Hash))

	require.Len(t, rec.events, 3)
	require.Equal(t, "created", rec.events[0].Action)
	require.Equal(t, "admin", rec.events[0].ActorID)
	require.Equal(t, "disabled", rec.events[1].Action)
	require.Equal(t, "deleted", rec.events[2].Action)
	for _, ev := range rec.events {
		require.Equal(t, key.ID, ev.KeyID)
		require.Equal(t, "svc", ev.PrincipalID)
	}
}

func TestAuthenticateBasicThenValidateBearer(t *testing.T) {
	m := newTestManager()
	m.PutUser("alice", "hunter2", Principal{PrincipalID: "alice", Kind: KindUser, ToolAccessMode: AccessAllowAll})

	sess, err := m.AuthenticateBasic(Credentials{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	got, err := m.ValidateBearer(sess.Token)
	require.NoError(t, err)
	require.Equal(t, "alice", got.PrincipalID)
}

func TestAuthenticateBasicBadPassword(t *testing.T) {
	m := newTestManager()
	m.PutUser("alice", "hunter2", Principal{PrincipalID: "alice"})

	_, err := m.AuthenticateBasic(Credentials{Username: "alice", Password: "wrong"})
	require.Equal(t, apierr.InvalidCredentials, apierr.KindOf(err))
}

func TestValidateBearerUnknownToken(t *testing.T) {
	m := newTestManager()
	_, err := m.ValidateBearer("not-a-real-token")
	require.Equal(t, apierr.InvalidToken, apierr.KindOf(err))
}

func TestLogoutInvalidatesSession(t *testing.T) {
	m := newTestManager()
	m.PutUser("alice", "hunter2", Principal{PrincipalID: "alice"})
	sess, err := m.AuthenticateBasic(Credentials{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)

	m.Logout(sess.Token)

	_, err = m.ValidateBearer(sess.Token)
	require.Equal(t, apierr.InvalidToken, apierr.KindOf(err))
}

func TestCreateAndValidateApiKey(t *testing.T) {
	m := newTestManager()
	full, rec, err := m.CreateApiKey(Principal{PrincipalID: "svc-1", Kind: KindAPIKey}, "admin-1")
	require.NoError(t, err)
	require.NotEmpty(t, full)
	require.Equal(t, "admin-1", rec.CreatedBy)

	p, err := m.ValidateApiKey(full)
	require.NoError(t, err)
	require.Equal(t, "svc-1", p.PrincipalID)
}

func TestValidateApiKeyDisabled(t *testing.T) {
	m := newTestManager()
	full, rec, err := m.CreateApiKey(Principal{PrincipalID: "svc-1"}, "admin-1")
	require.NoError(t, err)

	require.NoError(t, m.SetApiKeyDisabled(rec.Hash, true))

	_, err = m.ValidateApiKey(full)
	require.Equal(t, apierr.InvalidKey, apierr.KindOf(err))
}

func TestDeleteApiKeyIsSoftDelete(t *testing.T) {
	m := newTestManager()
	full, rec, err := m.CreateApiKey(Principal{PrincipalID: "svc-1"}, "admin-1")
	require.NoError(t, err)

	require.NoError(t, m.DeleteApiKey(rec.Hash))

	_, err = m.ValidateApiKey(full)
	require.Equal(t, apierr.InvalidKey, apierr.KindOf(err))

	_, err = m.FindApiKeyByPartial(rec.Partial)
	require.Error(t, err, "partial index entry should be removed on delete")
}

func TestCannotDisableLastAdmin(t *testing.T) {
	m := newTestManager()
	admin := Principal{PrincipalID: "root", Roles: map[string]bool{"admin": true}}
	_, rec, err := m.CreateApiKey(admin, "bootstrap")
	require.NoError(t, err)

	err = m.SetApiKeyDisabled(rec.Hash, true)
	require.Equal(t, apierr.Conflict, apierr.KindOf(err))

	err = m.DeleteApiKey(rec.Hash)
	require.Equal(t, apierr.Conflict, apierr.KindOf(err))
}

func TestResolveRequestPrefersApiKeyOverBearer(t *testing.T) {
	m := newTestManager()
	full, _, err := m.CreateApiKey(Principal{PrincipalID: "svc-1"}, "admin-1")
	require.NoError(t, err)

	m.PutUser("alice", "hunter2", Principal{PrincipalID: "alice"})
	sess, err := m.AuthenticateBasic(Credentials{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)

	h := http.Header{}
	h.Set("X-API-Key", full)
	h.Set("Authorization", "Bearer "+sess.Token)

	p, err := m.ResolveRequest(h)
	require.NoError(t, err)
	require.Equal(t, "svc-1", p.PrincipalID)
}

func TestResolveRequestNoCredentials(t *testing.T) {
	m := newTestManager()
	_, err := m.ResolveRequest(http.Header{})
	require.Equal(t, apierr.InvalidCredentials, apierr.KindOf(err))
}
