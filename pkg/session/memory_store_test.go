package session_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcocam/gatekeeper/pkg/session"
)

func TestMemoryStore_CRUD(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	defer store.Close()
	ctx := t.Context()

	s := session.New("tok-1", time.Hour)
	s.Set("current_context", "tenant")
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	v, _ := got.GetString("current_context")
	assert.Equal(t, "tenant", v)

	// Stored copy is isolated from later mutation
	s.Set("current_context", "landlord")
	got, err = store.Get(ctx, "tok-1")
	require.NoError(t, err)
	v, _ = got.GetString("current_context")
	assert.Equal(t, "tenant", v)

	got.Set("current_tenant_id", "5")
	require.NoError(t, store.Update(ctx, got))
	got, err = store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, got.Has("current_tenant_id"))

	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_Validation(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	defer store.Close()
	ctx := t.Context()

	assert.ErrorIs(t, store.Create(ctx, nil), session.ErrInvalidSession)
	assert.ErrorIs(t, store.Create(ctx, &session.Session{}), session.ErrInvalidSession)
	assert.ErrorIs(t, store.Update(ctx, session.New("missing", time.Hour)), session.ErrSessionNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	defer store.Close()
	ctx := t.Context()

	s := session.New("tok-exp", 10*time.Millisecond)
	require.NoError(t, store.Create(ctx, s))

	time.Sleep(30 * time.Millisecond)
	_, err := store.Get(ctx, "tok-exp")
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestMemoryStore_DeleteByUserID(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	defer store.Close()
	ctx := t.Context()

	uid := uuid.New()
	s1 := session.New("tok-a", time.Hour)
	s1.UserID = &uid
	s2 := session.New("tok-b", time.Hour)
	s2.UserID = &uid
	other := session.New("tok-c", time.Hour)

	require.NoError(t, store.Create(ctx, s1))
	require.NoError(t, store.Create(ctx, s2))
	require.NoError(t, store.Create(ctx, other))

	require.NoError(t, store.DeleteByUserID(ctx, uid.String()))

	_, err := store.Get(ctx, "tok-a")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = store.Get(ctx, "tok-b")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = store.Get(ctx, "tok-c")
	assert.NoError(t, err)
}
