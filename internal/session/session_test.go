package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/dandy/internal/database"
	"github.com/dukerupert/dandy/internal/model"
	"github.com/dukerupert/dandy/internal/store"
)

type fixture struct {
	verifier *Verifier
	manager  *Manager
	users    *store.UserStore
	clock    *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Now().UTC().Truncate(time.Second)}
	return fixture{
		verifier: NewVerifier(store.NewVerificationTokenStore(db), WithClock(clock.Now)),
		manager:  NewManager(store.NewSessionStore(db), WithClock(clock.Now)),
		users:    store.NewUserStore(db),
		clock:    clock,
	}
}

func (f fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), "Test User", email, nil)
	require.NoError(t, err)
	return u
}

func TestIssue(t *testing.T) {
	f := setup(t)

	vt, err := f.verifier.Issue(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Len(t, vt.Token, 64)
	assert.Equal(t, "a@x.com", vt.Identifier)
	assert.WithinDuration(t, f.clock.Now().Add(TokenTTL), vt.Expires, time.Second)
}

func TestIssueKeepsEarlierTokens(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.verifier.Issue(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = f.verifier.Issue(ctx, "a@x.com")
	require.NoError(t, err)

	assert.NoError(t, f.verifier.Consume(ctx, first.Token, "a@x.com"))
}

func TestConsumeOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	vt, err := f.verifier.Issue(ctx, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, f.verifier.Consume(ctx, vt.Token, "a@x.com"))
	assert.ErrorIs(t, f.verifier.Consume(ctx, vt.Token, "a@x.com"), ErrTokenNotFound)
}

func TestConsumeUnknown(t *testing.T) {
	f := setup(t)

	err := f.verifier.Consume(context.Background(), "BAD", "a@x.com")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConsumeWrongEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	vt, err := f.verifier.Issue(ctx, "a@x.com")
	require.NoError(t, err)

	assert.ErrorIs(t, f.verifier.Consume(ctx, vt.Token, "b@x.com"), ErrTokenNotFound)
	assert.NoError(t, f.verifier.Consume(ctx, vt.Token, "a@x.com"))
}

func TestConsumeExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	vt, err := f.verifier.Issue(ctx, "a@x.com")
	require.NoError(t, err)

	f.clock.Advance(TokenTTL + time.Minute)

	assert.ErrorIs(t, f.verifier.Consume(ctx, vt.Token, "a@x.com"), ErrTokenExpired)
	// The row is not purged by the failed attempt.
	assert.ErrorIs(t, f.verifier.Consume(ctx, vt.Token, "a@x.com"), ErrTokenExpired)
}

func TestVerifierCleanup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	vt, err := f.verifier.Issue(ctx, "a@x.com")
	require.NoError(t, err)
	f.clock.Advance(TokenTTL + time.Minute)

	n, err := f.verifier.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.ErrorIs(t, f.verifier.Consume(ctx, vt.Token, "a@x.com"), ErrTokenNotFound)
}

func TestSessionRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	sess, err := f.manager.Create(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, sess.SessionToken, 64)

	sw, err := f.manager.Lookup(ctx, sess.SessionToken)
	require.NoError(t, err)
	require.NotNil(t, sw)
	assert.Equal(t, u.ID, sw.User.ID)
	assert.Equal(t, "a@x.com", sw.User.Email)
	assert.WithinDuration(t, f.clock.Now().Add(SessionTTL), sw.Expires, time.Second)
}

func TestLookupMissing(t *testing.T) {
	f := setup(t)

	sw, err := f.manager.Lookup(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, sw)

	sw, err = f.manager.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, sw)
}

func TestLookupExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	sess, err := f.manager.Create(ctx, u.ID)
	require.NoError(t, err)
	f.clock.Advance(SessionTTL + time.Second)

	sw, err := f.manager.Lookup(ctx, sess.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, sw)
}

func TestDeleteIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	sess, err := f.manager.Create(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, f.manager.Delete(ctx, sess.SessionToken))
	require.NoError(t, f.manager.Delete(ctx, sess.SessionToken))
	require.NoError(t, f.manager.Delete(ctx, "never-existed"))

	sw, err := f.manager.Lookup(ctx, sess.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, sw)
}

func TestCreateFailsForUnknownUser(t *testing.T) {
	f := setup(t)

	_, err := f.manager.Create(context.Background(), 4242)
	assert.ErrorIs(t, err, ErrSessionCreateFailed)
}

func TestCreateTokenSourceFailure(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(store.NewSessionStore(db), WithTokenSource(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))
	_, err = m.Create(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSessionCreateFailed)
}

func TestManagerCleanup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	_, err := f.manager.Create(ctx, u.ID)
	require.NoError(t, err)
	f.clock.Advance(SessionTTL + time.Second)

	n, err := f.manager.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.manager.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestNotConfigured(t *testing.T) {
	v := NewVerifier(store.NewVerificationTokenStore(nil))
	_, err := v.Issue(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, store.ErrNotConfigured)

	m := NewManager(store.NewSessionStore(nil))
	_, err = m.Lookup(context.Background(), "tok")
	assert.ErrorIs(t, err, store.ErrNotConfigured)
}
