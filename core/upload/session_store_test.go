package upload

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"

	"github.com/pyropy/cloudstore/core/model"
)

func newTestSessionStore(ttl time.Duration) *SessionStore {
	return NewSessionStore(dssync.MutexWrap(ds.NewMapDatastore()), ttl)
}

func TestSessionStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestSessionStore(time.Hour)

	session := model.NewUploadSession(uuid.New(), uuid.New(), 1, "a.txt")
	err := store.PutSession(ctx, session)
	require.NoError(t, err)

	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, got.ID)
	require.Equal(t, session.Owner, got.Owner)
	require.Equal(t, session.Filename, got.Filename)
}

func TestSessionStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := newTestSessionStore(time.Hour)

	_, err := store.GetSession(ctx, uuid.New().String())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := newTestSessionStore(time.Minute)

	session := model.NewUploadSession(uuid.New(), uuid.New(), 1, "a.txt")
	err := store.PutSession(ctx, session)
	require.NoError(t, err)

	err = store.PutReceipt(ctx, model.ChunkReceipt{SessionID: session.ID, Index: 0, BlockName: "block", Digest: "digest", Size: 4})
	require.NoError(t, err)

	store.now = func() time.Time {
		return time.Now().Add(2 * time.Minute)
	}

	_, err = store.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// lapsed sessions take their receipts with them
	receipts, err := store.ListReceipts(ctx, session.ID)
	require.NoError(t, err)
	require.Empty(t, receipts)
}

func TestSessionStoreReceipts(t *testing.T) {
	ctx := context.Background()
	store := newTestSessionStore(time.Hour)

	sessionID := uuid.New().String()
	otherID := uuid.New().String()

	for i := 0; i < 3; i++ {
		err := store.PutReceipt(ctx, model.ChunkReceipt{SessionID: sessionID, Index: i, BlockName: "block", Digest: "digest", Size: 1})
		require.NoError(t, err)
	}
	err := store.PutReceipt(ctx, model.ChunkReceipt{SessionID: otherID, Index: 0, BlockName: "other", Digest: "digest", Size: 1})
	require.NoError(t, err)

	receipts, err := store.ListReceipts(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	for _, receipt := range receipts {
		require.Equal(t, sessionID, receipt.SessionID)
	}
}

func TestSessionStoreDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := newTestSessionStore(time.Hour)

	session := model.NewUploadSession(uuid.New(), uuid.New(), 1, "a.txt")
	err := store.PutSession(ctx, session)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		err = store.PutReceipt(ctx, model.ChunkReceipt{SessionID: session.ID, Index: i, BlockName: "block", Digest: "digest", Size: 1})
		require.NoError(t, err)
	}

	err = store.DeleteSession(ctx, session.ID)
	require.NoError(t, err)

	_, err = store.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	receipts, err := store.ListReceipts(ctx, session.ID)
	require.NoError(t, err)
	require.Empty(t, receipts)
}
