package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dslvl "github.com/ipfs/go-ds-leveldb"

	"github.com/pyropy/cloudstore/core/model"
)

var (
	ErrSessionNotFound = errors.New("upload session not found")
)

// SessionStore keeps upload sessions and their chunk receipts in a shared
// key value store with TTL semantics. Sessions past their expiry behave as
// missing; their receipts (and the blocks those receipts point to) are
// orphaned, which is an accepted space leak since no reclamation sweep
// exists.
type SessionStore struct {
	store ds.Datastore
	ttl   time.Duration

	now func() time.Time
}

type sessionRecord struct {
	ExpiresAt time.Time           `json:"expires_at"`
	Session   model.UploadSession `json:"session"`
}

func NewSessionStore(store ds.Datastore, ttl time.Duration) *SessionStore {
	return &SessionStore{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// NewLevelDBSessionStore opens a leveldb backed session store at path.
func NewLevelDBSessionStore(path string, ttl time.Duration) (*SessionStore, error) {
	store, err := dslvl.NewDatastore(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	return NewSessionStore(store, ttl), nil
}

func (s *SessionStore) PutSession(ctx context.Context, session model.UploadSession) error {
	record := sessionRecord{
		ExpiresAt: s.now().Add(s.ttl),
		Session:   session,
	}

	b, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return s.store.Put(ctx, sessionKey(session.ID), b)
}

// GetSession returns the session for id, or ErrSessionNotFound if it does
// not exist or has expired. Expired sessions are deleted on sight together
// with their receipts.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*model.UploadSession, error) {
	b, err := s.store.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var record sessionRecord
	err = json.Unmarshal(b, &record)
	if err != nil {
		return nil, err
	}

	if s.now().After(record.ExpiresAt) {
		_ = s.DeleteSession(ctx, id)
		return nil, ErrSessionNotFound
	}

	return &record.Session, nil
}

func (s *SessionStore) PutReceipt(ctx context.Context, receipt model.ChunkReceipt) error {
	b, err := json.Marshal(receipt)
	if err != nil {
		return err
	}

	return s.store.Put(ctx, receiptKey(receipt.SessionID, receipt.Index), b)
}

// ListReceipts returns all chunk receipts recorded for the session, in no
// particular order.
func (s *SessionStore) ListReceipts(ctx context.Context, sessionID string) ([]model.ChunkReceipt, error) {
	q := dsq.Query{Prefix: receiptPrefix(sessionID)}

	res, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	receipts := make([]model.ChunkReceipt, 0)
	for {
		r, hasNext := res.NextSync()
		if !hasNext {
			break
		}
		if r.Error != nil {
			return nil, r.Error
		}

		var receipt model.ChunkReceipt
		err = json.Unmarshal(r.Value, &receipt)
		if err != nil {
			return nil, err
		}

		receipts = append(receipts, receipt)
	}

	return receipts, nil
}

// DeleteSession removes the session and every receipt recorded under it.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	receipts, err := s.ListReceipts(ctx, id)
	if err != nil {
		return err
	}

	for _, receipt := range receipts {
		err = s.store.Delete(ctx, receiptKey(id, receipt.Index))
		if err != nil {
			return err
		}
	}

	return s.store.Delete(ctx, sessionKey(id))
}

func sessionKey(id string) ds.Key {
	return ds.NewKey("/sessions/" + id)
}

func receiptPrefix(sessionID string) string {
	return "/receipts/" + sessionID
}

func receiptKey(sessionID string, index int) ds.Key {
	return ds.NewKey(fmt.Sprintf("%s/%06d", receiptPrefix(sessionID), index))
}
