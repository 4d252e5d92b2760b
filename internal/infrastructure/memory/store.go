package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/actionlog"
	"github.com/channelswap/channelswap/internal/domain/channel"
	"github.com/channelswap/channelswap/internal/domain/chat"
	"github.com/channelswap/channelswap/internal/domain/match"
	"github.com/channelswap/channelswap/internal/domain/offer"
	"github.com/channelswap/channelswap/internal/domain/review"
)

// Store is an in-memory backend used by tests. Transactions are serialized
// by a single lock; rollback restores a snapshot taken at transaction start.
type Store struct {
	mu   sync.Mutex
	seq  int64
	data storeData
}

type storeData struct {
	channels map[uuid.UUID]*channel.Channel
	offers   map[uuid.UUID]*offer.Offer
	matches  map[uuid.UUID]*match.Match
	rooms    map[uuid.UUID]*chat.Room
	entries  []*actionlog.Entry
	reviews  []*review.Review
}

func NewStore() *Store {
	return &Store{
		data: storeData{
			channels: make(map[uuid.UUID]*channel.Channel),
			offers:   make(map[uuid.UUID]*offer.Offer),
			matches:  make(map[uuid.UUID]*match.Match),
			rooms:    make(map[uuid.UUID]*chat.Room),
		},
	}
}

// SeedChannel installs a channel record. Test setup only.
func (s *Store) SeedChannel(c *channel.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *c
	cp.ID = s.seq
	s.data.channels[cp.ChannelID] = &cp
}

type txKey struct{}

// TxManager serializes transactions on the store lock and rolls back to a
// snapshot when fn fails.
type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

func (tm *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	tm.store.mu.Lock()
	defer tm.store.mu.Unlock()

	snap := tm.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		tm.store.data = snap
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// lock acquires the store lock unless the context already holds it through
// an open transaction. The returned func undoes exactly what lock did.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) snapshot() storeData {
	snap := storeData{
		channels: make(map[uuid.UUID]*channel.Channel, len(s.data.channels)),
		offers:   make(map[uuid.UUID]*offer.Offer, len(s.data.offers)),
		matches:  make(map[uuid.UUID]*match.Match, len(s.data.matches)),
		rooms:    make(map[uuid.UUID]*chat.Room, len(s.data.rooms)),
		entries:  make([]*actionlog.Entry, len(s.data.entries)),
		reviews:  make([]*review.Review, len(s.data.reviews)),
	}
	for k, v := range s.data.channels {
		cp := *v
		snap.channels[k] = &cp
	}
	for k, v := range s.data.offers {
		cp := *v
		snap.offers[k] = &cp
	}
	for k, v := range s.data.matches {
		cp := *v
		snap.matches[k] = &cp
	}
	for k, v := range s.data.rooms {
		cp := *v
		snap.rooms[k] = &cp
	}
	copy(snap.entries, s.data.entries)
	copy(snap.reviews, s.data.reviews)
	return snap
}
