package commands

import (
	"sync"
	"sync/atomic"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/offerbook"

	"github.com/google/uuid"
)

type market struct {
	mu   sync.Mutex
	book *offerbook.Book
}

// Markets owns one book and one lock per key. Operations on the same key
// are serialized by that key's lock; different keys never contend.
type Markets struct {
	mu    sync.RWMutex
	byKey map[offer.Key]*market

	idxMu   sync.RWMutex
	offerTo map[uuid.UUID]offer.Key

	seq atomic.Uint64
}

func NewMarkets() *Markets {
	return &Markets{
		byKey:   make(map[offer.Key]*market),
		offerTo: make(map[uuid.UUID]offer.Key),
	}
}

func (m *Markets) lookup(key offer.Key) (*market, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mk, ok := m.byKey[key]
	return mk, ok
}

func (m *Markets) getOrCreate(key offer.Key) *market {
	if mk, ok := m.lookup(key); ok {
		return mk
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mk, ok := m.byKey[key]; ok {
		return mk
	}
	mk := &market{book: offerbook.New(key)}
	m.byKey[key] = mk
	return mk
}

// withLock runs fn while holding the key's lock.
func (m *Markets) withLock(key offer.Key, fn func(book *offerbook.Book) error) error {
	mk := m.getOrCreate(key)
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return fn(mk.book)
}

func (m *Markets) Keys() []offer.Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]offer.Key, 0, len(m.byKey))
	for k := range m.byKey {
		keys = append(keys, k)
	}
	return keys
}

// Top reads the published best prices without taking the key lock.
func (m *Markets) Top(key offer.Key) offerbook.Top {
	mk, ok := m.lookup(key)
	if !ok {
		return offerbook.Top{}
	}
	return mk.book.Top()
}

// ListBook returns detached copies of one side's resting offers in
// matching priority order.
func (m *Markets) ListBook(key offer.Key, side offer.Side, r offerbook.PriceRange) []*offer.Offer {
	mk, ok := m.lookup(key)
	if !ok {
		return nil
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()

	live := mk.book.ListByPriceRange(side, r)
	out := make([]*offer.Offer, 0, len(live))
	for _, o := range live {
		out = append(out, o.Snapshot())
	}
	return out
}

func (m *Markets) locate(offerID uuid.UUID) (offer.Key, bool) {
	m.idxMu.RLock()
	defer m.idxMu.RUnlock()
	k, ok := m.offerTo[offerID]
	return k, ok
}

func (m *Markets) track(o *offer.Offer) {
	m.idxMu.Lock()
	m.offerTo[o.ID()] = o.Key()
	m.idxMu.Unlock()
}

func (m *Markets) untrack(offerID uuid.UUID) {
	m.idxMu.Lock()
	delete(m.offerTo, offerID)
	m.idxMu.Unlock()
}

func (m *Markets) nextSeq() uint64 {
	return m.seq.Add(1)
}

// seedSeq makes sure new offers sort after everything already persisted.
func (m *Markets) seedSeq(v uint64) {
	for {
		cur := m.seq.Load()
		if cur >= v || m.seq.CompareAndSwap(cur, v) {
			return
		}
	}
}
