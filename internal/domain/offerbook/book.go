package offerbook

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kicks-exchange/internal/domain/offer"
)

var (
	ErrOfferNotOpen   = errors.New("only open offers can rest in the book")
	ErrDuplicateOffer = errors.New("offer already in book")
	ErrWrongMarket    = errors.New("offer belongs to another market")
	ErrNotInBook      = errors.New("offer not in book")
)

// Top is the published best-of-book. A zero price means that side is empty.
type Top struct {
	BestBid  int64
	BestAsk  int64
	OpenBids int
	OpenAsks int
}

func (t Top) HasBid() bool { return t.BestBid > 0 }
func (t Top) HasAsk() bool { return t.BestAsk > 0 }

// PriceRange bounds are inclusive; zero leaves that end open.
type PriceRange struct {
	Min int64
	Max int64
}

func (r PriceRange) contains(price int64) bool {
	if r.Min > 0 && price < r.Min {
		return false
	}
	if r.Max > 0 && price > r.Max {
		return false
	}
	return true
}

// Book holds the open offers of one market. Every method except Top must be
// called with the market's lock held.
type Book struct {
	key   offer.Key
	bids  *rbTree
	asks  *rbTree
	index map[uuid.UUID]*entry
	nBids int
	nAsks int
	top   atomic.Pointer[Top]
}

func New(key offer.Key) *Book {
	b := &Book{
		key:   key,
		bids:  newRBTree(),
		asks:  newRBTree(),
		index: make(map[uuid.UUID]*entry),
	}
	b.top.Store(&Top{})
	return b
}

func (b *Book) Key() offer.Key { return b.key }

func (b *Book) tree(side offer.Side) *rbTree {
	if side == offer.SideBid {
		return b.bids
	}
	return b.asks
}

func (b *Book) Insert(o *offer.Offer) error {
	if !o.IsOpen() {
		return ErrOfferNotOpen
	}
	if o.Key() != b.key {
		return ErrWrongMarket
	}
	if _, ok := b.index[o.ID()]; ok {
		return ErrDuplicateOffer
	}

	e := &entry{offer: o}
	b.tree(o.Side()).upsert(o.Price().Minor()).insert(e)
	b.index[o.ID()] = e
	b.count(o.Side(), 1)
	b.publish()
	return nil
}

func (b *Book) Remove(id uuid.UUID) (*offer.Offer, error) {
	e, ok := b.index[id]
	if !ok {
		return nil, ErrNotInBook
	}

	lvl := e.level
	lvl.unlink(e)
	if lvl.empty() {
		b.tree(e.offer.Side()).delete(lvl.price)
	}
	delete(b.index, id)
	b.count(e.offer.Side(), -1)
	b.publish()
	return e.offer, nil
}

func (b *Book) Get(id uuid.UUID) (*offer.Offer, bool) {
	e, ok := b.index[id]
	if !ok {
		return nil, false
	}
	return e.offer, true
}

// PeekBestBid returns the highest bid, earliest first among equal prices.
func (b *Book) PeekBestBid() (*offer.Offer, bool) {
	lvl := b.bids.max()
	if lvl == nil {
		return nil, false
	}
	return lvl.head.offer, true
}

// PeekBestAsk returns the lowest ask, earliest first among equal prices.
func (b *Book) PeekBestAsk() (*offer.Offer, bool) {
	lvl := b.asks.min()
	if lvl == nil {
		return nil, false
	}
	return lvl.head.offer, true
}

func (b *Book) PeekBest(side offer.Side) (*offer.Offer, bool) {
	if side == offer.SideBid {
		return b.PeekBestBid()
	}
	return b.PeekBestAsk()
}

// ListByPriceRange returns offers of one side in matching priority order.
func (b *Book) ListByPriceRange(side offer.Side, r PriceRange) []*offer.Offer {
	var out []*offer.Offer
	collect := func(lvl *priceLevel) bool {
		if !r.contains(lvl.price) {
			return true
		}
		for e := lvl.head; e != nil; e = e.next {
			out = append(out, e.offer)
		}
		return true
	}

	if side == offer.SideBid {
		b.bids.descend(collect)
	} else {
		b.asks.ascend(collect)
	}
	return out
}

func (b *Book) Expired(now time.Time) []*offer.Offer {
	var out []*offer.Offer
	for _, e := range b.index {
		if e.offer.IsExpiredAt(now) {
			out = append(out, e.offer)
		}
	}
	return out
}

// HasExpired lets the sweeper skip markets with nothing to do.
func (b *Book) HasExpired(now time.Time) bool {
	for _, e := range b.index {
		if e.offer.IsExpiredAt(now) {
			return true
		}
	}
	return false
}

func (b *Book) Len() int {
	return len(b.index)
}

// Top may be called without the market lock.
func (b *Book) Top() Top {
	return *b.top.Load()
}

func (b *Book) count(side offer.Side, delta int) {
	if side == offer.SideBid {
		b.nBids += delta
	} else {
		b.nAsks += delta
	}
}

func (b *Book) publish() {
	t := &Top{OpenBids: b.nBids, OpenAsks: b.nAsks}
	if lvl := b.bids.max(); lvl != nil {
		t.BestBid = lvl.price
	}
	if lvl := b.asks.min(); lvl != nil {
		t.BestAsk = lvl.price
	}
	b.top.Store(t)
}
