//go:build unit

// Package memstore is an in-memory UnitOfWork for use-case tests. It returns
// the same infra.RepositoryError kinds the postgres repositories do and can
// be told to fail individual operations.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/usecase/shared"

	"github.com/google/uuid"
)

type Op string

const (
	OpOfferCreate       Op = "offer.create"
	OpOfferUpdateStatus Op = "offer.update_status"
	OpTransactionCreate Op = "transaction.create"
	OpOutboxAppend      Op = "outbox.append"
	OpTransactionLookup Op = "transaction.find_by_idempotency_key"
	// OpCommit fails before anything is applied.
	OpCommit Op = "commit"
	// OpAck applies the commit and then reports a failure, like a dropped
	// connection after COMMIT.
	OpAck Op = "ack"
)

var ErrInjected = errors.New("injected failure")

type OutboxRow struct {
	Event         shared.Event
	Sent          bool
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	SentAt        time.Time
}

type state struct {
	offers       map[uuid.UUID]*offer.Offer
	transactions map[uuid.UUID]*transaction.Transaction
	byIdemKey    map[string]uuid.UUID
	outbox       []*OutboxRow
	outboxIdx    map[uuid.UUID]int
}

func (s *state) clone() *state {
	c := &state{
		offers:       make(map[uuid.UUID]*offer.Offer, len(s.offers)),
		transactions: make(map[uuid.UUID]*transaction.Transaction, len(s.transactions)),
		byIdemKey:    make(map[string]uuid.UUID, len(s.byIdemKey)),
		outbox:       make([]*OutboxRow, len(s.outbox)),
		outboxIdx:    make(map[uuid.UUID]int, len(s.outboxIdx)),
	}
	for k, v := range s.offers {
		c.offers[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.byIdemKey {
		c.byIdemKey[k] = v
	}
	for i, row := range s.outbox {
		cp := *row
		c.outbox[i] = &cp
	}
	for k, v := range s.outboxIdx {
		c.outboxIdx[k] = v
	}
	return c
}

type Store struct {
	mu       sync.Mutex
	state    *state
	failures map[Op][]error
	calls    map[Op]int
	commits  int
}

func New() *Store {
	return &Store{
		state: &state{
			offers:       map[uuid.UUID]*offer.Offer{},
			transactions: map[uuid.UUID]*transaction.Transaction{},
			byIdemKey:    map[string]uuid.UUID{},
			outboxIdx:    map[uuid.UUID]int{},
		},
		failures: map[Op][]error{},
		calls:    map[Op]int{},
	}
}

// Fail queues err for the next n calls of op. A nil err queues ErrInjected.
func (s *Store) Fail(op Op, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = infra.WrapRepoErr("injected", ErrInjected)
	}
	for i := 0; i < n; i++ {
		s.failures[op] = append(s.failures[op], err)
	}
}

func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// failure must be called with mu held.
func (s *Store) failure(op Op) error {
	s.calls[op]++
	q := s.failures[op]
	if len(q) == 0 {
		return nil
	}
	s.failures[op] = q[1:]
	return q[0]
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	staged := s.state.clone()
	if err := fn(ctx, &memTx{store: s, st: staged}); err != nil {
		return err
	}
	if err := s.failure(OpCommit); err != nil {
		return err
	}
	s.state = staged
	s.commits++
	return s.failure(OpAck)
}

func (s *Store) Reads() shared.Reads {
	return &memReads{store: s}
}

// Seed stores offers directly, bypassing failure injection.
func (s *Store) Seed(offers ...*offer.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range offers {
		s.state.offers[o.ID()] = o.Snapshot()
	}
}

func (s *Store) SeedTransaction(t *transaction.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.transactions[t.ID()] = t
	s.state.byIdemKey[t.IdempotencyKey()] = t.ID()
}

func (s *Store) Offer(id uuid.UUID) (*offer.Offer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.offers[id]
	if !ok {
		return nil, false
	}
	return o.Snapshot(), true
}

func (s *Store) Transactions() []*transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*transaction.Transaction, 0, len(s.state.transactions))
	for _, t := range s.state.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out
}

func (s *Store) Outbox() []OutboxRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OutboxRow, len(s.state.outbox))
	for i, row := range s.state.outbox {
		out[i] = *row
	}
	return out
}

type memTx struct {
	store *Store
	st    *state
}

func (t *memTx) Offers() shared.OfferRepository             { return &offerRepo{t} }
func (t *memTx) Transactions() shared.TransactionRepository { return &transactionRepo{t} }
func (t *memTx) Outbox() shared.OutboxRepository            { return &outboxRepo{t} }

type offerRepo struct{ tx *memTx }

func (r *offerRepo) Create(_ context.Context, o *offer.Offer) error {
	if err := r.tx.store.failure(OpOfferCreate); err != nil {
		return err
	}
	if _, ok := r.tx.st.offers[o.ID()]; ok {
		return infra.NewRepoErr(infra.KindDuplicateKey, "offer already exists")
	}
	r.tx.st.offers[o.ID()] = o.Snapshot()
	return nil
}

func (r *offerRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to offer.Status, at time.Time) error {
	if err := r.tx.store.failure(OpOfferUpdateStatus); err != nil {
		return err
	}
	cur, ok := r.tx.st.offers[id]
	if !ok || cur.Status() != from {
		return infra.NewRepoErr(infra.KindStale, "offer is no longer "+from.String())
	}
	r.tx.st.offers[id] = offer.ReconstructOffer(
		cur.ID(), cur.Key(), cur.Side(), cur.OwnerID(), cur.Price(), to,
		cur.Fees(), cur.PaymentMethodRef(), cur.Seq(), cur.CreatedAt(), cur.ExpiresAt(), at,
	)
	return nil
}

type transactionRepo struct{ tx *memTx }

func (r *transactionRepo) Create(_ context.Context, t *transaction.Transaction) error {
	if err := r.tx.store.failure(OpTransactionCreate); err != nil {
		return err
	}
	if _, ok := r.tx.st.byIdemKey[t.IdempotencyKey()]; ok {
		return infra.NewRepoErr(infra.KindDuplicateKey, "transaction already recorded")
	}
	for _, id := range []*uuid.UUID{t.BidID(), t.AskID()} {
		if id == nil {
			continue
		}
		if _, ok := r.tx.st.offers[*id]; !ok {
			return infra.NewRepoErr(infra.KindForeignKeyViolated, "offer row missing")
		}
	}
	r.tx.st.transactions[t.ID()] = t
	r.tx.st.byIdemKey[t.IdempotencyKey()] = t.ID()
	return nil
}

type outboxRepo struct{ tx *memTx }

func (r *outboxRepo) Append(_ context.Context, events ...shared.Event) error {
	if err := r.tx.store.failure(OpOutboxAppend); err != nil {
		return err
	}
	for _, e := range events {
		if _, ok := r.tx.st.outboxIdx[e.ID]; ok {
			continue
		}
		r.tx.st.outboxIdx[e.ID] = len(r.tx.st.outbox)
		r.tx.st.outbox = append(r.tx.st.outbox, &OutboxRow{Event: e, NextAttemptAt: e.OccurredAt})
	}
	return nil
}

func (r *outboxRepo) ClaimPending(_ context.Context, now time.Time, limit int) ([]shared.OutboxRecord, error) {
	var out []shared.OutboxRecord
	for _, row := range r.tx.st.outbox {
		if len(out) >= limit {
			break
		}
		if row.Sent || row.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, shared.OutboxRecord{Event: row.Event, Attempts: row.Attempts})
	}
	return out, nil
}

func (r *outboxRepo) MarkSent(_ context.Context, ids []uuid.UUID, at time.Time) error {
	for _, id := range ids {
		if i, ok := r.tx.st.outboxIdx[id]; ok {
			row := r.tx.st.outbox[i]
			row.Sent = true
			row.SentAt = at
			row.Attempts++
		}
	}
	return nil
}

func (r *outboxRepo) MarkFailed(_ context.Context, id uuid.UUID, lastError string, nextAttemptAt time.Time) error {
	if i, ok := r.tx.st.outboxIdx[id]; ok {
		row := r.tx.st.outbox[i]
		row.Attempts++
		row.LastError = lastError
		row.NextAttemptAt = nextAttemptAt
	}
	return nil
}

type memReads struct{ store *Store }

func (r *memReads) Offers() shared.OfferReader             { return &offerReader{r.store} }
func (r *memReads) Transactions() shared.TransactionReader { return &transactionReader{r.store} }

type offerReader struct{ store *Store }

func (r *offerReader) FindByID(_ context.Context, id uuid.UUID) (*offer.Offer, error) {
	o, ok := r.store.Offer(id)
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "offer not found")
	}
	return o, nil
}

func (r *offerReader) ListOpen(_ context.Context) ([]*offer.Offer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*offer.Offer
	for _, o := range r.store.state.offers {
		if o.IsOpen() {
			out = append(out, o.Snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Precedes(out[j]) })
	return out, nil
}

func (r *offerReader) MaxSeq(_ context.Context) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var hi uint64
	for _, o := range r.store.state.offers {
		if o.Seq() > hi {
			hi = o.Seq()
		}
	}
	return hi, nil
}

type transactionReader struct{ store *Store }

func (r *transactionReader) FindByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.state.transactions[id]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "transaction not found")
	}
	return t, nil
}

func (r *transactionReader) FindByIdempotencyKey(_ context.Context, key string) (*transaction.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.failure(OpTransactionLookup); err != nil {
		return nil, err
	}
	id, ok := r.store.state.byIdemKey[key]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "transaction not found")
	}
	return r.store.state.transactions[id], nil
}

func (r *transactionReader) RecentPrices(_ context.Context, key offer.Key, limit int) ([]shared.PricePoint, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []shared.PricePoint
	for _, t := range r.store.state.transactions {
		if t.Key() == key {
			out = append(out, shared.PricePoint{TransactionID: t.ID(), Price: t.MatchedPrice().Minor(), CreatedAt: t.CreatedAt()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
