package shop

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory implementation of the store ports. Run holds the
// mutex for the whole unit of work, so transactions are serialized the way
// Postgres row locks serialize the real ones.
type memStore struct {
	mu       sync.Mutex
	products map[string]Product
	orders   map[string]Order
	items    map[string][]OrderItem
	nextItem int64

	onRun        func(s *memStore)            // runs at tx start, before fn
	decrementErr func(productID string) error // fault injection
}

func newMemStore(products ...Product) *memStore {
	s := &memStore{
		products: make(map[string]Product),
		orders:   make(map[string]Order),
		items:    make(map[string][]OrderItem),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) FindMany(_ context.Context, ids []string) (map[string]ProductInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ProductInfo, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = ProductInfo{ID: p.ID, PriceCents: p.PriceCents, Stock: p.Stock}
		}
	}
	return out, nil
}

func (s *memStore) GetWithItems(_ context.Context, orderID string) (Order, []OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, nil, ErrNotFound
	}
	return o, append([]OrderItem(nil), s.items[orderID]...), nil
}

func (s *memStore) ListSummaries(_ context.Context) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, nil
}

func (s *memStore) Run(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onRun != nil {
		s.onRun(s)
	}
	tx := &memTx{s: s, decremented: make(map[string]int)}
	if err := fn(tx); err != nil {
		return err // staged state dropped
	}
	tx.apply()
	return nil
}

type memTx struct {
	s           *memStore
	order       *Order
	items       []OrderItem
	decremented map[string]int
}

func (t *memTx) InsertOrder(_ context.Context, o Order) error {
	t.order = &o
	return nil
}

func (t *memTx) InsertItems(_ context.Context, items []OrderItem) error {
	for i := range items {
		t.s.nextItem++
		items[i].ID = t.s.nextItem
	}
	t.items = append([]OrderItem(nil), items...)
	return nil
}

func (t *memTx) DecrementStock(_ context.Context, productID string, qty int) (bool, error) {
	if t.s.decrementErr != nil {
		if err := t.s.decrementErr(productID); err != nil {
			return false, err
		}
	}
	p, ok := t.s.products[productID]
	if !ok {
		return false, nil
	}
	if p.Stock-t.decremented[productID] < qty {
		return false, nil
	}
	t.decremented[productID] += qty
	return true, nil
}

func (t *memTx) ProductStock(_ context.Context, productID string) (int, bool, error) {
	p, ok := t.s.products[productID]
	if !ok {
		return 0, false, nil
	}
	return p.Stock - t.decremented[productID], true, nil
}

func (t *memTx) apply() {
	for id, qty := range t.decremented {
		p := t.s.products[id]
		p.Stock -= qty
		t.s.products[id] = p
	}
	if t.order != nil {
		t.s.orders[t.order.ID] = *t.order
		t.s.items[t.order.ID] = t.items
	}
}

func (s *memStore) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func newTestService(s *memStore) *Service { return NewService(s, s, s) }

func TestPlace_Success(t *testing.T) {
	store := newMemStore(
		Product{ID: "p1", PriceCents: 1000, Stock: 5},
		Product{ID: "p2", PriceCents: 250, Stock: 8},
	)
	svc := newTestService(store)

	order, items, err := svc.Place(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items:  []LineItem{{ProductID: "p1", Qty: 2}, {ProductID: "p2", Qty: 3}},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, 1000, items[0].PriceCents)
	assert.Equal(t, 250, items[1].PriceCents)
	assert.Equal(t, 2750, DeriveTotal(items))

	// stock decremented by exactly the requested quantities
	assert.Equal(t, 3, store.stock("p1"))
	assert.Equal(t, 5, store.stock("p2"))

	view, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2750, view.TotalCents)
}

func TestPlace_InsufficientStock(t *testing.T) {
	store := newMemStore(Product{ID: "p1", PriceCents: 1000, Stock: 1})
	svc := newTestService(store)

	_, _, err := svc.Place(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items:  []LineItem{{ProductID: "p1", Qty: 2}},
	})

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	require.Len(t, ise.Shortfalls, 1)
	assert.Equal(t, "p1", ise.Shortfalls[0].ProductID)
	assert.Equal(t, 2, ise.Shortfalls[0].Required)
	assert.Equal(t, 1, ise.Shortfalls[0].Available)

	// nothing mutated, nothing visible
	assert.Equal(t, 1, store.stock("p1"))
	assert.Equal(t, 0, store.orderCount())
}

func TestPlace_ShortfallNamesEveryOffendingProduct(t *testing.T) {
	store := newMemStore(
		Product{ID: "p1", PriceCents: 100, Stock: 0},
		Product{ID: "p2", PriceCents: 100, Stock: 10},
		Product{ID: "p3", PriceCents: 100, Stock: 1},
	)
	svc := newTestService(store)

	_, _, err := svc.Place(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items: []LineItem{
			{ProductID: "p1", Qty: 1},
			{ProductID: "p2", Qty: 2},
			{ProductID: "p3", Qty: 5},
		},
	})

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	require.Len(t, ise.Shortfalls, 2)
	assert.Equal(t, "p1", ise.Shortfalls[0].ProductID)
	assert.Equal(t, "p3", ise.Shortfalls[1].ProductID)
	assert.Equal(t, 10, store.stock("p2"))
	assert.Equal(t, 0, store.orderCount())
}

func TestPlace_StorageFaultLeavesNoTrace(t *testing.T) {
	store := newMemStore(
		Product{ID: "p1", PriceCents: 100, Stock: 5},
		Product{ID: "p2", PriceCents: 100, Stock: 5},
	)
	// order and items are inserted first; the fault hits the second
	// decrement, after the first already succeeded in the transaction
	boom := errors.New("connection reset")
	store.decrementErr = func(productID string) error {
		if productID == "p2" {
			return boom
		}
		return nil
	}
	svc := newTestService(store)

	_, _, err := svc.Place(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items:  []LineItem{{ProductID: "p1", Qty: 1}, {ProductID: "p2", Qty: 1}},
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 0, store.orderCount())
	assert.Equal(t, 5, store.stock("p1"))
	assert.Equal(t, 5, store.stock("p2"))
}

func TestPlace_ProductVanishesBetweenAssemblyAndCommit(t *testing.T) {
	store := newMemStore(Product{ID: "p1", PriceCents: 100, Stock: 5})
	store.onRun = func(s *memStore) { delete(s.products, "p1") }
	svc := newTestService(store)

	_, _, err := svc.Place(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items:  []LineItem{{ProductID: "p1", Qty: 1}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.orderCount())
}

func TestPlace_ConcurrentReservations(t *testing.T) {
	store := newMemStore(Product{ID: "p1", PriceCents: 100, Stock: 5})
	svc := newTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Place(context.Background(), PlaceOrderRequest{
				UserID: "u1",
				Items:  []LineItem{{ProductID: "p1", Qty: 3}},
			})
		}(i)
	}
	wg.Wait()

	var successes, shortfalls int
	for _, err := range errs {
		var ise *InsufficientStockError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &ise):
			shortfalls++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, shortfalls)
	assert.Equal(t, 2, store.stock("p1"))
	assert.Equal(t, 1, store.orderCount())
}

func TestGet_TotalSurvivesLaterPriceChange(t *testing.T) {
	store := newMemStore(Product{ID: "p1", PriceCents: 10, Stock: 5})
	svc := newTestService(store)

	order, _, err := svc.Place(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items:  []LineItem{{ProductID: "p1", Qty: 2}},
	})
	require.NoError(t, err)

	// catalog price change after placement must not affect the order
	store.mu.Lock()
	p := store.products["p1"]
	p.PriceCents = 99
	store.products["p1"] = p
	store.mu.Unlock()

	view, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, view.TotalCents)
	assert.Equal(t, 10, view.Items[0].PriceCents)
}

func TestGet_RepeatedReadsAreIdentical(t *testing.T) {
	store := newMemStore(
		Product{ID: "p1", PriceCents: 10, Stock: 5},
		Product{ID: "p2", PriceCents: 5, Stock: 5},
	)
	svc := newTestService(store)

	order, _, err := svc.Place(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items:  []LineItem{{ProductID: "p1", Qty: 2}, {ProductID: "p2", Qty: 1}},
	})
	require.NoError(t, err)

	first, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, 25, first.TotalCents)
	b1, _ := json.Marshal(first)
	b2, _ := json.Marshal(second)
	assert.Equal(t, b1, b2)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_SummariesOnly(t *testing.T) {
	store := newMemStore(Product{ID: "p1", PriceCents: 10, Stock: 10})
	svc := newTestService(store)

	for i := 0; i < 3; i++ {
		_, _, err := svc.Place(context.Background(), PlaceOrderRequest{
			UserID: "u1",
			Items:  []LineItem{{ProductID: "p1", Qty: 1}},
		})
		require.NoError(t, err)
	}

	orders, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 3)
	for _, o := range orders {
		assert.Equal(t, "u1", o.UserID)
		assert.NotEmpty(t, o.ID)
	}
}
