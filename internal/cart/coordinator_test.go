package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/peersenco/storefront-backend/pkg/logger"
)

type fakeLocal struct {
	mu       sync.Mutex
	carts    map[string]Cart
	readErr  error
	writeErr error
	writes   int
	deletes  int
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{carts: map[string]Cart{}}
}

func (f *fakeLocal) Read(_ context.Context, id string) (Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return Empty(), f.readErr
	}
	if c, ok := f.carts[id]; ok {
		return c, nil
	}
	return Empty(), nil
}

func (f *fakeLocal) Write(_ context.Context, id string, c Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.carts[id] = c
	return nil
}

func (f *fakeLocal) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.carts, id)
	return nil
}

func (f *fakeLocal) get(id string) (Cart, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[id]
	return c, ok
}

type fakeRemote struct {
	mu       sync.Mutex
	rows     map[uuid.UUID][]Line
	selects  int
	updates  int
	replaces int
	readErr  error
	writeErr error

	// gate, when set, blocks the first UpdateQuantity until closed.
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once

	// replaceGate, when set, blocks ReplaceAll until closed.
	replaceGate    chan struct{}
	replaceEntered chan struct{}
	replaceOnce    sync.Once
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{rows: map[uuid.UUID][]Line{}}
}

func (f *fakeRemote) SelectAllForUser(_ context.Context, userID uuid.UUID) ([]Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selects++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]Line(nil), f.rows[userID]...), nil
}

func (f *fakeRemote) Insert(_ context.Context, userID uuid.UUID, line Line) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if indexIn(f.rows[userID], line.Product.ID) >= 0 {
		return errors.New("UNIQUE constraint failed: user_carts.user_id, user_carts.product_id")
	}
	f.rows[userID] = append(f.rows[userID], line)
	return nil
}

func (f *fakeRemote) UpdateQuantity(_ context.Context, userID, productID uuid.UUID, qty int) (bool, error) {
	if f.gate != nil {
		blocked := false
		f.once.Do(func() { blocked = true })
		if blocked {
			close(f.entered)
			<-f.gate
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.writeErr != nil {
		return false, f.writeErr
	}
	rows := f.rows[userID]
	i := indexIn(rows, productID)
	if i < 0 {
		return false, nil
	}
	rows[i].Quantity = qty
	return true, nil
}

func (f *fakeRemote) DeleteByKey(_ context.Context, userID, productID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[userID]
	if i := indexIn(rows, productID); i >= 0 {
		f.rows[userID] = append(rows[:i:i], rows[i+1:]...)
	}
	return nil
}

func (f *fakeRemote) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, userID)
	return nil
}

func (f *fakeRemote) ReplaceAll(_ context.Context, userID uuid.UUID, lines []Line) error {
	if f.replaceGate != nil {
		f.replaceOnce.Do(func() { close(f.replaceEntered) })
		<-f.replaceGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces++
	f.rows[userID] = append([]Line(nil), lines...)
	return nil
}

func (f *fakeRemote) quantities(userID uuid.UUID) map[uuid.UUID]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID]int{}
	for _, l := range f.rows[userID] {
		out[l.Product.ID] = l.Quantity
	}
	return out
}

type fakeCatalog struct {
	products map[uuid.UUID]ProductSnapshot
	lookups  int
}

func (f *fakeCatalog) SnapshotByID(_ context.Context, id uuid.UUID) (ProductSnapshot, error) {
	f.lookups++
	p, ok := f.products[id]
	if !ok {
		return ProductSnapshot{}, ErrProductNotFound
	}
	return p, nil
}

type harness struct {
	coord   *Coordinator
	local   *fakeLocal
	remote  *fakeRemote
	catalog *fakeCatalog
	a, b    ProductSnapshot
}

func newHarness(t *testing.T, policy string) *harness {
	t.Helper()
	a, b := snapshot("rens", "100"), snapshot("toner", "50")
	h := &harness{
		local:   newFakeLocal(),
		remote:  newFakeRemote(),
		catalog: &fakeCatalog{products: map[uuid.UUID]ProductSnapshot{a.ID: a, b.ID: b}},
		a:       a,
		b:       b,
	}
	coord, err := NewCoordinator(h.local, h.remote, h.catalog, logger.Nop(), nil, Options{LoginPolicy: policy})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	h.coord = coord
	return h
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.coord.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func guest(id string) Ref { return Ref{SessionID: id} }

func customer(id string, user uuid.UUID) Ref { return Ref{SessionID: id, UserID: &user} }

func TestCoordinatorGuestWritesLocalSnapshot(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()

	if _, err := h.coord.Add(ctx, guest("dev"), h.a.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := h.coord.Add(ctx, guest("dev"), h.b.ID, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if FormatAmount(got.Total) != "250.00" || got.ItemCount() != 3 {
		t.Fatalf("unexpected cart: total %s count %d", got.Total, got.ItemCount())
	}

	h.flush(t)
	stored, ok := h.local.get("dev")
	if !ok {
		t.Fatal("expected local snapshot")
	}
	if !stored.Total.Equal(got.Total) || len(stored.Items) != 2 {
		t.Fatalf("local snapshot out of date: %+v", stored)
	}
	if len(h.remote.quantities(uuid.Nil)) != 0 || h.remote.updates != 0 {
		t.Fatal("guest writes must not reach the remote store")
	}
}

func TestCoordinatorCustomerWritesRemoteRows(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()
	user := uuid.New()

	if _, err := h.coord.Add(ctx, customer("dev", user), h.a.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := h.coord.Add(ctx, customer("dev", user), h.a.ID, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := h.coord.Add(ctx, customer("dev", user), h.b.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := h.coord.SetQuantity(ctx, customer("dev", user), h.b.ID, 0)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 5 {
		t.Fatalf("unexpected cart: %+v", got.Items)
	}

	h.flush(t)
	rows := h.remote.quantities(user)
	if len(rows) != 1 || rows[h.a.ID] != 5 {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if _, ok := h.local.get("dev"); ok {
		t.Fatal("customer writes must not reach the local store")
	}
}

func TestCoordinatorRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()

	if _, err := h.coord.Add(ctx, guest("dev"), h.a.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if h.catalog.lookups != 0 {
		t.Fatal("invalid quantity must not hit the catalog")
	}
	if _, err := h.coord.Add(ctx, guest("dev"), uuid.New(), 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := h.coord.Get(ctx, Ref{}); !errors.Is(err, ErrMissingSession) {
		t.Fatalf("expected ErrMissingSession, got %v", err)
	}
}

func TestCoordinatorNoopMutationsSkipWrites(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()

	if _, err := h.coord.Remove(ctx, guest("dev"), h.a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := h.coord.SetQuantity(ctx, guest("dev"), h.a.ID, 3); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	h.flush(t)
	if h.local.writes != 0 {
		t.Fatalf("expected no writes, got %d", h.local.writes)
	}
}

func TestCoordinatorLoginMergesGuestCart(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()
	user := uuid.New()
	h.remote.rows[user] = []Line{{Product: h.a, Quantity: 1}, {Product: h.b, Quantity: 1}}

	if _, err := h.coord.Add(ctx, guest("dev"), h.a.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.coord.OnLogin(ctx, "dev", user); err != nil {
		t.Fatalf("login: %v", err)
	}
	got, err := h.coord.Get(ctx, customer("dev", user))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if FormatAmount(got.Total) != "350.00" {
		t.Fatalf("expected merged total 350.00, got %s", got.Total)
	}

	h.flush(t)
	rows := h.remote.quantities(user)
	if rows[h.a.ID] != 3 || rows[h.b.ID] != 1 {
		t.Fatalf("remote not replaced with merged cart: %v", rows)
	}
	if _, ok := h.local.get("dev"); ok {
		t.Fatal("guest snapshot should be removed after merge")
	}
}

func TestCoordinatorLogoutWaitsForPendingMergeWrites(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()
	user := uuid.New()
	h.remote.replaceGate = make(chan struct{})
	h.remote.replaceEntered = make(chan struct{})

	if _, err := h.coord.Add(ctx, guest("dev"), h.a.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.coord.OnLogin(ctx, "dev", user); err != nil {
		t.Fatalf("login: %v", err)
	}
	<-h.remote.replaceEntered

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- h.coord.OnLogout(ctx, "dev") }()

	select {
	case err := <-logoutDone:
		t.Fatalf("logout returned before merge writes drained: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(h.remote.replaceGate)
	select {
	case err := <-logoutDone:
		if err != nil {
			t.Fatalf("logout: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("logout did not finish after writes drained")
	}

	guestCart, err := h.coord.Get(ctx, guest("dev"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !guestCart.IsEmpty() {
		t.Fatalf("guest cart should be empty after merge and logout, got %+v", guestCart.Items)
	}

	if err := h.coord.OnLogin(ctx, "dev", user); err != nil {
		t.Fatalf("second login: %v", err)
	}
	got, err := h.coord.Get(ctx, customer("dev", user))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	line, ok := got.Find(h.a.ID)
	if !ok || line.Quantity != 2 {
		t.Fatalf("expected quantity 2 after second login, got %+v", got.Items)
	}

	h.flush(t)
	if rows := h.remote.quantities(user); rows[h.a.ID] != 2 {
		t.Fatalf("remote rows doubled: %v", rows)
	}
}

func TestCoordinatorLoginDiscardDropsGuestLines(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyDiscard)
	ctx := context.Background()
	user := uuid.New()
	h.remote.rows[user] = []Line{{Product: h.b, Quantity: 1}}

	if _, err := h.coord.Add(ctx, guest("dev"), h.a.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	h.flush(t)

	got, err := h.coord.Get(ctx, customer("dev", user))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Product.ID != h.b.ID {
		t.Fatalf("expected remote cart only, got %+v", got.Items)
	}
	if h.remote.replaces != 0 {
		t.Fatal("discard policy must not rewrite remote rows")
	}

	// Logging out reloads the stale guest snapshot.
	if err := h.coord.OnLogout(ctx, "dev"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	got, err = h.coord.Get(ctx, guest("dev"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if line, ok := got.Find(h.a.ID); !ok || line.Quantity != 2 {
		t.Fatalf("expected guest cart after logout, got %+v", got.Items)
	}
}

func TestCoordinatorLoginWithRemoteFailureKeepsGuestLines(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()
	user := uuid.New()
	h.remote.readErr = errors.New("connection refused")

	if _, err := h.coord.Add(ctx, guest("dev"), h.a.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.coord.OnLogin(ctx, "dev", user); err != nil {
		t.Fatalf("login: %v", err)
	}
	got, _ := h.coord.Get(ctx, customer("dev", user))
	if len(got.Items) != 1 {
		t.Fatalf("expected guest line kept, got %+v", got.Items)
	}

	h.flush(t)
	if h.remote.replaces != 0 {
		t.Fatal("remote rows must not be replaced when they could not be read")
	}
	if _, ok := h.local.get("dev"); !ok {
		t.Fatal("guest snapshot must survive a failed merge")
	}
}

func TestCoordinatorLoadFailureYieldsEmptyCart(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	h.remote.readErr = errors.New("timeout")

	got, err := h.coord.Get(context.Background(), customer("dev", uuid.New()))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", got.Items)
	}
}

func TestCoordinatorWriteFailureKeepsMemoryState(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()
	h.local.writeErr = errors.New("redis down")

	if _, err := h.coord.Add(ctx, guest("dev"), h.a.ID, 1); err != nil {
		t.Fatalf("add should not surface write failures: %v", err)
	}
	h.flush(t)

	got, _ := h.coord.Get(ctx, guest("dev"))
	if got.ItemCount() != 1 {
		t.Fatalf("memory state lost after failed write: %+v", got.Items)
	}
}

func TestCoordinatorSupersedesPendingWrites(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()
	user := uuid.New()
	ref := customer("dev", user)
	h.remote.rows[user] = []Line{{Product: h.a, Quantity: 1}}
	h.remote.gate = make(chan struct{})
	h.remote.entered = make(chan struct{})

	if _, err := h.coord.SetQuantity(ctx, ref, h.a.ID, 2); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	<-h.remote.entered

	for qty := 3; qty <= 6; qty++ {
		if _, err := h.coord.SetQuantity(ctx, ref, h.a.ID, qty); err != nil {
			t.Fatalf("set quantity: %v", err)
		}
	}
	close(h.remote.gate)
	h.flush(t)

	if got := h.remote.quantities(user)[h.a.ID]; got != 6 {
		t.Fatalf("expected final quantity 6, got %d", got)
	}
	if h.remote.updates != 2 {
		t.Fatalf("expected the blocked write and the latest write only, got %d updates", h.remote.updates)
	}
}

func TestCoordinatorClearSupersedesRowWrites(t *testing.T) {
	q := &writeQueue{running: true}
	user := uuid.New()
	row := writeOp{store: storeRemote, kind: "add", key: remoteRowKey(user, uuid.New())}
	other := writeOp{store: storeRemote, kind: "add", key: remoteRowKey(uuid.New(), uuid.New())}
	q.push(row)
	q.push(other)

	dropped, start := q.push(writeOp{store: storeRemote, kind: "clear", key: remoteScopeKey(user), scoped: true})
	if start {
		t.Fatal("running queue must not start another drain")
	}
	if len(dropped) != 1 || dropped[0].key != row.key {
		t.Fatalf("expected the user's row write to be dropped, got %+v", dropped)
	}
	if len(q.pending) != 2 || q.pending[0].key != other.key {
		t.Fatalf("unexpected pending ops: %+v", q.pending)
	}
}

func TestCoordinatorClearAfterCheckout(t *testing.T) {
	h := newHarness(t, config.CartLoginPolicyMerge)
	ctx := context.Background()
	user := uuid.New()

	if _, err := h.coord.Add(ctx, customer("dev", user), h.a.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.coord.ClearAfterCheckout(ctx, customer("dev", user)); err != nil {
		t.Fatalf("clear after checkout: %v", err)
	}
	h.flush(t)
	got, _ := h.coord.Get(ctx, customer("dev", user))
	if !got.IsEmpty() || len(h.remote.quantities(user)) != 0 {
		t.Fatal("resident cart not cleared")
	}

	// Non-resident guest session falls back to the store.
	h.local.carts["other"] = FromLines([]Line{{Product: h.b, Quantity: 1}})
	if err := h.coord.ClearAfterCheckout(ctx, guest("other")); err != nil {
		t.Fatalf("clear after checkout: %v", err)
	}
	if _, ok := h.local.get("other"); ok {
		t.Fatal("guest snapshot not removed")
	}
}

func TestCoordinatorSweepEvictsIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, config.CartLoginPolicyMerge)
	h.coord.opts.Now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := h.coord.Add(ctx, guest("dev"), h.a.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	h.flush(t)

	if n := h.coord.Sweep(now.Add(time.Minute)); n != 0 {
		t.Fatalf("fresh session evicted")
	}
	if n := h.coord.Sweep(now.Add(time.Hour)); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if h.coord.ActiveSessions() != 0 {
		t.Fatal("session still resident")
	}

	// The next request reloads from the store.
	got, _ := h.coord.Get(ctx, guest("dev"))
	if got.ItemCount() != 1 {
		t.Fatalf("expected reloaded cart, got %+v", got.Items)
	}
}

func TestNewCoordinatorRejectsUnknownPolicy(t *testing.T) {
	_, err := NewCoordinator(newFakeLocal(), newFakeRemote(), &fakeCatalog{}, logger.Nop(), nil, Options{LoginPolicy: "keep"})
	if err == nil {
		t.Fatal("expected error")
	}
}
