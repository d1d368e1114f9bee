package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/peersenco/storefront-backend/pkg/db"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Service is the cart surface used by controllers and checkout.
type Service interface {
	Get(ctx context.Context, ref Ref) (Cart, error)
	Add(ctx context.Context, ref Ref, productID uuid.UUID, qty int) (Cart, error)
	SetQuantity(ctx context.Context, ref Ref, productID uuid.UUID, qty int) (Cart, error)
	Remove(ctx context.Context, ref Ref, productID uuid.UUID) (Cart, error)
	Clear(ctx context.Context, ref Ref) (Cart, error)
	ClearAfterCheckout(ctx context.Context, ref Ref) error
}

// Options tunes the coordinator. Zero values fall back to defaults.
type Options struct {
	LoginPolicy    string
	WriteTimeout   time.Duration
	SessionIdleTTL time.Duration
	SweepInterval  time.Duration
	Now            func() time.Time
}

// OptionsFromConfig maps cart settings onto coordinator options.
func OptionsFromConfig(cfg config.CartConfig) Options {
	return Options{
		LoginPolicy:    cfg.LoginPolicy,
		WriteTimeout:   cfg.WriteTimeout,
		SessionIdleTTL: cfg.SessionIdleTTL,
		SweepInterval:  cfg.SweepInterval,
	}
}

func (o Options) withDefaults() Options {
	if o.LoginPolicy == "" {
		o.LoginPolicy = config.CartLoginPolicyMerge
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.SessionIdleTTL <= 0 {
		o.SessionIdleTTL = 30 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type session struct {
	mu       sync.Mutex
	id       string
	loaded   bool
	userID   *uuid.UUID
	cart     Cart
	lastSeen time.Time
	queue    writeQueue
}

// Coordinator owns the in-memory cart of every active device session and
// keeps it in step with the store that matches the session's identity:
// the local store for guests, the remote store for signed-in customers.
//
// Mutations update memory first and return. Store writes run afterwards on a
// per-session queue in call order; a failed write is logged and counted but
// never rolled back into memory.
type Coordinator struct {
	local   LocalStore
	remote  RemoteStore
	catalog ProductLookup
	logg    *logger.Logger
	metrics *metrics.CartSyncMetrics
	opts    Options

	mu       sync.Mutex
	sessions map[string]*session

	loads    singleflight.Group
	inflight sync.WaitGroup
}

var _ Service = (*Coordinator)(nil)

func NewCoordinator(local LocalStore, remote RemoteStore, catalog ProductLookup, logg *logger.Logger, m *metrics.CartSyncMetrics, opts Options) (*Coordinator, error) {
	if local == nil {
		return nil, fmt.Errorf("local cart store required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote cart store required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts = opts.withDefaults()
	switch opts.LoginPolicy {
	case config.CartLoginPolicyMerge, config.CartLoginPolicyDiscard:
	default:
		return nil, fmt.Errorf("unknown cart login policy %q", opts.LoginPolicy)
	}
	return &Coordinator{
		local:    local,
		remote:   remote,
		catalog:  catalog,
		logg:     logg,
		metrics:  m,
		opts:     opts,
		sessions: map[string]*session{},
	}, nil
}

func (c *Coordinator) Get(ctx context.Context, ref Ref) (Cart, error) {
	s, ctx, err := c.acquire(ctx, ref.SessionID)
	if err != nil {
		return Cart{}, err
	}
	defer s.mu.Unlock()

	c.syncIdentity(ctx, s, ref.UserID)
	return s.cart, nil
}

func (c *Coordinator) Add(ctx context.Context, ref Ref, productID uuid.UUID, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, ErrInvalidQuantity.WithDetails(map[string]any{"quantity": qty})
	}
	s, ctx, err := c.acquire(ctx, ref.SessionID)
	if err != nil {
		return Cart{}, err
	}
	defer s.mu.Unlock()

	c.syncIdentity(ctx, s, ref.UserID)

	snapshot, err := c.snapshotFor(ctx, s.cart, productID)
	if err != nil {
		return Cart{}, err
	}
	next, err := s.cart.Add(snapshot, qty)
	if err != nil {
		return Cart{}, err
	}
	s.cart = next
	line, _ := next.Find(productID)
	c.persistLine(ctx, s, "add", productID, &line)
	return next, nil
}

func (c *Coordinator) SetQuantity(ctx context.Context, ref Ref, productID uuid.UUID, qty int) (Cart, error) {
	s, ctx, err := c.acquire(ctx, ref.SessionID)
	if err != nil {
		return Cart{}, err
	}
	defer s.mu.Unlock()

	c.syncIdentity(ctx, s, ref.UserID)

	if _, ok := s.cart.Find(productID); !ok {
		return s.cart, nil
	}
	s.cart = s.cart.SetQuantity(productID, qty)
	if line, ok := s.cart.Find(productID); ok {
		c.persistLine(ctx, s, "update_quantity", productID, &line)
	} else {
		c.persistLine(ctx, s, "remove", productID, nil)
	}
	return s.cart, nil
}

func (c *Coordinator) Remove(ctx context.Context, ref Ref, productID uuid.UUID) (Cart, error) {
	s, ctx, err := c.acquire(ctx, ref.SessionID)
	if err != nil {
		return Cart{}, err
	}
	defer s.mu.Unlock()

	c.syncIdentity(ctx, s, ref.UserID)

	if _, ok := s.cart.Find(productID); !ok {
		return s.cart, nil
	}
	s.cart = s.cart.Remove(productID)
	c.persistLine(ctx, s, "remove", productID, nil)
	return s.cart, nil
}

func (c *Coordinator) Clear(ctx context.Context, ref Ref) (Cart, error) {
	s, ctx, err := c.acquire(ctx, ref.SessionID)
	if err != nil {
		return Cart{}, err
	}
	defer s.mu.Unlock()

	c.syncIdentity(ctx, s, ref.UserID)
	c.clearSession(ctx, s)
	return s.cart, nil
}

// ClearAfterCheckout empties the cart an order was placed from. A resident
// session with the same identity is cleared through its queue; otherwise the
// backing store is cleared directly.
func (c *Coordinator) ClearAfterCheckout(ctx context.Context, ref Ref) error {
	if ref.SessionID == "" && ref.UserID == nil {
		return ErrMissingSession
	}
	if ref.SessionID != "" {
		c.mu.Lock()
		s, ok := c.sessions[ref.SessionID]
		c.mu.Unlock()
		if ok {
			s.mu.Lock()
			matched := s.loaded && sameUser(s.userID, ref.UserID)
			if matched {
				c.clearSession(c.logg.WithCartSession(ctx, s.id), s)
			}
			s.mu.Unlock()
			if matched {
				return nil
			}
		}
	}

	if ref.UserID != nil {
		if err := c.remote.DeleteAllForUser(ctx, *ref.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear customer cart")
		}
		return nil
	}
	if err := c.local.Delete(ctx, ref.SessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear guest cart")
	}
	return nil
}

// OnLogin moves a device session from its guest cart to the customer's cart,
// applying the configured login policy.
func (c *Coordinator) OnLogin(ctx context.Context, sessionID string, userID uuid.UUID) error {
	s, ctx, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if !s.loaded {
		s.cart = c.loadLocal(ctx, s.id)
		s.userID = nil
		s.loaded = true
	}
	c.syncIdentity(ctx, s, &userID)
	return nil
}

// OnLogout returns a device session to its guest cart.
func (c *Coordinator) OnLogout(ctx context.Context, sessionID string) error {
	s, ctx, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	c.syncIdentity(ctx, s, nil)
	return nil
}

// Sweep evicts sessions idle longer than the idle TTL whose writes have
// drained. It returns the number evicted.
func (c *Coordinator) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, s := range c.sessions {
		if now.Sub(s.lastSeen) < c.opts.SessionIdleTTL {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		if s.queue.idle() {
			delete(c.sessions, id)
			evicted++
		}
		s.mu.Unlock()
	}
	return evicted
}

// RunSweeper evicts idle sessions until ctx is cancelled.
func (c *Coordinator) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(c.opts.Now()); n > 0 {
				c.logg.Debug(c.logg.WithField(ctx, "evicted", n), "cart.sessions.evicted")
			}
		}
	}
}

// Flush blocks until every queued write has run or ctx is done.
func (c *Coordinator) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveSessions reports how many sessions are resident.
func (c *Coordinator) ActiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Coordinator) acquire(ctx context.Context, sessionID string) (*session, context.Context, error) {
	if sessionID == "" {
		return nil, ctx, ErrMissingSession
	}
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if !ok {
		s = &session{id: sessionID, cart: Empty()}
		c.sessions[sessionID] = s
	}
	s.lastSeen = c.opts.Now()
	c.mu.Unlock()

	s.mu.Lock()
	return s, c.logg.WithCartSession(ctx, sessionID), nil
}

// syncIdentity reloads s when the caller's identity differs from the one the
// in-memory cart was loaded for, after the session's pending writes drain.
// s.mu must be held.
func (c *Coordinator) syncIdentity(ctx context.Context, s *session, userID *uuid.UUID) {
	if !s.loaded {
		if userID == nil {
			s.cart = c.loadLocal(ctx, s.id)
		} else {
			s.cart, _ = c.loadRemote(ctx, *userID)
		}
		s.userID = copyUser(userID)
		s.loaded = true
		return
	}
	if sameUser(s.userID, userID) {
		return
	}

	// Reads below must see this session's own queued writes, e.g. the local
	// delete that follows a login merge.
	if err := s.queue.wait(ctx); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "cart.sync.drain_wait_failed")
	}

	switch {
	case s.userID == nil:
		c.applyLogin(ctx, s, *userID)
	case userID == nil:
		s.cart = c.loadLocal(ctx, s.id)
	default:
		s.cart, _ = c.loadRemote(ctx, *userID)
	}
	s.userID = copyUser(userID)
}

func (c *Coordinator) applyLogin(ctx context.Context, s *session, userID uuid.UUID) {
	guest := s.cart
	remote, err := c.loadRemote(ctx, userID)

	if c.opts.LoginPolicy == config.CartLoginPolicyDiscard {
		if !guest.IsEmpty() {
			c.logg.Info(c.logg.WithField(ctx, "discarded_lines", len(guest.Items)), "cart.login.guest_discarded")
		}
		s.cart = remote
		return
	}

	if err != nil {
		// The customer's rows are unknown; keep the guest lines visible and
		// leave both stores untouched.
		s.cart = guest
		return
	}
	s.cart = remote.Merge(guest)
	if guest.IsEmpty() {
		return
	}

	merged := s.cart.Items
	c.enqueue(ctx, s, writeOp{
		store:  storeRemote,
		kind:   "replace",
		key:    remoteScopeKey(userID),
		scoped: true,
		run: func(ctx context.Context) error {
			return c.remote.ReplaceAll(ctx, userID, merged)
		},
	})
	sessionID := s.id
	c.enqueue(ctx, s, writeOp{
		store: storeLocal,
		kind:  "delete",
		key:   localKey(sessionID),
		run: func(ctx context.Context) error {
			return c.local.Delete(ctx, sessionID)
		},
	})
}

func (c *Coordinator) loadLocal(ctx context.Context, sessionID string) Cart {
	cart, err := c.local.Read(ctx, sessionID)
	c.metrics.ObserveLoad(storeLocal, err)
	if err != nil {
		c.logg.Error(ctx, "cart.sync.load_failed", err)
		return Empty()
	}
	return cart
}

func (c *Coordinator) loadRemote(ctx context.Context, userID uuid.UUID) (Cart, error) {
	v, err, _ := c.loads.Do(remoteScopeKey(userID), func() (any, error) {
		return c.remote.SelectAllForUser(ctx, userID)
	})
	c.metrics.ObserveLoad(storeRemote, err)
	if err != nil {
		c.logg.Error(c.logg.WithUserID(ctx, userID.String()), "cart.sync.load_failed", err)
		return Empty(), err
	}
	return FromLines(v.([]Line)), nil
}

// snapshotFor reuses the snapshot of a line already in the cart so repeated
// adds keep the price seen on first add.
func (c *Coordinator) snapshotFor(ctx context.Context, current Cart, productID uuid.UUID) (ProductSnapshot, error) {
	if line, ok := current.Find(productID); ok {
		return line.Product, nil
	}
	snapshot, err := c.catalog.SnapshotByID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return ProductSnapshot{}, ErrProductNotFound.WithDetails(map[string]any{"product_id": productID})
		}
		return ProductSnapshot{}, err
	}
	return snapshot, nil
}

// persistLine queues the write for one changed line. line is nil when the
// line was removed.
func (c *Coordinator) persistLine(ctx context.Context, s *session, kind string, productID uuid.UUID, line *Line) {
	if s.userID == nil {
		c.persistLocal(ctx, s, kind)
		return
	}

	userID := *s.userID
	op := writeOp{
		store: storeRemote,
		kind:  kind,
		key:   remoteRowKey(userID, productID),
	}
	if line == nil {
		op.run = func(ctx context.Context) error {
			return c.remote.DeleteByKey(ctx, userID, productID)
		}
	} else {
		l := *line
		op.run = func(ctx context.Context) error {
			return upsertRemote(ctx, c.remote, userID, l)
		}
	}
	c.enqueue(ctx, s, op)
}

func (c *Coordinator) persistLocal(ctx context.Context, s *session, kind string) {
	sessionID := s.id
	snapshot := s.cart
	c.enqueue(ctx, s, writeOp{
		store: storeLocal,
		kind:  kind,
		key:   localKey(sessionID),
		run: func(ctx context.Context) error {
			return c.local.Write(ctx, sessionID, snapshot)
		},
	})
}

func (c *Coordinator) clearSession(ctx context.Context, s *session) {
	s.cart = s.cart.Clear()
	if s.userID == nil {
		sessionID := s.id
		c.enqueue(ctx, s, writeOp{
			store: storeLocal,
			kind:  "clear",
			key:   localKey(sessionID),
			run: func(ctx context.Context) error {
				return c.local.Delete(ctx, sessionID)
			},
		})
		return
	}
	userID := *s.userID
	c.enqueue(ctx, s, writeOp{
		store:  storeRemote,
		kind:   "clear",
		key:    remoteScopeKey(userID),
		scoped: true,
		run: func(ctx context.Context) error {
			return c.remote.DeleteAllForUser(ctx, userID)
		},
	})
}

func (c *Coordinator) enqueue(ctx context.Context, s *session, op writeOp) {
	op.ctx = context.WithoutCancel(ctx)
	dropped, start := s.queue.push(op)
	for _, d := range dropped {
		c.metrics.AddSuperseded(d.store, 1)
	}
	if start {
		c.inflight.Add(1)
		go c.drain(&s.queue)
	}
}

func (c *Coordinator) drain(q *writeQueue) {
	defer c.inflight.Done()
	for {
		op, ok := q.next()
		if !ok {
			return
		}
		c.execute(op)
	}
}

func (c *Coordinator) execute(op writeOp) {
	ctx, cancel := context.WithTimeout(op.ctx, c.opts.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := op.run(ctx)
	c.metrics.ObserveWrite(op.store, op.kind, time.Since(start), err)
	if err != nil {
		logCtx := c.logg.WithFields(op.ctx, map[string]any{"store": op.store, "op": op.kind})
		c.logg.Error(logCtx, "cart.sync.write_failed", err)
	}
}

// upsertRemote sets the row to the line's absolute quantity, inserting it
// when missing. A concurrent insert of the same row falls back to update.
func upsertRemote(ctx context.Context, remote RemoteStore, userID uuid.UUID, line Line) error {
	updated, err := remote.UpdateQuantity(ctx, userID, line.Product.ID, line.Quantity)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}
	err = remote.Insert(ctx, userID, line)
	if err == nil || !db.IsUniqueViolation(err, "") {
		return err
	}
	_, err = remote.UpdateQuantity(ctx, userID, line.Product.ID, line.Quantity)
	return err
}

func remoteScopeKey(userID uuid.UUID) string {
	return storeRemote + ":" + userID.String()
}

func remoteRowKey(userID, productID uuid.UUID) string {
	return remoteScopeKey(userID) + ":" + productID.String()
}

func localKey(sessionID string) string {
	return storeLocal + ":" + sessionID
}

func sameUser(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyUser(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
