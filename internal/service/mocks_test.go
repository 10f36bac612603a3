package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// mockStore is an in-memory repository.Store and repository.Transactor.
// Transactions are serialized and roll back to a snapshot on error.
type mockStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	pickups    map[string]*domain.PickupRequest
	entries    []*domain.LedgerEntry
	collectors map[string]*domain.CollectorProfile

	// Counters for verification
	UpdateIfCallCount int32
	AppendCallCount   int32
	TxCallCount       int32

	// Error injection
	CreateError         error
	UpdateIfError       error
	AppendError         error
	FailAppendOn        int32 // 1-based call number that fails with AppendError; 0 fails every call
	IncrementStatsError error
}

func newMockStore() *mockStore {
	return &mockStore{
		pickups:    make(map[string]*domain.PickupRequest),
		collectors: make(map[string]*domain.CollectorProfile),
	}
}

func (m *mockStore) Pickups() repository.PickupRepository       { return &mockPickups{m} }
func (m *mockStore) Ledger() repository.LedgerRepository        { return &mockLedger{m} }
func (m *mockStore) Collectors() repository.CollectorRepository { return &mockCollectors{m} }

func (m *mockStore) RunInTx(ctx context.Context, fn func(repository.Store) error) error {
	atomic.AddInt32(&m.TxCallCount, 1)
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type storeState struct {
	pickups    map[string]*domain.PickupRequest
	entries    []*domain.LedgerEntry
	collectors map[string]*domain.CollectorProfile
}

func (m *mockStore) snapshot() storeState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := storeState{
		pickups:    make(map[string]*domain.PickupRequest, len(m.pickups)),
		entries:    make([]*domain.LedgerEntry, 0, len(m.entries)),
		collectors: make(map[string]*domain.CollectorProfile, len(m.collectors)),
	}
	for id, p := range m.pickups {
		s.pickups[id] = p.Clone()
	}
	for _, e := range m.entries {
		c := *e
		s.entries = append(s.entries, &c)
	}
	for id, c := range m.collectors {
		cp := *c
		s.collectors[id] = &cp
	}
	return s
}

func (m *mockStore) restore(s storeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pickups = s.pickups
	m.entries = s.entries
	m.collectors = s.collectors
}

// AddPickup stores a pickup for a test.
func (m *mockStore) AddPickup(p *domain.PickupRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Version == 0 {
		p.Version = 1
	}
	m.pickups[p.ID] = p.Clone()
}

// AddCollector stores a collector profile for a test.
func (m *mockStore) AddCollector(c *domain.CollectorProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.collectors[c.ID] = &cp
}

// AddEntry stores a ledger entry for a test.
func (m *mockStore) AddEntry(e *domain.LedgerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *e
	m.entries = append(m.entries, &c)
}

// GetPickup returns the stored pickup (for test assertions).
func (m *mockStore) GetPickup(id string) *domain.PickupRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.pickups[id]; ok {
		return p.Clone()
	}
	return nil
}

// GetCollector returns the stored profile (for test assertions).
func (m *mockStore) GetCollector(id string) *domain.CollectorProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.collectors[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

// Entries returns every stored ledger entry (for test assertions).
func (m *mockStore) Entries() []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LedgerEntry, 0, len(m.entries))
	for _, e := range m.entries {
		c := *e
		out = append(out, &c)
	}
	return out
}

type mockPickups struct{ m *mockStore }

func (r *mockPickups) Create(ctx context.Context, p *domain.PickupRequest) error {
	if r.m.CreateError != nil {
		return r.m.CreateError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.pickups[p.ID] = p.Clone()
	return nil
}

func (r *mockPickups) GetByID(ctx context.Context, id string) (*domain.PickupRequest, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.pickups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *mockPickups) UpdateIf(ctx context.Context, p *domain.PickupRequest, expectedStatus domain.PickupStatus, expectedVersion int) error {
	atomic.AddInt32(&r.m.UpdateIfCallCount, 1)
	if r.m.UpdateIfError != nil {
		return r.m.UpdateIfError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.pickups[p.ID]
	if !ok || stored.Status != expectedStatus || stored.Version != expectedVersion {
		return repository.ErrConflict
	}
	p.Version = expectedVersion + 1
	r.m.pickups[p.ID] = p.Clone()
	return nil
}

func (r *mockPickups) List(ctx context.Context, f repository.PickupFilter) ([]*domain.PickupRequest, int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var matched []*domain.PickupRequest
	for _, p := range r.m.pickups {
		if f.CustomerID != "" && p.CustomerID != f.CustomerID {
			continue
		}
		if f.CollectorID != "" && p.CollectorID != f.CollectorID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		matched = append(matched, p.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, f.Offset, f.Limit), len(matched), nil
}

func (r *mockPickups) ListAvailable(ctx context.Context, postalCodes []string, offset, limit int) ([]*domain.PickupRequest, int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	codes := make(map[string]bool, len(postalCodes))
	for _, c := range postalCodes {
		codes[c] = true
	}
	var matched []*domain.PickupRequest
	for _, p := range r.m.pickups {
		if p.Status == domain.PickupStatusRequested && codes[p.Address.PostalCode] {
			matched = append(matched, p.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ScheduledDate.Before(matched[j].ScheduledDate) })
	return paginate(matched, offset, limit), len(matched), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type mockLedger struct{ m *mockStore }

func (r *mockLedger) Append(ctx context.Context, e *domain.LedgerEntry) error {
	n := atomic.AddInt32(&r.m.AppendCallCount, 1)
	if r.m.AppendError != nil && (r.m.FailAppendOn == 0 || r.m.FailAppendOn == n) {
		return r.m.AppendError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *e
	r.m.entries = append(r.m.entries, &c)
	return nil
}

func (r *mockLedger) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, e := range r.m.entries {
		if e.ID == id {
			c := *e
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockLedger) ListByUser(ctx context.Context, f repository.LedgerFilter) ([]*domain.LedgerEntry, int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var matched []*domain.LedgerEntry
	for i := len(r.m.entries) - 1; i >= 0; i-- {
		e := r.m.entries[i]
		if e.UserID != f.UserID || (f.Type != "" && e.Type != f.Type) {
			continue
		}
		c := *e
		matched = append(matched, &c)
	}
	return paginate(matched, f.Offset, f.Limit), len(matched), nil
}

func (r *mockLedger) AllByUser(ctx context.Context, userID string) ([]*domain.LedgerEntry, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range r.m.entries {
		if e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *mockLedger) ResolvePayout(ctx context.Context, id string, status domain.EntryStatus, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, e := range r.m.entries {
		if e.ID != id {
			continue
		}
		if e.Type != domain.EntryTypePayout || e.Status != domain.EntryStatusPending {
			return repository.ErrConflict
		}
		e.Status = status
		e.ResolvedAt = at
		return nil
	}
	return repository.ErrNotFound
}

type mockCollectors struct{ m *mockStore }

func (r *mockCollectors) GetByID(ctx context.Context, id string) (*domain.CollectorProfile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.collectors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *mockCollectors) GetByUserID(ctx context.Context, userID string) (*domain.CollectorProfile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, c := range r.m.collectors {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockCollectors) IncrementStats(ctx context.Context, id string, earnings decimal.Decimal) error {
	if r.m.IncrementStatsError != nil {
		return r.m.IncrementStatsError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.collectors[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.TotalPickups++
	c.TotalEarnings = c.TotalEarnings.Add(earnings)
	return nil
}

// ──────────────────────────────────────────────
// MOCK PRICING CATALOG
// ──────────────────────────────────────────────

type mockCatalog struct {
	mu     sync.RWMutex
	prices map[domain.WasteCategory]*domain.PricingSnapshot

	LookupCallCount int32
	LookupError     error
}

// newMockCatalog returns a catalog seeded with the launch price list.
func newMockCatalog() *mockCatalog {
	c := &mockCatalog{prices: make(map[domain.WasteCategory]*domain.PricingSnapshot)}
	c.Set(domain.CategoryPaper, "14", "2", true)
	c.Set(domain.CategoryPlastic, "10", "1", true)
	c.Set(domain.CategoryMetal, "35", "1", true)
	c.Set(domain.CategoryEWaste, "20", "0.5", true)
	c.Set(domain.CategoryGlass, "5", "2", true)
	c.Set(domain.CategoryMixed, "8", "5", true)
	return c
}

func (c *mockCatalog) Set(category domain.WasteCategory, price, min string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[category] = &domain.PricingSnapshot{
		Category:     category,
		PricePerUnit: decimal.RequireFromString(price),
		MinQuantity:  decimal.RequireFromString(min),
		Active:       active,
	}
}

func (c *mockCatalog) Lookup(ctx context.Context, category domain.WasteCategory) (*domain.PricingSnapshot, error) {
	atomic.AddInt32(&c.LookupCallCount, 1)
	if c.LookupError != nil {
		return nil, c.LookupError
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.prices[category]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (c *mockCatalog) List(ctx context.Context) ([]*domain.PricingSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.PricingSnapshot, 0, len(c.prices))
	for _, s := range c.prices {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

type mockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	AcquireError error
}

func newMockLockStore() *mockLockStore {
	return &mockLockStore{locks: make(map[string]string)}
}

func (m *mockLockStore) AcquirePickupLock(ctx context.Context, pickupID string, ttl time.Duration) (string, error) {
	if m.AcquireError != nil {
		return "", m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[pickupID]; held {
		return "", nil
	}
	token := uuid.New().String()
	m.locks[pickupID] = token
	return token, nil
}

func (m *mockLockStore) ReleasePickupLock(ctx context.Context, pickupID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[pickupID] == token {
		delete(m.locks, pickupID)
	}
	return nil
}

// Held reports whether the pickup lock is currently taken.
func (m *mockLockStore) Held(pickupID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[pickupID]
	return held
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

type mockPublisher struct {
	mu     sync.Mutex
	events []Event

	PublishError error
}

func (m *mockPublisher) Publish(ctx context.Context, e Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Types returns the published event types in order.
func (m *mockPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

// ──────────────────────────────────────────────
// FIXTURES
// ──────────────────────────────────────────────

type fixture struct {
	store     *mockStore
	catalog   *mockCatalog
	locks     *mockLockStore
	events    *mockPublisher
	matching  *MatchingService
	pickups   *PickupService
	settle    *SettlementService
	wallet    *WalletService
	collector *CollectorService
}

func newFixture(cfg PickupConfig) *fixture {
	f := &fixture{
		store:   newMockStore(),
		catalog: newMockCatalog(),
		locks:   newMockLockStore(),
		events:  &mockPublisher{},
	}
	f.matching = NewMatchingService(f.store.Collectors(), f.store.Pickups())
	f.settle = NewSettlementService(f.store, f.events)
	f.pickups = NewPickupService(
		f.store.Pickups(),
		NewEstimationService(f.catalog, 0),
		f.matching,
		f.locks,
		f.settle,
		f.events,
		cfg,
	)
	f.wallet = NewWalletService(f.store.Ledger(), f.store, f.events)
	f.collector = NewCollectorService(f.matching, f.store.Ledger())
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func customer(id string) domain.Actor {
	return domain.Actor{UserID: id, Role: domain.RoleCustomer}
}

func collectorUser(userID string) domain.Actor {
	return domain.Actor{UserID: userID, Role: domain.RoleCollector}
}

func approvedCollector(id, userID string, postalCodes ...string) *domain.CollectorProfile {
	return &domain.CollectorProfile{
		ID:                  id,
		UserID:              userID,
		ApprovalStatus:      domain.ApprovalApproved,
		ServicedPostalCodes: postalCodes,
		CommissionRate:      domain.DefaultCommissionRate,
		TotalEarnings:       decimal.Zero,
	}
}

func testAddress(postalCode string) domain.Address {
	return domain.Address{
		SchemaVersion: domain.AddressSchemaVersion,
		Line1:         "12 MG Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		PostalCode:    postalCode,
	}
}

// requestedPickup returns a REQUESTED pickup for customer-1 with paper and metal items.
func requestedPickup(id, postalCode string) *domain.PickupRequest {
	now := time.Now()
	return &domain.PickupRequest{
		ID:         id,
		CustomerID: "customer-1",
		Address:    testAddress(postalCode),
		Items: []domain.PickupItem{
			{SchemaVersion: 1, Category: domain.CategoryPaper, EstimatedWeight: decPtr("10"), UnitPrice: dec("14"), EstimatedAmount: decPtr("140")},
			{SchemaVersion: 1, Category: domain.CategoryMetal, EstimatedWeight: decPtr("3"), UnitPrice: dec("35"), EstimatedAmount: decPtr("105")},
		},
		ScheduledDate: now.AddDate(0, 0, 1),
		ScheduledSlot: domain.SlotMorning,
		Status:        domain.PickupStatusRequested,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// pickupAt returns a pickup already advanced to status and assigned to collectorID.
func pickupAt(id string, status domain.PickupStatus, collectorID string) *domain.PickupRequest {
	p := requestedPickup(id, "560001")
	p.Status = status
	if status != domain.PickupStatusRequested {
		p.CollectorID = collectorID
	}
	return p
}
