package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"
	"stockledger/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// =====================
// in-memory TxManager
// =====================

// memStore はDBの代わり。WithinTx はエラー時に開始前の状態へ戻す
type memStore struct {
	mu sync.Mutex

	nextID int64

	users       map[int64]model.User
	variants    map[int64]model.ProductVariant
	inventory   map[int64]model.Inventory // variant_id -> row
	adjustments []model.InventoryAdjustment
	orders      map[int64]model.DraftOrder
	lines       map[int64]model.OrderLine
	txns        map[int64]model.Transaction
	txLines     map[int64]model.TransactionLine
	returns     map[int64]model.SaleItemReturn
	audits      []model.AuditLog

	// "Transactions.Create" のようなキーで失敗を差し込む
	failures map[string]error

	txCount int
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    1000,
		users:     map[int64]model.User{},
		variants:  map[int64]model.ProductVariant{},
		inventory: map[int64]model.Inventory{},
		orders:    map[int64]model.DraftOrder{},
		lines:     map[int64]model.OrderLine{},
		txns:      map[int64]model.Transaction{},
		txLines:   map[int64]model.TransactionLine{},
		returns:   map[int64]model.SaleItemReturn{},
		failures:  map[string]error{},
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txCount++
	saved := s.clone()
	if err := fn(memRepos{s: s}); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) fail(key string) error {
	return s.failures[key]
}

type memSnapshot struct {
	nextID      int64
	users       map[int64]model.User
	variants    map[int64]model.ProductVariant
	inventory   map[int64]model.Inventory
	adjustments []model.InventoryAdjustment
	orders      map[int64]model.DraftOrder
	lines       map[int64]model.OrderLine
	txns        map[int64]model.Transaction
	txLines     map[int64]model.TransactionLine
	returns     map[int64]model.SaleItemReturn
	audits      []model.AuditLog
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) clone() memSnapshot {
	return memSnapshot{
		nextID:      s.nextID,
		users:       copyMap(s.users),
		variants:    copyMap(s.variants),
		inventory:   copyMap(s.inventory),
		adjustments: append([]model.InventoryAdjustment(nil), s.adjustments...),
		orders:      copyMap(s.orders),
		lines:       copyMap(s.lines),
		txns:        copyMap(s.txns),
		txLines:     copyMap(s.txLines),
		returns:     copyMap(s.returns),
		audits:      append([]model.AuditLog(nil), s.audits...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.nextID = snap.nextID
	s.users = snap.users
	s.variants = snap.variants
	s.inventory = snap.inventory
	s.adjustments = snap.adjustments
	s.orders = snap.orders
	s.lines = snap.lines
	s.txns = snap.txns
	s.txLines = snap.txLines
	s.returns = snap.returns
	s.audits = snap.audits
}

// =====================
// seed / read helpers（テスト本体から使う）
// =====================

func (s *memStore) seedUser(id int64, role model.Role) {
	s.users[id] = model.User{ID: id, Email: "u@example.com", Role: role, IsActive: true}
}

func (s *memStore) seedVariant(id int64, price string, available, reserved int64) {
	s.variants[id] = model.ProductVariant{ID: id, Name: "variant", SKU: "SKU", Price: decimal.RequireFromString(price)}
	s.inventory[id] = model.Inventory{ID: id + 500, VariantID: id, Available: available, Reserved: reserved, Minimum: model.DefaultInventoryMinimum}
}

func (s *memStore) stock(variantID int64) model.Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory[variantID]
}

func (s *memStore) orderLines(orderID int64) []model.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OrderLine
	for _, l := range s.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memRepos struct{ s *memStore }

func (r memRepos) Inventory() repo.InventoryRepository      { return memInventory{r.s} }
func (r memRepos) Variants() repo.VariantRepository         { return memVariants{r.s} }
func (r memRepos) Orders() repo.OrderRepository             { return memOrders{r.s} }
func (r memRepos) OrderLines() repo.OrderLineRepository     { return memOrderLines{r.s} }
func (r memRepos) Transactions() repo.TransactionRepository { return memTransactions{r.s} }
func (r memRepos) Returns() repo.SaleItemReturnRepository   { return memReturns{r.s} }
func (r memRepos) Users() repo.UserRepository               { return memUsers{r.s} }
func (r memRepos) AuditLogs() repo.AuditLogRepository       { return memAudit{r.s} }

var _ repo.TransactionManager = (*memStore)(nil)

// =====================
// Inventory
// =====================

type memInventory struct{ s *memStore }

func (m memInventory) LockByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error) {
	if err := m.s.fail("Inventory.LockByVariantIDs"); err != nil {
		return nil, err
	}
	var out []model.Inventory
	for _, id := range variantIDs {
		if inv, ok := m.s.inventory[id]; ok {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID < out[j].VariantID })
	return out, nil
}

func (m memInventory) Adjust(ctx context.Context, variantID int64, reservedDelta, availableDelta int64) (model.Inventory, error) {
	if err := m.s.fail("Inventory.Adjust"); err != nil {
		return model.Inventory{}, err
	}
	inv, ok := m.s.inventory[variantID]
	if !ok {
		return model.Inventory{}, repo.ErrNotFound
	}
	if inv.Available+availableDelta < 0 || inv.Reserved+reservedDelta < 0 {
		return model.Inventory{}, repo.ErrNegativeStock
	}
	inv.Available += availableDelta
	inv.Reserved += reservedDelta
	m.s.inventory[variantID] = inv
	return inv, nil
}

func (m memInventory) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	if _, ok := m.s.inventory[inv.VariantID]; ok {
		return model.Inventory{}, repo.ErrConflict
	}
	inv.ID = m.s.id()
	m.s.inventory[inv.VariantID] = inv
	return inv, nil
}

func (m memInventory) FindByVariantID(ctx context.Context, variantID int64) (model.Inventory, error) {
	inv, ok := m.s.inventory[variantID]
	if !ok {
		return model.Inventory{}, repo.ErrNotFound
	}
	return inv, nil
}

func (m memInventory) UpdateMinimum(ctx context.Context, variantID int64, minimum int64) (model.Inventory, error) {
	inv, ok := m.s.inventory[variantID]
	if !ok {
		return model.Inventory{}, repo.ErrNotFound
	}
	inv.Minimum = minimum
	m.s.inventory[variantID] = inv
	return inv, nil
}

func (m memInventory) List(ctx context.Context, f repo.InventoryListFilter) ([]model.Inventory, int64, error) {
	var all []model.Inventory
	for _, inv := range m.s.inventory {
		if f.Status != "" && inv.StockStatus() != f.Status {
			//low_stock は out_of_stock も含む
			if !(f.Status == model.StockStatusLowStock && inv.StockStatus() == model.StockStatusOutOfStock) {
				continue
			}
		}
		all = append(all, inv)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].VariantID < all[j].VariantID })
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func (m memInventory) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	if err := m.s.fail("Inventory.CreateAdjustment"); err != nil {
		return err
	}
	adjustment.ID = m.s.id()
	m.s.adjustments = append(m.s.adjustments, adjustment)
	return nil
}

func (m memInventory) ListAdjustments(ctx context.Context, variantID int64, limit, offset int) ([]model.InventoryAdjustment, error) {
	var out []model.InventoryAdjustment
	for i := len(m.s.adjustments) - 1; i >= 0; i-- {
		if m.s.adjustments[i].VariantID == variantID {
			out = append(out, m.s.adjustments[i])
		}
	}
	if offset >= len(out) {
		return []model.InventoryAdjustment{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// =====================
// Variants
// =====================

type memVariants struct{ s *memStore }

func (m memVariants) FindByIDs(ctx context.Context, ids []int64) ([]model.ProductVariant, error) {
	var out []model.ProductVariant
	for _, id := range ids {
		if v, ok := m.s.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m memVariants) Create(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error) {
	for _, ex := range m.s.variants {
		if ex.SKU == v.SKU {
			return model.ProductVariant{}, repo.ErrConflict
		}
	}
	v.ID = m.s.id()
	m.s.variants[v.ID] = v
	return v, nil
}

func (m memVariants) SoftDelete(ctx context.Context, id int64) error {
	v, ok := m.s.variants[id]
	if !ok || v.IsDeleted() {
		return repo.ErrNotFound
	}
	v.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	m.s.variants[id] = v
	return nil
}

func (m memVariants) Restore(ctx context.Context, id int64) error {
	v, ok := m.s.variants[id]
	if !ok {
		return repo.ErrNotFound
	}
	v.DeletedAt = gorm.DeletedAt{}
	m.s.variants[id] = v
	return nil
}

// =====================
// Orders / OrderLines
// =====================

type memOrders struct{ s *memStore }

func (m memOrders) Create(ctx context.Context, o model.DraftOrder) (model.DraftOrder, error) {
	o.ID = m.s.id()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.s.orders[o.ID] = o
	return o, nil
}

func (m memOrders) FindByID(ctx context.Context, kind model.OrderKind, id int64) (model.DraftOrder, error) {
	o, ok := m.s.orders[id]
	if !ok || o.Kind != kind {
		return model.DraftOrder{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) LockByID(ctx context.Context, kind model.OrderKind, id int64) (model.DraftOrder, error) {
	return m.FindByID(ctx, kind, id)
}

func (m memOrders) List(ctx context.Context, f repo.OrderListFilter) ([]model.DraftOrder, int64, error) {
	var all []model.DraftOrder
	for _, o := range m.s.orders {
		if o.Kind != f.Kind {
			continue
		}
		if f.AgentID != nil && o.AgentID != *f.AgentID {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func (m memOrders) Touch(ctx context.Context, id int64) error {
	o, ok := m.s.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.UpdatedAt = time.Now()
	m.s.orders[id] = o
	return nil
}

func (m memOrders) Delete(ctx context.Context, id int64) error {
	if _, ok := m.s.orders[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.orders, id)
	return nil
}

type memOrderLines struct{ s *memStore }

func (m memOrderLines) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	var out []model.OrderLine
	for _, l := range m.s.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memOrderLines) FindByID(ctx context.Context, orderID, lineID int64) (model.OrderLine, error) {
	l, ok := m.s.lines[lineID]
	if !ok || l.OrderID != orderID {
		return model.OrderLine{}, repo.ErrNotFound
	}
	return l, nil
}

func (m memOrderLines) CreateBulk(ctx context.Context, lines []model.OrderLine) ([]model.OrderLine, error) {
	if err := m.s.fail("OrderLines.CreateBulk"); err != nil {
		return nil, err
	}
	out := make([]model.OrderLine, 0, len(lines))
	for _, l := range lines {
		for _, ex := range m.s.lines {
			if ex.OrderID == l.OrderID && ex.VariantID == l.VariantID {
				return nil, repo.ErrConflict
			}
		}
		l.ID = m.s.id()
		m.s.lines[l.ID] = l
		out = append(out, l)
	}
	return out, nil
}

func (m memOrderLines) Update(ctx context.Context, line model.OrderLine) error {
	if _, ok := m.s.lines[line.ID]; !ok {
		return repo.ErrNotFound
	}
	m.s.lines[line.ID] = line
	return nil
}

func (m memOrderLines) Delete(ctx context.Context, lineID int64) error {
	if _, ok := m.s.lines[lineID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.lines, lineID)
	return nil
}

func (m memOrderLines) DeleteByOrderID(ctx context.Context, orderID int64) error {
	for id, l := range m.s.lines {
		if l.OrderID == orderID {
			delete(m.s.lines, id)
		}
	}
	return nil
}

// =====================
// Transactions
// =====================

type memTransactions struct{ s *memStore }

func (m memTransactions) Create(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	if err := m.s.fail("Transactions.Create"); err != nil {
		return model.Transaction{}, err
	}
	t.ID = m.s.id()
	m.s.txns[t.ID] = t
	return t, nil
}

func (m memTransactions) CreateLines(ctx context.Context, lines []model.TransactionLine) ([]model.TransactionLine, error) {
	if err := m.s.fail("Transactions.CreateLines"); err != nil {
		return nil, err
	}
	out := make([]model.TransactionLine, 0, len(lines))
	for _, l := range lines {
		l.ID = m.s.id()
		m.s.txLines[l.ID] = l
		out = append(out, l)
	}
	return out, nil
}

func (m memTransactions) FindByID(ctx context.Context, id int64) (model.Transaction, error) {
	t, ok := m.s.txns[id]
	if !ok {
		return model.Transaction{}, repo.ErrNotFound
	}
	return t, nil
}

func (m memTransactions) List(ctx context.Context, f repo.TransactionListFilter) ([]model.Transaction, int64, error) {
	var all []model.Transaction
	for _, t := range m.s.txns {
		if t.Kind != f.Kind {
			continue
		}
		if f.AgentID != nil && t.AgentID != *f.AgentID {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func (m memTransactions) ListLines(ctx context.Context, transactionID int64) ([]model.TransactionLine, error) {
	var out []model.TransactionLine
	for _, l := range m.s.txLines {
		if l.TransactionID == transactionID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memTransactions) FindLineByID(ctx context.Context, lineID int64) (model.TransactionLine, error) {
	l, ok := m.s.txLines[lineID]
	if !ok {
		return model.TransactionLine{}, repo.ErrNotFound
	}
	return l, nil
}

func (m memTransactions) LockLineByID(ctx context.Context, lineID int64) (model.TransactionLine, error) {
	return m.FindLineByID(ctx, lineID)
}

// =====================
// Returns
// =====================

type memReturns struct{ s *memStore }

func (m memReturns) Create(ctx context.Context, r model.SaleItemReturn) (model.SaleItemReturn, error) {
	r.ID = m.s.id()
	m.s.returns[r.ID] = r
	return r, nil
}

func (m memReturns) LockByID(ctx context.Context, id int64) (model.SaleItemReturn, error) {
	r, ok := m.s.returns[id]
	if !ok {
		return model.SaleItemReturn{}, repo.ErrNotFound
	}
	return r, nil
}

func (m memReturns) ListByLineIDs(ctx context.Context, lineIDs []int64) ([]model.SaleItemReturn, error) {
	want := make(map[int64]bool, len(lineIDs))
	for _, id := range lineIDs {
		want[id] = true
	}
	var out []model.SaleItemReturn
	for _, r := range m.s.returns {
		if want[r.TransactionLineID] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memReturns) List(ctx context.Context, f repo.ReturnListFilter) ([]model.SaleItemReturn, int64, error) {
	var all []model.SaleItemReturn
	for _, r := range m.s.returns {
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.TransactionLineID != nil && r.TransactionLineID != *f.TransactionLineID {
			continue
		}
		if f.RequestedBy != nil && r.RequestedBy != *f.RequestedBy {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func (m memReturns) Update(ctx context.Context, r model.SaleItemReturn) error {
	if _, ok := m.s.returns[r.ID]; !ok {
		return repo.ErrNotFound
	}
	m.s.returns[r.ID] = r
	return nil
}

func (m memReturns) Delete(ctx context.Context, id int64) error {
	if _, ok := m.s.returns[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.returns, id)
	return nil
}

// =====================
// Users / AuditLogs
// =====================

type memUsers struct{ s *memStore }

func (m memUsers) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	u, ok := m.s.users[userID]
	if !ok || u.DeletedAt.Valid {
		return nil, nil
	}
	return &u, nil
}

func (m memUsers) FindByIDUnscoped(ctx context.Context, userID int64) (*model.User, error) {
	u, ok := m.s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type memAudit struct{ s *memStore }

func (m memAudit) Create(ctx context.Context, log model.AuditLog) error {
	if err := m.s.fail("AuditLogs.Create"); err != nil {
		return err
	}
	log.ID = m.s.id()
	m.s.audits = append(m.s.audits, log)
	return nil
}

func (m memAudit) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for i := len(m.s.audits) - 1; i >= 0; i-- {
		a := m.s.audits[i]
		if f.Action != nil && a.Action != *f.Action {
			continue
		}
		if f.ResourceType != nil && a.ResourceType != *f.ResourceType {
			continue
		}
		if f.ActorUserID != nil && a.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.ResourceID != nil && a.ResourceID != *f.ResourceID {
			continue
		}
		out = append(out, a)
	}
	return paginate(out, f.Page, f.Limit), int64(len(out)), nil
}

// =====================
// Notifier mock
// =====================

type NotifierMock struct {
	mock.Mock
	mu     sync.Mutex
	events []usecase.Event
}

func (m *NotifierMock) Publish(ctx context.Context, events ...usecase.Event) error {
	m.mu.Lock()
	m.events = append(m.events, events...)
	m.mu.Unlock()
	args := m.Called(ctx, len(events))
	return args.Error(0)
}

func (m *NotifierMock) names() []usecase.EventName {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]usecase.EventName, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Event)
	}
	return out
}

// 名前が一致する最後のイベント
func (m *NotifierMock) last(name usecase.EventName) (usecase.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Event == name {
			return m.events[i], true
		}
	}
	return usecase.Event{}, false
}

func (m *NotifierMock) reset() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}

// Publishが呼ばれても成功扱い
func newNotifier() *NotifierMock {
	n := new(NotifierMock)
	n.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return n
}
