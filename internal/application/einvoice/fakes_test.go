package einvoice_test

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// memDB: pedidos, secuencias y compañías en memoria con bloqueo por fila.
// ──────────────────────────────────────────────────────────────────────────────

type memDB struct {
	mu         sync.Mutex
	orders     map[string]*entity.Order
	companies  map[string]*entity.Company
	seq        map[string]int64
	lastConsec map[string]string
	rowLocks   map[string]*sync.Mutex
}

func newMemDB() *memDB {
	return &memDB{
		orders:     make(map[string]*entity.Order),
		companies:  make(map[string]*entity.Company),
		seq:        make(map[string]int64),
		lastConsec: make(map[string]string),
		rowLocks:   make(map[string]*sync.Mutex),
	}
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Lines = append([]entity.OrderLine(nil), o.Lines...)
	c.Payments = append([]entity.Payment(nil), o.Payments...)
	return &c
}

func (db *memDB) put(o *entity.Order) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.orders[o.ID] = cloneOrder(o)
}

func (db *memDB) order(id string) *entity.Order {
	db.mu.Lock()
	defer db.mu.Unlock()
	return cloneOrder(db.orders[id])
}

func (db *memDB) rowLock(id string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		db.rowLocks[id] = l
	}
	return l
}

func (db *memDB) GetByID(_ context.Context, id string) (*entity.Order, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	o, ok := db.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (db *memDB) LockByID(ctx context.Context, id string, _ repository.LockMode) (*entity.Order, error) {
	return db.GetByID(ctx, id)
}

func (db *memDB) UpdateFE(_ context.Context, orderID string, doc *entity.ElectronicDocument) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	o, ok := db.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.IdempotencyKey != "" {
		for id, other := range db.orders {
			if id != orderID && other.CompanyID == o.CompanyID && other.FE.IdempotencyKey == doc.IdempotencyKey {
				return domain.ErrAlreadySubmitted
			}
		}
	}
	o.FE = *doc
	return nil
}

func (db *memDB) listDue(now time.Time, limit int, statuses ...entity.Status) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	var due []*entity.Order
	for _, o := range db.orders {
		if !o.IsFinalized() {
			continue
		}
		for _, st := range statuses {
			if o.FE.Status == st && (o.FE.NextTry == nil || !o.FE.NextTry.After(now)) {
				due = append(due, o)
			}
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	ids := make([]string, 0, len(due))
	for i, o := range due {
		if i == limit {
			break
		}
		ids = append(ids, o.ID)
	}
	return ids
}

func (db *memDB) ListDueForSend(_ context.Context, now time.Time, limit int) ([]string, error) {
	return db.listDue(now, limit, entity.StatusPending, entity.StatusErrorRetry), nil
}

func (db *memDB) ListDueForStatus(_ context.Context, now time.Time, limit int) ([]string, error) {
	return db.listDue(now, limit, entity.StatusSent, entity.StatusProcessing), nil
}

func (db *memDB) FindRefundOrigins(_ context.Context, lineIDs []string) ([]*entity.Order, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	want := make(map[string]bool, len(lineIDs))
	for _, id := range lineIDs {
		want[id] = true
	}
	var out []*entity.Order
	for _, o := range db.orders {
		for _, l := range o.Lines {
			if want[l.ID] {
				out = append(out, cloneOrder(o))
				break
			}
		}
	}
	return out, nil
}

// seqAllocator y companyRepo comparten estado con memDB.
type seqAllocator struct{ db *memDB }

func (a seqAllocator) Next(_ context.Context, companyID string, docType entity.DocumentType) (int64, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	key := companyID + "/" + string(docType)
	a.db.seq[key]++
	return a.db.seq[key], nil
}

type companyRepo struct{ db *memDB }

func (r companyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.companies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r companyRepo) UpdateLastConsecutivo(_ context.Context, companyID string, docType entity.DocumentType, seq string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.lastConsec[companyID+"/"+string(docType)] = seq
	return nil
}

// memTx bloquea la fila con TryLock (ambos modos fallan de inmediato) y restaura el
// registro FE si fn devuelve error.
type memTx struct{ db *memDB }

func (t memTx) RunOrder(ctx context.Context, orderID string, _ repository.LockMode, fn func(einvoice.TxRepos, *entity.Order) error) error {
	l := t.db.rowLock(orderID)
	if !l.TryLock() {
		return domain.ErrConcurrentUpdate
	}
	defer l.Unlock()

	order, err := t.db.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	snapshot := order.FE
	repos := einvoice.TxRepos{Orders: t.db, Sequences: seqAllocator{t.db}, Companies: companyRepo{t.db}}
	if err := fn(repos, order); err != nil {
		t.db.mu.Lock()
		t.db.orders[orderID].FE = snapshot
		t.db.mu.Unlock()
		return err
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Colaboradores de lectura
// ──────────────────────────────────────────────────────────────────────────────

type posConfigs map[string]*entity.PosConfig

func (m posConfigs) GetByID(_ context.Context, id string) (*entity.PosConfig, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

type customers map[string]*entity.Customer

func (m customers) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

type paymentMethods map[string]*entity.PaymentMethod

func (m paymentMethods) GetByID(_ context.Context, id string) (*entity.PaymentMethod, error) {
	if pm, ok := m[id]; ok {
		return pm, nil
	}
	return nil, domain.ErrNotFound
}

type fakeAccounting struct {
	mu          sync.Mutex
	docs        map[string]*entity.AccountingDocument
	marked      []string
	sendRequest []string
	sendStatus  string // estado que queda tras RequestSend
}

func (f *fakeAccounting) GetByID(_ context.Context, id string) (*entity.AccountingDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeAccounting) MarkPending(_ context.Context, id, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	st := "pendiente"
	f.docs[id].FEStatus = &st
	return nil
}

func (f *fakeAccounting) RequestSend(ctx context.Context, id string, _ bool) (*entity.AccountingDocument, error) {
	f.mu.Lock()
	f.sendRequest = append(f.sendRequest, id)
	if f.sendStatus != "" {
		st := f.sendStatus
		f.docs[id].FEStatus = &st
	}
	f.mu.Unlock()
	return f.GetByID(ctx, id)
}

// ──────────────────────────────────────────────────────────────────────────────
// Firma, render, adjuntos y backend
// ──────────────────────────────────────────────────────────────────────────────

type fakeRenderer struct{}

func (fakeRenderer) Render(p *einvoice.Payload) ([]byte, error) {
	return []byte(fmt.Sprintf("<TiqueteElectronico><Clave>%s</Clave><NumeroConsecutivo>%s</NumeroConsecutivo></TiqueteElectronico>", p.Clave, p.Consecutivo)), nil
}

type fakeSigner struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSigner) Sign(_ context.Context, unsigned []byte) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return bytes.Replace(unsigned, []byte("</TiqueteElectronico>"), []byte("<Signature/></TiqueteElectronico>"), 1), nil
}

func (s *fakeSigner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int
}

func (s *memStore) Store(_ context.Context, owner einvoice.AttachmentOwner, data []byte, kind string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	handle := fmt.Sprintf("mem://%s/pos_order-%s/%s/%d.xml", owner.CompanyID, owner.OrderID, kind, s.n)
	s.objects[handle] = append([]byte(nil), data...)
	return handle, nil
}

func (s *memStore) Load(_ context.Context, handle string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[handle]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

type fakeBackend struct {
	name     string
	mu       sync.Mutex
	sends    []*einvoice.SendRequest
	checks   int
	sendFn   func(*einvoice.SendRequest) (*einvoice.BackendResult, error)
	statusFn func(*einvoice.StatusRequest) (*einvoice.BackendResult, error)
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Send(_ context.Context, req *einvoice.SendRequest) (*einvoice.BackendResult, error) {
	b.mu.Lock()
	b.sends = append(b.sends, req)
	fn := b.sendFn
	b.mu.Unlock()
	if fn == nil {
		return &einvoice.BackendResult{Status: "recibido"}, nil
	}
	return fn(req)
}

func (b *fakeBackend) CheckStatus(_ context.Context, req *einvoice.StatusRequest) (*einvoice.BackendResult, error) {
	b.mu.Lock()
	b.checks++
	fn := b.statusFn
	b.mu.Unlock()
	if fn == nil {
		return nil, einvoice.ErrOperationUnsupported
	}
	return fn(req)
}

func (b *fakeBackend) sendCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sends)
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

var (
	baseNow   = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	orderDate = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
)

type fixture struct {
	db         *memDB
	configs    posConfigs
	customers  customers
	methods    paymentMethods
	accounting *fakeAccounting
	signer     *fakeSigner
	store      *memStore
	backend    *fakeBackend
	locker     *memLocker
	now        time.Time
	svc        *einvoice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:         newMemDB(),
		configs:    posConfigs{"cfg-1": {ID: "cfg-1", CompanyID: "c-1", Name: "Caja 1", FEEnabled: true}},
		customers:  customers{},
		methods:    paymentMethods{"pm-cash": {ID: "pm-cash", Name: "Efectivo", FEEnabled: true, FEPaymentMethodCode: "01", FESaleConditionCode: "01"}},
		accounting: &fakeAccounting{docs: map[string]*entity.AccountingDocument{}},
		signer:     &fakeSigner{},
		store:      &memStore{objects: map[string][]byte{}},
		backend:    &fakeBackend{name: "fake"},
		locker:     &memLocker{held: map[string]bool{}},
		now:        baseNow,
	}
	f.db.companies["c-1"] = &entity.Company{
		ID:                 "c-1",
		Name:               "Tienda Demo S.A.",
		TaxID:              "3-101-123456",
		IdentificationType: "02",
		BranchCode:         "1",
		TerminalCode:       "1",
		EconomicActivity:   "523901",
	}
	f.build()
	return f
}

func (f *fixture) build(backends ...einvoice.Backend) {
	if len(backends) == 0 {
		backends = []einvoice.Backend{f.backend}
	}
	f.svc = einvoice.NewService(einvoice.Deps{
		Orders:         f.db,
		Companies:      companyRepo{f.db},
		PosConfigs:     f.configs,
		Customers:      f.customers,
		PaymentMethods: f.methods,
		Accounting:     f.accounting,
		Tx:             memTx{f.db},
		Renderer:       fakeRenderer{},
		Signer:         f.signer,
		Attachments:    f.store,
		Dispatcher:     einvoice.NewDispatcher(backends, nil),
		Locker:         f.locker,
	}, einvoice.Options{
		Now:          func() time.Time { return f.now },
		SecurityCode: func() (string, error) { return "00000001", nil },
	})
}

// ticketOrder pedido pagado de 1130 (1000 + 13% IVA) con un pago en efectivo.
func ticketOrder(id, name string) *entity.Order {
	return &entity.Order{
		ID:           id,
		Name:         name,
		CompanyID:    "c-1",
		ConfigID:     "cfg-1",
		State:        entity.OrderStatePaid,
		DateOrder:    orderDate,
		AmountTotal:  decimal.RequireFromString("1130"),
		AmountTax:    decimal.RequireFromString("130"),
		CurrencyCode: "CRC",
		Lines: []entity.OrderLine{{
			ID:           id + "-l1",
			OrderID:      id,
			ProductCode:  "SKU-1",
			Name:         "Café molido 500g",
			Qty:          decimal.NewFromInt(1),
			PriceUnit:    decimal.RequireFromString("1000"),
			Subtotal:     decimal.RequireFromString("1000"),
			SubtotalIncl: decimal.RequireFromString("1130"),
			Taxes:        []entity.LineTax{{Code: "01", Rate: decimal.NewFromInt(13), Name: "IVA 13%"}},
		}},
		Payments: []entity.Payment{{ID: id + "-p1", Amount: decimal.RequireFromString("1130"), PaymentMethodID: "pm-cash"}},
	}
}
