package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"economat/internal/dto"
	"economat/internal/model"
	"economat/internal/repository"
	"economat/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ── Products ──────────────────────────────────────────────────────────────────

// stubProductRepo is an in-memory ProductRepository. AdjustQuantityTx applies
// the same guard as the SQL statement, under a mutex.
type stubProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product

	// beforeAdjust runs ahead of every guarded update, outside the lock.
	beforeAdjust func(id uuid.UUID, delta int)
	sortieRefs   func(id uuid.UUID) int64
	vouchersOf   func(id uuid.UUID) []model.Voucher
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) get(id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	cp.Suppliers = append(datatypes.JSONSlice[string]{}, p.Suppliers...)
	return &cp, nil
}

// quantity returns the stored quantity and amount of a product.
func (r *stubProductRepo) quantity(id uuid.UUID) (int, decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.products[id]
	return p.Quantity, p.Amount
}

func (r *stubProductRepo) setQuantity(id uuid.UUID, q int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.products[id]
	p.Quantity = q
	p.Amount = p.ComputeAmount()
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if r.vouchersOf != nil {
		p.Vouchers = r.vouchersOf(id)
	}
	return p, nil
}

func (r *stubProductRepo) List(_ context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Product
	for _, p := range r.products {
		if filter.ZoneID != "" && (p.ZoneID == nil || p.ZoneID.String() != filter.ZoneID) {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *stubProductRepo) ListByZone(_ context.Context, zoneID uuid.UUID) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.ZoneID != nil && *p.ZoneID == zoneID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) LowStock(_ context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.BelowThreshold() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) ExpiringBefore(_ context.Context, t time.Time) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.ExpirationDate != nil && !p.ExpirationDate.After(t) && p.Quantity > 0 {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) CreateTx(_ *gorm.DB, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	cp.Zone = nil
	cp.Vouchers = nil
	r.products[p.ID] = &cp
	return nil
}

func (r *stubProductRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return r.get(id)
}

func (r *stubProductRepo) AdjustQuantityTx(_ *gorm.DB, id uuid.UUID, delta int) (*model.Product, error) {
	if r.beforeAdjust != nil {
		r.beforeAdjust(id, delta)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.Quantity+delta < 0 {
		return nil, repository.ErrGuardRejected
	}
	p.Quantity += delta
	p.Amount = p.ComputeAmount()
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) UpdateMetadataTx(_ *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "unit_price":
			p.UnitPrice = v.(decimal.Decimal)
			p.Amount = p.ComputeAmount()
		case "unit":
			p.Unit = v.(string)
		case "safety_threshold":
			n := v.(int)
			p.SafetyThreshold = &n
		case "zone_id":
			z := v.(uuid.UUID)
			p.ZoneID = &z
		case "suppliers":
			p.Suppliers = v.(datatypes.JSONSlice[string])
		case "expiration_date":
			t := v.(time.Time)
			p.ExpirationDate = &t
		case "part_number":
			s := v.(string)
			p.PartNumber = &s
		default:
			return fmt.Errorf("stub: unexpected column %q", k)
		}
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r *stubProductRepo) AddSupplierTx(_ *gorm.DB, id uuid.UUID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil
	}
	for _, s := range p.Suppliers {
		if s == name {
			return nil
		}
	}
	p.Suppliers = append(p.Suppliers, name)
	return nil
}

func (r *stubProductRepo) CountSortieRefsTx(_ *gorm.DB, id uuid.UUID) (int64, error) {
	if r.sortieRefs == nil {
		return 0, nil
	}
	return r.sortieRefs(id), nil
}

func (r *stubProductRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── Stock movements ───────────────────────────────────────────────────────────

type stubMovementRepo struct {
	mu        sync.Mutex
	movements []model.StockMovement
}

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, filter repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockMovement
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.Kind != "" && m.Kind != filter.Kind {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

// forProduct returns the movements of one product in insertion order.
func (r *stubMovementRepo) forProduct(id uuid.UUID) []model.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.movements {
		if m.ProductID == id {
			out = append(out, m)
		}
	}
	return out
}

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

// ── Sorties ───────────────────────────────────────────────────────────────────

type stubSortieRepo struct {
	mu       sync.Mutex
	sorties  map[uuid.UUID]*model.Sortie
	vouchers *stubVoucherRepo
}

func newStubSortieRepo(vouchers *stubVoucherRepo) *stubSortieRepo {
	return &stubSortieRepo{sorties: make(map[uuid.UUID]*model.Sortie), vouchers: vouchers}
}

func cloneSortie(s *model.Sortie) *model.Sortie {
	cp := *s
	cp.Items = append([]model.SortieItem(nil), s.Items...)
	cp.Voucher = nil
	return &cp
}

func (r *stubSortieRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sortie, error) {
	r.mu.Lock()
	s, ok := r.sorties[id]
	if !ok {
		r.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	cp := cloneSortie(s)
	r.mu.Unlock()
	if cp.VoucherID != nil {
		if v, err := r.vouchers.FindByIDTx(nil, *cp.VoucherID); err == nil {
			cp.Voucher = v
		}
	}
	return cp, nil
}

func (r *stubSortieRepo) List(_ context.Context, filter dto.SortieFilter) ([]model.Sortie, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Sortie
	for _, s := range r.sorties {
		day := s.Date.Format("2006-01-02")
		if filter.From != "" && day < filter.From {
			continue
		}
		if filter.To != "" && day > filter.To {
			continue
		}
		out = append(out, *cloneSortie(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, int64(len(out)), nil
}

func (r *stubSortieRepo) CreateTx(_ *gorm.DB, s *model.Sortie) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	for i := range s.Items {
		s.Items[i].ID = uuid.New()
		s.Items[i].SortieID = s.ID
	}
	r.sorties[s.ID] = cloneSortie(s)
	return nil
}

func (r *stubSortieRepo) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Sortie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sorties[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneSortie(s), nil
}

func (r *stubSortieRepo) MarkRevertedTx(_ *gorm.DB, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sorties[id]
	if !ok || !s.Applied {
		return false, nil
	}
	s.Applied = false
	return true, nil
}

func (r *stubSortieRepo) ReplaceItemsTx(_ *gorm.DB, id uuid.UUID, items []model.SortieItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sorties[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].SortieID = id
	}
	s.Items = append([]model.SortieItem(nil), items...)
	return nil
}

func (r *stubSortieRepo) UpdateTx(_ *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sorties[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "date":
			s.Date = v.(time.Time)
		case "issuer_name":
			s.IssuerName = v.(string)
		case "applied":
			s.Applied = v.(bool)
		case "voucher_id":
			vid := v.(uuid.UUID)
			s.VoucherID = &vid
		default:
			return fmt.Errorf("stub: unexpected column %q", k)
		}
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (r *stubSortieRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sorties[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.sorties, id)
	return nil
}

func (r *stubSortieRepo) DB() *gorm.DB { return nil }

// refs counts the sortie line items that reference a product.
func (r *stubSortieRepo) refs(productID uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sorties {
		for _, it := range s.Items {
			if it.ProductID == productID {
				n++
			}
		}
	}
	return n
}

func (r *stubSortieRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sorties)
}

var _ repository.SortieRepository = (*stubSortieRepo)(nil)

// ── Vouchers ──────────────────────────────────────────────────────────────────

type stubVoucherRepo struct {
	mu       sync.Mutex
	vouchers map[uuid.UUID]*model.Voucher
	links    map[uuid.UUID]map[uuid.UUID]bool // voucher → products
}

func newStubVoucherRepo() *stubVoucherRepo {
	return &stubVoucherRepo{
		vouchers: make(map[uuid.UUID]*model.Voucher),
		links:    make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *stubVoucherRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Voucher, error) {
	return r.FindByIDTx(nil, id)
}

func (r *stubVoucherRepo) SearchByDate(_ context.Context, day time.Time) ([]model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Voucher
	for _, v := range r.vouchers {
		if v.VoucherDate.Format("2006-01-02") == day.Format("2006-01-02") {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *stubVoucherRepo) CreateTx(_ *gorm.DB, v *model.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	cp := *v
	r.vouchers[v.ID] = &cp
	return nil
}

func (r *stubVoucherRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *stubVoucherRepo) UpdateTx(_ *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, val := range fields {
		switch k {
		case "image_ref":
			v.ImageRef = val.(string)
		case "voucher_date":
			v.VoucherDate = val.(time.Time)
		default:
			return fmt.Errorf("stub: unexpected column %q", k)
		}
	}
	return nil
}

func (r *stubVoucherRepo) DeleteTx(_ *gorm.DB, ids ...uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.vouchers, id)
		delete(r.links, id)
	}
	return nil
}

func (r *stubVoucherRepo) ListBySortieTx(_ *gorm.DB, sortieID uuid.UUID) ([]model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Voucher
	for _, v := range r.vouchers {
		if v.SortieID != nil && *v.SortieID == sortieID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *stubVoucherRepo) ListByProductTx(_ *gorm.DB, productID uuid.UUID) ([]model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Voucher
	for id, v := range r.vouchers {
		owned := v.ProductID != nil && *v.ProductID == productID
		if owned || r.links[id][productID] {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *stubVoucherRepo) LinkTx(_ *gorm.DB, voucherID uuid.UUID, productIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.links[voucherID] == nil {
		r.links[voucherID] = map[uuid.UUID]bool{}
	}
	for _, pid := range productIDs {
		r.links[voucherID][pid] = true
	}
	return nil
}

func (r *stubVoucherRepo) UnlinkProductTx(_ *gorm.DB, productID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range r.links {
		delete(set, productID)
	}
	return nil
}

func (r *stubVoucherRepo) LinkedProductIDsTx(_ *gorm.DB, voucherID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for pid := range r.links[voucherID] {
		ids = append(ids, pid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (r *stubVoucherRepo) ReassignOwnerTx(_ *gorm.DB, voucherID, productID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vouchers[voucherID]; ok {
		pid := productID
		v.ProductID = &pid
	}
	return nil
}

// linked returns the vouchers linked to a product, for product reads.
func (r *stubVoucherRepo) linked(productID uuid.UUID) []model.Voucher {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Voucher
	for id, set := range r.links {
		if set[productID] {
			if v, ok := r.vouchers[id]; ok {
				out = append(out, *v)
			}
		}
	}
	return out
}

func (r *stubVoucherRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.vouchers)
}

var _ repository.VoucherRepository = (*stubVoucherRepo)(nil)

// ── Zones ─────────────────────────────────────────────────────────────────────

type stubZoneRepo struct {
	zones map[uuid.UUID]model.Zone
	fail  error
}

func (r *stubZoneRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	if r.fail != nil {
		return false, r.fail
	}
	_, ok := r.zones[id]
	return ok, nil
}

func (r *stubZoneRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Zone, error) {
	z, ok := r.zones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &z, nil
}

func (r *stubZoneRepo) List(_ context.Context) ([]model.Zone, error) {
	var out []model.Zone
	for _, z := range r.zones {
		out = append(out, z)
	}
	return out, nil
}

func (r *stubZoneRepo) EnsureByName(_ context.Context, name string) (*model.Zone, bool, error) {
	for _, z := range r.zones {
		if z.Name == name {
			return &z, false, nil
		}
	}
	z := model.Zone{ID: uuid.New(), Name: name}
	r.zones[z.ID] = z
	return &z, true, nil
}

var _ repository.ZoneRepository = (*stubZoneRepo)(nil)

// ── Alerts ────────────────────────────────────────────────────────────────────

type stubAlertRepo struct {
	mu     sync.Mutex
	alerts []model.StockAlert
}

func (r *stubAlertRepo) Create(_ context.Context, a *model.StockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	r.alerts = append(r.alerts, *a)
	return nil
}

func (r *stubAlertRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			cp := r.alerts[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAlertRepo) Update(_ context.Context, a *model.StockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == a.ID {
			r.alerts[i] = *a
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubAlertRepo) ExistsSince(_ context.Context, productID uuid.UUID, kind string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ProductID == productID && a.Kind == kind && !a.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAlertRepo) ListDue(_ context.Context, now time.Time, limit int) ([]model.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockAlert
	for _, a := range r.alerts {
		if a.Status == model.AlertPending && a.NextRetryAt != nil && !a.NextRetryAt.After(now) {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubAlertRepo) ListRecent(_ context.Context, limit int) ([]model.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockAlert
	for i := len(r.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.alerts[i])
	}
	return out, nil
}

func (r *stubAlertRepo) all() []model.StockAlert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.StockAlert(nil), r.alerts...)
}

var _ repository.StockAlertRepository = (*stubAlertRepo)(nil)

type stubQueue struct {
	mu   sync.Mutex
	ids  []uuid.UUID
	fail bool
}

func (q *stubQueue) EnqueueAlert(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("queue unavailable")
	}
	q.ids = append(q.ids, id)
	return nil
}

func (q *stubQueue) enqueued() []uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uuid.UUID(nil), q.ids...)
}

var _ service.AlertQueue = (*stubQueue)(nil)

// ── Images / slips ────────────────────────────────────────────────────────────

type stubImageStore struct {
	mu       sync.Mutex
	seq      int
	stored   map[string]bool
	deleted  []string
	failSave bool
}

func newStubImageStore() *stubImageStore {
	return &stubImageStore{stored: map[string]bool{}}
}

func (s *stubImageStore) Save(_ context.Context, img dto.ImageUpload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return "", errors.New("disk full")
	}
	s.seq++
	ref := fmt.Sprintf("/uploads/%d-%s", s.seq, img.Filename)
	s.stored[ref] = true
	return ref, nil
}

func (s *stubImageStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stored, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *stubImageStore) wasDeleted(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deleted {
		if d == ref {
			return true
		}
	}
	return false
}

var _ service.ImageStore = (*stubImageStore)(nil)

type stubSlips struct{ rendered []uuid.UUID }

func (s *stubSlips) SortieSlip(sortie *model.Sortie) ([]byte, error) {
	s.rendered = append(s.rendered, sortie.ID)
	return []byte("%PDF-1.3 " + sortie.ID.String()), nil
}

// ── Harness ───────────────────────────────────────────────────────────────────

type harness struct {
	products  *stubProductRepo
	movements *stubMovementRepo
	sorties   *stubSortieRepo
	vouchers  *stubVoucherRepo
	zones     *stubZoneRepo
	alerts    *stubAlertRepo
	queue     *stubQueue
	images    *stubImageStore
	slips     *stubSlips

	zoneID uuid.UUID

	ledger     *service.StockLedger
	productSvc service.ProductService
	sortieSvc  service.SortieService
	voucherSvc service.VoucherService
	alertSvc   service.AlertService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		products:  newStubProductRepo(),
		movements: &stubMovementRepo{},
		vouchers:  newStubVoucherRepo(),
		zones:     &stubZoneRepo{zones: map[uuid.UUID]model.Zone{}},
		alerts:    &stubAlertRepo{},
		queue:     &stubQueue{},
		images:    newStubImageStore(),
		slips:     &stubSlips{},
	}
	h.sorties = newStubSortieRepo(h.vouchers)
	h.products.sortieRefs = h.sorties.refs
	h.products.vouchersOf = h.vouchers.linked

	zone, _, _ := h.zones.EnsureByName(context.Background(), "Dry store")
	h.zoneID = zone.ID

	h.ledger = service.NewStockLedger(h.products, h.movements)
	cache := service.NewProductCache(nil, 0)
	h.voucherSvc = service.NewVoucherService(h.vouchers)
	h.alertSvc = service.NewAlertService(h.alerts, h.products, h.queue, 7)
	h.productSvc = service.NewProductService(service.ProductDeps{
		Products: h.products,
		Zones:    h.zones,
		History:  h.movements,
		Ledger:   h.ledger,
		Vouchers: h.voucherSvc,
		Images:   h.images,
		Cache:    cache,
		Alerts:   h.alertSvc,
	})
	h.sortieSvc = service.NewSortieService(service.SortieDeps{
		Sorties:  h.sorties,
		Ledger:   h.ledger,
		Vouchers: h.voucherSvc,
		Images:   h.images,
		Cache:    cache,
		Alerts:   h.alertSvc,
		Slips:    h.slips,
	})
	return h
}

// seedProduct inserts a product directly, bypassing intake.
func (h *harness) seedProduct(name string, price string, qty int) *model.Product {
	zone := h.zoneID
	p := &model.Product{
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
		Unit:      model.UnitKilogram,
		ZoneID:    &zone,
		Suppliers: datatypes.JSONSlice[string]{},
	}
	p.Amount = p.ComputeAmount()
	_ = h.products.CreateTx(nil, p)
	return p
}

func sortieReq(date string, items ...dto.SortieItemRequest) dto.SortieRequest {
	return dto.SortieRequest{Date: date, Items: items}
}

func line(p *model.Product, qty int) dto.SortieItemRequest {
	return dto.SortieItemRequest{ProductID: p.ID.String(), Quantity: qty}
}

func upload(name string) *dto.ImageUpload {
	return &dto.ImageUpload{Filename: name, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}
