// Package memory implementa los puertos de persistencia sobre mapas en memoria.
// Se usa en las pruebas de los casos de uso; el TxRunner serializa las
// "transacciones" con un mutex, igual que el bloqueo de fila serializa a los
// escritores concurrentes en PostgreSQL.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/application/inventory"
	"github.com/distrifresh/almacen-api/internal/application/orders"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// Store estado compartido entre los repositorios en memoria.
type Store struct {
	mu             sync.Mutex
	products       map[string]*entity.Product
	movements      []*entity.Movement
	purchaseOrders map[string]*entity.PurchaseOrder
	saleOrders     map[string]*entity.SaleOrder
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		products:       make(map[string]*entity.Product),
		purchaseOrders: make(map[string]*entity.PurchaseOrder),
		saleOrders:     make(map[string]*entity.SaleOrder),
	}
}

// SeedProduct inserta o reemplaza un producto.
func (s *Store) SeedProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

// SeedMovement inserta un movimiento tal cual (sin pasar por el orquestador);
// útil para preparar escenarios de auditoría con datos corruptos.
func (s *Store) SeedMovement(m *entity.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.movements = append(s.movements, &cp)
}

// ProductStock devuelve el stock almacenado del producto.
func (s *Store) ProductStock(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		return p.Stock
	}
	return decimal.Zero
}

// MovementCount cuántos movimientos hay en el libro.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

// ──────────────────────────────────────────────────────────────────────────────
// TxRunner
// ──────────────────────────────────────────────────────────────────────────────

// TxRunner ejecuta la función bajo el mutex del almacén. No hay rollback real:
// las pruebas que esperan fallo verifican el estado después, no la atomicidad.
type TxRunner struct {
	store *Store
}

var (
	_ inventory.TxRunner = (*TxRunner)(nil)
	_ orders.TxRunner    = (*TxRunner)(nil)
)

// NewTxRunner construye el runner sobre el almacén.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con repositorios del almacén, serializado por el mutex.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(&MovementRepo{store: r.store, locked: true}, &ProductRepo{store: r.store, locked: true})
}

// RunPurchase ejecuta fn incluyendo el repositorio de órdenes de compra.
func (r *TxRunner) RunPurchase(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.PurchaseOrderRepository,
) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(
		&MovementRepo{store: r.store, locked: true},
		&ProductRepo{store: r.store, locked: true},
		&PurchaseOrderRepo{store: r.store, locked: true},
	)
}

// RunSale ejecuta fn incluyendo el repositorio de órdenes de venta.
func (r *TxRunner) RunSale(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.SaleOrderRepository,
) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(
		&MovementRepo{store: r.store, locked: true},
		&ProductRepo{store: r.store, locked: true},
		&SaleOrderRepo{store: r.store, locked: true},
	)
}

// ──────────────────────────────────────────────────────────────────────────────
// ProductRepo
// ──────────────────────────────────────────────────────────────────────────────

// ProductRepo implementación en memoria de repository.ProductRepository.
type ProductRepo struct {
	store  *Store
	locked bool
}

var _ repository.ProductRepository = (*ProductRepo)(nil)

// NewProductRepository repositorio fuera de transacción (toma el mutex en cada llamada).
func NewProductRepository(store *Store) *ProductRepo {
	return &ProductRepo{store: store}
}

func (r *ProductRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *ProductRepo) GetByID(id string) (*entity.Product, error) {
	defer r.lock()()
	p, ok := r.store.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) GetForUpdate(id string) (*entity.Product, error) {
	return r.GetByID(id)
}

func (r *ProductRepo) UpdateStock(productID string, stock decimal.Decimal) error {
	defer r.lock()()
	if p, ok := r.store.products[productID]; ok {
		p.Stock = stock
	}
	return nil
}

func (r *ProductRepo) List(activeOnly bool, limit, offset int) ([]*entity.Product, int64, error) {
	defer r.lock()()
	var all []*entity.Product
	for _, p := range r.store.products {
		if activeOnly && !p.Active {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), int64(len(all)), nil
}

func (r *ProductRepo) ListLowStock(limit, offset int) ([]*entity.Product, int64, error) {
	defer r.lock()()
	var all []*entity.Product
	for _, p := range r.store.products {
		if p.Active && p.Stock.LessThanOrEqual(p.StockMinimo) {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		di := all[i].Stock.Sub(all[i].StockMinimo)
		dj := all[j].Stock.Sub(all[j].StockMinimo)
		return di.LessThan(dj)
	})
	return page(all, limit, offset), int64(len(all)), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// MovementRepo
// ──────────────────────────────────────────────────────────────────────────────

// MovementRepo implementación en memoria de repository.MovementRepository.
type MovementRepo struct {
	store  *Store
	locked bool
}

var _ repository.MovementRepository = (*MovementRepo)(nil)

// NewMovementRepository repositorio fuera de transacción.
func NewMovementRepository(store *Store) *MovementRepo {
	return &MovementRepo{store: store}
}

func (r *MovementRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *MovementRepo) Create(m *entity.Movement) error {
	defer r.lock()()
	cp := *m
	r.store.movements = append(r.store.movements, &cp)
	return nil
}

func (r *MovementRepo) GetByID(id string) (*entity.Movement, error) {
	defer r.lock()()
	for _, m := range r.store.movements {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MovementRepo) GetForUpdate(id string) (*entity.Movement, error) {
	return r.GetByID(id)
}

func (r *MovementRepo) UpdateDetails(id, motivo, numeroGuia string) error {
	defer r.lock()()
	for _, m := range r.store.movements {
		if m.ID == id {
			m.Motivo = motivo
			m.NumeroGuia = numeroGuia
			return nil
		}
	}
	return nil
}

func (r *MovementRepo) Delete(id string) error {
	defer r.lock()()
	r.deleteWhere(func(m *entity.Movement) bool { return m.ID == id })
	return nil
}

func (r *MovementRepo) List(f repository.MovementFilter) ([]*entity.Movement, int64, error) {
	defer r.lock()()
	matched := r.filtered(f)
	// Más recientes primero, como el listado SQL.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	return page(matched, f.Limit, f.Offset), total, nil
}

func (r *MovementRepo) Aggregates(f repository.MovementFilter) ([]repository.TypeAggregate, error) {
	defer r.lock()()
	byType := map[string]*repository.TypeAggregate{}
	for _, m := range r.filtered(f) {
		agg, ok := byType[m.Type]
		if !ok {
			agg = &repository.TypeAggregate{Type: m.Type, Cantidad: decimal.Zero}
			byType[m.Type] = agg
		}
		agg.Count++
		agg.Cantidad = agg.Cantidad.Add(m.Cantidad)
	}
	var out []repository.TypeAggregate
	for _, agg := range byType {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *MovementRepo) ListByProductAsc(productID string) ([]*entity.Movement, error) {
	defer r.lock()()
	var out []*entity.Movement
	for _, m := range r.store.movements {
		if m.ProductID == productID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MovementRepo) Context(m *entity.Movement, n int) (before, after []*entity.Movement, err error) {
	history, err := r.ListByProductAsc(m.ProductID)
	if err != nil {
		return nil, nil, err
	}
	idx := -1
	for i, h := range history {
		if h.ID == m.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, nil
	}
	lo := idx - n
	if lo < 0 {
		lo = 0
	}
	hi := idx + 1 + n
	if hi > len(history) {
		hi = len(history)
	}
	return history[lo:idx], history[idx+1 : hi], nil
}

func (r *MovementRepo) ListByPurchaseOrder(orderID string) ([]*entity.Movement, error) {
	defer r.lock()()
	return r.listWhere(func(m *entity.Movement) bool {
		return m.PurchaseOrderID != nil && *m.PurchaseOrderID == orderID
	}), nil
}

func (r *MovementRepo) ListBySaleOrder(orderID string) ([]*entity.Movement, error) {
	defer r.lock()()
	return r.listWhere(func(m *entity.Movement) bool {
		return m.SaleOrderID != nil && *m.SaleOrderID == orderID
	}), nil
}

func (r *MovementRepo) DeleteByPurchaseOrder(orderID string) error {
	defer r.lock()()
	r.deleteWhere(func(m *entity.Movement) bool {
		return m.PurchaseOrderID != nil && *m.PurchaseOrderID == orderID
	})
	return nil
}

func (r *MovementRepo) DeleteBySaleOrder(orderID string) error {
	defer r.lock()()
	r.deleteWhere(func(m *entity.Movement) bool {
		return m.SaleOrderID != nil && *m.SaleOrderID == orderID
	})
	return nil
}

func (r *MovementRepo) Orphans() ([]*entity.Movement, error) {
	defer r.lock()()
	return r.listWhere(func(m *entity.Movement) bool {
		_, ok := r.store.products[m.ProductID]
		return !ok
	}), nil
}

func (r *MovementRepo) InvalidSign() ([]*entity.Movement, error) {
	defer r.lock()()
	return r.listWhere(func(m *entity.Movement) bool {
		switch domaininv.MovementType(m.Type) {
		case domaininv.TypeEntrada, domaininv.TypeSalida:
			return !m.Cantidad.GreaterThan(decimal.Zero)
		case domaininv.TypeAjuste:
			return m.Cantidad.IsNegative()
		default:
			return true
		}
	}), nil
}

func (r *MovementRepo) filtered(f repository.MovementFilter) []*entity.Movement {
	return r.listWhere(func(m *entity.Movement) bool {
		if f.ProductID != nil && m.ProductID != *f.ProductID {
			return false
		}
		if f.Type != nil && m.Type != *f.Type {
			return false
		}
		if f.DateFrom != nil && m.CreatedAt.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && m.CreatedAt.After(*f.DateTo) {
			return false
		}
		if f.Motivo != nil && !strings.Contains(strings.ToLower(m.Motivo), strings.ToLower(*f.Motivo)) {
			return false
		}
		return true
	})
}

func (r *MovementRepo) listWhere(pred func(*entity.Movement) bool) []*entity.Movement {
	var out []*entity.Movement
	for _, m := range r.store.movements {
		if pred(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out
}

func (r *MovementRepo) deleteWhere(pred func(*entity.Movement) bool) {
	kept := r.store.movements[:0]
	for _, m := range r.store.movements {
		if !pred(m) {
			kept = append(kept, m)
		}
	}
	r.store.movements = kept
}

// ──────────────────────────────────────────────────────────────────────────────
// Órdenes
// ──────────────────────────────────────────────────────────────────────────────

// PurchaseOrderRepo implementación en memoria de repository.PurchaseOrderRepository.
type PurchaseOrderRepo struct {
	store  *Store
	locked bool
}

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// NewPurchaseOrderRepository repositorio fuera de transacción.
func NewPurchaseOrderRepository(store *Store) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{store: store}
}

func (r *PurchaseOrderRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *PurchaseOrderRepo) Create(o *entity.PurchaseOrder) error {
	defer r.lock()()
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	r.store.purchaseOrders[o.ID] = &cp
	return nil
}

func (r *PurchaseOrderRepo) GetByID(id string) (*entity.PurchaseOrder, error) {
	defer r.lock()()
	o, ok := r.store.purchaseOrders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (r *PurchaseOrderRepo) ReplaceItems(o *entity.PurchaseOrder) error {
	return r.Create(o)
}

func (r *PurchaseOrderRepo) Delete(id string) error {
	defer r.lock()()
	delete(r.store.purchaseOrders, id)
	return nil
}

func (r *PurchaseOrderRepo) List(limit, offset int) ([]*entity.PurchaseOrder, int64, error) {
	defer r.lock()()
	var all []*entity.PurchaseOrder
	for _, o := range r.store.purchaseOrders {
		cp := *o
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), int64(len(all)), nil
}

// SaleOrderRepo implementación en memoria de repository.SaleOrderRepository.
type SaleOrderRepo struct {
	store  *Store
	locked bool
}

var _ repository.SaleOrderRepository = (*SaleOrderRepo)(nil)

// NewSaleOrderRepository repositorio fuera de transacción.
func NewSaleOrderRepository(store *Store) *SaleOrderRepo {
	return &SaleOrderRepo{store: store}
}

func (r *SaleOrderRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *SaleOrderRepo) Create(o *entity.SaleOrder) error {
	defer r.lock()()
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	r.store.saleOrders[o.ID] = &cp
	return nil
}

func (r *SaleOrderRepo) GetByID(id string) (*entity.SaleOrder, error) {
	defer r.lock()()
	o, ok := r.store.saleOrders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (r *SaleOrderRepo) ReplaceItems(o *entity.SaleOrder) error {
	return r.Create(o)
}

func (r *SaleOrderRepo) Delete(id string) error {
	defer r.lock()()
	delete(r.store.saleOrders, id)
	return nil
}

func (r *SaleOrderRepo) List(limit, offset int) ([]*entity.SaleOrder, int64, error) {
	defer r.lock()()
	var all []*entity.SaleOrder
	for _, o := range r.store.saleOrders {
		cp := *o
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), int64(len(all)), nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
