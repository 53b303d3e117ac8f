package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo implementación sobre PostgreSQL (usable con pool o tx).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

// Create persiste la orden y sus líneas.
func (r *PurchaseOrderRepo) Create(o *entity.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (id, numero, proveedor, estado, total, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		o.ID, o.Numero, o.Proveedor, o.Estado, o.Total, o.CreatedBy, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	return r.insertItems(o.ID, o.Items)
}

func (r *PurchaseOrderRepo) insertItems(orderID string, items []entity.OrderItem) error {
	for _, it := range items {
		_, err := r.q.Exec(context.Background(), `
			INSERT INTO purchase_order_items (id, order_id, product_id, cantidad, precio_unitario, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, orderID, it.ProductID, it.Cantidad, it.PrecioUnitario, it.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert purchase order item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la orden con sus líneas.
func (r *PurchaseOrderRepo) GetByID(id string) (*entity.PurchaseOrder, error) {
	query := `
		SELECT id, numero, proveedor, estado, total, created_by, created_at, updated_at
		FROM purchase_orders WHERE id = $1`
	var o entity.PurchaseOrder
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&o.ID, &o.Numero, &o.Proveedor, &o.Estado, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	items, err := r.items(id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *PurchaseOrderRepo) items(orderID string) ([]entity.OrderItem, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT id, order_id, product_id, cantidad, precio_unitario, subtotal
		FROM purchase_order_items WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list purchase order items: %w", err)
	}
	defer rows.Close()
	var items []entity.OrderItem
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Cantidad, &it.PrecioUnitario, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ReplaceItems borra las líneas actuales, inserta las nuevas y actualiza el total.
func (r *PurchaseOrderRepo) ReplaceItems(o *entity.PurchaseOrder) error {
	if _, err := r.q.Exec(context.Background(),
		`DELETE FROM purchase_order_items WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("delete purchase order items: %w", err)
	}
	if err := r.insertItems(o.ID, o.Items); err != nil {
		return err
	}
	_, err := r.q.Exec(context.Background(),
		`UPDATE purchase_orders SET total = $2, updated_at = $3 WHERE id = $1`,
		o.ID, o.Total, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update purchase order total: %w", err)
	}
	return nil
}

// Delete elimina la orden y sus líneas.
func (r *PurchaseOrderRepo) Delete(id string) error {
	if _, err := r.q.Exec(context.Background(),
		`DELETE FROM purchase_order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete purchase order items: %w", err)
	}
	if _, err := r.q.Exec(context.Background(),
		`DELETE FROM purchase_orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	return nil
}

// List lista órdenes (cabeceras con líneas) con paginación.
func (r *PurchaseOrderRepo) List(limit, offset int) ([]*entity.PurchaseOrder, int64, error) {
	var total int64
	if err := r.q.QueryRow(context.Background(), `SELECT count(*) FROM purchase_orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count purchase orders: %w", err)
	}
	rows, err := r.q.Query(context.Background(), `
		SELECT id, numero, proveedor, estado, total, created_by, created_at, updated_at
		FROM purchase_orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.PurchaseOrder
	for rows.Next() {
		var o entity.PurchaseOrder
		if err := rows.Scan(&o.ID, &o.Numero, &o.Proveedor, &o.Estado, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan purchase order: %w", err)
		}
		list = append(list, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, o := range list {
		items, err := r.items(o.ID)
		if err != nil {
			return nil, 0, err
		}
		o.Items = items
	}
	return list, total, nil
}
