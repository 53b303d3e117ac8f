package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain/entity"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, sku, name, active, stock, stock_minimo, created_at, updated_at`

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Active, &p.Stock, &p.StockMinimo, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.q.QueryRow(context.Background(), query, id))
}

// GetForUpdate obtiene el producto y bloquea su fila (SELECT FOR UPDATE).
// Debe llamarse dentro de una transacción: serializa a los escritores concurrentes
// sobre el mismo producto antes de recalcular el stock.
func (r *ProductRepo) GetForUpdate(id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	return scanProduct(r.q.QueryRow(context.Background(), query, id))
}

// UpdateStock actualiza solo la columna stock (usado por el motor de movimientos).
func (r *ProductRepo) UpdateStock(productID string, stock decimal.Decimal) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`,
		productID, stock,
	)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	return nil
}

// List lista productos con paginación y el total sin paginar; activeOnly filtra
// los desactivados.
func (r *ProductRepo) List(activeOnly bool, limit, offset int) ([]*entity.Product, int64, error) {
	where := ``
	if activeOnly {
		where = ` WHERE active = true`
	}
	total, err := r.countProducts(`SELECT count(*) FROM products` + where)
	if err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY name ASC LIMIT $1 OFFSET $2`
	list, err := r.queryProducts(query, limit, offset)
	return list, total, err
}

// ListLowStock lista productos activos cuyo stock está en o por debajo de su mínimo.
func (r *ProductRepo) ListLowStock(limit, offset int) ([]*entity.Product, int64, error) {
	const where = ` WHERE active = true AND stock <= stock_minimo`
	total, err := r.countProducts(`SELECT count(*) FROM products` + where)
	if err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY (stock - stock_minimo) ASC LIMIT $1 OFFSET $2`
	list, err := r.queryProducts(query, limit, offset)
	return list, total, err
}

func (r *ProductRepo) countProducts(query string) (int64, error) {
	var total int64
	if err := r.q.QueryRow(context.Background(), query).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

func (r *ProductRepo) queryProducts(query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Active, &p.Stock, &p.StockMinimo, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
