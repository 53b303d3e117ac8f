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

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación del libro de movimientos sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, product_id, type, cantidad, cantidad_anterior, cantidad_nueva,
	precio_unitario, motivo, numero_guia, purchase_order_id, sale_order_id, created_by, created_at`

func scanMovementRow(scan func(dest ...any) error) (*entity.Movement, error) {
	var m entity.Movement
	var motivo, numeroGuia *string
	err := scan(&m.ID, &m.ProductID, &m.Type, &m.Cantidad, &m.CantidadAnterior, &m.CantidadNueva,
		&m.PrecioUnitario, &motivo, &numeroGuia, &m.PurchaseOrderID, &m.SaleOrderID, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if motivo != nil {
		m.Motivo = *motivo
	}
	if numeroGuia != nil {
		m.NumeroGuia = *numeroGuia
	}
	return &m, nil
}

// Create persiste un movimiento con sus capturas antes/después.
func (r *MovementRepo) Create(m *entity.Movement) error {
	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(context.Background(), query,
		m.ID, m.ProductID, m.Type, m.Cantidad, m.CantidadAnterior, m.CantidadNueva,
		m.PrecioUnitario, nullable(m.Motivo), nullable(m.NumeroGuia),
		m.PurchaseOrderID, m.SaleOrderID, m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por su ID.
func (r *MovementRepo) GetByID(id string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`
	m, err := scanMovementRow(r.q.QueryRow(context.Background(), query, id).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// GetForUpdate obtiene el movimiento y bloquea su fila (SELECT FOR UPDATE).
// Debe llamarse dentro de una transacción.
func (r *MovementRepo) GetForUpdate(id string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1 FOR UPDATE`
	m, err := scanMovementRow(r.q.QueryRow(context.Background(), query, id).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement for update: %w", err)
	}
	return m, nil
}

// UpdateDetails actualiza solo los campos sin efecto en stock.
func (r *MovementRepo) UpdateDetails(id, motivo, numeroGuia string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE movements SET motivo = $2, numero_guia = $3 WHERE id = $1`,
		id, nullable(motivo), nullable(numeroGuia),
	)
	if err != nil {
		return fmt.Errorf("update movement details: %w", err)
	}
	return nil
}

// Delete elimina un movimiento por ID.
func (r *MovementRepo) Delete(id string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	return nil
}

// filterClause arma el WHERE dinámico compartido por List y Aggregates.
func filterClause(f repository.MovementFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	pos := 1
	add := func(cond string, val any) {
		where += fmt.Sprintf(" AND "+cond, pos)
		args = append(args, val)
		pos++
	}
	if f.ProductID != nil {
		add("product_id = $%d", *f.ProductID)
	}
	if f.Type != nil {
		add("type = $%d", *f.Type)
	}
	if f.DateFrom != nil {
		add("created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("created_at <= $%d", *f.DateTo)
	}
	if f.Motivo != nil {
		add("motivo ILIKE $%d", "%"+*f.Motivo+"%")
	}
	return where, args
}

// List lista movimientos filtrados con paginación y devuelve el total sin paginar.
func (r *MovementRepo) List(f repository.MovementFilter) ([]*entity.Movement, int64, error) {
	where, args := filterClause(f)

	var total int64
	if err := r.q.QueryRow(context.Background(), `SELECT count(*) FROM movements`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	query := `SELECT ` + movementColumns + ` FROM movements` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	list, err := r.queryMovements(query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Aggregates conteo y suma de cantidades por tipo sobre el conjunto filtrado (sin paginar).
func (r *MovementRepo) Aggregates(f repository.MovementFilter) ([]repository.TypeAggregate, error) {
	where, args := filterClause(f)
	query := `SELECT type, count(*), COALESCE(sum(cantidad), 0) FROM movements` + where + ` GROUP BY type ORDER BY type`
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate movements: %w", err)
	}
	defer rows.Close()
	var aggs []repository.TypeAggregate
	for rows.Next() {
		var a repository.TypeAggregate
		var cantidad decimal.Decimal
		if err := rows.Scan(&a.Type, &a.Count, &cantidad); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		a.Cantidad = cantidad
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// ListByProductAsc historial completo del producto en orden de creación ascendente.
// El índice secundario (product_id, created_at) sirve esta consulta.
func (r *MovementRepo) ListByProductAsc(productID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE product_id = $1 ORDER BY created_at ASC, id ASC`
	return r.queryMovements(query, productID)
}

// Context devuelve hasta n movimientos anteriores y n posteriores del mismo producto.
func (r *MovementRepo) Context(m *entity.Movement, n int) (before, after []*entity.Movement, err error) {
	// Los anteriores salen DESC y se invierten para quedar en orden cronológico.
	queryBefore := `SELECT ` + movementColumns + ` FROM movements
		WHERE product_id = $1 AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC LIMIT $4`
	before, err = r.queryMovements(queryBefore, m.ProductID, m.CreatedAt, m.ID, n)
	if err != nil {
		return nil, nil, err
	}
	for i, j := 0, len(before)-1; i < j; i, j = i+1, j-1 {
		before[i], before[j] = before[j], before[i]
	}

	queryAfter := `SELECT ` + movementColumns + ` FROM movements
		WHERE product_id = $1 AND (created_at, id) > ($2, $3)
		ORDER BY created_at ASC, id ASC LIMIT $4`
	after, err = r.queryMovements(queryAfter, m.ProductID, m.CreatedAt, m.ID, n)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// ListByPurchaseOrder movimientos generados por una orden de compra.
func (r *MovementRepo) ListByPurchaseOrder(orderID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE purchase_order_id = $1 ORDER BY created_at ASC, id ASC`
	return r.queryMovements(query, orderID)
}

// ListBySaleOrder movimientos generados por una orden de venta.
func (r *MovementRepo) ListBySaleOrder(orderID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE sale_order_id = $1 ORDER BY created_at ASC, id ASC`
	return r.queryMovements(query, orderID)
}

// DeleteByPurchaseOrder elimina los movimientos de una orden de compra (reversión de orden).
func (r *MovementRepo) DeleteByPurchaseOrder(orderID string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM movements WHERE purchase_order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete movements by purchase order: %w", err)
	}
	return nil
}

// DeleteBySaleOrder elimina los movimientos de una orden de venta.
func (r *MovementRepo) DeleteBySaleOrder(orderID string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM movements WHERE sale_order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete movements by sale order: %w", err)
	}
	return nil
}

// Orphans movimientos cuyo producto ya no existe (borrado fuera de la aplicación).
func (r *MovementRepo) Orphans() ([]*entity.Movement, error) {
	query := `
		SELECT ` + qualify(movementColumns, "m") + `
		FROM movements m
		LEFT JOIN products p ON p.id = m.product_id
		WHERE p.id IS NULL
		ORDER BY m.created_at ASC`
	return r.queryMovements(query)
}

// InvalidSign movimientos cuya cantidad contradice la convención de su tipo:
// ENTRADA/SALIDA exigen cantidad > 0, AJUSTE exige cantidad >= 0, y el tipo debe
// pertenecer al enum cerrado.
func (r *MovementRepo) InvalidSign() ([]*entity.Movement, error) {
	query := `
		SELECT ` + movementColumns + ` FROM movements
		WHERE (type IN ('ENTRADA', 'SALIDA') AND cantidad <= 0)
		   OR (type = 'AJUSTE' AND cantidad < 0)
		   OR type NOT IN ('ENTRADA', 'SALIDA', 'AJUSTE')
		ORDER BY created_at ASC`
	return r.queryMovements(query)
}

func (r *MovementRepo) queryMovements(query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovementRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// nullable convierte un string vacío en NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
