package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain/entity"
)

// MovementFilter filtros opcionales para el listado de movimientos.
type MovementFilter struct {
	ProductID *string
	Type      *string
	DateFrom  *time.Time
	DateTo    *time.Time
	Motivo    *string // búsqueda parcial, case-insensitive
	Limit     int
	Offset    int
}

// TypeAggregate conteo y suma de cantidades por tipo de movimiento.
type TypeAggregate struct {
	Type     string
	Count    int64
	Cantidad decimal.Decimal
}

// MovementRepository puerto de persistencia del libro de movimientos.
type MovementRepository interface {
	Create(m *entity.Movement) error
	GetByID(id string) (*entity.Movement, error)
	// GetForUpdate obtiene el movimiento bloqueando su fila; usar dentro de una
	// transacción para que ediciones concurrentes no se pisen entre sí.
	GetForUpdate(id string) (*entity.Movement, error)
	// UpdateDetails actualiza solo los campos que no afectan stock (motivo, número de guía).
	UpdateDetails(id, motivo, numeroGuia string) error
	Delete(id string) error

	List(f MovementFilter) ([]*entity.Movement, int64, error)
	Aggregates(f MovementFilter) ([]TypeAggregate, error)
	// ListByProductAsc historial completo de un producto en orden de creación
	// ascendente; insumo de la re-derivación defensiva (inventory.Replay).
	ListByProductAsc(productID string) ([]*entity.Movement, error)
	// Context devuelve hasta n movimientos anteriores y n posteriores del mismo
	// producto alrededor del movimiento dado.
	Context(m *entity.Movement, n int) (before, after []*entity.Movement, err error)

	ListByPurchaseOrder(orderID string) ([]*entity.Movement, error)
	ListBySaleOrder(orderID string) ([]*entity.Movement, error)
	DeleteByPurchaseOrder(orderID string) error
	DeleteBySaleOrder(orderID string) error

	// Orphans movimientos cuyo producto ya no existe.
	Orphans() ([]*entity.Movement, error)
	// InvalidSign movimientos cuya cantidad contradice la convención de su tipo.
	InvalidSign() ([]*entity.Movement, error)
}
