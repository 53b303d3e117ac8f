package inventory

import (
	"context"

	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios
// atados a esa tx. Garantiza atomicidad entre el libro de movimientos y la columna
// de stock: o se escriben ambos, o ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// Actor identifica al usuario que ejecuta la operación y su rol.
type Actor struct {
	UserID string
	Admin  bool
}
