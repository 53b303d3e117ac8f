package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// Ventanas de tiempo para editar/eliminar movimientos.
const (
	// UpdateWindow ventana de edición de campos sin efecto en stock para no-admins.
	UpdateWindow = 24 * time.Hour
	// DeleteWindow ventana máxima de eliminación (solo admins).
	DeleteWindow = 48 * time.Hour
)

// MovementUseCase orquesta el ciclo de vida de los movimientos de stock: es el
// ÚNICO escritor del libro de movimientos y de la columna stock de productos.
// Toda mutación ocurre dentro de una transacción que bloquea la fila del producto
// (SELECT FOR UPDATE) antes de calcular el stock resultante.
type MovementUseCase struct {
	txRunner     TxRunner
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	validator    *StockValidator
}

// NewMovementUseCase construye el caso de uso.
func NewMovementUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	validator *StockValidator,
) *MovementUseCase {
	return &MovementUseCase{
		txRunner:     txRunner,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		validator:    validator,
	}
}

// CreateMovementInput entrada para crear un movimiento.
// PurchaseOrderID/SaleOrderID solo se setean desde el subsistema de órdenes.
type CreateMovementInput struct {
	ProductID       string
	Tipo            domaininv.MovementType
	Cantidad        decimal.Decimal
	Precio          *decimal.Decimal
	Motivo          string
	NumeroGuia      string
	PurchaseOrderID *string
	SaleOrderID     *string
	UserID          string
}

// CreateMovementResult movimiento creado más el estado de stock alrededor.
type CreateMovementResult struct {
	Movement        *entity.Movement
	StockAnterior   decimal.Decimal
	StockNuevo      decimal.Decimal
	AlertaStockBajo bool
}

// CreateMovement valida y aplica un movimiento en una sola transacción:
//  1. pre-validación de solo lectura (existencia, activo, suficiencia re-derivada),
//  2. dentro de la tx: re-lee el producto con FOR UPDATE (serializa escritores
//     concurrentes sobre el mismo producto), recalcula el stock resultante con la
//     función de efecto del tipo (la suficiencia de SALIDA se re-verifica aquí para
//     cerrar la ventana de carrera), inserta el movimiento con capturas antes/después
//     y actualiza la columna stock.
//
// Cualquier fallo dentro de la tx revierte todo: nunca queda un movimiento sin su
// actualización de stock ni viceversa.
func (uc *MovementUseCase) CreateMovement(ctx context.Context, input CreateMovementInput) (*CreateMovementResult, error) {
	if err := uc.validator.ValidateForMovement(ctx, input.ProductID, input.Tipo, input.Cantidad); err != nil {
		return nil, err
	}

	var result *CreateMovementResult
	err := uc.txRunner.Run(ctx, func(movRepo repository.MovementRepository, productRepo repository.ProductRepository) error {
		res, err := uc.CreateInTx(movRepo, productRepo, input, time.Now())
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateInTx aplica un movimiento usando repositorios ya atados a una transacción.
// Lo invoca CreateMovement y también el subsistema de órdenes para generar los
// movimientos de cada línea dentro de la transacción de la orden.
func (uc *MovementUseCase) CreateInTx(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	input CreateMovementInput,
	now time.Time,
) (*CreateMovementResult, error) {
	// Bloquea la fila del producto: punto único de contención por producto.
	product, err := productRepo.GetForUpdate(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	if !product.Active {
		return nil, domain.ErrInactiveProduct
	}

	before := product.Stock
	after, err := input.Tipo.Apply(before, input.Cantidad)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return nil, &domain.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Current:     before,
				Requested:   input.Cantidad,
			}
		}
		return nil, err
	}

	var precio *decimal.Decimal
	if input.Precio != nil {
		p := domaininv.RoundMoney(*input.Precio)
		precio = &p
	}
	mov := &entity.Movement{
		ID:               uuid.New().String(),
		ProductID:        input.ProductID,
		Type:             string(input.Tipo),
		Cantidad:         domaininv.RoundStock(input.Cantidad),
		CantidadAnterior: before,
		CantidadNueva:    after,
		PrecioUnitario:   precio,
		Motivo:           input.Motivo,
		NumeroGuia:       input.NumeroGuia,
		PurchaseOrderID:  input.PurchaseOrderID,
		SaleOrderID:      input.SaleOrderID,
		CreatedBy:        input.UserID,
		CreatedAt:        now,
	}
	if err := movRepo.Create(mov); err != nil {
		return nil, err
	}
	if err := productRepo.UpdateStock(product.ID, after); err != nil {
		return nil, err
	}

	return &CreateMovementResult{
		Movement:        mov,
		StockAnterior:   before,
		StockNuevo:      after,
		AlertaStockBajo: after.LessThanOrEqual(product.StockMinimo),
	}, nil
}

// UpdateMovement edita los campos sin efecto en stock (motivo, número de guía).
// Autorización: el autor o un admin; los no-admin solo dentro de la ventana de 24h.
// Corre en transacción con la fila del movimiento bloqueada: dos ediciones
// concurrentes de campos distintos se aplican ambas en vez de pisarse.
func (uc *MovementUseCase) UpdateMovement(ctx context.Context, actor Actor, id string, motivo, numeroGuia *string) (*entity.Movement, error) {
	var updated *entity.Movement
	err := uc.txRunner.Run(ctx, func(movRepo repository.MovementRepository, _ repository.ProductRepository) error {
		mov, err := movRepo.GetForUpdate(id)
		if err != nil {
			return err
		}
		if mov == nil {
			return domain.ErrMovementNotFound
		}
		if !actor.Admin {
			if mov.CreatedBy != actor.UserID {
				return domain.ErrForbidden
			}
			if age := mov.Age(time.Now()); age > UpdateWindow {
				return &domain.TimeWindowError{Age: age, Limit: UpdateWindow}
			}
		}

		if motivo != nil {
			mov.Motivo = *motivo
		}
		if numeroGuia != nil {
			mov.NumeroGuia = *numeroGuia
		}
		if err := movRepo.UpdateDetails(mov.ID, mov.Motivo, mov.NumeroGuia); err != nil {
			return err
		}
		updated = mov
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMovement elimina un movimiento revirtiendo su efecto sobre el stock.
// Solo admins, máximo 48h de antigüedad y nunca si está vinculado a una orden
// (para eso se edita o elimina la orden, que revierte simétricamente).
func (uc *MovementUseCase) DeleteMovement(ctx context.Context, actor Actor, id string) error {
	if !actor.Admin {
		return domain.ErrForbidden
	}
	mov, err := uc.movementRepo.GetByID(id)
	if err != nil {
		return err
	}
	if mov == nil {
		return domain.ErrMovementNotFound
	}
	if mov.LinkedToOrder() {
		return domain.ErrMovementLinked
	}
	if age := mov.Age(time.Now()); age > DeleteWindow {
		return &domain.TimeWindowError{Age: age, Limit: DeleteWindow}
	}

	return uc.txRunner.Run(ctx, func(movRepo repository.MovementRepository, productRepo repository.ProductRepository) error {
		product, err := productRepo.GetForUpdate(mov.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		// Re-lee el movimiento ya con la fila del producto bloqueada: un delete
		// concurrente pudo haberlo eliminado entre la lectura previa y la tx,
		// y revertir dos veces dejaría el stock por debajo del libro.
		cur, err := movRepo.GetByID(mov.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return domain.ErrMovementNotFound
		}
		reversed, err := domaininv.MovementType(cur.Type).Reverse(product.Stock, cur.Cantidad, cur.CantidadAnterior)
		if err != nil {
			return err
		}
		if err := movRepo.Delete(cur.ID); err != nil {
			return err
		}
		return productRepo.UpdateStock(product.ID, reversed)
	})
}

// MovementDetail detalle de un movimiento con su ventana de contexto.
type MovementDetail struct {
	Movement    *entity.Movement
	Anteriores  []*entity.Movement
	Posteriores []*entity.Movement
}

// contextWindow cuántos movimientos vecinos se devuelven a cada lado.
const contextWindow = 3

// GetMovement devuelve el movimiento y hasta 3 movimientos anteriores y 3
// posteriores del mismo producto, para revisar el contexto cronológico.
func (uc *MovementUseCase) GetMovement(ctx context.Context, id string) (*MovementDetail, error) {
	mov, err := uc.movementRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if mov == nil {
		return nil, domain.ErrMovementNotFound
	}
	before, after, err := uc.movementRepo.Context(mov, contextWindow)
	if err != nil {
		return nil, err
	}
	return &MovementDetail{Movement: mov, Anteriores: before, Posteriores: after}, nil
}

// MovementList resultado del listado con agregados por tipo.
type MovementList struct {
	Movements  []*entity.Movement
	Total      int64
	Aggregates []repository.TypeAggregate
}

// ListMovements lista movimientos con filtros, paginación y agregados
// (conteo y suma de cantidades por tipo sobre el conjunto filtrado).
func (uc *MovementUseCase) ListMovements(ctx context.Context, f repository.MovementFilter) (*MovementList, error) {
	movs, total, err := uc.movementRepo.List(f)
	if err != nil {
		return nil, err
	}
	aggs, err := uc.movementRepo.Aggregates(f)
	if err != nil {
		return nil, err
	}
	return &MovementList{Movements: movs, Total: total, Aggregates: aggs}, nil
}
