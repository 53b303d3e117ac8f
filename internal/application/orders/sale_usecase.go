package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/application/dto"
	"github.com/distrifresh/almacen-api/internal/application/inventory"
	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// SaleOrderUseCase órdenes de venta: cada línea genera un movimiento SALIDA en la
// misma transacción que la orden. La pre-validación multi-línea verifica stock
// suficiente para todas las líneas antes de abrir la transacción; la verificación
// definitiva ocurre dentro, con la fila del producto bloqueada.
type SaleOrderUseCase struct {
	txRunner    TxRunner
	movements   MovementWriter
	validator   *inventory.StockValidator
	productRepo repository.ProductRepository
	orderRepo   repository.SaleOrderRepository
}

// NewSaleOrderUseCase construye el caso de uso.
func NewSaleOrderUseCase(
	txRunner TxRunner,
	movements MovementWriter,
	validator *inventory.StockValidator,
	productRepo repository.ProductRepository,
	orderRepo repository.SaleOrderRepository,
) *SaleOrderUseCase {
	return &SaleOrderUseCase{
		txRunner:    txRunner,
		movements:   movements,
		validator:   validator,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// Create crea la orden y un movimiento SALIDA por cada línea, todo o nada.
func (uc *SaleOrderUseCase) Create(ctx context.Context, userID string, in dto.CreateSaleOrderRequest) (*entity.SaleOrder, error) {
	if in.Cliente == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	orderID := uuid.New().String()
	items, total, err := buildItems(uc.productRepo, orderID, in.Items)
	if err != nil {
		return nil, err
	}
	// Pre-validación de stock por línea antes de abrir la transacción.
	for _, item := range items {
		if err := uc.validator.ValidateForMovement(ctx, item.ProductID, domaininv.TypeSalida, item.Cantidad); err != nil {
			return nil, err
		}
	}

	order := &entity.SaleOrder{
		ID:        orderID,
		Numero:    newOrderNumber("OV", now),
		Cliente:   in.Cliente,
		Estado:    entity.OrderStatusActive,
		Total:     total,
		Items:     items,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.txRunner.RunSale(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		orderRepo repository.SaleOrderRepository,
	) error {
		if err := orderRepo.Create(order); err != nil {
			return err
		}
		for _, item := range order.Items {
			precio := item.PrecioUnitario
			if _, err := uc.movements.CreateInTx(movRepo, productRepo, inventory.CreateMovementInput{
				ProductID:   item.ProductID,
				Tipo:        domaininv.TypeSalida,
				Cantidad:    item.Cantidad,
				Precio:      &precio,
				Motivo:      "orden de venta " + order.Numero,
				SaleOrderID: &order.ID,
				UserID:      userID,
			}, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Update reemplaza las líneas de la orden de venta. El delta por producto se aplica
// invertido respecto a compras: vender más es una SALIDA adicional, vender menos
// devuelve stock con una ENTRADA.
func (uc *SaleOrderUseCase) Update(ctx context.Context, actor inventory.Actor, orderID string, in dto.UpdateOrderRequest) (*entity.SaleOrder, error) {
	order, err := uc.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if !actor.Admin && order.CreatedBy != actor.UserID {
		return nil, domain.ErrForbidden
	}

	newItems, total, err := buildItems(uc.productRepo, order.ID, in.Items)
	if err != nil {
		return nil, err
	}
	deltas := itemDeltas(order.Items, newItems)

	// Vender más exige stock disponible; se pre-valida por producto.
	for _, productID := range sortedKeys(deltas) {
		if delta := deltas[productID]; delta.GreaterThan(decimal.Zero) {
			if err := uc.validator.ValidateForMovement(ctx, productID, domaininv.TypeSalida, delta); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now()
	err = uc.txRunner.RunSale(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		orderRepo repository.SaleOrderRepository,
	) error {
		for _, productID := range sortedKeys(deltas) {
			delta := deltas[productID]
			tipo := domaininv.TypeSalida
			cantidad := delta
			if delta.IsNegative() {
				tipo = domaininv.TypeEntrada
				cantidad = delta.Neg()
			}
			if _, err := uc.movements.CreateInTx(movRepo, productRepo, inventory.CreateMovementInput{
				ProductID:   productID,
				Tipo:        tipo,
				Cantidad:    cantidad,
				Motivo:      "ajuste por edición de orden " + order.Numero,
				SaleOrderID: &order.ID,
				UserID:      actor.UserID,
			}, now); err != nil {
				return err
			}
		}
		order.Items = newItems
		order.Total = total
		order.UpdatedAt = now
		return orderRepo.ReplaceItems(order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Delete revierte todos los movimientos de la orden (devuelve el stock vendido) y
// elimina líneas y orden en una sola transacción.
func (uc *SaleOrderUseCase) Delete(ctx context.Context, actor inventory.Actor, orderID string) error {
	order, err := uc.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrNotFound
	}
	if !actor.Admin && order.CreatedBy != actor.UserID {
		return domain.ErrForbidden
	}

	return uc.txRunner.RunSale(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		orderRepo repository.SaleOrderRepository,
	) error {
		movs, err := movRepo.ListBySaleOrder(order.ID)
		if err != nil {
			return err
		}
		net := netEffect(movs)
		for _, productID := range sortedKeys(net) {
			product, err := productRepo.GetForUpdate(productID)
			if err != nil {
				return err
			}
			if product == nil {
				return domain.ErrProductNotFound
			}
			restored := domaininv.RoundStock(product.Stock.Sub(net[productID]))
			if restored.IsNegative() {
				return domain.ErrNegativeStock
			}
			if err := productRepo.UpdateStock(productID, restored); err != nil {
				return err
			}
		}
		if err := movRepo.DeleteBySaleOrder(order.ID); err != nil {
			return err
		}
		return orderRepo.Delete(order.ID)
	})
}

// GetByID devuelve la orden con sus líneas.
func (uc *SaleOrderUseCase) GetByID(ctx context.Context, id string) (*entity.SaleOrder, error) {
	order, err := uc.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// List lista órdenes de venta con paginación.
func (uc *SaleOrderUseCase) List(ctx context.Context, limit, offset int) ([]*entity.SaleOrder, int64, error) {
	return uc.orderRepo.List(limit, offset)
}
