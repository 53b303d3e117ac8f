package orders

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/distrifresh/almacen-api/internal/application/dto"
	"github.com/distrifresh/almacen-api/internal/application/inventory"
	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// PurchaseOrderUseCase órdenes de compra: cada línea genera un movimiento ENTRADA
// en la misma transacción que la orden; editar o eliminar la orden revierte y
// re-aplica los movimientos de forma simétrica.
type PurchaseOrderUseCase struct {
	txRunner    TxRunner
	movements   MovementWriter
	validator   *inventory.StockValidator
	productRepo repository.ProductRepository
	orderRepo   repository.PurchaseOrderRepository
}

// NewPurchaseOrderUseCase construye el caso de uso.
func NewPurchaseOrderUseCase(
	txRunner TxRunner,
	movements MovementWriter,
	validator *inventory.StockValidator,
	productRepo repository.ProductRepository,
	orderRepo repository.PurchaseOrderRepository,
) *PurchaseOrderUseCase {
	return &PurchaseOrderUseCase{
		txRunner:    txRunner,
		movements:   movements,
		validator:   validator,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// Create crea la orden y un movimiento ENTRADA por cada línea, todo o nada.
func (uc *PurchaseOrderUseCase) Create(ctx context.Context, userID string, in dto.CreatePurchaseOrderRequest) (*entity.PurchaseOrder, error) {
	if in.Proveedor == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	orderID := uuid.New().String()
	items, total, err := buildItems(uc.productRepo, orderID, in.Items)
	if err != nil {
		return nil, err
	}
	order := &entity.PurchaseOrder{
		ID:        orderID,
		Numero:    newOrderNumber("OC", now),
		Proveedor: in.Proveedor,
		Estado:    entity.OrderStatusActive,
		Total:     total,
		Items:     items,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.txRunner.RunPurchase(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		orderRepo repository.PurchaseOrderRepository,
	) error {
		if err := orderRepo.Create(order); err != nil {
			return err
		}
		for _, item := range order.Items {
			precio := item.PrecioUnitario
			if _, err := uc.movements.CreateInTx(movRepo, productRepo, inventory.CreateMovementInput{
				ProductID:       item.ProductID,
				Tipo:            domaininv.TypeEntrada,
				Cantidad:        item.Cantidad,
				Precio:          &precio,
				Motivo:          "orden de compra " + order.Numero,
				PurchaseOrderID: &order.ID,
				UserID:          userID,
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

// Update reemplaza las líneas de la orden. Calcula el delta de cantidad por producto
// entre líneas viejas y nuevas, pre-valida que ningún stock quede negativo y, en una
// sola transacción, aplica un movimiento por delta (ENTRADA si la compra creció,
// SALIDA si se redujo), reemplaza las líneas y recalcula el total.
func (uc *PurchaseOrderUseCase) Update(ctx context.Context, actor inventory.Actor, orderID string, in dto.UpdateOrderRequest) (*entity.PurchaseOrder, error) {
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

	// Pre-validación fuera de la tx: reducir una compra es una SALIDA y no puede
	// dejar stock negativo. Se re-verifica dentro de la tx con la fila bloqueada.
	for _, productID := range sortedKeys(deltas) {
		if delta := deltas[productID]; delta.IsNegative() {
			if err := uc.validator.ValidateForMovement(ctx, productID, domaininv.TypeSalida, delta.Neg()); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now()
	err = uc.txRunner.RunPurchase(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		orderRepo repository.PurchaseOrderRepository,
	) error {
		for _, productID := range sortedKeys(deltas) {
			delta := deltas[productID]
			tipo := domaininv.TypeEntrada
			cantidad := delta
			if delta.IsNegative() {
				tipo = domaininv.TypeSalida
				cantidad = delta.Neg()
			}
			if _, err := uc.movements.CreateInTx(movRepo, productRepo, inventory.CreateMovementInput{
				ProductID:       productID,
				Tipo:            tipo,
				Cantidad:        cantidad,
				Motivo:          "ajuste por edición de orden " + order.Numero,
				PurchaseOrderID: &order.ID,
				UserID:          actor.UserID,
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

// Delete revierte todos los movimientos generados por la orden (el stock de cada
// producto vuelve a su valor previo) y elimina las líneas y la orden, todo o nada.
func (uc *PurchaseOrderUseCase) Delete(ctx context.Context, actor inventory.Actor, orderID string) error {
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

	return uc.txRunner.RunPurchase(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		orderRepo repository.PurchaseOrderRepository,
	) error {
		movs, err := movRepo.ListByPurchaseOrder(order.ID)
		if err != nil {
			return err
		}
		net := netEffect(movs)
		// Bloqueo de productos en orden determinista para evitar deadlocks cruzados.
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
		if err := movRepo.DeleteByPurchaseOrder(order.ID); err != nil {
			return err
		}
		return orderRepo.Delete(order.ID)
	})
}

// GetByID devuelve la orden con sus líneas.
func (uc *PurchaseOrderUseCase) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	order, err := uc.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// List lista órdenes de compra con paginación.
func (uc *PurchaseOrderUseCase) List(ctx context.Context, limit, offset int) ([]*entity.PurchaseOrder, int64, error) {
	return uc.orderRepo.List(limit, offset)
}

// sortedKeys claves de un mapa producto→delta en orden estable.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
