package repository

import "github.com/distrifresh/almacen-api/internal/domain/entity"

// PurchaseOrderRepository puerto de persistencia de órdenes de compra.
type PurchaseOrderRepository interface {
	Create(o *entity.PurchaseOrder) error
	GetByID(id string) (*entity.PurchaseOrder, error)
	// ReplaceItems borra las líneas actuales e inserta las nuevas; actualiza el total.
	ReplaceItems(o *entity.PurchaseOrder) error
	Delete(id string) error
	List(limit, offset int) ([]*entity.PurchaseOrder, int64, error)
}

// SaleOrderRepository puerto de persistencia de órdenes de venta.
type SaleOrderRepository interface {
	Create(o *entity.SaleOrder) error
	GetByID(id string) (*entity.SaleOrder, error)
	ReplaceItems(o *entity.SaleOrder) error
	Delete(id string) error
	List(limit, offset int) ([]*entity.SaleOrder, int64, error)
}
