package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
)

// IntegrityAuditor revisa la consistencia entre el libro de movimientos y la
// columna materializada de stock. Solo lectura, salvo la reparación explícita.
type IntegrityAuditor struct {
	txRunner     TxRunner
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
}

// NewIntegrityAuditor construye el auditor.
func NewIntegrityAuditor(txRunner TxRunner, productRepo repository.ProductRepository, movementRepo repository.MovementRepository) *IntegrityAuditor {
	return &IntegrityAuditor{txRunner: txRunner, productRepo: productRepo, movementRepo: movementRepo}
}

// ProductDrift producto cuyo stock almacenado no coincide con la reproducción del libro.
type ProductDrift struct {
	Product    *entity.Product
	StockTabla decimal.Decimal
	StockLibro decimal.Decimal
}

// IntegrityReport hallazgos del auditor.
// Huerfanos: movimientos cuyo producto ya no existe.
// SignoInvalido: cantidad que contradice la convención del tipo (debería ser
// imposible si todo pasa por el orquestador; el auditor existe para atraparlo).
// Incoherentes: capturas antes/después que no cuadran con la función de efecto.
// Desviados: productos con drift entre la columna stock y el libro.
type IntegrityReport struct {
	Huerfanos     []*entity.Movement
	SignoInvalido []*entity.Movement
	Incoherentes  []*entity.Movement
	Desviados     []ProductDrift
}

// listado por lotes para recorrer todo el catálogo sin cargarlo de golpe.
const auditBatchSize = 500

// CheckIntegrity ejecuta todas las verificaciones. No muta nada.
func (a *IntegrityAuditor) CheckIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	orphans, err := a.movementRepo.Orphans()
	if err != nil {
		return nil, err
	}
	report.Huerfanos = orphans

	invalid, err := a.movementRepo.InvalidSign()
	if err != nil {
		return nil, err
	}
	report.SignoInvalido = invalid

	for offset := 0; ; offset += auditBatchSize {
		products, _, err := a.productRepo.List(false, auditBatchSize, offset)
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			break
		}
		for _, p := range products {
			movs, err := a.movementRepo.ListByProductAsc(p.ID)
			if err != nil {
				return nil, err
			}
			for _, m := range movs {
				if !domaininv.Coherent(m) {
					report.Incoherentes = append(report.Incoherentes, m)
				}
			}
			libro := domaininv.Replay(movs)
			if !libro.Equal(p.Stock) {
				report.Desviados = append(report.Desviados, ProductDrift{
					Product:    p,
					StockTabla: p.Stock,
					StockLibro: libro,
				})
			}
		}
		if len(products) < auditBatchSize {
			break
		}
	}

	return report, nil
}

// Repair recalcula y persiste el stock de los productos desviados reproduciendo su
// historial completo de movimientos dentro de una transacción por producto (la fila
// se bloquea y el libro se re-lee dentro de la tx para no pisar escrituras en vuelo).
// Los movimientos huérfanos solo se reportan: borrarlos ocultaría la corrupción
// original en lugar de explicarla.
func (a *IntegrityAuditor) Repair(ctx context.Context, actor Actor) ([]ProductDrift, error) {
	if !actor.Admin {
		return nil, domain.ErrForbidden
	}
	report, err := a.CheckIntegrity(ctx)
	if err != nil {
		return nil, err
	}

	var repaired []ProductDrift
	for _, d := range report.Desviados {
		drift := d
		err := a.txRunner.Run(ctx, func(movRepo repository.MovementRepository, productRepo repository.ProductRepository) error {
			product, err := productRepo.GetForUpdate(drift.Product.ID)
			if err != nil {
				return err
			}
			if product == nil {
				return domain.ErrProductNotFound
			}
			movs, err := movRepo.ListByProductAsc(product.ID)
			if err != nil {
				return err
			}
			libro := domaininv.Replay(movs)
			if libro.Equal(product.Stock) {
				// Otro escritor ya lo reconcilió.
				return nil
			}
			drift.StockTabla = product.Stock
			drift.StockLibro = libro
			return productRepo.UpdateStock(product.ID, libro)
		})
		if err != nil {
			return nil, err
		}
		repaired = append(repaired, drift)
	}
	return repaired, nil
}
