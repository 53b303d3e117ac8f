package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain/entity"
)

// Replay reconstruye el stock de un producto a partir de su historial completo de
// movimientos en orden de creación ascendente. Un AJUSTE reinicia la base al valor
// absoluto de su cantidad; ENTRADA y SALIDA aportan su efecto con signo.
// Es la re-derivación defensiva que usan el validador y la ruta de reparación del
// auditor en lugar de confiar en la columna materializada `stock`.
func Replay(movs []*entity.Movement) decimal.Decimal {
	stock := decimal.Zero
	for _, m := range movs {
		t := MovementType(m.Type)
		if t == TypeAjuste {
			stock = RoundStock(m.Cantidad)
			continue
		}
		stock = RoundStock(stock.Add(t.SignedEffect(m.Cantidad)))
	}
	return stock
}

// Coherent verifica que las capturas antes/después de un movimiento sean consistentes
// con la semántica de su tipo. Lo usa el auditor de integridad.
func Coherent(m *entity.Movement) bool {
	t := MovementType(m.Type)
	if !t.Valid() {
		return false
	}
	after, err := t.Apply(m.CantidadAnterior, m.Cantidad)
	if err != nil {
		return false
	}
	return after.Equal(m.CantidadNueva)
}
