// Package inventory contiene la lógica pura del libro de movimientos: el tipo de
// movimiento como enum cerrado y la función de efecto sobre el stock, definida una
// sola vez y reutilizada por el orquestador, el validador y el auditor.
package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/distrifresh/almacen-api/internal/domain"
)

// MovementType tipo cerrado de movimiento de stock.
type MovementType string

const (
	// TypeEntrada entrada de mercadería: suma al stock.
	TypeEntrada MovementType = "ENTRADA"
	// TypeSalida salida de mercadería: resta del stock; nunca puede dejarlo negativo.
	TypeSalida MovementType = "SALIDA"
	// TypeAjuste ajuste absoluto: la cantidad ES el nuevo stock, no un delta.
	TypeAjuste MovementType = "AJUSTE"
)

// Precisión de redondeo: 4 decimales para stock, 2 para montos de dinero.
const (
	StockPrecision = 4
	MoneyPrecision = 2
)

// ParseMovementType valida y normaliza un tipo recibido por la API.
func ParseMovementType(s string) (MovementType, error) {
	switch MovementType(s) {
	case TypeEntrada, TypeSalida, TypeAjuste:
		return MovementType(s), nil
	}
	return "", &domain.ValidationError{Field: "tipo", Message: "debe ser ENTRADA, SALIDA o AJUSTE"}
}

// Valid indica si el tipo pertenece al enum.
func (t MovementType) Valid() bool {
	switch t {
	case TypeEntrada, TypeSalida, TypeAjuste:
		return true
	}
	return false
}

// Apply calcula el stock resultante de aplicar un movimiento de este tipo sobre
// `before`. Es la ÚNICA definición de la semántica ENTRADA/SALIDA/AJUSTE.
// Para SALIDA retorna ErrInsufficientStock si el resultado sería negativo.
func (t MovementType) Apply(before, cantidad decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case TypeEntrada:
		return RoundStock(before.Add(cantidad)), nil
	case TypeSalida:
		after := RoundStock(before.Sub(cantidad))
		if after.IsNegative() {
			return decimal.Zero, domain.ErrInsufficientStock
		}
		return after, nil
	case TypeAjuste:
		if cantidad.IsNegative() {
			return decimal.Zero, domain.ErrNegativeStock
		}
		return RoundStock(cantidad), nil
	}
	return decimal.Zero, domain.ErrInvalidInput
}

// SignedEffect devuelve el delta que este movimiento aporta a una suma de efectos.
// AJUSTE no tiene delta propio: reinicia la base (ver Replay).
func (t MovementType) SignedEffect(cantidad decimal.Decimal) decimal.Decimal {
	switch t {
	case TypeEntrada:
		return cantidad
	case TypeSalida:
		return cantidad.Neg()
	}
	return decimal.Zero
}

// Reverse calcula el stock resultante de deshacer un movimiento de este tipo.
// ENTRADA revertida resta la cantidad; SALIDA revertida la suma; AJUSTE revertido
// restaura la captura anterior del movimiento.
func (t MovementType) Reverse(current, cantidad, cantidadAnterior decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case TypeEntrada:
		after := RoundStock(current.Sub(cantidad))
		if after.IsNegative() {
			return decimal.Zero, domain.ErrNegativeStock
		}
		return after, nil
	case TypeSalida:
		return RoundStock(current.Add(cantidad)), nil
	case TypeAjuste:
		if cantidadAnterior.IsNegative() {
			return decimal.Zero, domain.ErrNegativeStock
		}
		return RoundStock(cantidadAnterior), nil
	}
	return decimal.Zero, domain.ErrInvalidInput
}

// RoundStock redondea una cantidad de stock a la precisión estándar (4 decimales).
func RoundStock(d decimal.Decimal) decimal.Decimal {
	return d.Round(StockPrecision)
}

// RoundMoney redondea un monto de dinero a 2 decimales.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPrecision)
}
