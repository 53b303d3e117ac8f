package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrProductNotFound   = errors.New("producto no encontrado")
	ErrMovementNotFound  = errors.New("movimiento no encontrado")
	ErrInactiveProduct   = errors.New("el producto está inactivo")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrMovementLinked    = errors.New("el movimiento está vinculado a una orden")
	ErrNegativeStock     = errors.New("la operación dejaría el stock en negativo")
)

// InsufficientStockError lleva las cifras que la UI necesita para corregir la petición.
// Envuelve ErrInsufficientStock para que errors.Is siga funcionando en los handlers.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Current     decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %q: disponible %s, solicitado %s",
		e.ProductName, e.Current.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// TimeWindowError indica que una edición o eliminación llegó fuera de la ventana permitida.
type TimeWindowError struct {
	Age   time.Duration
	Limit time.Duration
}

func (e *TimeWindowError) Error() string {
	return fmt.Sprintf("fuera de la ventana permitida: el movimiento tiene %.0f horas (límite %.0f)",
		e.Age.Hours(), e.Limit.Hours())
}

func (e *TimeWindowError) Unwrap() error { return ErrForbidden }

// ValidationError error de entrada con detalle por campo.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("campo %q: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
