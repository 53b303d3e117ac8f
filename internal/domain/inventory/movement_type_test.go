package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	"github.com/distrifresh/almacen-api/internal/domain/inventory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseMovementType(t *testing.T) {
	for _, valido := range []string{"ENTRADA", "SALIDA", "AJUSTE"} {
		tp, err := inventory.ParseMovementType(valido)
		require.NoError(t, err)
		assert.True(t, tp.Valid())
	}
	for _, invalido := range []string{"", "entrada", "TRANSFER", "IN"} {
		_, err := inventory.ParseMovementType(invalido)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "tipo %q debe rechazarse", invalido)
	}
}

func TestApply_Entrada(t *testing.T) {
	after, err := inventory.TypeEntrada.Apply(dec("100"), dec("5"))
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("105")))
}

func TestApply_SalidaConStockSuficiente(t *testing.T) {
	after, err := inventory.TypeSalida.Apply(dec("50"), dec("5"))
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("45")))
}

func TestApply_SalidaInsuficiente(t *testing.T) {
	// stock=10, salida de 15 → debe fallar sin aplicar nada
	_, err := inventory.TypeSalida.Apply(dec("10"), dec("15"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestApply_AjusteEsAbsoluto(t *testing.T) {
	// AJUSTE fija el stock al valor de la cantidad, incluso a cero
	after, err := inventory.TypeAjuste.Apply(dec("80"), dec("0"))
	require.NoError(t, err)
	assert.True(t, after.IsZero())

	after, err = inventory.TypeAjuste.Apply(dec("80"), dec("12.5"))
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("12.5")))
}

func TestApply_RedondeoStockCuatroDecimales(t *testing.T) {
	after, err := inventory.TypeEntrada.Apply(dec("0.00005"), dec("0.00005"))
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("0.0001")), "el stock se redondea a 4 decimales, obtuvo %s", after)
}

func TestReverse(t *testing.T) {
	// Revertir una ENTRADA resta la cantidad
	after, err := inventory.TypeEntrada.Reverse(dec("105"), dec("5"), dec("100"))
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("100")))

	// Revertir una SALIDA la devuelve al stock
	after, err = inventory.TypeSalida.Reverse(dec("45"), dec("5"), dec("50"))
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("50")))

	// Revertir un AJUSTE restaura la captura anterior
	after, err = inventory.TypeAjuste.Reverse(dec("12.5"), dec("12.5"), dec("80"))
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("80")))

	// Revertir una ENTRADA que dejaría stock negativo debe fallar
	_, err = inventory.TypeEntrada.Reverse(dec("3"), dec("5"), dec("0"))
	assert.ErrorIs(t, err, domain.ErrNegativeStock)
}

func mov(tipo string, cantidad string, offset time.Duration) *entity.Movement {
	return &entity.Movement{
		Type:      tipo,
		Cantidad:  dec(cantidad),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset),
	}
}

func TestReplay_HistorialCompleto(t *testing.T) {
	// entrada 100, salida 30, ajuste a 50, entrada 10 → stock final 60
	movs := []*entity.Movement{
		mov("ENTRADA", "100", 0),
		mov("SALIDA", "30", time.Minute),
		mov("AJUSTE", "50", 2*time.Minute),
		mov("ENTRADA", "10", 3*time.Minute),
	}
	stock := inventory.Replay(movs)
	assert.True(t, stock.Equal(dec("60")), "esperaba 60, obtuvo %s", stock)
}

func TestReplay_SinMovimientos(t *testing.T) {
	assert.True(t, inventory.Replay(nil).IsZero())
}

func TestCoherent(t *testing.T) {
	ok := &entity.Movement{
		Type:             "ENTRADA",
		Cantidad:         dec("5"),
		CantidadAnterior: dec("100"),
		CantidadNueva:    dec("105"),
	}
	assert.True(t, inventory.Coherent(ok))

	// Captura posterior que no cuadra con el tipo
	mal := &entity.Movement{
		Type:             "SALIDA",
		Cantidad:         dec("5"),
		CantidadAnterior: dec("100"),
		CantidadNueva:    dec("105"),
	}
	assert.False(t, inventory.Coherent(mal))

	// Tipo fuera del enum
	raro := &entity.Movement{Type: "TRANSFER", Cantidad: dec("1")}
	assert.False(t, inventory.Coherent(raro))
}
