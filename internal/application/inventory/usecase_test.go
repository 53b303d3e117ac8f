package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrifresh/almacen-api/internal/application/inventory"
	"github.com/distrifresh/almacen-api/internal/domain"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	domaininv "github.com/distrifresh/almacen-api/internal/domain/inventory"
	"github.com/distrifresh/almacen-api/internal/domain/repository"
	"github.com/distrifresh/almacen-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testUserID  = "user-1"
	testAdminID = "admin-1"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// newUseCase arma el caso de uso sobre repositorios en memoria.
func newUseCase(store *memory.Store) *inventory.MovementUseCase {
	productRepo := memory.NewProductRepository(store)
	movementRepo := memory.NewMovementRepository(store)
	validator := inventory.NewStockValidator(productRepo, movementRepo)
	return inventory.NewMovementUseCase(memory.NewTxRunner(store), productRepo, movementRepo, validator)
}

func seedProduct(store *memory.Store, stock, minimo string) *entity.Product {
	p := &entity.Product{
		ID:          uuid.New().String(),
		SKU:         "TOM-001",
		Name:        "Tomate",
		Active:      true,
		Stock:       dec(stock),
		StockMinimo: dec(minimo),
	}
	store.SeedProduct(p)
	return p
}

// seedStockedProduct producto cuyo stock inicial está respaldado por un AJUSTE en
// el libro, como ocurre con la carga inicial real. Necesario para las salidas: el
// validador re-deriva el stock reproduciendo el historial, no lee la columna.
func seedStockedProduct(store *memory.Store, stock, minimo string) *entity.Product {
	p := seedProduct(store, stock, minimo)
	store.SeedMovement(&entity.Movement{
		ID:               uuid.New().String(),
		ProductID:        p.ID,
		Type:             string(domaininv.TypeAjuste),
		Cantidad:         dec(stock),
		CantidadAnterior: dec("0"),
		CantidadNueva:    dec(stock),
		Motivo:           "carga inicial",
		CreatedBy:        testAdminID,
		CreatedAt:        time.Now().Add(-2 * time.Hour),
	})
	return p
}

func entradaInput(productID string, cantidad string) inventory.CreateMovementInput {
	return inventory.CreateMovementInput{
		ProductID: productID,
		Tipo:      domaininv.TypeEntrada,
		Cantidad:  dec(cantidad),
		Motivo:    "recepción de mercadería",
		UserID:    testUserID,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateMovement
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateMovement_EntradaSumaStock(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "2")
	uc := newUseCase(store)

	res, err := uc.CreateMovement(context.Background(), entradaInput(p.ID, "100"))
	require.NoError(t, err)

	assert.True(t, res.StockAnterior.Equal(dec("5")))
	assert.True(t, res.StockNuevo.Equal(dec("105")))
	assert.False(t, res.AlertaStockBajo)
	assert.True(t, store.ProductStock(p.ID).Equal(dec("105")))

	// Capturas antes/después en el movimiento registrado.
	assert.True(t, res.Movement.CantidadAnterior.Equal(dec("5")))
	assert.True(t, res.Movement.CantidadNueva.Equal(dec("105")))
	assert.Equal(t, testUserID, res.Movement.CreatedBy)
}

func TestCreateMovement_SalidaInsuficienteNoMutaNada(t *testing.T) {
	store := memory.NewStore()
	p := seedStockedProduct(store, "10", "2")
	uc := newUseCase(store)

	_, err := uc.CreateMovement(context.Background(), inventory.CreateMovementInput{
		ProductID: p.ID,
		Tipo:      domaininv.TypeSalida,
		Cantidad:  dec("15"),
		UserID:    testUserID,
	})
	require.Error(t, err)

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Current.Equal(dec("10")))
	assert.True(t, insufficient.Requested.Equal(dec("15")))

	// Ni movimiento nuevo ni cambio de stock: solo queda la carga inicial.
	assert.Equal(t, 1, store.MovementCount())
	assert.True(t, store.ProductStock(p.ID).Equal(dec("10")))
}

func TestCreateMovement_SalidaHastaElMinimoDisparaAlerta(t *testing.T) {
	store := memory.NewStore()
	p := seedStockedProduct(store, "10", "4")
	uc := newUseCase(store)

	res, err := uc.CreateMovement(context.Background(), inventory.CreateMovementInput{
		ProductID: p.ID,
		Tipo:      domaininv.TypeSalida,
		Cantidad:  dec("6"),
		Motivo:    "venta mostrador",
		UserID:    testUserID,
	})
	require.NoError(t, err)

	assert.True(t, res.StockNuevo.Equal(dec("4")))
	assert.True(t, res.AlertaStockBajo, "stock en el mínimo exacto debe alertar")
}

func TestCreateMovement_AjusteFijaStockAbsoluto(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "50", "2")
	uc := newUseCase(store)

	res, err := uc.CreateMovement(context.Background(), inventory.CreateMovementInput{
		ProductID: p.ID,
		Tipo:      domaininv.TypeAjuste,
		Cantidad:  dec("20"),
		Motivo:    "conteo físico",
		UserID:    testUserID,
	})
	require.NoError(t, err)

	assert.True(t, res.StockNuevo.Equal(dec("20")))
	assert.True(t, store.ProductStock(p.ID).Equal(dec("20")))
}

func TestCreateMovement_AjusteNegativoRechazado(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "50", "2")
	uc := newUseCase(store)

	_, err := uc.CreateMovement(context.Background(), inventory.CreateMovementInput{
		ProductID: p.ID,
		Tipo:      domaininv.TypeAjuste,
		Cantidad:  dec("-3"),
		UserID:    testUserID,
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, store.MovementCount())
}

func TestCreateMovement_ProductoInactivo(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "10", "2")
	p.Active = false
	store.SeedProduct(p)
	uc := newUseCase(store)

	_, err := uc.CreateMovement(context.Background(), entradaInput(p.ID, "5"))
	require.ErrorIs(t, err, domain.ErrInactiveProduct)
}

func TestCreateMovement_ProductoInexistente(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)

	_, err := uc.CreateMovement(context.Background(), entradaInput(uuid.New().String(), "5"))
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

// Dos salidas concurrentes que individualmente caben pero juntas no: la fila del
// producto serializa a los escritores y la segunda debe fallar por suficiencia,
// nunca dejar el stock negativo.
func TestCreateMovement_SalidasConcurrentesNoDejanStockNegativo(t *testing.T) {
	store := memory.NewStore()
	p := seedStockedProduct(store, "10", "1")
	uc := newUseCase(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.CreateMovement(context.Background(), inventory.CreateMovementInput{
				ProductID: p.ID,
				Tipo:      domaininv.TypeSalida,
				Cantidad:  dec("6"),
				UserID:    testUserID,
			})
		}(i)
	}
	wg.Wait()

	var okCount, failCount int
	for _, err := range errs {
		if err == nil {
			okCount++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
			failCount++
		}
	}
	assert.Equal(t, 1, okCount, "exactamente una salida debe aplicarse")
	assert.Equal(t, 1, failCount)
	assert.True(t, store.ProductStock(p.ID).Equal(dec("4")))
	assert.Equal(t, 2, store.MovementCount(), "carga inicial más la salida aplicada")
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateMovement
// ──────────────────────────────────────────────────────────────────────────────

func createMovementAt(t *testing.T, store *memory.Store, uc *inventory.MovementUseCase, productID string, age time.Duration) *entity.Movement {
	t.Helper()
	res, err := uc.CreateMovement(context.Background(), entradaInput(productID, "10"))
	require.NoError(t, err)
	// Retrocede la fecha de creación para simular antigüedad.
	mov := *res.Movement
	mov.CreatedAt = time.Now().Add(-age)
	require.NoError(t, memory.NewMovementRepository(store).Delete(mov.ID))
	store.SeedMovement(&mov)
	return &mov
}

func strPtr(s string) *string { return &s }

func repositoryFilter(productID string) repository.MovementFilter {
	return repository.MovementFilter{ProductID: &productID, Limit: 50}
}

func TestUpdateMovement_AutorDentroDeVentana(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, time.Hour)

	updated, err := uc.UpdateMovement(context.Background(), inventory.Actor{UserID: testUserID}, mov.ID, strPtr("motivo corregido"), nil)
	require.NoError(t, err)
	assert.Equal(t, "motivo corregido", updated.Motivo)
	assert.Equal(t, mov.NumeroGuia, updated.NumeroGuia, "número de guía no enviado queda intacto")
}

func TestUpdateMovement_NoAutorRechazado(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, time.Hour)

	_, err := uc.UpdateMovement(context.Background(), inventory.Actor{UserID: "otro-usuario"}, mov.ID, strPtr("x"), nil)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateMovement_FueraDeVentanaNoAdmin(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, 25*time.Hour)

	_, err := uc.UpdateMovement(context.Background(), inventory.Actor{UserID: testUserID}, mov.ID, strPtr("tarde"), nil)

	var window *domain.TimeWindowError
	require.ErrorAs(t, err, &window)
	assert.Equal(t, inventory.UpdateWindow, window.Limit)
}

// Dos ediciones concurrentes de campos distintos: con la fila del movimiento
// bloqueada dentro de la transacción, ambas deben quedar aplicadas en vez de
// que la última lectura pise a la otra.
func TestUpdateMovement_EdicionesConcurrentesNoSePisan(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, time.Hour)

	actor := inventory.Actor{UserID: testUserID}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := uc.UpdateMovement(context.Background(), actor, mov.ID, strPtr("motivo nuevo"), nil)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := uc.UpdateMovement(context.Background(), actor, mov.ID, nil, strPtr("G-00099"))
		assert.NoError(t, err)
	}()
	wg.Wait()

	final, err := memory.NewMovementRepository(store).GetByID(mov.ID)
	require.NoError(t, err)
	assert.Equal(t, "motivo nuevo", final.Motivo)
	assert.Equal(t, "G-00099", final.NumeroGuia)
}

func TestUpdateMovement_AdminSinVentana(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, 72*time.Hour)

	updated, err := uc.UpdateMovement(context.Background(), inventory.Actor{UserID: testAdminID, Admin: true}, mov.ID, nil, strPtr("G-00042"))
	require.NoError(t, err)
	assert.Equal(t, "G-00042", updated.NumeroGuia)
}

// ──────────────────────────────────────────────────────────────────────────────
// DeleteMovement
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteMovement_RevierteElStock(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, time.Hour)

	err := uc.DeleteMovement(context.Background(), inventory.Actor{UserID: testAdminID, Admin: true}, mov.ID)
	require.NoError(t, err)

	assert.True(t, store.ProductStock(p.ID).Equal(dec("5")), "la entrada eliminada debe restarse")
	assert.Equal(t, 0, store.MovementCount())
}

func TestDeleteMovement_SoloAdmin(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, time.Hour)

	err := uc.DeleteMovement(context.Background(), inventory.Actor{UserID: testUserID}, mov.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 1, store.MovementCount())
}

func TestDeleteMovement_FueraDeVentana(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, 49*time.Hour)

	err := uc.DeleteMovement(context.Background(), inventory.Actor{UserID: testAdminID, Admin: true}, mov.ID)

	var window *domain.TimeWindowError
	require.ErrorAs(t, err, &window)
	assert.Equal(t, inventory.DeleteWindow, window.Limit)
}

// barreraTxRunner retiene cada transacción hasta que todos los llamadores hayan
// terminado sus lecturas previas, forzando el peor entrelazado posible entre
// operaciones simultáneas sobre el mismo movimiento.
type barreraTxRunner struct {
	inner   inventory.TxRunner
	entered *sync.WaitGroup
}

func (r *barreraTxRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.ProductRepository) error) error {
	r.entered.Done()
	r.entered.Wait()
	return r.inner.Run(ctx, fn)
}

// Dos deletes simultáneos del mismo movimiento: ambos pasan la lectura previa,
// pero solo el primero en tomar la fila del producto debe revertir; el segundo
// tiene que re-leer el movimiento dentro de la tx, encontrarlo eliminado y
// abortar. Revertir dos veces dejaría el stock por debajo del libro.
func TestDeleteMovement_DobleDeleteConcurrenteRevierteUnaVez(t *testing.T) {
	store := memory.NewStore()
	p := seedStockedProduct(store, "10", "1")
	mov := createMovementAt(t, store, newUseCase(store), p.ID, time.Hour)

	var entered sync.WaitGroup
	entered.Add(2)
	productRepo := memory.NewProductRepository(store)
	movementRepo := memory.NewMovementRepository(store)
	validator := inventory.NewStockValidator(productRepo, movementRepo)
	runner := &barreraTxRunner{inner: memory.NewTxRunner(store), entered: &entered}
	uc := inventory.NewMovementUseCase(runner, productRepo, movementRepo, validator)

	admin := inventory.Actor{UserID: testAdminID, Admin: true}
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = uc.DeleteMovement(context.Background(), admin, mov.ID)
		}(i)
	}
	wg.Wait()

	var okCount, failCount int
	for _, err := range errs {
		if err == nil {
			okCount++
		} else {
			require.ErrorIs(t, err, domain.ErrMovementNotFound)
			failCount++
		}
	}
	assert.Equal(t, 1, okCount, "exactamente un delete debe aplicarse")
	assert.Equal(t, 1, failCount)
	assert.True(t, store.ProductStock(p.ID).Equal(dec("10")), "la entrada se revierte una sola vez")
	assert.Equal(t, 1, store.MovementCount(), "solo queda la carga inicial")
}

func TestDeleteMovement_VinculadoAOrdenRechazado(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5", "1")
	uc := newUseCase(store)
	mov := createMovementAt(t, store, uc, p.ID, time.Hour)

	orderID := uuid.New().String()
	mov.PurchaseOrderID = &orderID
	require.NoError(t, memory.NewMovementRepository(store).Delete(mov.ID))
	store.SeedMovement(mov)

	err := uc.DeleteMovement(context.Background(), inventory.Actor{UserID: testAdminID, Admin: true}, mov.ID)
	require.ErrorIs(t, err, domain.ErrMovementLinked)
}

// ──────────────────────────────────────────────────────────────────────────────
// GetMovement / ListMovements
// ──────────────────────────────────────────────────────────────────────────────

func TestGetMovement_ConVentanaDeContexto(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "0", "1")
	uc := newUseCase(store)

	var ids []string
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 9; i++ {
		store.SeedMovement(&entity.Movement{
			ID:               uuid.New().String(),
			ProductID:        p.ID,
			Type:             string(domaininv.TypeEntrada),
			Cantidad:         dec("1"),
			CantidadAnterior: decimal.NewFromInt(int64(i)),
			CantidadNueva:    decimal.NewFromInt(int64(i + 1)),
			CreatedBy:        testUserID,
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		})
		last, _ := memory.NewMovementRepository(store).ListByProductAsc(p.ID)
		ids = append(ids, last[len(last)-1].ID)
	}

	detail, err := uc.GetMovement(context.Background(), ids[4])
	require.NoError(t, err)
	require.Len(t, detail.Anteriores, 3)
	require.Len(t, detail.Posteriores, 3)
	assert.Equal(t, ids[1], detail.Anteriores[0].ID)
	assert.Equal(t, ids[5], detail.Posteriores[0].ID)
}

func TestListMovements_AgregadosPorTipo(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "0", "1")
	uc := newUseCase(store)

	ctx := context.Background()
	_, err := uc.CreateMovement(ctx, entradaInput(p.ID, "100"))
	require.NoError(t, err)
	_, err = uc.CreateMovement(ctx, entradaInput(p.ID, "50"))
	require.NoError(t, err)
	_, err = uc.CreateMovement(ctx, inventory.CreateMovementInput{
		ProductID: p.ID,
		Tipo:      domaininv.TypeSalida,
		Cantidad:  dec("30"),
		UserID:    testUserID,
	})
	require.NoError(t, err)

	list, err := uc.ListMovements(ctx, repositoryFilter(p.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)

	require.Len(t, list.Aggregates, 2)
	assert.Equal(t, "ENTRADA", list.Aggregates[0].Type)
	assert.Equal(t, int64(2), list.Aggregates[0].Count)
	assert.True(t, list.Aggregates[0].Cantidad.Equal(dec("150")))
	assert.Equal(t, "SALIDA", list.Aggregates[1].Type)
	assert.True(t, list.Aggregates[1].Cantidad.Equal(dec("30")))
}
