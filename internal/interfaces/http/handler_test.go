package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrifresh/almacen-api/internal/application/inventory"
	"github.com/distrifresh/almacen-api/internal/application/orders"
	"github.com/distrifresh/almacen-api/internal/domain/entity"
	"github.com/distrifresh/almacen-api/internal/infrastructure/memory"
	apphttp "github.com/distrifresh/almacen-api/internal/interfaces/http"
	pkgjwt "github.com/distrifresh/almacen-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testAdminID   = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "almacen-api-test"
	testExpMin    = 60
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// buildApp arma la aplicación Fiber completa con repositorios en memoria.
func buildApp(store *memory.Store) *fiber.App {
	productRepo := memory.NewProductRepository(store)
	movementRepo := memory.NewMovementRepository(store)
	txRunner := memory.NewTxRunner(store)
	validator := inventory.NewStockValidator(productRepo, movementRepo)
	movementUC := inventory.NewMovementUseCase(txRunner, productRepo, movementRepo, validator)
	auditor := inventory.NewIntegrityAuditor(txRunner, productRepo, movementRepo)
	purchaseUC := orders.NewPurchaseOrderUseCase(txRunner, movementUC, validator, productRepo, memory.NewPurchaseOrderRepository(store))
	saleUC := orders.NewSaleOrderUseCase(txRunner, movementUC, validator, productRepo, memory.NewSaleOrderRepository(store))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		MovementUC:  movementUC,
		Auditor:     auditor,
		PurchaseUC:  purchaseUC,
		SaleUC:      saleUC,
		ProductRepo: productRepo,
		JWTSecret:   testJWTSecret,
	})
	return app
}

func seedProduct(store *memory.Store, stock string) *entity.Product {
	p := &entity.Product{
		ID:          uuid.New().String(),
		SKU:         "TOM-001",
		Name:        "Tomate",
		Active:      true,
		Stock:       dec(stock),
		StockMinimo: dec("2"),
	}
	store.SeedProduct(p)
	if !p.Stock.IsZero() {
		store.SeedMovement(&entity.Movement{
			ID:               uuid.New().String(),
			ProductID:        p.ID,
			Type:             "AJUSTE",
			Cantidad:         p.Stock,
			CantidadAnterior: dec("0"),
			CantidadNueva:    p.Stock,
			Motivo:           "carga inicial",
			CreatedBy:        testAdminID,
			CreatedAt:        time.Now().Add(-2 * time.Hour),
		})
	}
	return p
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, userID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Autenticación y autorización
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_SinTokenRechazada(t *testing.T) {
	app := buildApp(memory.NewStore())

	resp := doJSON(t, app, http.MethodGet, "/api/movements", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_TokenInvalidoRechazado(t *testing.T) {
	app := buildApp(memory.NewStore())

	resp := doJSON(t, app, http.MethodGet, "/api/movements", "Bearer no-es-un-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeleteMovement_EmpleadoRecibe403(t *testing.T) {
	app := buildApp(memory.NewStore())

	resp := doJSON(t, app, http.MethodDelete, "/api/movements/cualquiera", bearer(t, testUserID, apphttp.RoleEmpleado), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRepair_EmpleadoRecibe403(t *testing.T) {
	app := buildApp(memory.NewStore())

	resp := doJSON(t, app, http.MethodPost, "/api/movements/integrity/repair", bearer(t, testUserID, apphttp.RoleEmpleado), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateMovement_Entrada(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "5")
	app := buildApp(store)

	resp := doJSON(t, app, http.MethodPost, "/api/movements", bearer(t, testUserID, apphttp.RoleEmpleado), map[string]any{
		"productId": p.ID,
		"tipo":      "ENTRADA",
		"cantidad":  "100",
		"motivo":    "recepción de mercadería",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "5", body["stockAnterior"])
	assert.Equal(t, "105", body["stockNuevo"])
	assert.Equal(t, false, body["alertaStockBajo"])

	mov := body["movimiento"].(map[string]any)
	assert.Equal(t, "ENTRADA", mov["tipo"])
	assert.Equal(t, testUserID, mov["creadoPor"])
}

func TestCreateMovement_SalidaInsuficiente400(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "10")
	app := buildApp(store)

	resp := doJSON(t, app, http.MethodPost, "/api/movements", bearer(t, testUserID, apphttp.RoleEmpleado), map[string]any{
		"productId": p.ID,
		"tipo":      "SALIDA",
		"cantidad":  "15",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, p.ID, details["productId"])
	assert.Equal(t, "10", details["stockActual"])
	assert.Equal(t, "15", details["cantidadSolicitada"])
}

func TestCreateMovement_TipoInvalido400(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "10")
	app := buildApp(store)

	resp := doJSON(t, app, http.MethodPost, "/api/movements", bearer(t, testUserID, apphttp.RoleEmpleado), map[string]any{
		"productId": p.ID,
		"tipo":      "TRASLADO",
		"cantidad":  "5",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "VALIDATION", body["code"])
}

func TestListMovements_ConAgregados(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "0")
	app := buildApp(store)
	auth := bearer(t, testUserID, apphttp.RoleEmpleado)

	resp := doJSON(t, app, http.MethodPost, "/api/movements", auth, map[string]any{
		"productId": p.ID, "tipo": "ENTRADA", "cantidad": "100",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/movements", auth, map[string]any{
		"productId": p.ID, "tipo": "SALIDA", "cantidad": "30",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/movements?productId="+p.ID, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["movimientos"], 2)
	assert.Len(t, body["totalesPorTipo"], 2)
}

func TestGetMovement_Inexistente404(t *testing.T) {
	app := buildApp(memory.NewStore())

	resp := doJSON(t, app, http.MethodGet, "/api/movements/"+uuid.New().String(), bearer(t, testUserID, apphttp.RoleEmpleado), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegrityYRepair_FlujoCompleto(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "0")
	// Desviación artificial: el libro dice 40, la columna dice 99.
	store.SeedMovement(&entity.Movement{
		ID:               uuid.New().String(),
		ProductID:        p.ID,
		Type:             "ENTRADA",
		Cantidad:         dec("40"),
		CantidadAnterior: dec("0"),
		CantidadNueva:    dec("40"),
		CreatedBy:        testUserID,
		CreatedAt:        time.Now().Add(-time.Hour),
	})
	p.Stock = dec("99")
	store.SeedProduct(p)
	app := buildApp(store)

	resp := doJSON(t, app, http.MethodGet, "/api/movements/integrity", bearer(t, testUserID, apphttp.RoleEmpleado), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Len(t, body["productosDesviados"], 1)

	resp = doJSON(t, app, http.MethodPost, "/api/movements/integrity/repair", bearer(t, testAdminID, apphttp.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	require.Len(t, body["productosReparados"], 1)

	assert.True(t, store.ProductStock(p.ID).Equal(dec("40")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Órdenes y productos
// ──────────────────────────────────────────────────────────────────────────────

func TestPurchaseOrder_CicloCompleto(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "10")
	app := buildApp(store)
	auth := bearer(t, testUserID, apphttp.RoleEmpleado)

	resp := doJSON(t, app, http.MethodPost, "/api/orders/purchase", auth, map[string]any{
		"proveedor": "Agrícola del Sur",
		"items": []map[string]any{
			{"productId": p.ID, "cantidad": "40", "precioUnitario": "2.50"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	orderID := body["id"].(string)
	assert.Equal(t, "100", body["total"])
	assert.True(t, store.ProductStock(p.ID).Equal(dec("50")))

	resp = doJSON(t, app, http.MethodGet, "/api/orders/purchase/"+orderID, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/orders/purchase/"+orderID, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, store.ProductStock(p.ID).Equal(dec("10")))

	resp = doJSON(t, app, http.MethodGet, "/api/orders/purchase/"+orderID, auth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSaleOrder_SinStock400(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "10")
	app := buildApp(store)

	resp := doJSON(t, app, http.MethodPost, "/api/orders/sale", bearer(t, testUserID, apphttp.RoleEmpleado), map[string]any{
		"cliente": "Verdulería Centro",
		"items": []map[string]any{
			{"productId": p.ID, "cantidad": "15", "precioUnitario": "4.00"},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
}

func TestProducts_ListadoYBajoStock(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(store, "1") // stock 1 <= mínimo 2
	app := buildApp(store)
	auth := bearer(t, testUserID, apphttp.RoleEmpleado)

	resp := doJSON(t, app, http.MethodGet, "/api/products", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Len(t, body["productos"], 1)

	resp = doJSON(t, app, http.MethodGet, "/api/products/low-stock", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	require.Len(t, body["productos"], 1)
	producto := body["productos"].([]any)[0].(map[string]any)
	assert.Equal(t, true, producto["stockBajo"])

	resp = doJSON(t, app, http.MethodGet, "/api/products/"+p.ID, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/products/"+uuid.New().String(), auth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// El total del listado es el conteo sin paginar, no el tamaño de la página
// devuelta (igual que en el listado de movimientos).
func TestProducts_TotalEsElConteoSinPaginar(t *testing.T) {
	store := memory.NewStore()
	for i := 0; i < 3; i++ {
		seedProduct(store, "1")
	}
	app := buildApp(store)
	auth := bearer(t, testUserID, apphttp.RoleEmpleado)

	resp := doJSON(t, app, http.MethodGet, "/api/products?limit=2&page=1", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Len(t, body["productos"], 2)
	assert.Equal(t, float64(3), body["total"])

	resp = doJSON(t, app, http.MethodGet, "/api/products/low-stock?limit=2&page=1", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	require.Len(t, body["productos"], 2)
	assert.Equal(t, float64(3), body["total"])
}
