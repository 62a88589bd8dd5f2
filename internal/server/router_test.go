package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-fieldops/internal/config"
	"github.com/diewo77/go-fieldops/internal/models"
	"github.com/diewo77/go-fieldops/internal/policy"
)

const testSecret = "test-secret"

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Page    int   `json:"page"`
		PerPage int   `json:"per_page"`
		Total   int64 `json:"total"`
		Pages   int64 `json:"pages"`
	} `json:"pagination"`
}

func newTestRouter(t *testing.T, service string) http.Handler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(append(models.InvoiceTables(), models.WorkOrderTables()...)...))

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{Service: service}
	cfg.JWTSecret = testSecret
	cfg.CORSOrigin = "*"
	rc, err := policy.NewRouterConfig(db, cfg, log)
	require.NoError(t, err)
	return NewRouter(rc)
}

func token(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func do(t *testing.T, h http.Handler, method, path, auth, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestHealthNeedsNoToken(t *testing.T) {
	h := newTestRouter(t, config.ServiceInvoices)
	w, _ := do(t, h, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Microservicio de Facturación funcionando", body.Message)
	_, err := time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
}

func TestGuardedRoutes(t *testing.T) {
	h := newTestRouter(t, config.ServiceInvoices)

	cases := []struct {
		name string
		auth string
		want string
	}{
		{"no header", "", "Token requerido"},
		{"bearer only", "Bearer ", "Token no proporcionado"},
		{"bare scheme", "Bearer", "Token no proporcionado"},
		{"expired", token(t, testSecret, time.Now().Add(-time.Hour)), "Token expirado"},
		{"wrong secret", token(t, "other", time.Now().Add(time.Hour)), "Token inválido"},
		{"garbage", "Bearer not.a.jwt", "Token inválido"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := do(t, h, http.MethodGet, "/api/invoices", tc.auth, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.want, env.Message)
		})
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestRouter(t, config.ServiceInvoices)

	w, env := do(t, h, http.MethodGet, "/api/nothing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Ruta no encontrada", env.Message)

	w, env = do(t, h, http.MethodPatch, "/api/invoices", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Método no permitido", env.Message)

	// work order routes are not mounted on the billing service
	w, _ = do(t, h, http.MethodGet, "/api/workorders", token(t, testSecret, time.Now().Add(time.Hour)), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceFlow(t *testing.T) {
	h := newTestRouter(t, config.ServiceInvoices)
	auth := token(t, testSecret, time.Now().Add(time.Hour))

	body := `{"numero_factura":"F-1","cliente_id":"C-1","cliente_nombre":"ACME",
		"items":[{"descripcion":"a","cantidad":2,"precio_unitario":50}]}`
	w, env := do(t, h, http.MethodPost, "/api/invoices", auth, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Factura creada exitosamente", env.Message)

	var inv models.Invoice
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.Equal(t, 100.0, inv.Subtotal)
	assert.InDelta(t, 19.0, inv.Tax, 1e-9)
	assert.Equal(t, "user-1", inv.UserID)
	assert.Equal(t, models.InvoiceStatusPending, inv.Status)

	w, env = do(t, h, http.MethodGet, "/api/invoices?page=1&per_page=5", auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)
	assert.Equal(t, int64(1), env.Pagination.Pages)

	w, env = do(t, h, http.MethodGet, "/api/invoices?page=922337203685477582&per_page=10", auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)
	assert.Equal(t, int64(1), env.Pagination.Pages)

	w, env = do(t, h, http.MethodGet, "/api/invoices?per_page=9223372036854775807", auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, math.MaxInt32, env.Pagination.PerPage)
	assert.Equal(t, int64(1), env.Pagination.Pages)

	w, env = do(t, h, http.MethodGet, "/api/invoices/"+inv.ID, auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.Message)

	w, env = do(t, h, http.MethodPatch, "/api/invoices/"+inv.ID+"/pay", auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Factura marcada como pagada", env.Message)
	var paid models.Invoice
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	w, env = do(t, h, http.MethodGet, "/api/invoices/summary", auth, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sum map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.Equal(t, "ACME", sum["cliente_top"])

	w, _ = do(t, h, http.MethodDelete, "/api/invoices/"+inv.ID, auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	w, env = do(t, h, http.MethodGet, "/api/invoices/"+inv.ID, auth, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Factura no encontrada", env.Message)
}

func TestInvoiceBadInput(t *testing.T) {
	h := newTestRouter(t, config.ServiceInvoices)
	auth := token(t, testSecret, time.Now().Add(time.Hour))

	w, env := do(t, h, http.MethodPost, "/api/invoices", auth, `{"numero_factura":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "JSON inválido", env.Message)

	w, env = do(t, h, http.MethodPost, "/api/invoices", auth, `{"numero_factura":"F-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Campo requerido: cliente_id", env.Message)

	w, env = do(t, h, http.MethodPost, "/api/invoices", auth, `{"numero_factura":"F-1"}`, "Accept-Language", "en-US,en;q=0.9")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Required field: cliente_id", env.Message)
}

func TestWorkOrderFlow(t *testing.T) {
	h := newTestRouter(t, config.ServiceWorkOrders)
	auth := token(t, testSecret, time.Now().Add(time.Hour))

	w, env := do(t, h, http.MethodPost, "/api/workorders", auth,
		`{"numero_orden":"OT-1","cliente_id":"C-1","cliente_nombre":"ACME","descripcion":"Fix pump"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var wo models.WorkOrder
	require.NoError(t, json.Unmarshal(env.Data, &wo))
	assert.Equal(t, models.WorkOrderStatusPending, wo.Status)
	assert.Equal(t, models.PriorityMedium, wo.Priority)

	base := "/api/workorders/" + wo.ID

	w, env = do(t, h, http.MethodPatch, base+"/status", auth, `{"estado":"terminada"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Estado inválido. Debe ser: pendiente, en_progreso, completada, cancelada", env.Message)

	w, env = do(t, h, http.MethodPatch, base+"/status", auth, `{"estado":"en_progreso"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Estado actualizado a en_progreso", env.Message)

	w, env = do(t, h, http.MethodPatch, base+"/assign", auth, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "tecnico_asignado es requerido", env.Message)

	w, _ = do(t, h, http.MethodPatch, base+"/assign", auth, `{"tecnico_asignado":"Ana"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, h, http.MethodPost, base+"/add-task", auth, `{"descripcion":"Check valves"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Tarea agregada exitosamente", env.Message)
	var withTask models.WorkOrder
	require.NoError(t, json.Unmarshal(env.Data, &withTask))
	require.Len(t, withTask.Tasks, 1)
	assert.Equal(t, "pendiente", withTask.Tasks[0].Status)
	assert.NotNil(t, withTask.StartedAt)
	require.NotNil(t, withTask.Technician)
	assert.Equal(t, "Ana", *withTask.Technician)

	w, env = do(t, h, http.MethodPost, "/api/workorders/missing/add-task", auth, `{"descripcion":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Orden de trabajo no encontrada", env.Message)

	w, env = do(t, h, http.MethodGet, "/api/workorders/summary", auth, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sum map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.EqualValues(t, 1, sum["total_ordenes"])
	assert.EqualValues(t, 1, sum["en_progreso"])
	assert.Equal(t, "Ana", sum["tecnico_top"])
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, config.ServiceWorkOrders)
	req := httptest.NewRequest(http.MethodOptions, "/api/workorders", nil)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsExposeRouteTemplates(t *testing.T) {
	h := newTestRouter(t, config.ServiceInvoices)
	auth := token(t, testSecret, time.Now().Add(time.Hour))
	do(t, h, http.MethodGet, "/api/invoices/abc", auth, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.Contains(w.Body.Bytes(), []byte(`route="/api/invoices/{id}"`)), w.Body.String())
}
