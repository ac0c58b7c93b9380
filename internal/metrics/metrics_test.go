package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware("/metrics"))
	r.GET("/api/requests/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/requests/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	body := scrape(t)
	assert.Contains(t, body, `ecofood_http_requests_total{method="GET",path="/api/requests/:id",status="204"}`)
	assert.NotContains(t, body, `path="/api/requests/abc"`)
}

func TestHandlerExposesLifecycleCounters(t *testing.T) {
	RecordTransition("approve", "ok")
	RecordStockDecrement(3)
	SetWebsocketClients(2)

	body := scrape(t)
	assert.Contains(t, body, `ecofood_requests_transitions_total{operation="approve",result="ok"} 1`)
	assert.Contains(t, body, "ecofood_products_units_dispatched_total 3")
	assert.Contains(t, body, "ecofood_websocket_clients 2")
}
