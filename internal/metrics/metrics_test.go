package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"go-rental-ledger/internal/inventory"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "InsufficientStock", Outcome(inventory.InsufficientStock("Tent", decimal.NewFromInt(2), decimal.Zero)))
	assert.Equal(t, "ImmutableRecord", Outcome(inventory.ImmutableRecord("purchase %d", 1)))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestRecordOperation(t *testing.T) {
	m := New("test")
	m.RecordOperation("checkout", nil)
	m.RecordOperation("checkout", nil)
	m.RecordOperation("checkout", inventory.Validation("bad"))

	body := scrape(t, m)
	assert.Contains(t, body, `test_ledger_operations_total{operation="checkout",outcome="success"} 2`)
	assert.Contains(t, body, `test_ledger_operations_total{operation="checkout",outcome="ValidationError"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New("test")
	m.RecordHTTPRequest("GET", "/api/kits", 200, 10*time.Millisecond)

	assert.Contains(t, scrape(t, m), `test_http_requests_total{method="GET",path="/api/kits",status="200"} 1`)
}
