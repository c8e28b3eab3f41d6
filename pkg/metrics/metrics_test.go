package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordCallIncrementsByLabel(t *testing.T) {
	c := NewCollector()
	c.RecordCall("Read", true)
	c.RecordCall("Read", false)
	c.RecordCall("Read", false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `toolcore_tool_calls_total{outcome="success",tool="Read"} 1`)
	assert.Contains(t, body, `toolcore_tool_calls_total{outcome="failure",tool="Read"} 2`)
}
