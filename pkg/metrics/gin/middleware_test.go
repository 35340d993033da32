package gin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/arkstudy/ms3-contenido/pkg/metrics"
)

func TestPrometheusMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(PrometheusMiddleware("mw-test"))
	r.GET("/materiales/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/materiales/a", "/materiales/b", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(
		metrics.RequestsTotal.WithLabelValues("mw-test", "GET /materiales/:id", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.RequestsTotal.WithLabelValues("mw-test", "GET unmatched", "404")))
}
