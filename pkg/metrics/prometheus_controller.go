package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/demoseed/treeseed/pkg/server"
)

// DefaultPath is where serve exposes metrics unless PROMETHEUS_METRICS_PATH says otherwise.
const DefaultPath = "/debug/prometheus"

var _ server.Controller = (*PrometheusController)(nil)

// PrometheusController exposes the indexer counters in the Prometheus text format.
type PrometheusController struct {
	path     string
	gatherer prometheus.Gatherer
}

// NewPrometheusController serves the default registry, where every treeseed
// collector is registered through promauto.
func NewPrometheusController(path string) *PrometheusController {
	return NewPrometheusControllerFor(path, prometheus.DefaultGatherer)
}

// NewPrometheusControllerFor serves g instead of the default registry.
func NewPrometheusControllerFor(path string, g prometheus.Gatherer) *PrometheusController {
	if path == "" {
		path = DefaultPath
	}
	return &PrometheusController{path: path, gatherer: g}
}

func (c *PrometheusController) Key() string {
	return c.path
}

// Register mounts the scrape endpoint on r. Collection errors are reported in
// the response instead of failing the scrape.
func (c *PrometheusController) Register(r *mux.Router) {
	h := promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
	r.Handle(c.path, h).Methods(http.MethodGet)
}
