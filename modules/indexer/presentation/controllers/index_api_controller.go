package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/demoseed/treeseed/pkg/composables"
	"github.com/demoseed/treeseed/pkg/httpapi"
	"github.com/demoseed/treeseed/pkg/metrics"
	"github.com/demoseed/treeseed/pkg/middleware"
	"github.com/demoseed/treeseed/pkg/nestedset"
)

// bytesPerNode bounds the request body: maxNodes nodes of this size, plus
// bodySlack for the envelope.
const (
	bytesPerNode = 1024
	bodySlack    = 4096
)

type IndexAPIController struct {
	apiPrefix string
	maxNodes  int
	strict    bool
}

// NewIndexAPIController serves the indexer over HTTP. strict is the orphan
// policy used when a request does not pass ?strict.
func NewIndexAPIController(maxNodes int, strict bool) *IndexAPIController {
	return &IndexAPIController{
		apiPrefix: "/api/nestedset",
		maxNodes:  maxNodes,
		strict:    strict,
	}
}

func (c *IndexAPIController) Key() string {
	return c.apiPrefix
}

func (c *IndexAPIController) Register(r *mux.Router) {
	// Full paths on r: a prefix subrouter would answer a wrong method with 404
	// instead of the router's 405 handler.
	r.HandleFunc(c.apiPrefix+"/index", c.instrumentAPI("nestedset.index", c.Index)).Methods(http.MethodPost)
	r.HandleFunc(c.apiPrefix+"/verify", c.instrumentAPI("nestedset.verify", c.Verify)).Methods(http.MethodPost)

	r.HandleFunc("/health", c.instrumentAPI("health", c.Health)).Methods(http.MethodGet)
}

type indexRequest struct {
	Nodes []nestedset.Node `json:"nodes"`
}

type indexedNode struct {
	ID  int64 `json:"id"`
	Lft int   `json:"lft"`
	Rgt int   `json:"rgt"`
}

type indexResponse struct {
	Nodes   []indexedNode `json:"nodes"`
	Orphans []int64       `json:"orphans,omitempty"`
}

type verifyRequest struct {
	Nodes []struct {
		nestedset.Node
		Lft int `json:"lft"`
		Rgt int `json:"rgt"`
	} `json:"nodes"`
}

func (c *IndexAPIController) Index(w http.ResponseWriter, r *http.Request) {
	requestID := w.Header().Get(middleware.RequestIDHeader)

	var req indexRequest
	if !c.decode(w, r, &req, requestID) {
		return
	}
	if !c.checkSize(w, len(req.Nodes), requestID) {
		return
	}

	strict, err := parseStrict(r.URL.Query().Get("strict"), c.strict)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "invalid_query", err.Error())
		return
	}

	logger := composables.UseLogger(r.Context())
	start := time.Now()
	ix, err := nestedset.Build(req.Nodes, nestedset.Options{Strict: strict, Logger: logger})
	if err != nil {
		_, code := httpapi.StatusForIndexError(err)
		metrics.RecordIndexRun(code, 0, 0, time.Since(start))
		if status, _ := httpapi.WriteIndexError(w, err, requestMeta(requestID)); status >= 500 {
			logger.WithError(err).Error("index request failed")
		}
		return
	}
	metrics.RecordIndexRun("ok", len(ix.Intervals), len(ix.Tree.Orphans()), time.Since(start))

	out := indexResponse{Nodes: make([]indexedNode, 0, len(ix.Intervals)), Orphans: ix.Tree.Orphans()}
	for _, id := range ix.Intervals.IDsByLft() {
		iv := ix.Intervals[id]
		out.Nodes = append(out.Nodes, indexedNode{ID: id, Lft: iv.Lft, Rgt: iv.Rgt})
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *IndexAPIController) Verify(w http.ResponseWriter, r *http.Request) {
	requestID := w.Header().Get(middleware.RequestIDHeader)

	var req verifyRequest
	if !c.decode(w, r, &req, requestID) {
		return
	}
	if !c.checkSize(w, len(req.Nodes), requestID) {
		return
	}

	nodes := make([]nestedset.Node, 0, len(req.Nodes))
	res := make(nestedset.Result, len(req.Nodes))
	for _, n := range req.Nodes {
		nodes = append(nodes, n.Node)
		res[n.ID] = nestedset.Interval{Lft: n.Lft, Rgt: n.Rgt}
	}
	if err := nestedset.Verify(nodes, res); err != nil {
		_, _ = httpapi.WriteIndexError(w, err, requestMeta(requestID))
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (c *IndexAPIController) Health(w http.ResponseWriter, _ *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *IndexAPIController) decode(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	body := r.Body
	if c.maxNodes > 0 {
		body = http.MaxBytesReader(w, r.Body, int64(c.maxNodes)*bytesPerNode+bodySlack)
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIError(w, http.StatusRequestEntityTooLarge, requestID, "too_many_nodes",
				fmt.Sprintf("request body exceeds %d bytes, limit is %d nodes", tooLarge.Limit, c.maxNodes))
			return false
		}
		writeAPIError(w, http.StatusBadRequest, requestID, "invalid_body", fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func (c *IndexAPIController) checkSize(w http.ResponseWriter, n int, requestID string) bool {
	if c.maxNodes > 0 && n > c.maxNodes {
		writeAPIError(w, http.StatusRequestEntityTooLarge, requestID, "too_many_nodes",
			fmt.Sprintf("request has %d nodes, limit is %d", n, c.maxNodes))
		return false
	}
	return true
}

func parseStrict(raw string, def bool) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("strict must be a boolean, got %q", raw)
	}
	return v, nil
}

func requestMeta(requestID string) map[string]string {
	if requestID == "" {
		return nil
	}
	return map[string]string{"request_id": requestID}
}

func writeAPIError(w http.ResponseWriter, status int, requestID, code, message string) {
	_ = httpapi.WriteError(w, status, code, message, requestMeta(requestID))
}
