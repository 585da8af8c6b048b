// Package api serves outlier filtering and stored reports over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gonum.org/v1/gonum/mat"

	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/filter"
	"github.com/go-sod/sodfilter/internal/httputil"
	"github.com/go-sod/sodfilter/internal/logging"
)

const maxBodyBytes = 64 * 1024 * 1024

// ScorerLookupFn returns the scorer factory registered for a strategy.
type ScorerLookupFn func(detector.AlgType) (detector.ProvideFn, bool)

type filterRequest struct {
	Strategy string      `json:"strategy"`
	Fraction float64     `json:"fraction"`
	Rows     [][]float64 `json:"rows"`
	Targets  []float64   `json:"targets,omitempty"`
}

type filterResponse struct {
	Strategy string      `json:"strategy"`
	Fraction float64     `json:"fraction"`
	Outliers int         `json:"outliers"`
	Mask     []bool      `json:"mask"`
	Rows     [][]float64 `json:"rows"`
	Targets  []float64   `json:"targets,omitempty"`
}

func NewFilterHandler(cfg *Config, lookup ScorerLookupFn) (http.Handler, error) {
	if lookup == nil {
		return nil, fmt.Errorf("scorer lookup is not set")
	}
	return &filterHandler{
		cfg:    cfg,
		lookup: lookup,
	}, nil
}

type filterHandler struct {
	cfg    *Config
	lookup ScorerLookupFn
}

func (h *filterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	if t := r.Header.Get("content-type"); len(t) < 16 || t[:16] != "application/json" {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		logger.Debug(fmt.Sprintf(`{"error": "%v"}`, "content-type is not application/json"))
		_, _ = fmt.Fprintf(w, `{"error": "%v"}`, "content-type is not application/json")
		return
	}

	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(&req); err != nil {
		httputil.DecodeErr(ctx, w, err)
		return
	}

	if len(req.Rows) > h.cfg.MaxRows {
		httputil.RespBadRequest(ctx, w, `{"error": "too many rows, max allowed is %d"}`, h.cfg.MaxRows)
		return
	}
	X, err := matrixOf(req.Rows)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}
	y := req.Targets
	if len(y) == 0 {
		y = make([]float64, len(req.Rows))
	}

	algType, err := detector.ParseAlgType(req.Strategy)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}
	if algType == detector.AlgTypeOneClassSVM && h.cfg.MaxOCSVMRows > 0 && len(req.Rows) > h.cfg.MaxOCSVMRows {
		httputil.RespBadRequest(ctx, w, `{"error": "too many rows for %s, max allowed is %d"}`, algType, h.cfg.MaxOCSVMRows)
		return
	}
	provide, ok := h.lookup(algType)
	if !ok {
		httputil.RespBadRequest(ctx, w, `{"error": "strategy %s is not configured"}`, algType)
		return
	}
	scorer, err := provide()
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "unable create scorer, %v"}`, err)
		return
	}
	stage, err := filter.New(scorer, req.Fraction)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}

	filteredX, filteredY, mask, err := stage.Apply(ctx, X, y)
	switch {
	case errors.Is(err, detector.ErrConfig):
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	case errors.Is(err, detector.ErrFit):
		httputil.RespUnprocessable(ctx, w, `{"error": "%v"}`, err)
		return
	case err != nil:
		httputil.RespInternalError(ctx, w, `{"error": "filter processing error, %v"}`, err)
		return
	}

	resp := filterResponse{
		Strategy: string(algType),
		Fraction: req.Fraction,
		Outliers: mask.Outliers(),
		Mask:     mask,
		Rows:     rowsOf(filteredX),
	}
	if len(req.Targets) > 0 {
		resp.Targets = filteredY
	}
	httputil.RespJSON(ctx, w, http.StatusOK, resp)
}

func matrixOf(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("rows must not be empty")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func rowsOf(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}
