package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/go-sod/sodfilter/internal/httputil"
	"github.com/go-sod/sodfilter/internal/logging"
	"github.com/go-sod/sodfilter/internal/report"
	reportdb "github.com/go-sod/sodfilter/internal/report/database"
)

type (
	findReportsFn func(context.Context, reportdb.FilterFn) ([]report.Report, error)
	findReportFn  func(context.Context, uuid.UUID) (*report.Report, error)
)

// NewReportsHandler lists stored reports, or returns one by its id query parameter.
// The source query parameter narrows the list to one dataset.
func NewReportsHandler(cfg *Config, findAll findReportsFn, findByID findReportFn) (http.Handler, error) {
	if findAll == nil || findByID == nil {
		return nil, fmt.Errorf("report store is not set")
	}
	return &reportsHandler{cfg: cfg, findAll: findAll, findByID: findByID}, nil
}

type reportsHandler struct {
	cfg      *Config
	findAll  findReportsFn
	findByID findReportFn
}

func (h *reportsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	query := r.URL.Query()
	if raw := query.Get("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespBadRequest(ctx, w, `{"error": "invalid report id %q"}`, raw)
			return
		}
		rep, err := h.findByID(ctx, id)
		if errors.Is(err, reportdb.ErrNotFound) {
			httputil.RespNotFound(ctx, w, `{"error": "report %s not found"}`, id)
			return
		}
		if err != nil {
			httputil.RespInternalError(ctx, w, `{"error": "unable find report, %v"}`, err)
			return
		}
		httputil.RespJSON(ctx, w, http.StatusOK, rep)
		return
	}

	var filterFn reportdb.FilterFn
	if source := query.Get("source"); source != "" {
		filterFn = func(r report.Report) bool {
			return r.Source == source
		}
	}
	reports, err := h.findAll(ctx, filterFn)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "unable list reports, %v"}`, err)
		return
	}
	if reports == nil {
		reports = []report.Report{}
	}
	httputil.RespJSON(ctx, w, http.StatusOK, reports)
}

// HandleHealth answers every request with 200 while ctx is alive.
func HandleHealth(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx.Err() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"status": "ok"}`)
	})
}
