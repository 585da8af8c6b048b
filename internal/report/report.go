// Package report describes the outcome of an outlier removal comparison run.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const BaselineName = "BASELINE"

// Result is the evaluation of one training set variant.
type Result struct {
	Strategy  string  `json:"strategy"`
	Fraction  float64 `json:"fraction,omitempty"`
	TrainRows int     `json:"trainRows"`
	Retained  int     `json:"retained"`
	Features  int     `json:"features"`
	MAE       float64 `json:"mae"`
	Err       string  `json:"error,omitempty"`
}

func (r Result) Outliers() int {
	return r.TrainRows - r.Retained
}

func (r Result) Failed() bool {
	return r.Err != ""
}

type Report struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	Seed      int64     `json:"seed"`
	TestRatio float64   `json:"testRatio"`
	TestRows  int       `json:"testRows"`
	Baseline  Result    `json:"baseline"`
	Results   []Result  `json:"results"`
}

func New(source string, createdAt time.Time, seed int64, testRatio float64) *Report {
	return &Report{
		ID:        uuid.New(),
		Source:    source,
		CreatedAt: createdAt,
		Seed:      seed,
		TestRatio: testRatio,
	}
}

// Best returns the variant with the lowest MAE, the baseline included.
func (r *Report) Best() Result {
	best := r.Baseline
	for _, res := range r.Results {
		if !res.Failed() && res.MAE < best.MAE {
			best = res
		}
	}
	return best
}

// WriteTo prints the shapes and errors of every variant.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	fmt.Fprintf(cw, "Train: (%d, %d) Test: (%d, %d)\n", r.Baseline.TrainRows, r.Baseline.Features, r.TestRows, r.Baseline.Features)
	writeResult(cw, r.Baseline)
	for _, res := range r.Results {
		writeResult(cw, res)
	}
	return cw.n, cw.err
}

func writeResult(w io.Writer, res Result) {
	if res.Failed() {
		fmt.Fprintf(w, "%s: %s\n", res.Strategy, res.Err)
		return
	}
	fmt.Fprintf(w, "%s (%d, %d) (%d,)\n", res.Strategy, res.Retained, res.Features, res.Retained)
	fmt.Fprintf(w, "MAE: %.3f\n", res.MAE)
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
