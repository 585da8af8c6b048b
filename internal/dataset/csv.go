package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadCSV parses a header-less numeric CSV whose last column is the target.
func ReadCSV(r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var (
		data []float64
		y    []float64
		cols = -1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return Dataset{}, fmt.Errorf("%w: line %d: %v", ErrDataLoad, parseErr.Line, parseErr.Err)
			}
			return Dataset{}, fmt.Errorf("%w: %v", ErrDataLoad, err)
		}
		line, _ := reader.FieldPos(0)
		if cols < 0 {
			cols = len(record)
			if cols < 2 {
				return Dataset{}, fmt.Errorf("%w: line %d: need at least 2 columns, got %d", ErrDataLoad, line, cols)
			}
		}
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return Dataset{}, fmt.Errorf("%w: line %d column %d: %v", ErrDataLoad, line, i+1, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Dataset{}, fmt.Errorf("%w: line %d column %d: non-finite value %q", ErrDataLoad, line, i+1, field)
			}
			if i == cols-1 {
				y = append(y, v)
				continue
			}
			data = append(data, v)
		}
	}
	if len(y) == 0 {
		return Dataset{}, fmt.Errorf("%w: no rows", ErrDataLoad)
	}
	return New(mat.NewDense(len(y), cols-1, data), y)
}
