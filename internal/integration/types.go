package integration

type FilterRequest struct {
	Strategy string      `json:"strategy"`
	Fraction float64     `json:"fraction"`
	Rows     [][]float64 `json:"rows"`
	Targets  []float64   `json:"targets,omitempty"`
}

type FilterResponse struct {
	Strategy string      `json:"strategy"`
	Fraction float64     `json:"fraction"`
	Outliers int         `json:"outliers"`
	Mask     []bool      `json:"mask"`
	Rows     [][]float64 `json:"rows"`
	Targets  []float64   `json:"targets,omitempty"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return "unexpected status " + httpStatus(e.Code) + ": " + e.Body
}
