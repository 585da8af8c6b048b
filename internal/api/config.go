package api

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"SOD_API_REQUEST_TIMEOUT" default:"30s"`
	MaxRows        int           `envconfig:"SOD_API_MAX_ROWS" default:"10000"`

	// MaxOCSVMRows bounds ONE_CLASS_SVM requests, the solver holds an n*n kernel matrix. Zero disables the bound.
	MaxOCSVMRows int `envconfig:"SOD_API_MAX_OCSVM_ROWS" default:"2000"`
}
