package ocsvm

type Config struct {
	// RBF kernel coefficient, 0 selects 1/(features*Var(X))
	Gamma float64 `envconfig:"SOD_OCSVM_GAMMA" default:"0"`
	// Stopping tolerance on the maximal KKT violation
	Tolerance float64 `envconfig:"SOD_OCSVM_TOLERANCE" default:"0.001"`
	MaxIter   int     `envconfig:"SOD_OCSVM_MAX_ITER" default:"1000000"`
}
