package iforest

type Config struct {
	// Number of isolation trees
	Estimators int `envconfig:"SOD_IFOREST_ESTIMATORS" default:"100"`
	// Rows drawn without replacement for every tree, capped by the number of rows
	MaxSamples int `envconfig:"SOD_IFOREST_MAX_SAMPLES" default:"256"`
}
