package experiment

type Config struct {
	MaxConcurrency int    `envconfig:"SOD_EXPERIMENT_MAX_CONCURRENCY" default:"4"`
	MaxStored      int    `envconfig:"SOD_EXPERIMENT_MAX_STORED" default:"100"`
	File           string `envconfig:"SOD_EXPERIMENT_FILE"`
}
