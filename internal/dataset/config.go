package dataset

import "time"

const DefaultSource = "https://raw.githubusercontent.com/jbrownlee/Datasets/master/housing.csv"

type Config struct {
	Source       string        `envconfig:"SOD_DATASET_SOURCE" default:"https://raw.githubusercontent.com/jbrownlee/Datasets/master/housing.csv"`
	TestRatio    float64       `envconfig:"SOD_DATASET_TEST_RATIO" default:"0.33"`
	Seed         int64         `envconfig:"SOD_DATASET_SEED" default:"1"`
	MaxBodyBytes int64         `envconfig:"SOD_DATASET_MAX_BODY_BYTES" default:"67108864"`
	FetchTimeout time.Duration `envconfig:"SOD_DATASET_FETCH_TIMEOUT" default:"1m"`
}
