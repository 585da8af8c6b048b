package detector

import (
	"fmt"
	"strings"
)

type AlgType string

const (
	AlgTypeLOF              AlgType = "LOF"
	AlgTypeIsolationForest  AlgType = "ISOLATION_FOREST"
	AlgTypeRobustCovariance AlgType = "ROBUST_COVARIANCE"
	AlgTypeOneClassSVM      AlgType = "ONE_CLASS_SVM"
)

func ParseAlgType(s string) (AlgType, error) {
	t := AlgType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case AlgTypeLOF, AlgTypeIsolationForest, AlgTypeRobustCovariance, AlgTypeOneClassSVM:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown detector type %q", ErrConfig, s)
	}
}

type Config struct {
	// Strategies evaluated by a run, in report order
	Types []string `envconfig:"SOD_DETECTOR_TYPES" default:"ISOLATION_FOREST,ROBUST_COVARIANCE,LOF,ONE_CLASS_SVM"`
	// Expected outlier fraction used by every strategy without an override
	Fraction float64 `envconfig:"SOD_DETECTOR_FRACTION" default:"0.1"`
	// Per strategy overrides, e.g. ONE_CLASS_SVM:0.01
	Fractions map[string]float64 `envconfig:"SOD_DETECTOR_FRACTIONS" default:"ONE_CLASS_SVM:0.01"`
	Seed      int64              `envconfig:"SOD_DETECTOR_SEED" default:"1"`
}

func (c Config) AlgTypes() ([]AlgType, error) {
	types := make([]AlgType, 0, len(c.Types))
	for _, s := range c.Types {
		t, err := ParseAlgType(s)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func (c Config) FractionFor(t AlgType) float64 {
	for k, v := range c.Fractions {
		if AlgType(strings.ToUpper(strings.TrimSpace(k))) == t {
			return v
		}
	}
	return c.Fraction
}
