package experiment

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/go-sod/sodfilter/internal/detector"
)

// Plan is the optional TOML experiment file. Zero values keep the environment settings.
//
//	source = "housing.csv"
//	test_ratio = 0.33
//	seed = 1
//
//	[[strategy]]
//	type = "ONE_CLASS_SVM"
//	fraction = 0.01
type Plan struct {
	Source     string         `toml:"source"`
	TestRatio  float64        `toml:"test_ratio"`
	Seed       *int64         `toml:"seed"`
	Strategies []PlanStrategy `toml:"strategy"`
}

type PlanStrategy struct {
	Type     string  `toml:"type"`
	Fraction float64 `toml:"fraction"`
}

func LoadPlan(path string) (*Plan, error) {
	var plan Plan
	meta, err := toml.DecodeFile(path, &plan)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding experiment file %s: %v", detector.ErrConfig, path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys in experiment file %s: %v", detector.ErrConfig, path, undecoded)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *Plan) Validate() error {
	if p.TestRatio < 0 || p.TestRatio >= 1 {
		return fmt.Errorf("%w: test_ratio must be in (0, 1), got %v", detector.ErrConfig, p.TestRatio)
	}
	for i, s := range p.Strategies {
		if _, err := detector.ParseAlgType(s.Type); err != nil {
			return fmt.Errorf("strategy %d: %w", i, err)
		}
		if s.Fraction == 0 {
			continue
		}
		if err := detector.ValidateFraction(s.Fraction); err != nil {
			return fmt.Errorf("strategy %d: %w", i, err)
		}
	}
	return nil
}
