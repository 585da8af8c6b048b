package lof

import (
	"fmt"

	"github.com/go-sod/sodfilter/internal/detector/knn"
	"github.com/go-sod/sodfilter/internal/detector/knn/brute"
	"github.com/go-sod/sodfilter/internal/detector/knn/kd"
	"github.com/go-sod/sodfilter/internal/geom"
)

const (
	MinKNum     = 1
	DefaultKNum = 20
)

type AlgType string

const (
	AlgTypeKDTree AlgType = "KD_TREE"
	AlgTypeBrute  AlgType = "BRUTE"
)

type Config struct {
	KNum           int                   `envconfig:"SOD_LOF_K_NUM" default:"20"`
	MetricFuncType geom.DistanceFuncType `envconfig:"SOD_LOF_DISTANCE_FUNC" default:"EUCLIDEAN"`
	AlgType        AlgType               `envconfig:"SOD_LOF_ALG_TYPE" default:"KD_TREE"`
}

func NNFor(a AlgType, distFn geom.DistanceFn) (knn.Alg, error) {
	switch a {
	case AlgTypeBrute:
		return brute.NewBruteAlg(distFn), nil
	case AlgTypeKDTree:
		return kd.NewKDAlg(distFn), nil
	default:
		return nil, fmt.Errorf("unable to create alg with alg type %s", a)
	}
}
