package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Split holds disjoint train and test parts that together cover the source rows.
type Split struct {
	Train Dataset
	Test  Dataset
}

// TrainTestSplit shuffles row indices with the seeded source and takes the first
// ceil(n*testRatio) of them as the test part.
func TrainTestSplit(ds Dataset, testRatio float64, seed int64) (Split, error) {
	trainIdx, testIdx, err := SplitIndices(ds.Rows(), testRatio, seed)
	if err != nil {
		return Split{}, err
	}
	return Split{
		Train: ds.Subset(trainIdx),
		Test:  ds.Subset(testIdx),
	}, nil
}

func SplitIndices(n int, testRatio float64, seed int64) ([]int, []int, error) {
	if testRatio <= 0 || testRatio >= 1 || math.IsNaN(testRatio) {
		return nil, nil, fmt.Errorf("%w: test ratio must be in (0, 1), got %v", ErrDataLoad, testRatio)
	}
	nTest := int(math.Ceil(float64(n) * testRatio))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, nil, fmt.Errorf("%w: %d rows can not be split with test ratio %v", ErrDataLoad, n, testRatio)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
