package lof

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/detector/knn"
	"github.com/go-sod/sodfilter/internal/geom"
)

func clusterWithOutliers(n int, outliers ...[]float64) *mat.Dense {
	rnd := rand.New(rand.NewSource(11))
	X := mat.NewDense(n+len(outliers), 2, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rnd.NormFloat64())
		X.Set(i, 1, rnd.NormFloat64())
	}
	for i, o := range outliers {
		X.SetRow(n+i, o)
	}
	return X
}

func TestLof_Scores(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "kd_euclidean", opts: []Option{WithAlg(AlgTypeKDTree)}},
		{name: "brute_euclidean", opts: []Option{WithAlg(AlgTypeBrute)}},
		{name: "kd_manhattan", opts: []Option{WithDistance(geom.DistanceFuncTypeManhattan), WithKNum(10)}},
	}
	X := clusterWithOutliers(100, []float64{8, 8}, []float64{-9, 7})
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l, err := New(test.opts...)
			if err != nil {
				t.Fatalf("New error: %v", err)
			}
			scores, err := l.Scores(context.Background(), X)
			if err != nil {
				t.Fatalf("Scores error: %v", err)
			}
			for _, idx := range []int{100, 101} {
				if scores[idx] > -2 {
					t.Errorf("row %d must have a large local outlier factor, score: %f", idx, scores[idx])
				}
			}
			var inlierMean float64
			for _, s := range scores[:100] {
				inlierMean += s
			}
			inlierMean /= 100
			if math.Abs(inlierMean+1) > 0.3 {
				t.Errorf("clustered rows must have a factor close to 1, mean score: %f", inlierMean)
			}
		})
	}
}

func TestLof_BackendsAgree(t *testing.T) {
	X := clusterWithOutliers(60, []float64{5, 5})
	kdLof, _ := New(WithAlg(AlgTypeKDTree), WithKNum(5))
	bruteLof, _ := New(WithAlg(AlgTypeBrute), WithKNum(5))
	s1, err := kdLof.Scores(context.Background(), X)
	if err != nil {
		t.Fatalf("kd scores: %v", err)
	}
	s2, err := bruteLof.Scores(context.Background(), X)
	if err != nil {
		t.Fatalf("brute scores: %v", err)
	}
	for i := range s1 {
		if math.Abs(s1[i]-s2[i]) > 1e-9 {
			t.Errorf("row %d, kd: %f, brute: %f", i, s1[i], s2[i])
		}
	}
}

func TestLof_Decision(t *testing.T) {
	X := clusterWithOutliers(98, []float64{10, 10}, []float64{-10, -10})
	l, _ := New()
	decision, err := l.Decision(context.Background(), X, 0.02)
	if err != nil {
		t.Fatalf("Decision error: %v", err)
	}
	if decision[98] >= 0 || decision[99] >= 0 {
		t.Errorf("planted rows must be outliers, decision: %f %f", decision[98], decision[99])
	}
}

func TestLof_Errors(t *testing.T) {
	if _, err := New(WithKNum(0)); !errors.Is(err, detector.ErrConfig) {
		t.Errorf("k=0, err got: %v, expected: %v", err, detector.ErrConfig)
	}
	if _, err := New(WithDistance("COSINE")); !errors.Is(err, detector.ErrConfig) {
		t.Errorf("unknown distance, err got: %v, expected: %v", err, detector.ErrConfig)
	}
	if _, err := New(WithAlg("BALL_TREE")); !errors.Is(err, detector.ErrConfig) {
		t.Errorf("unknown alg, err got: %v, expected: %v", err, detector.ErrConfig)
	}

	l, _ := New()
	if _, err := l.Decision(context.Background(), mat.NewDense(3, 1, []float64{1, 2, 3}), 0.6); !errors.Is(err, detector.ErrConfig) {
		t.Errorf("fraction 0.6, err got: %v, expected: %v", err, detector.ErrConfig)
	}
	if _, err := l.Scores(context.Background(), mat.NewDense(1, 2, []float64{1, 2})); !errors.Is(err, detector.ErrFit) {
		t.Errorf("single row, err got: %v, expected: %v", err, detector.ErrFit)
	}
}

func TestLof_SmallDataset(t *testing.T) {
	l, _ := New(WithKNum(20))
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 50})
	scores, err := l.Scores(context.Background(), X)
	if err != nil {
		t.Fatalf("Scores error: %v", err)
	}
	if len(scores) != 4 {
		t.Fatalf("scores length got: %d, expected: 4", len(scores))
	}
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) || s >= 0 {
			t.Errorf("row %d must have a finite negative score, got %f", i, s)
		}
	}
}

func TestWithoutSelf(t *testing.T) {
	tests := []struct {
		name     string
		in       []int
		self     int
		expected []int
	}{
		{name: "self_first", in: []int{3, 1, 2}, self: 3, expected: []int{1, 2}},
		{name: "self_missing", in: []int{1, 2, 4}, self: 3, expected: []int{1, 2}},
		{name: "self_last", in: []int{1, 2, 3}, self: 3, expected: []int{1, 2}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var nn []knn.Neighbor
			for _, idx := range test.in {
				nn = append(nn, knn.Neighbor{Index: idx})
			}
			got := withoutSelf(nn, test.self, 2)
			if len(got) != len(test.expected) {
				t.Fatalf("length got: %d, expected: %d", len(got), len(test.expected))
			}
			for i := range got {
				if got[i].Index != test.expected[i] {
					t.Errorf("neighbour %d got: %d, expected: %d", i, got[i].Index, test.expected[i])
				}
			}
		})
	}
}
