package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/go-sod/sodfilter/internal/database"
	"github.com/go-sod/sodfilter/internal/report"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	sdb, err := storage.NewFromEnv(ctx, &storage.Config{FileName: filepath.Join(t.TempDir(), "reports.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sdb.Close(ctx)
	})
	return New(sdb)
}

func newReport(source string, mae float64) *report.Report {
	r := report.New(source, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), 1, 0.33)
	r.Baseline = report.Result{Strategy: report.BaselineName, TrainRows: 10, Retained: 10, Features: 2, MAE: mae}
	r.Results = []report.Result{{Strategy: "LOF", Fraction: 0.1, TrainRows: 10, Retained: 9, Features: 2, MAE: mae - 0.5}}
	return r
}

func TestDB_StoreAndFind(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first := newReport("a.csv", 3)
	second := newReport("a.csv", 4)
	third := newReport("b.csv", 5)
	for _, r := range []*report.Report{first, second, third} {
		require.NoError(t, db.Store(ctx, r))
	}

	sources, err := db.Sources()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, sources)

	all, err := db.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cheap, err := db.FindAll(ctx, func(r report.Report) bool { return r.Baseline.MAE < 4.5 })
	require.NoError(t, err)
	assert.Len(t, cheap, 2)

	bySource, err := db.FindBySource("a.csv", nil)
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	count, err := db.CountBySource("a.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := db.FindByID(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, third.Source, got.Source)
	assert.Equal(t, third.Results, got.Results)
	assert.True(t, third.CreatedAt.Equal(got.CreatedAt))
}

func TestDB_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	r := newReport("a.csv", 3)
	require.NoError(t, db.Store(ctx, r))
	require.NoError(t, db.Delete(ctx, r.ID))

	_, err := db.FindByID(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.Delete(ctx, r.ID), ErrNotFound)

	count, err := db.CountBySource("a.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDB_Empty(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	all, err := db.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	count, err := db.CountBySource("none")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = db.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDB_Prune(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var newest []*report.Report
	for i := 0; i < 5; i++ {
		r := newReport("a.csv", 3)
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, db.Store(ctx, r))
		if i >= 3 {
			newest = append(newest, r)
		}
	}
	require.NoError(t, db.Store(ctx, newReport("b.csv", 3)))

	require.NoError(t, db.Prune(ctx, "a.csv", 2))

	count, err := db.CountBySource("a.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	for _, r := range newest {
		_, err := db.FindByID(ctx, r.ID)
		assert.NoError(t, err)
	}

	count, err = db.CountBySource("b.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, db.Prune(ctx, "missing.csv", 1))
}
