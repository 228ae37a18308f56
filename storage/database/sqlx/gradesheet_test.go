package sqlxrepos_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
	sqlxrepos "github.com/netaboodkw/teacherhubsite-sub002/storage/database/sqlx"
	"github.com/netaboodkw/teacherhubsite-sub002/tests"
)

func setup(t *testing.T) gradesheet.Repository {
	return sqlxrepos.NewSheetRepository(testutil.OpenDB(t))
}

func TestSheetRepository_CreateGet(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	now := time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC)

	structure, err := json.Marshal(testutil.SampleStructure())
	require.NoError(t, err)

	rec, err := repo.CreateSheet(ctx, gradesheet.Record{
		ID:        "sheet-1",
		Name:      "Physics",
		Structure: structure,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", rec.ID)
	assert.JSONEq(t, string(structure), string(rec.Structure))
	assert.Nil(t, rec.LegacyColumns)
	assert.True(t, now.Equal(rec.CreatedAt), "created_at = %v", rec.CreatedAt)

	_, err = repo.CreateSheet(ctx, gradesheet.Record{ID: "sheet-1", Name: "Dup", CreatedAt: now, UpdatedAt: now})
	assert.Error(t, err)

	_, err = repo.GetSheet(ctx, "unknown")
	assert.Equal(t, gradesheet.ErrNotFound, err)
}

func TestSheetRepository_Update(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	rec := testutil.CreateLegacySheet(t, repo, "sheet-1", "History", []gradesheet.LegacyColumn{{Name: "Essay", MaxScore: 3}})
	require.NotNil(t, rec.LegacyColumns)

	later := rec.UpdatedAt.Add(time.Hour)
	rec.Name = "World History"
	rec.Structure = json.RawMessage(`{"groups": []}`)
	rec.LegacyColumns = nil
	rec.UpdatedAt = later

	got, err := repo.UpdateSheet(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "World History", got.Name)
	assert.JSONEq(t, `{"groups": []}`, string(got.Structure))
	assert.Nil(t, got.LegacyColumns)
	assert.True(t, later.Equal(got.UpdatedAt))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	rec.ID = "unknown"
	_, err = repo.UpdateSheet(ctx, rec)
	assert.Equal(t, gradesheet.ErrNotFound, err)
}

func TestSheetRepository_QueryDelete(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	t0 := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	empty := gradesheet.Structure{Groups: []gradesheet.Group{}}
	testutil.CreateSheet(t, repo, "s1", "Math", empty, t0.Add(2*time.Hour))
	testutil.CreateSheet(t, repo, "s2", "Algebra", empty, t0)
	testutil.CreateSheet(t, repo, "s3", "Physics", empty, t0.Add(time.Hour))

	ids := func(recs []gradesheet.Record) []string {
		out := make([]string, 0, len(recs))
		for _, rec := range recs {
			out = append(out, rec.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "name", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []string{"s2", "s1", "s3"}},
		{name: "-created_at", ordering: []core.DBOrdering{{Field: "created_at"}}, want: []string{"s1", "s3", "s2"}},
		{
			name:     "unknown fields are ignored",
			ordering: []core.DBOrdering{{Field: "id; DROP TABLE gradesheet"}, {Field: "created_at", Ascending: true}},
			want:     []string{"s2", "s3", "s1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := repo.QuerySheets(ctx, tt.ordering...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(recs))
		})
	}

	require.NoError(t, repo.DeleteSheetsByID(ctx))
	require.NoError(t, repo.DeleteSheetsByID(ctx, "s1", "s3", "unknown"))
	recs, err := repo.QuerySheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids(recs))
}

func TestSheetRepository_QueryDefaultOrdering(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	t0 := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	empty := gradesheet.Structure{Groups: []gradesheet.Group{}}
	// inserted out of order; s-b & s-a share their creation time, s-0 sorts first by id but was created last
	testutil.CreateSheet(t, repo, "s-0", "Zoology", empty, t0.Add(2*time.Hour))
	testutil.CreateSheet(t, repo, "s-c", "Chemistry", empty, t0.Add(time.Hour))
	testutil.CreateSheet(t, repo, "s-b", "Biology", empty, t0)
	testutil.CreateSheet(t, repo, "s-a", "Art", empty, t0)

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "no ordering", want: []string{"s-a", "s-b", "s-c", "s-0"}},
		{name: "unknown fields only", ordering: []core.DBOrdering{{Field: "lol"}}, want: []string{"s-a", "s-b", "s-c", "s-0"}},
		{name: "ties broken by id", ordering: []core.DBOrdering{{Field: "created_at"}}, want: []string{"s-0", "s-c", "s-a", "s-b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := repo.QuerySheets(ctx, tt.ordering...)
			require.NoError(t, err)
			got := make([]string, 0, len(recs))
			for _, rec := range recs {
				got = append(got, rec.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
