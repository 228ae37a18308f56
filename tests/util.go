package testutil

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
	logsvc "github.com/netaboodkw/teacherhubsite-sub002/services/logger"
	"github.com/netaboodkw/teacherhubsite-sub002/storage/database"
)

// Config returns a test configuration backed by an in-memory sqlite database.
func Config() *core.Config {
	return &core.Config{
		TestMode: true,
		AppName:  "TeacherHub",
		Env:      "TEST",
		Build:    "test",
		Server: core.ServerConfig{
			Host:           "localhost",
			DisableReqLogs: true,
		},
		Database: core.DatabaseConfig{
			Engine: "sqlite",
			DSN:    ":memory:",
		},
	}
}

// OpenDB opens a fresh migrated in-memory database, closed when the test ends.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(Config())
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("OpenDB() failed to migrate: %v", err)
	}
	return db
}

// NewLogger returns a logger that prints nothing & never reports.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), Config())
}

// SampleStructure is a two group structure:
//
//	A: a1 Score 5, a2 Score 10, a-total GroupInternalSum(a1, a2) = 15
//	B: b1 Score 20, b-sum GroupSum(A:a-total) = 15, b-grand GrandTotal(A:a-total + b1) = 35
func SampleStructure() gradesheet.Structure {
	return gradesheet.Structure{
		Groups: []gradesheet.Group{
			{
				ID: "A", Name: "Coursework", Color: gradesheet.Palette[0],
				Columns: []gradesheet.Column{
					{ID: "a1", Name: "Quiz", MaxScore: 5, Kind: gradesheet.KindScore},
					{ID: "a2", Name: "Homework", MaxScore: 10, Kind: gradesheet.KindScore},
					{ID: "a-total", Name: "Total", MaxScore: 15, Kind: gradesheet.KindGroupInternalSum, InternalSourceColumnIDs: []string{"a1", "a2"}},
				},
			},
			{
				ID: "B", Name: "Exams", Color: gradesheet.Palette[1],
				Columns: []gradesheet.Column{
					{ID: "b1", Name: "Final", MaxScore: 20, Kind: gradesheet.KindScore},
					{ID: "b-sum", Name: "Coursework", MaxScore: 15, Kind: gradesheet.KindGroupSum, GroupSourceKeys: []string{"A:a-total"}},
					{
						ID: "b-grand", Name: "Grand Total", MaxScore: 35, Kind: gradesheet.KindGrandTotal,
						GroupSourceKeys: []string{"A:a-total"}, InternalSourceColumnIDs: []string{"b1"},
					},
				},
			},
		},
		Settings: gradesheet.Settings{ShowGrandTotal: true, ShowPercentage: true, PassingScore: 17.5},
	}
}

// CreateSheet stores a sheet with the given structure straight through the repository.
func CreateSheet(t *testing.T, repo gradesheet.Repository, id, name string, s gradesheet.Structure, createdAt ...time.Time) gradesheet.Record {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Second)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("CreateSheet() failed: %v", err)
	}
	rec, err := repo.CreateSheet(context.Background(), gradesheet.Record{
		ID:        id,
		Name:      name,
		Structure: data,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateSheet() failed: %v", err)
	}
	return rec
}

// CreateLegacySheet stores a sheet that only has a flat legacy column list.
func CreateLegacySheet(t *testing.T, repo gradesheet.Repository, id, name string, cols []gradesheet.LegacyColumn) gradesheet.Record {
	t.Helper()
	data, err := json.Marshal(cols)
	if err != nil {
		t.Fatalf("CreateLegacySheet() failed: %v", err)
	}
	tstamp := time.Now().UTC().Truncate(time.Second)
	rec, err := repo.CreateSheet(context.Background(), gradesheet.Record{
		ID:            id,
		Name:          name,
		LegacyColumns: data,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	})
	if err != nil {
		t.Fatalf("CreateLegacySheet() failed: %v", err)
	}
	return rec
}
