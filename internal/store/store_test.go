package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/erschema/internal/models"
)

func sampleSchema() *models.Schema {
	student := &models.Table{
		Name:       "Student",
		Columns:    []models.Column{{Name: "id", Type: "int"}, {Name: "name", Type: "string"}},
		PrimaryKey: []string{"id"},
	}
	enrollment := &models.Table{
		Name: "Enrollment",
		Columns: []models.Column{
			{Name: "Student_id", Type: "int", References: map[string]string{"Student": "id"}},
		},
		PrimaryKey: []string{"Student_id"},
	}
	return &models.Schema{Tables: []*models.Table{student, enrollment}}
}

func sampleRecord(t *testing.T, name string, at time.Time) (models.SchemaRecord, *models.Schema) {
	t.Helper()
	schema := sampleSchema()
	rec, err := models.NewSchemaRecord(uuid.NewString(), name, schema, at)
	require.NoError(t, err)
	return rec, schema
}

func TestFlatten(t *testing.T) {
	tables, refs := flatten(sampleSchema())
	require.Len(t, tables, 2)
	assert.Equal(t, "Student", tables[0].Name)
	assert.Equal(t, []string{"id", "name"}, tables[0].Columns)
	assert.Equal(t, []string{"Student_id"}, tables[1].PrimaryKey)
	require.Len(t, refs, 1)
	assert.Equal(t, referenceRow{From: "Enrollment", To: "Student", Column: "Student_id", Target: "id"}, refs[0])
}

func TestMockStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	require.NoError(t, s.EnsureSchema(ctx))

	rec, schema := sampleRecord(t, "school", time.Now().UTC())
	require.NoError(t, s.SaveSchema(ctx, rec, schema))

	got, err := s.GetSchema(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "school", got.Name)
	assert.Equal(t, []string{"Student", "Enrollment"}, got.Tables)
	assert.Equal(t, 1, got.References)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))

	got.Tables[0] = "mutated"
	again, err := s.GetSchema(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Student", again.Tables[0])

	require.NoError(t, s.DeleteSchema(ctx, rec.ID))
	_, err = s.GetSchema(ctx, rec.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.DeleteSchema(ctx, rec.ID), ErrNotFound))
}

func TestMockStore_ListAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older, schema := sampleRecord(t, "older", base)
	newer, _ := sampleRecord(t, "newer", base.Add(time.Hour))
	require.NoError(t, s.SaveSchema(ctx, older, schema))
	require.NoError(t, s.SaveSchema(ctx, newer, schema))

	list, err := s.ListSchemas(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Name)

	list, err = s.ListSchemas(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSchemas)
	assert.Equal(t, int64(4), stats.TotalTables)
}

func TestMockStore_RejectsEmptyID(t *testing.T) {
	s := NewMockStore()
	err := s.SaveSchema(context.Background(), models.SchemaRecord{}, sampleSchema())
	assert.Error(t, err)
}

// TestNeo4jStore_RoundTrip runs against a live database when
// ERSCHEMA_TEST_NEO4J_URI is set.
func TestNeo4jStore_RoundTrip(t *testing.T) {
	uri := os.Getenv("ERSCHEMA_TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("ERSCHEMA_TEST_NEO4J_URI not set")
	}
	ctx := context.Background()
	s, err := NewNeo4jStore(uri, os.Getenv("ERSCHEMA_TEST_NEO4J_USER"), os.Getenv("ERSCHEMA_TEST_NEO4J_PASSWORD"), "", slog.Default())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.EnsureSchema(ctx))

	rec, schema := sampleRecord(t, "school", time.Now().UTC())
	require.NoError(t, s.SaveSchema(ctx, rec, schema))
	defer func() { _ = s.DeleteSchema(ctx, rec.ID) }()

	got, err := s.GetSchema(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Tables, got.Tables)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))
}
