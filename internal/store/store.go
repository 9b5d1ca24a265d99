package store

import (
	"context"
	"errors"

	"github.com/ajitpratap0/erschema/internal/models"
)

// ErrNotFound is returned by GetSchema and DeleteSchema when the requested schema does not exist.
var ErrNotFound = errors.New("schema not found")

// Store defines the interface for persisting resolved schemas.
type Store interface {
	// EnsureSchema creates the constraints the store relies on, if missing.
	EnsureSchema(ctx context.Context) error

	// SaveSchema stores a resolved schema under rec.ID, replacing any
	// previous schema with the same id.
	SaveSchema(ctx context.Context, rec models.SchemaRecord, schema *models.Schema) error

	// GetSchema retrieves a single schema by ID.
	GetSchema(ctx context.Context, id string) (*models.SchemaRecord, error)

	// ListSchemas returns stored schemas, newest first. limit <= 0 means no limit.
	ListSchemas(ctx context.Context, limit int) ([]models.SchemaRecord, error)

	// DeleteSchema removes a schema and its tables.
	DeleteSchema(ctx context.Context, id string) error

	// Stats returns store statistics.
	Stats(ctx context.Context) (*models.StoreStats, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// tableRow is the flattened form of a table node.
type tableRow struct {
	Name       string
	PrimaryKey []string
	Columns    []string
}

// referenceRow is the flattened form of a foreign-key edge between two tables.
type referenceRow struct {
	From   string
	To     string
	Column string
	Target string
}

// flatten turns a schema into the rows written to a graph backend.
func flatten(schema *models.Schema) ([]tableRow, []referenceRow) {
	tables := make([]tableRow, 0, len(schema.Tables))
	var refs []referenceRow
	for _, t := range schema.Tables {
		row := tableRow{Name: t.Name, PrimaryKey: append([]string{}, t.PrimaryKey...)}
		for i := range t.Columns {
			c := t.Columns[i]
			row.Columns = append(row.Columns, c.Name)
			for target, col := range c.References {
				refs = append(refs, referenceRow{From: t.Name, To: target, Column: c.Name, Target: col})
			}
		}
		tables = append(tables, row)
	}
	return tables, refs
}
