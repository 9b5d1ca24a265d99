package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ajitpratap0/erschema/internal/models"
)

// Neo4jStore persists schemas as a graph:
//
//	(:Schema)-[:HAS_TABLE]->(:Table)-[:REFERENCES {column, target}]->(:Table)
//
// The full JSON payload is kept on the Schema node so GetSchema returns the
// exact document that was saved.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore connects to the graph database at uri.
func NewNeo4jStore(uri, username, password, database string, logger *slog.Logger) (*Neo4jStore, error) {
	auth := neo4j.NoAuth()
	if username != "" {
		auth = neo4j.BasicAuth(username, password, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	return &Neo4jStore{driver: driver, database: database, logger: logger}, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Neo4jStore) executeWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer func() { _ = session.Close(ctx) }()
	return session.ExecuteWrite(ctx, work)
}

func (s *Neo4jStore) executeRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer func() { _ = session.Close(ctx) }()
	return session.ExecuteRead(ctx, work)
}

// EnsureSchema creates the uniqueness constraint on Schema.id.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	_, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"CREATE CONSTRAINT erschema_schema_id IF NOT EXISTS FOR (s:Schema) REQUIRE s.id IS UNIQUE", nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("ensure schema constraint: %w", err)
	}
	return nil
}

const (
	saveSchemaCypher = `
MERGE (s:Schema {id: $id})
SET s.name = $name, s.tables = $tables, s.payload = $payload,
    s.created_at = $created_at, s.references = $references
WITH s
OPTIONAL MATCH (s)-[:HAS_TABLE]->(old:Table)
DETACH DELETE old`

	saveTablesCypher = `
MATCH (s:Schema {id: $id})
UNWIND $rows AS row
CREATE (s)-[:HAS_TABLE]->(:Table {schema_id: $id, name: row.name, primary_key: row.primary_key, columns: row.columns})`

	saveReferencesCypher = `
UNWIND $rows AS row
MATCH (a:Table {schema_id: $id, name: row.from}), (b:Table {schema_id: $id, name: row.to})
CREATE (a)-[:REFERENCES {column: row.column, target: row.target}]->(b)`

	schemaFields = "s.id AS id, s.name AS name, s.tables AS tables, s.payload AS payload, s.created_at AS created_at, s.references AS references"
)

// SaveSchema writes the schema node, its tables and their references in one transaction.
func (s *Neo4jStore) SaveSchema(ctx context.Context, rec models.SchemaRecord, schema *models.Schema) error {
	tables, refs := flatten(schema)

	tableParams := make([]any, len(tables))
	for i, t := range tables {
		tableParams[i] = map[string]any{
			"name":        t.Name,
			"primary_key": stringsToAny(t.PrimaryKey),
			"columns":     stringsToAny(t.Columns),
		}
	}
	refParams := make([]any, len(refs))
	for i, r := range refs {
		refParams[i] = map[string]any{"from": r.From, "to": r.To, "column": r.Column, "target": r.Target}
	}

	_, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			cypher string
			params map[string]any
		}{
			{saveSchemaCypher, map[string]any{
				"id":         rec.ID,
				"name":       rec.Name,
				"tables":     stringsToAny(rec.Tables),
				"payload":    string(rec.Payload),
				"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
				"references": int64(rec.References),
			}},
			{saveTablesCypher, map[string]any{"id": rec.ID, "rows": tableParams}},
			{saveReferencesCypher, map[string]any{"id": rec.ID, "rows": refParams}},
		}
		for _, step := range steps {
			res, err := tx.Run(ctx, step.cypher, step.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("save schema %s: %w", rec.ID, err)
	}
	s.logger.Debug("schema saved", "id", rec.ID, "tables", len(tables), "references", len(refs))
	return nil
}

// GetSchema retrieves a single schema by ID.
func (s *Neo4jStore) GetSchema(ctx context.Context, id string) (*models.SchemaRecord, error) {
	out, err := s.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (s:Schema {id: $id}) RETURN "+schemaFields, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get schema %s: %w", id, err)
	}
	records, _ := out.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec, err := recordToSchema(records[0])
	if err != nil {
		return nil, fmt.Errorf("get schema %s: %w", id, err)
	}
	return &rec, nil
}

// ListSchemas returns schemas newest first.
func (s *Neo4jStore) ListSchemas(ctx context.Context, limit int) ([]models.SchemaRecord, error) {
	cypher := "MATCH (s:Schema) RETURN " + schemaFields + " ORDER BY s.created_at DESC, s.id"
	params := map[string]any{}
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = int64(limit)
	}
	out, err := s.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	records, _ := out.([]*neo4j.Record)
	schemas := make([]models.SchemaRecord, 0, len(records))
	for _, r := range records {
		rec, err := recordToSchema(r)
		if err != nil {
			return nil, fmt.Errorf("list schemas: %w", err)
		}
		schemas = append(schemas, rec)
	}
	return schemas, nil
}

// DeleteSchema removes a schema node and its tables.
func (s *Neo4jStore) DeleteSchema(ctx context.Context, id string) error {
	out, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (s:Schema {id: $id})
OPTIONAL MATCH (s)-[:HAS_TABLE]->(t:Table)
WITH s, collect(t) AS tables
FOREACH (t IN tables | DETACH DELETE t)
DETACH DELETE s
RETURN count(*) AS deleted`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return fmt.Errorf("delete schema %s: %w", id, err)
	}
	records, _ := out.([]*neo4j.Record)
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if n, _ := records[0].Get("deleted"); n == int64(0) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Stats counts schemas and tables.
func (s *Neo4jStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	out, err := s.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
OPTIONAL MATCH (s:Schema)
OPTIONAL MATCH (s)-[:HAS_TABLE]->(t:Table)
RETURN count(DISTINCT s) AS schemas, count(t) AS tables`, nil)
		if err != nil {
			return nil, err
		}
		return res.Single(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("store stats: %w", err)
	}
	record, _ := out.(*neo4j.Record)
	stats := &models.StoreStats{}
	if record != nil {
		stats.TotalSchemas = int64Value(record, "schemas")
		stats.TotalTables = int64Value(record, "tables")
	}
	return stats, nil
}

// Ping verifies connectivity to the database.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func recordToSchema(r *neo4j.Record) (models.SchemaRecord, error) {
	rec := models.SchemaRecord{
		ID:         stringValue(r, "id"),
		Name:       stringValue(r, "name"),
		Payload:    []byte(stringValue(r, "payload")),
		References: int(int64Value(r, "references")),
	}
	if raw, ok := r.Get("tables"); ok {
		if list, ok := raw.([]any); ok {
			for _, v := range list {
				if name, ok := v.(string); ok {
					rec.Tables = append(rec.Tables, name)
				}
			}
		}
	}
	if ts := stringValue(r, "created_at"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return rec, fmt.Errorf("parsing created_at %q: %w", ts, err)
		}
		rec.CreatedAt = t
	}
	return rec, nil
}

func stringValue(r *neo4j.Record, key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

func int64Value(r *neo4j.Record, key string) int64 {
	v, _ := r.Get(key)
	n, _ := v.(int64)
	return n
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
