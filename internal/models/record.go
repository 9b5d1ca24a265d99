package models

import (
	"encoding/json"
	"time"
)

// SchemaRecord is a resolved schema persisted by a store.
type SchemaRecord struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Tables     []string        `json:"tables"`
	Payload    json.RawMessage `json:"schema"`
	CreatedAt  time.Time       `json:"created_at"`
	References int             `json:"references"`
}

// NewSchemaRecord encodes schema into a record ready to be stored.
func NewSchemaRecord(id, name string, schema *Schema, now time.Time) (SchemaRecord, error) {
	payload, err := json.Marshal(schema)
	if err != nil {
		return SchemaRecord{}, err
	}
	refs := 0
	for _, t := range schema.Tables {
		for i := range t.Columns {
			refs += len(t.Columns[i].References)
		}
	}
	return SchemaRecord{
		ID:         id,
		Name:       name,
		Tables:     schema.Names(),
		Payload:    payload,
		CreatedAt:  now,
		References: refs,
	}, nil
}

// StoreStats holds summary statistics about the stored schemas.
type StoreStats struct {
	TotalSchemas int64 `json:"total_schemas"`
	TotalTables  int64 `json:"total_tables"`
}
