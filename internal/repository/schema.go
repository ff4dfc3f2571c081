package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const recordsTableName = "records"

var recordColumns = []*schema.Column{
	{Name: "id", Type: field.TypeString, Size: 36},
	{Name: "source_path", Type: field.TypeString, Size: 2147483647},
	{Name: "filename", Type: field.TypeString},
	{Name: "content_hash", Type: field.TypeString, Size: 64},
	{Name: "format", Type: field.TypeString, Size: 16},
	{Name: "status", Type: field.TypeString, Size: 32},
	{Name: "engine", Type: field.TypeString, Size: 32, Default: ""},
	{Name: "raw_text", Type: field.TypeString, Size: 2147483647},
	{Name: "identifier", Type: field.TypeString, Default: ""},
	{Name: "identifier_confidence", Type: field.TypeFloat64, Default: 0},
	{Name: "party_a", Type: field.TypeString, Default: ""},
	{Name: "party_a_confidence", Type: field.TypeFloat64, Default: 0},
	{Name: "party_b", Type: field.TypeString, Default: ""},
	{Name: "party_b_confidence", Type: field.TypeFloat64, Default: 0},
	{Name: "event_date", Type: field.TypeString, Size: 10, Default: ""},
	{Name: "event_date_confidence", Type: field.TypeFloat64, Default: 0},
	{Name: "needs_verification", Type: field.TypeBool, Default: true},
	{Name: "warnings", Type: field.TypeString, Size: 2147483647},
	{Name: "error_message", Type: field.TypeString, Size: 2147483647},
	{Name: "duration_ms", Type: field.TypeInt64, Default: 0},
	{Name: "created_at", Type: field.TypeTime},
}

// RecordsTable is the records table definition used for migration.
var RecordsTable = &schema.Table{
	Name:       recordsTableName,
	Columns:    recordColumns,
	PrimaryKey: []*schema.Column{recordColumns[0]},
	Indexes: []*schema.Index{
		{Name: "records_content_hash", Columns: []*schema.Column{recordColumns[3]}},
		{Name: "records_needs_verification_created_at", Columns: []*schema.Column{recordColumns[16], recordColumns[20]}},
	},
}

// Migrate creates or updates the tables this package reads and writes.
func (d *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(d.drv)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Create(ctx, RecordsTable); err != nil {
		d.logger.Error("schema migration failed", "error", err)
		return fmt.Errorf("migrating schema: %w", err)
	}
	d.logger.Info("schema migrated", "tables", 1)
	return nil
}
