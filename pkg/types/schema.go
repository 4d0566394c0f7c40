package types

import (
	"fmt"
	"strings"
)

// VaultTable is the name of the ledger-state table.
const VaultTable = "vault_states"

// Column names of the vault_states table.
const (
	ColTxID           = "transaction_id"
	ColOutputIndex    = "output_index"
	ColContractType   = "contract_state_class_name"
	ColPayload        = "contract_state"
	ColNotaryName     = "notary_name"
	ColNotaryKey      = "notary_key"
	ColRecordedTime   = "recorded_timestamp"
	ColConsumedTime   = "consumed_timestamp"
	ColStatus         = "state_status"
	ColLockID         = "lock_id"
	ColLockUpdateTime = "lock_timestamp"
)

// Schema defines the structure of a table.
type Schema struct {
	// Version tracks schema evolution for backward compatibility
	Version int `json:"version"`

	// Table is the table name
	Table string `json:"table"`

	// Columns defines the columns in the schema
	Columns []ColumnDef `json:"columns"`

	// Indexes defines the indexes to create on the table
	Indexes []IndexDef `json:"indexes"`
}

// ColumnDef defines a single column in the schema.
type ColumnDef struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the SQLite type: TEXT, INTEGER, BLOB, REAL
	Type string `json:"type"`

	// Nullable indicates whether the column can contain NULL values
	Nullable bool `json:"nullable"`

	// PrimaryKey indicates whether this column is part of the primary key
	PrimaryKey bool `json:"primary_key"`
}

// IndexDef defines an index on the table.
type IndexDef struct {
	// Name is the index name
	Name string `json:"name"`

	// Columns lists the columns included in the index
	Columns []string `json:"columns"`

	// Unique indicates whether the index enforces uniqueness
	Unique bool `json:"unique"`
}

// VaultSchema returns the vault_states schema. Timestamps are stored as Unix nanoseconds.
func VaultSchema() Schema {
	return Schema{
		Version: 1,
		Table:   VaultTable,
		Columns: []ColumnDef{
			{Name: ColTxID, Type: "TEXT", PrimaryKey: true},
			{Name: ColOutputIndex, Type: "INTEGER", PrimaryKey: true},
			{Name: ColContractType, Type: "TEXT"},
			{Name: ColPayload, Type: "BLOB"},
			{Name: ColNotaryName, Type: "TEXT"},
			{Name: ColNotaryKey, Type: "TEXT"},
			{Name: ColRecordedTime, Type: "INTEGER"},
			{Name: ColConsumedTime, Type: "INTEGER", Nullable: true},
			{Name: ColStatus, Type: "INTEGER"},
			{Name: ColLockID, Type: "TEXT", Nullable: true},
			{Name: ColLockUpdateTime, Type: "INTEGER", Nullable: true},
		},
		Indexes: []IndexDef{
			{Name: "idx_vault_states_type", Columns: []string{ColContractType}},
			{Name: "idx_vault_states_status_recorded", Columns: []string{ColStatus, ColRecordedTime}},
			{Name: "idx_vault_states_lock", Columns: []string{ColLockID}},
		},
	}
}

// DDL renders CREATE TABLE / CREATE INDEX statements for the schema.
func (s Schema) DDL() []string {
	var cols, pk []string
	for _, c := range s.Columns {
		def := fmt.Sprintf("%s %s", c.Name, c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	if len(pk) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", s.Table, strings.Join(cols, ",\n\t"))}
	for _, idx := range s.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, idx.Name, s.Table, strings.Join(idx.Columns, ", ")))
	}
	return stmts
}
