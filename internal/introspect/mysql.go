package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/prismaschema/internal/schema"
)

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	db         *sql.DB
	schemaName string
}

// NewMySQLExtractor creates a new MySQL extractor
func NewMySQLExtractor(db *sql.DB, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		db:         db,
		schemaName: schemaName,
	}
}

// Provider returns schema.MySQL.
func (e *MySQLExtractor) Provider() schema.Provider { return schema.MySQL }

// TableNames lists the base tables of the database
func (e *MySQLExtractor) TableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.db.QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// ExtractTable extracts all information for a single table
func (e *MySQLExtractor) ExtractTable(ctx context.Context, tableName string) (*Table, error) {
	table := &Table{Name: tableName}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found in database %s", tableName, e.schemaName)
	}
	table.Columns = columns

	pk, err := e.extractPrimaryKey(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	table.PrimaryKey = pk

	fks, err := e.extractForeignKeys(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	table.ForeignKeys = fks

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	return table, nil
}

func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]Column, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.extra,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
					AND tc.table_name = kcu.table_name
				WHERE tc.table_schema = ?
					AND tc.table_name = ?
					AND tc.constraint_type = 'UNIQUE'
					AND kcu.column_name = c.column_name
					AND (
						SELECT count(*) FROM information_schema.key_column_usage k2
						WHERE k2.constraint_name = tc.constraint_name
							AND k2.table_schema = tc.table_schema
							AND k2.table_name = tc.table_name
					) = 1
			) THEN true ELSE false END as is_unique,
			c.data_type,
			c.character_maximum_length
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.db.QueryContext(ctx, query, e.schemaName, tableName, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column

	for rows.Next() {
		var col Column
		var columnType, nullable, extra, dataType string
		var defaultVal sql.NullString
		var isUnique bool
		var maxLength sql.NullInt64

		if err := rows.Scan(&col.Name, &columnType, &nullable, &defaultVal, &extra, &isUnique, &dataType, &maxLength); err != nil {
			return nil, err
		}

		col.Type = strings.ToLower(columnType)
		col.Nullable = nullable == "YES"
		col.IsUnique = isUnique
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		if maxLength.Valid {
			n := int(maxLength.Int64)
			col.MaxLength = &n
		}

		if dataType == "enum" {
			values, err := parseEnumValues(columnType)
			if err != nil {
				return nil, err
			}
			col.EnumValues = values
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// parseEnumValues parses enum values from the column type string
// MySQL stores enum types as "enum('value1','value2','value3')"
func parseEnumValues(columnType string) ([]string, error) {
	if !strings.HasPrefix(columnType, "enum(") {
		return nil, nil
	}

	start := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("invalid enum type format: %s", columnType)
	}

	var values []string
	for _, part := range strings.Split(columnType[start+1:end], ",") {
		part = strings.TrimSpace(part)
		if len(part) >= 2 && part[0] == '\'' && part[len(part)-1] == '\'' {
			part = part[1 : len(part)-1]
		}
		values = append(values, part)
	}

	return values, nil
}

func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.db.QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk = append(pk, colName)
	}

	return pk, rows.Err()
}

func (e *MySQLExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]ForeignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.table_schema
			AND rc.constraint_name = kcu.constraint_name
			AND rc.table_name = kcu.table_name
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`

	rows, err := e.db.QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		var column, refColumn string
		if err := rows.Scan(&fk.Name, &column, &fk.ReferencedTable, &refColumn, &fk.OnDelete, &fk.OnUpdate); err != nil {
			return nil, err
		}
		fk.Columns = []string{column}
		fk.ReferencedColumns = []string{refColumn}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupForeignKeys(fks), nil
}

func (e *MySQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]Index, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := e.db.QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var idx Index
		var isUnique int
		var columnNames string

		if err := rows.Scan(&idx.Name, &isUnique, &columnNames); err != nil {
			return nil, err
		}

		idx.Unique = isUnique == 1
		idx.Columns = strings.Split(columnNames, ",")

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
