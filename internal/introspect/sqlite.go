package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/prismaschema/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	db *sql.DB
}

// NewSQLiteExtractor creates a new SQLite extractor
func NewSQLiteExtractor(db *sql.DB) *SQLiteExtractor {
	return &SQLiteExtractor{db: db}
}

// Provider returns schema.SQLite.
func (e *SQLiteExtractor) Provider() schema.Provider { return schema.SQLite }

// TableNames lists the user tables of the database
func (e *SQLiteExtractor) TableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// ExtractTable extracts all information for a single table
func (e *SQLiteExtractor) ExtractTable(ctx context.Context, tableName string) (*Table, error) {
	table := &Table{Name: tableName}

	columns, pk, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}
	table.Columns = columns
	table.PrimaryKey = pk

	// INTEGER PRIMARY KEY is an alias of the rowid
	if len(pk) == 1 {
		for i := range table.Columns {
			if table.Columns[i].Name == pk[0] && table.Columns[i].Type == "integer" {
				table.Columns[i].AutoIncrement = true
			}
		}
	}

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

	for _, idx := range indexes {
		if !idx.Unique || len(idx.Columns) != 1 {
			continue
		}
		for i := range table.Columns {
			if table.Columns[i].Name == idx.Columns[0] {
				table.Columns[i].IsUnique = true
			}
		}
	}

	return table, nil
}

// quoteIdent quotes a table or index name for use in a PRAGMA
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// extractColumns reads PRAGMA table_info, which also reports the primary key
// position of each column.
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]Column, []string, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []Column
	pkByOrder := make(map[int]string)

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		col := Column{
			Name:     name,
			Type:     strings.ToLower(colType),
			Nullable: notNull == 0 && pk == 0,
		}
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		if n, ok := typeLength(col.Type); ok {
			col.MaxLength = &n
		}

		if pk > 0 {
			pkByOrder[pk] = name
		}

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var pk []string
	for i := 1; i <= len(pkByOrder); i++ {
		pk = append(pk, pkByOrder[i])
	}

	return columns, pk, nil
}

func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]ForeignKey, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		// an empty referenced column means the target's primary key, resolved during conversion
		fks = append(fks, ForeignKey{
			Name:              fmt.Sprintf("%s_%d", tableName, id),
			Columns:           []string{fromCol},
			ReferencedTable:   targetTable,
			ReferencedColumns: []string{toCol.String},
			OnDelete:          onDelete,
			OnUpdate:          onUpdate,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupForeignKeys(fks), nil
}

func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]Index, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	type entry struct {
		name   string
		unique bool
	}
	var entries []entry
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}

		// primary key indexes are reported through table_info
		if origin == "pk" {
			continue
		}
		entries = append(entries, entry{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var indexes []Index
	for _, en := range entries {
		columns, err := e.indexColumns(ctx, en.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}

		name := en.name
		if strings.HasPrefix(name, "sqlite_autoindex") {
			name = ""
		}
		indexes = append(indexes, Index{Name: name, Unique: en.unique, Columns: columns})
	}

	return indexes, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(indexName))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}

		// expression indexes have no column name
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}
