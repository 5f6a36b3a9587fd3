package introspect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tordrt/prismaschema/internal/schema"
)

// columnType is the schema-side view of an engine column type
type columnType struct {
	Scalar        schema.ScalarType
	List          bool
	Native        *schema.NativeMapping
	Documentation string
}

// baseType strips length arguments and modifiers: "int(11) unsigned" -> "int".
func baseType(t string) string {
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// typeLength returns n for types such as "varchar(n)".
func typeLength(t string) (int, bool) {
	start := strings.IndexByte(t, '(')
	end := strings.IndexByte(t, ')')
	if start < 0 || end < start {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(t[start+1 : end]))
	if err != nil {
		return 0, false
	}
	return n, true
}

func mapColumnType(provider schema.Provider, col Column) columnType {
	if len(col.EnumValues) > 0 {
		return columnType{
			Scalar:        schema.String,
			Documentation: "Allowed values: " + strings.Join(col.EnumValues, ", "),
		}
	}

	switch provider {
	case schema.PostgreSQL:
		if elem, ok := strings.CutSuffix(col.Type, "[]"); ok {
			ct := mapPostgresType(Column{Name: col.Name, Type: elem})
			ct.List = true
			return ct
		}
		return mapPostgresType(col)
	case schema.MySQL:
		return mapMySQLType(col)
	default:
		return mapSQLiteType(col)
	}
}

func unsupported(t string) columnType {
	return columnType{Scalar: schema.String, Documentation: fmt.Sprintf("Database type %s is not supported", t)}
}

func sized(name string, col Column) *schema.NativeMapping {
	if col.MaxLength != nil {
		return &schema.NativeMapping{Name: name, Arguments: []any{*col.MaxLength}}
	}
	if n, ok := typeLength(col.Type); ok {
		return &schema.NativeMapping{Name: name, Arguments: []any{n}}
	}
	return nil
}

func mapPostgresType(col Column) columnType {
	switch t := baseType(col.Type); t {
	case "smallint", "integer", "int", "int2", "int4", "serial", "smallserial":
		return columnType{Scalar: schema.Int}
	case "bigint", "int8", "bigserial":
		return columnType{Scalar: schema.BigInt}
	case "real", "double precision", "float4", "float8":
		return columnType{Scalar: schema.Float}
	case "numeric", "decimal", "money":
		return columnType{Scalar: schema.Decimal}
	case "boolean", "bool":
		return columnType{Scalar: schema.Boolean}
	case "timestamp", "timestamptz", "date", "time", "timetz":
		return columnType{Scalar: schema.DateTime}
	case "json", "jsonb":
		return columnType{Scalar: schema.Json}
	case "bytea":
		return columnType{Scalar: schema.Bytes}
	case varcharType:
		return columnType{Scalar: schema.String, Native: sized("VarChar", col)}
	case "char", "bpchar":
		return columnType{Scalar: schema.String, Native: sized("Char", col)}
	case "uuid":
		return columnType{Scalar: schema.String, Native: &schema.NativeMapping{Name: "Uuid"}}
	case "text", "citext", "name", "inet", "cidr", "xml":
		return columnType{Scalar: schema.String}
	default:
		return unsupported(t)
	}
}

func mapMySQLType(col Column) columnType {
	if strings.HasPrefix(col.Type, "tinyint(1)") {
		return columnType{Scalar: schema.Boolean}
	}
	switch t := baseType(col.Type); t {
	case "bool", "boolean":
		return columnType{Scalar: schema.Boolean}
	case "tinyint", "smallint", "mediumint", "int", "integer", "year":
		return columnType{Scalar: schema.Int}
	case "bigint":
		return columnType{Scalar: schema.BigInt}
	case "float", "double", "real":
		return columnType{Scalar: schema.Float}
	case "decimal", "numeric":
		return columnType{Scalar: schema.Decimal}
	case "datetime", "timestamp", "date", "time":
		return columnType{Scalar: schema.DateTime}
	case "json":
		return columnType{Scalar: schema.Json}
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "bit":
		return columnType{Scalar: schema.Bytes}
	case varcharType:
		return columnType{Scalar: schema.String, Native: sized("VarChar", col)}
	case "char":
		return columnType{Scalar: schema.String, Native: sized("Char", col)}
	case "text", "tinytext", "mediumtext", "longtext", "set":
		return columnType{Scalar: schema.String}
	default:
		return unsupported(t)
	}
}

// mapSQLiteType follows SQLite's type affinity rules, with the common date
// and boolean spellings recognised first.
func mapSQLiteType(col Column) columnType {
	t := baseType(col.Type)
	switch {
	case t == "bigint":
		return columnType{Scalar: schema.BigInt}
	case strings.Contains(t, "int"):
		return columnType{Scalar: schema.Int}
	case strings.Contains(t, "bool"):
		return columnType{Scalar: schema.Boolean}
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return columnType{Scalar: schema.DateTime}
	case strings.Contains(t, "json"):
		return columnType{Scalar: schema.Json}
	case strings.Contains(t, "char"), strings.Contains(t, "clob"), strings.Contains(t, "text"):
		return columnType{Scalar: schema.String}
	case t == "", strings.Contains(t, "blob"):
		return columnType{Scalar: schema.Bytes}
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
		return columnType{Scalar: schema.Float}
	case strings.Contains(t, "decimal"), strings.Contains(t, "numeric"):
		return columnType{Scalar: schema.Decimal}
	default:
		return unsupported(t)
	}
}

// stripCast removes a trailing PostgreSQL cast: 'a'::character varying -> 'a'.
func stripCast(s string) string {
	inQuote := false
	for i := 0; i < len(s)-1; i++ {
		switch {
		case s[i] == '\'':
			inQuote = !inQuote
		case !inQuote && s[i] == ':' && s[i+1] == ':':
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

// unquote returns the content of a single-quoted SQL string literal.
func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", false
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
}

// mapDefault converts a column default expression. Expressions without an
// equivalent default are dropped.
func mapDefault(provider schema.Provider, scalar schema.ScalarType, col Column) schema.Default {
	if col.AutoIncrement && (scalar == schema.Int || scalar == schema.BigInt) {
		return schema.Call(schema.AutoIncrement)
	}
	if col.Default == nil {
		return schema.NoDefault()
	}

	raw := stripCast(strings.TrimSpace(*col.Default))
	// SQLite keeps the parentheses of DEFAULT (expr)
	if provider == schema.SQLite && strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	lower := strings.ToLower(raw)

	switch {
	case lower == "" || lower == "null":
		return schema.NoDefault()
	case strings.HasPrefix(lower, "nextval("):
		return schema.Call(schema.AutoIncrement)
	case lower == "now()" || strings.HasPrefix(lower, "current_timestamp") || strings.HasPrefix(lower, "localtimestamp"):
		if scalar == schema.DateTime {
			return schema.Call(schema.Now)
		}
		return schema.NoDefault()
	case lower == "gen_random_uuid()" || lower == "uuid()" || lower == "uuid_generate_v4()":
		if scalar == schema.String {
			return schema.Call(schema.UUID)
		}
		return schema.NoDefault()
	}

	value := raw
	if s, ok := unquote(raw); ok {
		value = s
	} else if strings.ContainsAny(raw, "()") {
		return schema.NoDefault()
	}

	switch scalar {
	case schema.Boolean:
		switch strings.ToLower(value) {
		case "true", "t", "1", "b'1'":
			return schema.Literal(true)
		case "false", "f", "0", "b'0'":
			return schema.Literal(false)
		}
	case schema.Int, schema.BigInt:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return schema.Literal(n)
		}
	case schema.Float, schema.Decimal:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return schema.Literal(f)
		}
	case schema.String, schema.Json:
		// MySQL reports string defaults without quotes
		if value != raw || provider == schema.MySQL {
			return schema.Literal(strconv.Quote(value))
		}
	}
	return schema.NoDefault()
}
