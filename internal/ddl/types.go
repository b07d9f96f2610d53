package ddl

// ColumnDef describes a single column in a table definition. Names are
// unquoted; quoting happens at render time.
type ColumnDef struct {
	Name string
	// Kind is the logical type inferred from data: int, float, bool,
	// timestamp or string.
	Kind       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	// Default is a raw SQL expression.
	Default string
}

// TableDef holds a dotted table name ("schema.table" or "table") and an
// ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Logical kinds produced by InferKind.
const (
	KindInt       = "int"
	KindFloat     = "float"
	KindBool      = "bool"
	KindTimestamp = "timestamp"
	KindString    = "string"
)
