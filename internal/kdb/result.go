/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package kdb

// ColumnMeta describes one table column as reported by meta.
type ColumnMeta struct {
	Name       string `json:"name"`
	TypeTag    byte   `json:"type"`
	Attribute  string `json:"attribute,omitempty"`
	ForeignKey string `json:"foreign_key,omitempty"`
}

// Row maps column names to cell values.
type Row map[string]any

// Envelope is the uniform shape every executed query produces.
type Envelope struct {
	// Success is false when the query raised an error; Error then holds the
	// message and the remaining fields are meaningless.
	Success bool
	Error   string

	// Type is the type code of the (possibly unkeyed) top-level value.
	Type TypeCode

	// KeyColumnCount is the number of leading key columns of a keyed table.
	KeyColumnCount int

	// Columns is non-empty exactly when the value is tabular.
	Columns []ColumnMeta
	Rows    []Row

	// Value holds the non-tabular payload.
	Value any

	// Received is the size in bytes of the server's reply on the wire,
	// 0 when the envelope was not built from a reply.
	Received int
}

// ErrorEnvelope builds a failed envelope carrying msg.
func ErrorEnvelope(msg string) *Envelope {
	return &Envelope{Success: false, Error: msg}
}

// Normalize builds an envelope from a raw value on the client side: keyed
// tables are unkeyed with their key count recorded and column metadata is
// derived from the column types.
func Normalize(v any) *Envelope {
	env := &Envelope{Success: true, Type: TypeOf(v)}

	switch x := v.(type) {
	case *Dict:
		kt, kok := x.Keys.(*Table)
		vt, vok := x.Values.(*Table)
		if !kok || !vok {
			env.Value = v
			return env
		}
		merged := &Table{
			Columns: append(append([]string{}, kt.Columns...), vt.Columns...),
			Data:    append(append([]any{}, kt.Data...), vt.Data...),
		}
		env.Type = TypeTable
		env.KeyColumnCount = len(kt.Columns)
		env.Columns = DeriveMeta(merged)
		env.Rows = BuildRows(merged)
	case *Table:
		env.Columns = DeriveMeta(x)
		env.Rows = BuildRows(x)
	default:
		env.Value = v
	}
	return env
}

// DeriveMeta reports column metadata from the column vectors themselves,
// using upper-case tags for columns whose cells are vectors.
func DeriveMeta(t *Table) []ColumnMeta {
	meta := make([]ColumnMeta, len(t.Columns))
	for i, name := range t.Columns {
		meta[i] = ColumnMeta{Name: name, TypeTag: ' '}
		if i >= len(t.Data) {
			continue
		}
		switch col := t.Data[i].(type) {
		case *Vector:
			meta[i].TypeTag = Lookup(col.Type).Tag
			meta[i].Attribute = attributeName(col.Attribute)
		case List:
			if len(col) > 0 {
				if inner, ok := col[0].(*Vector); ok {
					tag := Lookup(inner.Type).Tag
					if tag >= 'a' && tag <= 'z' {
						tag -= 'a' - 'A'
					}
					meta[i].TypeTag = tag
				}
			}
		}
	}
	return meta
}

func attributeName(a byte) string {
	switch a {
	case 1:
		return "s"
	case 2:
		return "u"
	case 3:
		return "p"
	case 4:
		return "g"
	}
	return ""
}

// BuildRows converts a column-oriented table into rows keyed by column name.
func BuildRows(t *Table) []Row {
	n := t.RowCount()
	rows := make([]Row, n)
	for r := 0; r < n; r++ {
		row := make(Row, len(t.Columns))
		for c, name := range t.Columns {
			if c < len(t.Data) {
				row[name] = Index(t.Data[c], r)
			}
		}
		rows[r] = row
	}
	return rows
}

// Result is the classified form of an envelope. It is one of *ErrorResult,
// *ScalarResult, *VectorResult or *TableResult.
type Result interface {
	Kind() Kind
}

// Kind enumerates the Result variants.
type Kind int

const (
	KindError Kind = iota
	KindScalar
	KindVector
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// ErrorResult is a query that failed on the server or in transit.
type ErrorResult struct {
	Message string
}

// ScalarResult is an atom or any other non-list value (dictionary, function).
type ScalarResult struct {
	Type  TypeCode
	Value any
}

// VectorResult is a vector or general list.
type VectorResult struct {
	Type   TypeCode
	Values []any
}

// TableResult is a tabular value with its metadata.
type TableResult struct {
	Columns        []ColumnMeta
	KeyColumnCount int
	Rows           []Row
}

func (*ErrorResult) Kind() Kind  { return KindError }
func (*ScalarResult) Kind() Kind { return KindScalar }
func (*VectorResult) Kind() Kind { return KindVector }
func (*TableResult) Kind() Kind  { return KindTable }

// IsTable reports whether an envelope is tabular: a successful result that
// carries column metadata. An empty table is still tabular.
func IsTable(env *Envelope) bool {
	return env != nil && env.Success && len(env.Columns) > 0
}

// Classify decides once which variant an envelope is.
func Classify(env *Envelope) Result {
	if env == nil {
		return &ErrorResult{Message: "no result"}
	}
	if !env.Success {
		return &ErrorResult{Message: env.Error}
	}
	if IsTable(env) {
		return &TableResult{
			Columns:        env.Columns,
			KeyColumnCount: env.KeyColumnCount,
			Rows:           env.Rows,
		}
	}

	switch x := env.Value.(type) {
	case *Vector:
		if x != nil {
			return &VectorResult{Type: x.Type, Values: x.Elems}
		}
	case List:
		return &VectorResult{Type: TypeMixed, Values: x}
	case []any:
		return &VectorResult{Type: TypeMixed, Values: x}
	}
	return &ScalarResult{Type: env.Type, Value: env.Value}
}
