//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuSink implements Sink using KuzuDB as the graph backend. A namespace maps
// to a vertex table, a registry of the relation tables created for it, and
// one relation table per edge label. It requires CGO because the go-kuzu
// driver wraps KuzuDB's C library.
type KuzuSink struct {
	db        *kuzu.Database
	conn      *kuzu.Connection
	namespace string
	relations map[string]bool
}

// Compile-time check that KuzuSink satisfies Sink and Dumper.
var (
	_ Sink   = (*KuzuSink)(nil)
	_ Dumper = (*KuzuSink)(nil)
)

// NewKuzuSink creates a KuzuSink backed by an in-memory KuzuDB instance.
func NewKuzuSink() (*KuzuSink, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileSink creates a KuzuSink backed by a file-based KuzuDB at the
// given path. KuzuDB creates the leaf itself for new databases.
func NewKuzuFileSink(dbPath string) (*KuzuSink, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuSink, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w: %w", ErrSinkUnavailable, err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w: %w", ErrSinkUnavailable, err)
	}
	return &KuzuSink{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuSink) Close() error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Table naming ----------
// Namespaces never contain "__" nor end in "_", and labels never start with
// "_", so the first "__" in a table name always ends the namespace and the
// "___" tables cannot collide with relation tables.

func kuzuVertexTable(ns string) string   { return ns + "___node" }
func kuzuRegistryTable(ns string) string { return ns + "___relation" }
func kuzuRelTable(ns, label string) string {
	return ns + "__" + label
}

// ---------- Namespace lifecycle ----------

// ResetNamespace drops every table belonging to name and recreates the empty
// vertex and registry tables.
func (s *KuzuSink) ResetNamespace(ctx context.Context, name string) error {
	if err := ValidateNamespace(name); err != nil {
		return err
	}
	if s.conn == nil {
		return fmt.Errorf("kuzu: %w: sink closed", ErrSinkUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("kuzu: %w: %w", ErrSinkUnavailable, err)
	}

	labels, err := s.registeredLabels(name)
	if err != nil {
		// Registry missing: the namespace was never created.
		labels = nil
	}

	// Relation tables must be dropped before the node table they reference.
	var stmts []string
	for _, l := range labels {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+kuzuRelTable(name, l))
	}
	stmts = append(stmts,
		"DROP TABLE IF EXISTS "+kuzuVertexTable(name),
		"DROP TABLE IF EXISTS "+kuzuRegistryTable(name),
		fmt.Sprintf(`CREATE NODE TABLE %s(
			id INT64,
			text STRING,
			kind STRING,
			named BOOLEAN,
			start_row INT64,
			start_column INT64,
			start_byte INT64,
			end_row INT64,
			end_column INT64,
			end_byte INT64,
			PRIMARY KEY(id)
		)`, kuzuVertexTable(name)),
		fmt.Sprintf("CREATE NODE TABLE %s(label STRING, PRIMARY KEY(label))", kuzuRegistryTable(name)),
	)
	for _, stmt := range stmts {
		if err := s.exec(stmt, nil); err != nil {
			return fmt.Errorf("kuzu: reset namespace %s: %w: %w", name, ErrSinkUnavailable, err)
		}
	}

	s.namespace = name
	s.relations = make(map[string]bool)
	return nil
}

// ---------- Write operations ----------

// CreateVertex inserts a vertex into the current namespace.
func (s *KuzuSink) CreateVertex(ctx context.Context, v Vertex) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	err := s.exec(
		fmt.Sprintf(`CREATE (n:%s {
			id: $id,
			text: $text,
			kind: $kind,
			named: $named,
			start_row: $sr,
			start_column: $sc,
			start_byte: $sb,
			end_row: $er,
			end_column: $ec,
			end_byte: $eb
		})`, kuzuVertexTable(s.namespace)),
		map[string]any{
			"id":    v.ID,
			"text":  v.Text,
			"kind":  v.Kind,
			"named": v.Named,
			"sr":    v.StartRow,
			"sc":    v.StartColumn,
			"sb":    v.StartByte,
			"er":    v.EndRow,
			"ec":    v.EndColumn,
			"eb":    v.EndByte,
		},
	)
	if err != nil {
		return classifyKuzu("create vertex", err)
	}
	return nil
}

// CreateEdge inserts an edge into the relation table for e.Label, creating
// and registering that table on first use.
func (s *KuzuSink) CreateEdge(ctx context.Context, e Edge) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := validateLabel(e.Label); err != nil {
		return fmt.Errorf("kuzu: %w", err)
	}

	// MATCH-CREATE silently creates nothing for missing endpoints, so check
	// them explicitly.
	want := 2
	if e.ParentID == e.ChildID {
		want = 1
	}
	rows, err := s.query(
		fmt.Sprintf("MATCH (n:%s) WHERE n.id = $p OR n.id = $c RETURN count(n)", kuzuVertexTable(s.namespace)),
		map[string]any{"p": e.ParentID, "c": e.ChildID},
	)
	if err != nil {
		return classifyKuzu("create edge", err)
	}
	if len(rows) == 0 || toInt(rows[0][0]) != want {
		return fmt.Errorf("kuzu: create edge %s %d->%d: %w: missing endpoint",
			e.Label, e.ParentID, e.ChildID, ErrConstraintViolation)
	}

	if err := s.ensureRelation(e.Label); err != nil {
		return err
	}
	table := kuzuVertexTable(s.namespace)
	err = s.exec(
		fmt.Sprintf(`MATCH (p:%s {id: $p}), (c:%s {id: $c})
				CREATE (p)-[:%s]->(c)`, table, table, kuzuRelTable(s.namespace, e.Label)),
		map[string]any{"p": e.ParentID, "c": e.ChildID},
	)
	if err != nil {
		return classifyKuzu("create edge", err)
	}
	return nil
}

// ensureRelation creates the relation table for label if this namespace does
// not have it yet.
func (s *KuzuSink) ensureRelation(label string) error {
	if s.relations[label] {
		return nil
	}
	ddl := fmt.Sprintf("CREATE REL TABLE IF NOT EXISTS %s(FROM %s TO %s)",
		kuzuRelTable(s.namespace, label), kuzuVertexTable(s.namespace), kuzuVertexTable(s.namespace))
	if err := s.exec(ddl, nil); err != nil {
		return classifyKuzu("create relation "+label, err)
	}
	if err := s.exec(
		fmt.Sprintf("MERGE (r:%s {label: $label})", kuzuRegistryTable(s.namespace)),
		map[string]any{"label": label},
	); err != nil {
		return classifyKuzu("register relation "+label, err)
	}
	s.relations[label] = true
	return nil
}

// ready reports whether a write may proceed. The Kuzu driver takes no
// context, so cancellation is checked here before every statement.
func (s *KuzuSink) ready(ctx context.Context) error {
	if s.conn == nil {
		return fmt.Errorf("kuzu: %w: sink closed", ErrSinkUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("kuzu: %w: %w", ErrSinkUnavailable, err)
	}
	if s.namespace == "" {
		return fmt.Errorf("kuzu: %w: call ResetNamespace first", ErrNoNamespace)
	}
	return nil
}

// ---------- Read operations ----------

// Dump reads every vertex and edge of namespace.
func (s *KuzuSink) Dump(_ context.Context, namespace string) (*Snapshot, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if s.conn == nil {
		return nil, fmt.Errorf("kuzu: %w: sink closed", ErrSinkUnavailable)
	}
	table := kuzuVertexTable(namespace)
	rows, err := s.query(
		fmt.Sprintf(`MATCH (n:%s)
		 RETURN n.id, n.text, n.kind, n.named, n.start_row, n.start_column, n.start_byte,
		        n.end_row, n.end_column, n.end_byte`, table),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("kuzu: dump %s: %w: %w", namespace, ErrNoNamespace, err)
	}
	snap := &Snapshot{Namespace: namespace, Vertices: make([]Vertex, 0, len(rows))}
	for _, r := range rows {
		snap.Vertices = append(snap.Vertices, rowToVertex(r))
	}

	labels, err := s.registeredLabels(namespace)
	if err != nil {
		return nil, fmt.Errorf("kuzu: dump %s: %w", namespace, err)
	}
	for _, l := range labels {
		rows, err := s.query(
			fmt.Sprintf("MATCH (a:%s)-[:%s]->(b:%s) RETURN a.id, b.id", table, kuzuRelTable(namespace, l), table),
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("kuzu: dump %s edges: %w", l, err)
		}
		for _, r := range rows {
			snap.Edges = append(snap.Edges, Edge{
				ParentID: toInt64(r[0]),
				ChildID:  toInt64(r[1]),
				Label:    l,
			})
		}
	}
	sortSnapshot(snap)
	return snap, nil
}

// registeredLabels lists the relation labels created in namespace.
func (s *KuzuSink) registeredLabels(namespace string) ([]string, error) {
	rows, err := s.query(
		fmt.Sprintf("MATCH (r:%s) RETURN r.label ORDER BY r.label", kuzuRegistryTable(namespace)),
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// ---------- Internal helpers ----------

// exec runs a Cypher statement that produces no result rows. Statements
// without parameters skip the prepare step.
func (s *KuzuSink) exec(cypher string, params map[string]any) error {
	if len(params) == 0 {
		res, err := s.conn.Query(cypher)
		if err != nil {
			return fmt.Errorf("kuzu: query: %w", err)
		}
		res.Close()
		return nil
	}

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuSink) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// classifyKuzu maps a KuzuDB error onto the sink error taxonomy. KuzuDB only
// reports primary key clashes through the message text.
func classifyKuzu(op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "primary key") || strings.Contains(msg, "duplicate") {
		return fmt.Errorf("kuzu: %s: %w: %w", op, ErrConstraintViolation, err)
	}
	return fmt.Errorf("kuzu: %s: %w: %w", op, ErrSinkUnavailable, err)
}

// rowToVertex converts a 10-column result row into a Vertex.
// Column order: id, text, kind, named, start_row, start_column, start_byte,
// end_row, end_column, end_byte.
func rowToVertex(r []any) Vertex {
	return Vertex{
		ID:          toInt64(r[0]),
		Text:        toString(r[1]),
		Kind:        toString(r[2]),
		Named:       toBool(r[3]),
		StartRow:    toInt64(r[4]),
		StartColumn: toInt64(r[5]),
		StartByte:   toInt64(r[6]),
		EndRow:      toInt64(r[7]),
		EndColumn:   toInt64(r[8]),
		EndByte:     toInt64(r[9]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	return int(toInt64(v))
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
