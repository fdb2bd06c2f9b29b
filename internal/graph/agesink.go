package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ageConn is the subset of *pgx.Conn the AGE sink uses.
type ageConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
	Close(ctx context.Context) error
}

// Compile-time check that AGESink satisfies Sink and Dumper.
var (
	_ Sink   = (*AGESink)(nil)
	_ Dumper = (*AGESink)(nil)
)

// AGESink implements Sink on PostgreSQL with the Apache AGE extension. Each
// namespace is an AGE graph; vertices carry the SyntaxNode label and every
// relation label becomes an AGE edge label. The sink holds a single
// connection for its whole lifetime.
type AGESink struct {
	conn      ageConn
	namespace string
}

// NewAGESink connects to dsn and prepares the session for Cypher queries.
func NewAGESink(ctx context.Context, dsn string) (*AGESink, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("age: connect: %w: %w", ErrSinkUnavailable, err)
	}
	s, err := NewAGESinkWithConnection(ctx, conn)
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

// NewAGESinkWithConnection wraps an existing connection. The AGE extension is
// loaded into the session and ag_catalog put on the search path.
func NewAGESinkWithConnection(ctx context.Context, conn ageConn) (*AGESink, error) {
	for _, stmt := range []string{
		"LOAD 'age'",
		`SET search_path = ag_catalog, "$user", public`,
	} {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("age: session setup: %w: %w", ErrSinkUnavailable, err)
		}
	}
	return &AGESink{conn: conn}, nil
}

// Close closes the underlying connection.
func (s *AGESink) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(context.Background())
	s.conn = nil
	return err
}

// ---------- Namespace lifecycle ----------

// ResetNamespace drops the AGE graph called name if it exists and creates it
// again with the SyntaxNode vertex label.
func (s *AGESink) ResetNamespace(ctx context.Context, name string) error {
	if err := ValidateNamespace(name); err != nil {
		return err
	}
	if s.conn == nil {
		return fmt.Errorf("age: %w: sink closed", ErrSinkUnavailable)
	}

	exists, err := s.graphExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		if _, err := s.conn.Exec(ctx, "SELECT ag_catalog.drop_graph($1, true)", name); err != nil {
			return classifyPG("drop graph "+name, err)
		}
	}
	if _, err := s.conn.Exec(ctx, "SELECT ag_catalog.create_graph($1)", name); err != nil {
		return classifyPG("create graph "+name, err)
	}
	if _, err := s.conn.Exec(ctx, "SELECT ag_catalog.create_vlabel($1, $2)", name, VertexLabel); err != nil {
		return classifyPG("create vertex label", err)
	}
	s.namespace = name
	return nil
}

func (s *AGESink) graphExists(ctx context.Context, name string) (bool, error) {
	var n int64
	err := s.conn.QueryRow(ctx, "SELECT count(*) FROM ag_catalog.ag_graph WHERE name = $1", name).Scan(&n)
	if err != nil {
		return false, classifyPG("lookup graph "+name, err)
	}
	return n > 0, nil
}

// ---------- Write operations ----------

// CreateVertex inserts a SyntaxNode vertex. AGE has no uniqueness
// constraints, so the ID is checked before the insert.
func (s *AGESink) CreateVertex(ctx context.Context, v Vertex) error {
	if err := s.ready(); err != nil {
		return err
	}
	params, err := ageParams(map[string]any{"id": v.ID})
	if err != nil {
		return err
	}
	n, err := s.count(ctx, ageCypherSQL(s.namespace,
		"MATCH (n:"+VertexLabel+" {id: $id}) RETURN count(n)", "n"), params)
	if err != nil {
		return classifyPG("create vertex", err)
	}
	if n > 0 {
		return fmt.Errorf("age: create vertex: %w: duplicate vertex id %d", ErrConstraintViolation, v.ID)
	}

	params, err = ageParams(vertexProperties(v))
	if err != nil {
		return err
	}
	if _, err := s.conn.Exec(ctx, ageCypherSQL(s.namespace, ageCreateVertexCypher, "v"), params); err != nil {
		return classifyPG("create vertex", err)
	}
	return nil
}

// CreateEdge inserts a labeled edge. The MATCH-CREATE returns how many edges
// it created, which is zero when an endpoint is missing.
func (s *AGESink) CreateEdge(ctx context.Context, e Edge) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := validateLabel(e.Label); err != nil {
		return fmt.Errorf("age: %w", err)
	}
	params, err := ageParams(map[string]any{"parent_id": e.ParentID, "child_id": e.ChildID})
	if err != nil {
		return err
	}
	n, err := s.count(ctx, ageCypherSQL(s.namespace, ageCreateEdgeCypher(e.Label), "n"), params)
	if err != nil {
		return classifyPG("create edge "+e.Label, err)
	}
	if n == 0 {
		return fmt.Errorf("age: create edge %s %d->%d: %w: missing endpoint",
			e.Label, e.ParentID, e.ChildID, ErrConstraintViolation)
	}
	return nil
}

func (s *AGESink) ready() error {
	if s.conn == nil {
		return fmt.Errorf("age: %w: sink closed", ErrSinkUnavailable)
	}
	if s.namespace == "" {
		return fmt.Errorf("age: %w: call ResetNamespace first", ErrNoNamespace)
	}
	return nil
}

// count runs a single-column cypher query and decodes its agtype integer.
func (s *AGESink) count(ctx context.Context, sql string, args ...any) (int64, error) {
	var raw string
	if err := s.conn.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return 0, err
	}
	v, err := decodeAgtype(raw)
	if err != nil {
		return 0, err
	}
	return agInt64(v), nil
}

// ---------- Read operations ----------

// Dump reads every vertex and edge of namespace.
func (s *AGESink) Dump(ctx context.Context, namespace string) (*Snapshot, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if s.conn == nil {
		return nil, fmt.Errorf("age: %w: sink closed", ErrSinkUnavailable)
	}
	exists, err := s.graphExists(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("age: %w: %q", ErrNoNamespace, namespace)
	}

	snap := &Snapshot{Namespace: namespace}
	err = s.collect(ctx, ageCypherSQL(namespace,
		"MATCH (n:"+VertexLabel+") RETURN n.id, n.text, n.kind, n.named, n.start_row, n.start_column, n.start_byte, n.end_row, n.end_column, n.end_byte",
		"id", "text", "kind", "named", "sr", "sc", "sb", "er", "ec", "eb"),
		func(vals []any) {
			snap.Vertices = append(snap.Vertices, Vertex{
				ID:          agInt64(vals[0]),
				Text:        agString(vals[1]),
				Kind:        agString(vals[2]),
				Named:       vals[3] == true,
				StartRow:    agInt64(vals[4]),
				StartColumn: agInt64(vals[5]),
				StartByte:   agInt64(vals[6]),
				EndRow:      agInt64(vals[7]),
				EndColumn:   agInt64(vals[8]),
				EndByte:     agInt64(vals[9]),
			})
		})
	if err != nil {
		return nil, err
	}

	err = s.collect(ctx, ageCypherSQL(namespace,
		"MATCH (a:"+VertexLabel+")-[e]->(b:"+VertexLabel+") RETURN a.id, b.id, label(e)",
		"parent", "child", "label"),
		func(vals []any) {
			snap.Edges = append(snap.Edges, Edge{
				ParentID: agInt64(vals[0]),
				ChildID:  agInt64(vals[1]),
				Label:    agString(vals[2]),
			})
		})
	if err != nil {
		return nil, err
	}
	sortSnapshot(snap)
	return snap, nil
}

// collect runs a cypher query whose columns are all agtype and hands each
// decoded row to fn.
func (s *AGESink) collect(ctx context.Context, sql string, fn func([]any)) error {
	rows, err := s.conn.Query(ctx, sql)
	if err != nil {
		return classifyPG("dump", err)
	}
	defer rows.Close()

	for rows.Next() {
		raw := rows.RawValues()
		vals := make([]any, len(raw))
		for i, b := range raw {
			if b == nil {
				continue
			}
			v, err := decodeAgtype(string(b))
			if err != nil {
				return fmt.Errorf("age: dump: %w", err)
			}
			vals[i] = v
		}
		fn(vals)
	}
	if err := rows.Err(); err != nil {
		return classifyPG("dump", err)
	}
	return nil
}

// ---------- Query construction ----------

const ageCreateVertexCypher = `CREATE (:` + VertexLabel + ` {
	id: $id,
	text: $text,
	kind: $kind,
	named: $named,
	start_row: $start_row,
	start_column: $start_column,
	start_byte: $start_byte,
	end_row: $end_row,
	end_column: $end_column,
	end_byte: $end_byte
})`

// ageCreateEdgeCypher returns the MATCH-CREATE for one labeled edge. The
// label must already have passed validateLabel.
func ageCreateEdgeCypher(label string) string {
	return fmt.Sprintf(`MATCH (p:%s {id: $parent_id}), (c:%s {id: $child_id})
CREATE (p)-[e:%s]->(c)
RETURN count(e)`, VertexLabel, VertexLabel, label)
}

// ageCypherSQL wraps a Cypher query in the cypher() table function. The
// graph name must already have passed ValidateNamespace. When the query uses
// parameters they are bound to $1 as an agtype map.
func ageCypherSQL(graph, cypher string, columns ...string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = c + " ag_catalog.agtype"
	}
	paramArg := ""
	if strings.Contains(cypher, "$") {
		paramArg = ", $1"
	}
	return fmt.Sprintf("SELECT * FROM ag_catalog.cypher('%s', $$\n%s\n$$%s) AS (%s)",
		graph, cypher, paramArg, strings.Join(cols, ", "))
}

func vertexProperties(v Vertex) map[string]any {
	return map[string]any{
		"id":           v.ID,
		"text":         v.Text,
		"kind":         v.Kind,
		"named":        v.Named,
		"start_row":    v.StartRow,
		"start_column": v.StartColumn,
		"start_byte":   v.StartByte,
		"end_row":      v.EndRow,
		"end_column":   v.EndColumn,
		"end_byte":     v.EndByte,
	}
}

// ageParams encodes a parameter map in agtype's JSON text form.
func ageParams(params map[string]any) (string, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("age: encode params: %w", err)
	}
	return string(b), nil
}

// decodeAgtype parses the text form of a scalar agtype value. Vertex and edge
// values carry a "::vertex"/"::edge" suffix which is stripped.
func decodeAgtype(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	for _, suffix := range []string{"::vertex", "::edge", "::path", "::numeric"} {
		raw = strings.TrimSuffix(raw, suffix)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode agtype %q: %w", raw, err)
	}
	return v, nil
}

func agInt64(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return int64(f)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

func agString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// classifyPG maps a PostgreSQL error onto the sink error taxonomy.
func classifyPG(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 23 is integrity constraint violation.
		if strings.HasPrefix(pgErr.Code, "23") {
			return fmt.Errorf("age: %s: %w: %w", op, ErrConstraintViolation, err)
		}
	}
	return fmt.Errorf("age: %s: %w: %w", op, ErrSinkUnavailable, err)
}
