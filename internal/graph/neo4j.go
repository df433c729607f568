// Package graph implements C7: KG persistence. It upserts the node/edge
// buffers produced by internal/repograph into a Neo4j-backed labeled
// property graph, idempotently, and runs the TTL-based cleanup and nuclear
// reset operations spec.md §4.7 describes.
//
// Grounded on the teacher's internal/graph/neo4j.go (driver lifecycle,
// session-per-call idiom, constraint/index bootstrap) and
// original_source/src/graph/kg_service.py + kg_handler.py for the
// UNWIND-MERGE batching shape and the repo-scoped uniqueness semantics.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/reviewforge/kgindex/internal/graphmodel"
)

// KGLabel is the common label every persisted node carries in addition to
// its type-specific label (spec.md §6 "one common node label `KGNode`").
const KGLabel = "KGNode"

// DefaultBatchSize is spec.md §6's "a few hundred entries" default for
// UNWIND-MERGE batches.
const DefaultBatchSize = 300

// Store persists graphmodel nodes/edges to Neo4j with repository-scoped
// uniqueness (spec.md §4.7).
type Store struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
}

// NewStore dials uri and verifies connectivity before returning. database
// may be empty to use the driver's default database.
func NewStore(uri, username, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j: %w", err)
	}

	return &Store{driver: driver, database: database, batchSize: DefaultBatchSize}, nil
}

// Close closes the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// EnsureSchema bootstraps the unique constraint and the two indexes spec.md
// §4.7 requires. Idempotent: safe to call on every process start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	stmts := []string{
		"CREATE CONSTRAINT kg_node_repo_id IF NOT EXISTS FOR (n:" + KGLabel + ") REQUIRE (n.repo_id, n.node_id) IS UNIQUE",
		"CREATE INDEX kg_node_repo IF NOT EXISTS FOR (n:" + KGLabel + ") ON (n.repo_id)",
		"CREATE INDEX kg_node_last_indexed IF NOT EXISTS FOR (n:" + KGLabel + ") ON (n.last_indexed_at)",
	}
	for _, stmt := range stmts {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertResult reports how many nodes were created vs. matched and how many
// edges were created, per spec.md §6's persist_kg activity result shape.
// EdgesUpdated is never filled in: UpsertEdges counts only created edges.
type UpsertResult struct {
	NodesCreated int
	NodesUpdated int
	EdgesCreated int
	EdgesUpdated int
	Errors       []string
}

// UpsertNodes groups nodes by type and runs one batched UNWIND-MERGE
// statement per group per batch. For every element, MERGE on
// (repo_id, node_id) and SET all properties plus last_indexed_at on both
// create and match branches — refreshing the timestamp on match is what
// makes TTL cleanup correct (spec.md §4.7, invariant 8).
func (s *Store) UpsertNodes(ctx context.Context, nodes []graphmodel.KGNode, now time.Time) (*UpsertResult, error) {
	result := &UpsertResult{}
	grouped := groupNodesByType(nodes)

	for nodeType, group := range grouped {
		label := labelForType(nodeType)
		for _, batch := range chunkNodes(group, s.batchSize) {
			created, updated, err := s.upsertNodeBatch(ctx, label, batch, now)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.NodesCreated += created
			result.NodesUpdated += updated
		}
	}
	return result, nil
}

func (s *Store) upsertNodeBatch(ctx context.Context, label string, batch []graphmodel.KGNode, now time.Time) (created, updated int, err error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	rows := make([]map[string]any, len(batch))
	for i, n := range batch {
		rows[i] = nodeRow(n, now)
	}

	cypher := fmt.Sprintf(`
		UNWIND $rows AS row
		MERGE (n:%s:%s {repo_id: row.repo_id, node_id: row.node_id})
		ON CREATE SET n += row.props, n.created = true
		ON MATCH SET n += row.props
		WITH n, coalesce(n.created, false) AS wasCreated
		REMOVE n.created
		RETURN count(CASE WHEN wasCreated THEN 1 END) AS created, count(CASE WHEN NOT wasCreated THEN 1 END) AS updated
	`, KGLabel, label)

	res, err := session.Run(ctx, cypher, map[string]any{"rows": rows})
	if err != nil {
		return 0, 0, fmt.Errorf("upsert %s batch: %w", label, err)
	}
	if res.Next(ctx) {
		rec := res.Record()
		if c, ok := rec.Get("created"); ok {
			created = int(toInt64(c))
		}
		if u, ok := rec.Get("updated"); ok {
			updated = int(toInt64(u))
		}
	}
	return created, updated, res.Err()
}

// UpsertEdges groups edges by type and runs one batched MATCH+MERGE
// statement per group per batch. An edge whose endpoints are not both
// already written is silently skipped, per spec.md §4.7's documented
// upstream invariant (all endpoints are written in an earlier or the same
// batch boundary). Only EdgesCreated is counted; edges that already existed
// are not counted, so EdgesUpdated stays zero.
func (s *Store) UpsertEdges(ctx context.Context, edges []graphmodel.Edge) (*UpsertResult, error) {
	result := &UpsertResult{}
	grouped := groupEdgesByType(edges)

	for edgeType, group := range grouped {
		for _, batch := range chunkEdges(group, s.batchSize) {
			created, err := s.upsertEdgeBatch(ctx, edgeType, batch)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.EdgesCreated += created
		}
	}
	return result, nil
}

func (s *Store) upsertEdgeBatch(ctx context.Context, edgeType graphmodel.EdgeType, batch []graphmodel.Edge) (created int, err error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	rows := make([]map[string]any, len(batch))
	for i, e := range batch {
		rows[i] = map[string]any{"repo_id": e.RepoID, "source": e.Source, "target": e.Target}
	}

	cypher := fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (src:%s {repo_id: row.repo_id, node_id: row.source})
		MATCH (tgt:%s {repo_id: row.repo_id, node_id: row.target})
		MERGE (src)-[r:%s]->(tgt)
		ON CREATE SET r.repo_id = row.repo_id, r.created = true
		ON MATCH SET r.repo_id = row.repo_id
		WITH r, r.created AS wasCreated
		REMOVE r.created
		RETURN count(CASE WHEN wasCreated THEN 1 END) AS created
	`, KGLabel, KGLabel, string(edgeType))

	res, err := session.Run(ctx, cypher, map[string]any{"rows": rows})
	if err != nil {
		return 0, fmt.Errorf("upsert %s batch: %w", edgeType, err)
	}
	if res.Next(ctx) {
		if c, ok := res.Record().Get("created"); ok {
			created = int(toInt64(c))
		}
	}
	return created, res.Err()
}

// CleanupStale deletes every node in repoID whose last_indexed_at is older
// than now-ttl, detaching its edges (spec.md §4.7 cleanup). Returns the
// number of nodes deleted.
func (s *Store) CleanupStale(ctx context.Context, repoID string, ttl time.Duration, now time.Time) (int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	cutoff := now.Add(-ttl).UnixMilli()
	res, err := session.Run(ctx, fmt.Sprintf(`
		MATCH (n:%s {repo_id: $repo_id})
		WHERE n.last_indexed_at < $cutoff
		WITH n, count(n) AS c
		DETACH DELETE n
		RETURN sum(c) AS deleted
	`, KGLabel), map[string]any{"repo_id": repoID, "cutoff": cutoff})
	if err != nil {
		return 0, fmt.Errorf("cleanup stale: %w", err)
	}
	if res.Next(ctx) {
		if d, ok := res.Record().Get("deleted"); ok && d != nil {
			return int(toInt64(d)), res.Err()
		}
	}
	return 0, res.Err()
}

// Reset deletes every node for repoID regardless of age ("nuclear reset",
// spec.md §4.7).
func (s *Store) Reset(ctx context.Context, repoID string) (int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, fmt.Sprintf(`
		MATCH (n:%s {repo_id: $repo_id})
		WITH n, count(n) AS c
		DETACH DELETE n
		RETURN sum(c) AS deleted
	`, KGLabel), map[string]any{"repo_id": repoID})
	if err != nil {
		return 0, fmt.Errorf("reset: %w", err)
	}
	if res.Next(ctx) {
		if d, ok := res.Record().Get("deleted"); ok && d != nil {
			return int(toInt64(d)), res.Err()
		}
	}
	return 0, res.Err()
}

// NodeCount returns the number of persisted nodes for repoID, for the CLI's
// status subcommand.
func (s *Store) NodeCount(ctx context.Context, repoID string) (int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, fmt.Sprintf(`
		MATCH (n:%s {repo_id: $repo_id})
		RETURN count(n) AS total
	`, KGLabel), map[string]any{"repo_id": repoID})
	if err != nil {
		return 0, fmt.Errorf("node count: %w", err)
	}
	if res.Next(ctx) {
		if v, ok := res.Record().Get("total"); ok && v != nil {
			return int(toInt64(v)), res.Err()
		}
	}
	return 0, res.Err()
}

func labelForType(t graphmodel.NodeType) string {
	switch t {
	case graphmodel.NodeTypeFile:
		return "FileNode"
	case graphmodel.NodeTypeSymbol:
		return "SymbolNode"
	case graphmodel.NodeTypeText:
		return "TextNode"
	default:
		return "KGNodeUnknown"
	}
}

func groupNodesByType(nodes []graphmodel.KGNode) map[graphmodel.NodeType][]graphmodel.KGNode {
	grouped := make(map[graphmodel.NodeType][]graphmodel.KGNode)
	for _, n := range nodes {
		grouped[n.Type] = append(grouped[n.Type], n)
	}
	return grouped
}

func groupEdgesByType(edges []graphmodel.Edge) map[graphmodel.EdgeType][]graphmodel.Edge {
	grouped := make(map[graphmodel.EdgeType][]graphmodel.Edge)
	for _, e := range edges {
		grouped[e.Type] = append(grouped[e.Type], e)
	}
	return grouped
}

func chunkNodes(nodes []graphmodel.KGNode, size int) [][]graphmodel.KGNode {
	var batches [][]graphmodel.KGNode
	for start := 0; start < len(nodes); start += size {
		end := start + size
		if end > len(nodes) {
			end = len(nodes)
		}
		batches = append(batches, nodes[start:end])
	}
	return batches
}

func chunkEdges(edges []graphmodel.Edge, size int) [][]graphmodel.Edge {
	var batches [][]graphmodel.Edge
	for start := 0; start < len(edges); start += size {
		end := start + size
		if end > len(edges) {
			end = len(edges)
		}
		batches = append(batches, edges[start:end])
	}
	return batches
}

// nodeRow flattens one KGNode into the {repo_id, node_id, props} shape the
// UNWIND-MERGE statement expects. node_type is carried as a property
// (spec.md §6) so callers can disambiguate the polymorphic KGNode label
// without a second label lookup.
func nodeRow(n graphmodel.KGNode, now time.Time) map[string]any {
	props := map[string]any{
		"repo_id":         n.RepoID,
		"node_id":         n.NodeID,
		"node_type":       string(n.Type),
		"last_indexed_at": now.UnixMilli(),
	}
	switch n.Type {
	case graphmodel.NodeTypeFile:
		props["basename"] = n.File.Basename
		props["relative_path"] = n.File.RelativePath
	case graphmodel.NodeTypeSymbol:
		props["symbol_version_id"] = n.Symbol.SymbolVersionID
		props["stable_symbol_id"] = n.Symbol.StableSymbolID
		props["kind"] = n.Symbol.Kind
		props["name"] = n.Symbol.Name
		props["qualified_name"] = n.Symbol.QualifiedName
		props["language"] = n.Symbol.Language
		props["relative_path"] = n.Symbol.RelativePath
		props["start_line"] = n.Symbol.StartLine
		props["end_line"] = n.Symbol.EndLine
		props["signature"] = n.Symbol.Signature
		props["docstring"] = n.Symbol.Docstring
		props["fingerprint"] = n.Symbol.Fingerprint
	case graphmodel.NodeTypeText:
		props["text"] = n.Text.Text
		props["start_line"] = n.Text.StartLine
		props["end_line"] = n.Text.EndLine
	}
	return map[string]any{"repo_id": n.RepoID, "node_id": n.NodeID, "props": props}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
