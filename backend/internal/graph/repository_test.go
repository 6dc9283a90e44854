package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Integration tests against a live Neo4j instance. Set NEO4J_TEST_URI
// (and optionally NEO4J_TEST_USER / NEO4J_TEST_PASSWORD) to enable them.
func testRepository(t *testing.T) (*Repository, Scope) {
	t.Helper()

	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set, skipping graph integration test")
	}
	user := os.Getenv("NEO4J_TEST_USER")
	if user == "" {
		user = "neo4j"
	}
	password := os.Getenv("NEO4J_TEST_PASSWORD")
	if password == "" {
		password = "password"
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	repo := NewRepository(driver)
	if err := repo.VerifyConnectivity(context.Background()); err != nil {
		t.Fatalf("Failed to verify connectivity: %v", err)
	}

	// A unique scope per test run keeps tests isolated without a shared fixture
	scope := Scope{UserID: time.Now().UnixNano(), SubgraphID: 1}
	t.Cleanup(func() {
		repo.DeleteSubgraph(context.Background(), scope)
		repo.Close()
	})
	return repo, scope
}

func TestUpsertGraph_MergeIsIdempotent(t *testing.T) {
	repo, scope := testRepository(t)
	ctx := context.Background()

	nodes := []Node{
		{ID: "Person_abc", Label: "Person", Name: "张三"},
		{ID: "Company_def", Label: "Company", Name: "ABC公司"},
	}
	rels := []Relationship{{From: "Person_abc", To: "Company_def", Type: "WORKS_AT"}}

	for i := 0; i < 2; i++ {
		if err := repo.UpsertGraph(ctx, scope, nodes, rels, true); err != nil {
			t.Fatalf("UpsertGraph failed on pass %d: %v", i, err)
		}
	}

	g, err := repo.GetGraph(ctx, scope)
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("Expected 2 nodes after repeated upsert, got %d", len(g.Nodes))
	}
	if len(g.Relationships) != 1 {
		t.Errorf("Expected 1 relationship after repeated upsert, got %d", len(g.Relationships))
	}
}

func TestUpsertGraph_ReplaceClearsScope(t *testing.T) {
	repo, scope := testRepository(t)
	ctx := context.Background()

	first := []Node{{ID: "Person_abc", Label: "Person", Name: "张三"}}
	if err := repo.UpsertGraph(ctx, scope, first, nil, true); err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	second := []Node{{ID: "Person_xyz", Label: "Person", Name: "李四"}}
	if err := repo.UpsertGraph(ctx, scope, second, nil, false); err != nil {
		t.Fatalf("UpsertGraph replace failed: %v", err)
	}

	g, err := repo.GetGraph(ctx, scope)
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "Person_xyz" {
		t.Errorf("Expected scope replaced with the second batch, got %+v", g.Nodes)
	}
}

func TestUpsertGraph_ScopeIsolation(t *testing.T) {
	repo, scope := testRepository(t)
	ctx := context.Background()

	other := Scope{UserID: scope.UserID, SubgraphID: scope.SubgraphID + 1}
	t.Cleanup(func() { repo.DeleteSubgraph(context.Background(), other) })

	if err := repo.UpsertGraph(ctx, scope, []Node{{ID: "n1", Label: "Entity", Name: "一"}}, nil, true); err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}
	if err := repo.UpsertGraph(ctx, other, []Node{{ID: "n2", Label: "Entity", Name: "二"}}, nil, true); err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	g, err := repo.GetGraph(ctx, scope)
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "n1" {
		t.Errorf("Expected only the scoped node, got %+v", g.Nodes)
	}
}

func TestUpsertGraph_DanglingRelationshipIsNoop(t *testing.T) {
	repo, scope := testRepository(t)
	ctx := context.Background()

	rels := []Relationship{{From: "missing_a", To: "missing_b", Type: "KNOWS"}}
	if err := repo.UpsertGraph(ctx, scope, nil, rels, true); err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	g, err := repo.GetGraph(ctx, scope)
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if len(g.Nodes) != 0 || len(g.Relationships) != 0 {
		t.Errorf("Expected no implicit node creation, got %+v", g)
	}
}

func TestDeleteNode_RemovesIncidentEdges(t *testing.T) {
	repo, scope := testRepository(t)
	ctx := context.Background()

	nodes := []Node{
		{ID: "a", Label: "Entity", Name: "甲"},
		{ID: "b", Label: "Entity", Name: "乙"},
	}
	rels := []Relationship{{From: "a", To: "b", Type: "KNOWS"}}
	if err := repo.UpsertGraph(ctx, scope, nodes, rels, true); err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	deleted, err := repo.DeleteNode(ctx, scope, "a")
	if err != nil {
		t.Fatalf("DeleteNode failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted node, got %d", deleted)
	}

	g, err := repo.GetGraph(ctx, scope)
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if len(g.Nodes) != 1 || len(g.Relationships) != 0 {
		t.Errorf("Expected surviving node with no edges, got %+v", g)
	}
}

func TestUndoOperation_RemovesRecordedItems(t *testing.T) {
	repo, scope := testRepository(t)
	ctx := context.Background()

	nodes := []Node{
		{ID: "a", Label: "Entity", Name: "甲"},
		{ID: "b", Label: "Entity", Name: "乙"},
	}
	rels := []Relationship{{From: "a", To: "b", Type: "KNOWS"}}
	if err := repo.UpsertGraph(ctx, scope, nodes, rels, true); err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	if err := repo.UndoOperation(ctx, scope, nodes, rels); err != nil {
		t.Fatalf("UndoOperation failed: %v", err)
	}

	g, err := repo.GetGraph(ctx, scope)
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if len(g.Nodes) != 0 || len(g.Relationships) != 0 {
		t.Errorf("Expected empty scope after undo, got %+v", g)
	}

	// Undoing again tolerates the items already being gone
	if err := repo.UndoOperation(ctx, scope, nodes, rels); err != nil {
		t.Errorf("Expected repeated undo to be tolerated, got %v", err)
	}
}

func TestSearch_ContainsPass(t *testing.T) {
	repo, scope := testRepository(t)
	ctx := context.Background()

	nodes := []Node{
		{ID: "Person_abc", Label: "Person", Name: "张三"},
		{ID: "Company_def", Label: "Company", Name: "ABC公司"},
	}
	rels := []Relationship{{From: "Person_abc", To: "Company_def", Type: "WORKS_AT"}}
	if err := repo.UpsertGraph(ctx, scope, nodes, rels, true); err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	g, err := repo.Search(ctx, scope, "张")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].Name != "张三" {
		t.Errorf("Expected the matching node, got %+v", g.Nodes)
	}

	g, err = repo.Search(ctx, scope, "works")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(g.Relationships) != 1 {
		t.Errorf("Expected relationship type match, got %+v", g.Relationships)
	}
}

func TestSearchComprehensive_PrecedenceAndExpansion(t *testing.T) {
	repo, scope := testRepository(t)
	ctx := context.Background()

	nodes := []Node{
		{ID: "Person_abc", Label: "Person", Name: "张三"},
		{ID: "Person_ghi", Label: "Person", Name: "张三丰"},
		{ID: "Company_def", Label: "Company", Name: "ABC公司"},
	}
	rels := []Relationship{
		{From: "Person_abc", To: "Company_def", Type: "WORKS_AT"},
	}
	if err := repo.UpsertGraph(ctx, scope, nodes, rels, true); err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	result, err := repo.SearchComprehensive(ctx, scope.UserID, []int64{scope.SubgraphID}, "张三")
	if err != nil {
		t.Fatalf("SearchComprehensive failed: %v", err)
	}

	byID := make(map[string]MatchType)
	for _, n := range result.Nodes {
		byID[n.ID] = n.MatchType
	}
	if byID["Person_abc"] != MatchExact {
		t.Errorf("Expected exact match for 张三, got %s", byID["Person_abc"])
	}
	if byID["Person_ghi"] != MatchPartial {
		t.Errorf("Expected partial match for 张三丰, got %s", byID["Person_ghi"])
	}
	// The company only appears through relational expansion
	if byID["Company_def"] != MatchRelated {
		t.Errorf("Expected related match for the employer, got %s", byID["Company_def"])
	}
	if len(result.Nodes) > 0 && result.Nodes[0].MatchType != MatchExact {
		t.Errorf("Expected exact matches sorted first, got %s", result.Nodes[0].MatchType)
	}
}
