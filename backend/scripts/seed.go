package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"smart-employee/backend/internal/graph"
	"smart-employee/backend/internal/identity"
	"smart-employee/backend/internal/oplog"
	"smart-employee/backend/internal/store"
	"smart-employee/backend/pkg/config"
	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
)

// Seeds a demo employee with a small knowledge graph, and creates the Neo4j
// indexes the scoped queries rely on. Safe to re-run: the employee is looked
// up by name and graph writes merge.
func main() {
	name := flag.String("name", "张三", "Demo employee name")
	force := flag.Bool("force", false, "Seed the demo graph even if the employee already exists")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	repo := graph.NewRepository(driver)
	if err := repo.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	log.Info("Creating indexes...")
	if err := createIndexes(ctx, driver); err != nil {
		log.Warn("Failed to create some indexes (may already exist)", zap.Error(err))
	}

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open relational store", zap.Error(err))
	}
	defer st.Close()

	employee, existed, err := findOrCreateEmployee(st, *name)
	if err != nil {
		log.Fatal("Failed to create demo employee", zap.Error(err))
	}
	if existed && !*force {
		log.Info("Employee already exists, skipping graph seed (use -force to reseed)",
			zap.Int64("user_id", employee.ID),
			zap.String("name", employee.Name),
		)
		return
	}

	subgraph, err := st.GetOrCreateDefaultSubgraph(employee.ID)
	if err != nil {
		log.Fatal("Failed to create default subgraph", zap.Error(err))
	}

	nodes, rels := demoGraph(*name)
	scope := graph.Scope{UserID: employee.ID, SubgraphID: subgraph.ID}
	if err := repo.UpsertGraph(ctx, scope, nodes, rels, true); err != nil {
		log.Fatal("Failed to seed demo graph", zap.Error(err))
	}
	if _, err := oplog.NewManager(st, repo).Record(subgraph.ID, nodes, rels); err != nil {
		log.Warn("Failed to record seed operation", zap.Error(err))
	}

	log.Info("Seeding completed",
		zap.Int64("user_id", employee.ID),
		zap.Int64("subgraph_id", subgraph.ID),
		zap.Int("nodes", len(nodes)),
		zap.Int("relationships", len(rels)),
	)
}

func createIndexes(ctx context.Context, driver neo4j.DriverWithContext) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	indexes := []string{
		"CREATE INDEX entity_scope IF NOT EXISTS FOR (n:Entity) ON (n.user_id, n.subgraph_id)",
		"CREATE INDEX entity_id IF NOT EXISTS FOR (n:Entity) ON (n.id)",
		"CREATE INDEX person_scope IF NOT EXISTS FOR (n:Person) ON (n.user_id, n.subgraph_id)",
		"CREATE INDEX company_scope IF NOT EXISTS FOR (n:Company) ON (n.user_id, n.subgraph_id)",
	}
	for _, stmt := range indexes {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

func findOrCreateEmployee(st *store.Store, name string) (*store.Employee, bool, error) {
	employees, err := st.ListEmployees()
	if err != nil {
		return nil, false, err
	}
	for i := range employees {
		if employees[i].Name == name {
			return &employees[i], true, nil
		}
	}
	employee, err := st.CreateEmployee(name, "高级工程师", "后端开发")
	return employee, false, err
}

func demoGraph(name string) ([]graph.Node, []graph.Relationship) {
	person := identity.Resolve("Person", name)
	company := identity.Resolve("Company", "ABC公司")
	project := identity.Resolve("Project", "订单系统重构")

	nodes := []graph.Node{
		{ID: person, Label: "Person", Name: name},
		{ID: company, Label: "Company", Name: "ABC公司"},
		{ID: project, Label: "Project", Name: "订单系统重构"},
	}
	rels := []graph.Relationship{
		{From: person, To: company, Type: "WORKS_AT"},
		{From: person, To: project, Type: "LEADS"},
	}
	return nodes, rels
}
