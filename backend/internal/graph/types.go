package graph

// Scope is the (user, subgraph) pair that partitions all graph data.
// Every node and edge carries both as mandatory co-keys, and every
// repository operation is filtered by them.
type Scope struct {
	UserID     int64
	SubgraphID int64
}

// Node represents a graph node within a scope
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Relationship represents a typed, directed edge between two scoped nodes
type Relationship struct {
	From     string `json:"from"`
	FromName string `json:"from_name,omitempty"`
	To       string `json:"to"`
	ToName   string `json:"to_name,omitempty"`
	Type     string `json:"type"`
}

// Graph is a full scoped dump of nodes and relationships
type Graph struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// MatchType records which search strategy produced a result
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
	MatchLabel   MatchType = "label"
	MatchFuzzy   MatchType = "fuzzy"
	MatchRelated MatchType = "related"
)

// Rank returns the precedence of a match type; lower is stronger.
// Callers sort search results on this so exact matches surface first.
func (m MatchType) Rank() int {
	switch m {
	case MatchExact:
		return 0
	case MatchPartial:
		return 1
	case MatchLabel:
		return 2
	case MatchFuzzy:
		return 3
	case MatchRelated:
		return 4
	default:
		return 5
	}
}

// NodeMatch is a node search result with its match classification
type NodeMatch struct {
	Node
	SubgraphID int64     `json:"subgraph_id"`
	MatchType  MatchType `json:"match_type"`
}

// RelationshipMatch is a relationship search result with its match classification
type RelationshipMatch struct {
	Relationship
	SubgraphID int64     `json:"subgraph_id"`
	MatchType  MatchType `json:"match_type"`
}

// SearchResult holds the merged output of all search strategies
type SearchResult struct {
	Nodes         []NodeMatch         `json:"nodes"`
	Relationships []RelationshipMatch `json:"relationships"`
}
