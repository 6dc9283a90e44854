package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"smart-employee/backend/internal/graph"
	"smart-employee/backend/internal/identity"
)

// createNode adds a single node with a stable content-derived id, so creating
// the same (label, name) twice converges on one node.
func (s *Server) createNode(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	var req struct {
		SubgraphID int64  `json:"subgraph_id" binding:"required"`
		Name       string `json:"name" binding:"required"`
		Label      string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	label := req.Label
	if label == "" {
		label = identity.DefaultLabel
	}

	node := graph.Node{
		ID:    identity.Resolve(label, req.Name),
		Label: label,
		Name:  req.Name,
	}

	scope := graph.Scope{UserID: userID, SubgraphID: req.SubgraphID}
	if err := s.graph.UpsertGraph(c.Request.Context(), scope, []graph.Node{node}, nil, true); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "节点创建成功", "node": node})
}

func (s *Server) deleteNode(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}
	nodeID := c.Param("nodeID")

	subgraphID, err := strconv.ParseInt(c.Query("subgraph_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid subgraph id"})
		return
	}

	scope := graph.Scope{UserID: userID, SubgraphID: subgraphID}
	deleted, err := s.graph.DeleteNode(c.Request.Context(), scope, nodeID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "node not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "节点删除成功", "deleted": deleted})
}

// createRelationship adds a typed edge between two existing nodes. Endpoints
// that do not exist in the scope are not created implicitly, so the merge is
// a no-op for dangling references.
func (s *Server) createRelationship(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	var req struct {
		SubgraphID int64  `json:"subgraph_id" binding:"required"`
		FromID     string `json:"from_id" binding:"required"`
		ToID       string `json:"to_id" binding:"required"`
		Type       string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	relType := req.Type
	if relType == "" {
		relType = "RELATED_TO"
	}
	rel := graph.Relationship{From: req.FromID, To: req.ToID, Type: relType}

	scope := graph.Scope{UserID: userID, SubgraphID: req.SubgraphID}
	if err := s.graph.UpsertGraph(c.Request.Context(), scope, nil, []graph.Relationship{rel}, true); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "关系创建成功", "relationship": rel})
}

func (s *Server) deleteRelationship(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	var req struct {
		SubgraphID int64  `json:"subgraph_id" binding:"required"`
		FromID     string `json:"from_id" binding:"required"`
		ToID       string `json:"to_id" binding:"required"`
		Type       string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	scope := graph.Scope{UserID: userID, SubgraphID: req.SubgraphID}
	deleted, err := s.graph.DeleteRelationship(c.Request.Context(), scope, req.FromID, req.ToID, req.Type)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "relationship not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "关系删除成功", "deleted": deleted})
}
