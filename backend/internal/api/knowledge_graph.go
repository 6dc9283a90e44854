package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"smart-employee/backend/internal/graph"
	"go.uber.org/zap"
)

func (s *Server) createSubgraph(c *gin.Context) {
	var req struct {
		UserID      int64  `json:"user_id" binding:"required"`
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	sg, err := s.store.CreateSubgraph(req.UserID, req.Name, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sg)
}

func (s *Server) listSubgraphs(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	subgraphs, err := s.store.ListSubgraphs(userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subgraphs)
}

func (s *Server) updateSubgraph(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid subgraph id"})
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	sg, err := s.store.UpdateSubgraph(id, req.Name, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sg)
}

// deleteSubgraph removes the subgraph's nodes from the graph store first, then
// the metadata record. Its operation log cascades away with the record.
func (s *Server) deleteSubgraph(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid subgraph id"})
		return
	}

	sg, err := s.store.GetSubgraph(id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	scope := graph.Scope{UserID: sg.UserID, SubgraphID: sg.ID}
	deleted, err := s.graph.DeleteSubgraph(c.Request.Context(), scope)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.store.DeleteSubgraph(id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "子图删除成功", "deleted_nodes": deleted})
}

// uploadDocument ingests documents into a subgraph: collect text, extract
// entities and relationships, merge them incrementally, and record the write
// so it can be undone.
func (s *Server) uploadDocument(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	if _, err := s.store.GetEmployee(userID); err != nil {
		s.respondError(c, err)
		return
	}

	var subgraphID int64
	if raw := c.PostForm("subgraph_id"); raw != "" {
		subgraphID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid subgraph id"})
			return
		}
		if _, err := s.store.GetSubgraph(subgraphID); err != nil {
			s.respondError(c, err)
			return
		}
	} else {
		sg, err := s.store.GetOrCreateDefaultSubgraph(userID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		subgraphID = sg.ID
	}

	texts, err := s.collectUploadText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if len(texts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No content provided"})
		return
	}

	nodes, rels := s.extractor.ExtractGraph(c.Request.Context(), strings.Join(texts, "\n\n"))

	scope := graph.Scope{UserID: userID, SubgraphID: subgraphID}
	if len(nodes) > 0 || len(rels) > 0 {
		if err := s.graph.UpsertGraph(c.Request.Context(), scope, nodes, rels, true); err != nil {
			s.respondError(c, err)
			return
		}
		// The write is only recorded once it has actually landed
		if _, err := s.oplog.Record(subgraphID, nodes, rels); err != nil {
			s.logger.Error("Failed to record graph operation",
				zap.Int64("subgraph_id", subgraphID),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":                 "知识图谱更新成功",
		"subgraph_id":         subgraphID,
		"nodes_count":         len(nodes),
		"relationships_count": len(rels),
	})
}

// getGraph returns the full graph of one subgraph. Without an explicit
// subgraph_id it falls back to the user's first subgraph, and to an empty
// graph when they have none.
func (s *Server) getGraph(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	var subgraphID int64
	if raw := c.Query("subgraph_id"); raw != "" {
		subgraphID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid subgraph id"})
			return
		}
	} else {
		subgraphs, err := s.store.ListSubgraphs(userID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if len(subgraphs) == 0 {
			c.JSON(http.StatusOK, graph.Graph{Nodes: []graph.Node{}, Relationships: []graph.Relationship{}})
			return
		}
		subgraphID = subgraphs[0].ID
	}

	scope := graph.Scope{UserID: userID, SubgraphID: subgraphID}
	g, err := s.graph.GetGraph(c.Request.Context(), scope)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// searchGraph answers two query shapes: the simple single-subgraph CONTAINS
// search, and the comprehensive multi-strategy search across all the user's
// subgraphs when comprehensive=true.
func (s *Server) searchGraph(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query parameter q is required"})
		return
	}

	if c.Query("comprehensive") == "true" {
		subgraphs, err := s.store.ListSubgraphs(userID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		ids := make([]int64, 0, len(subgraphs))
		for _, sg := range subgraphs {
			ids = append(ids, sg.ID)
		}

		result, err := s.graph.SearchComprehensive(c.Request.Context(), userID, ids, term)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	raw := c.Query("subgraph_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "subgraph_id is required for simple search"})
		return
	}
	subgraphID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid subgraph id"})
		return
	}

	scope := graph.Scope{UserID: userID, SubgraphID: subgraphID}
	g, err := s.graph.Search(c.Request.Context(), scope, term)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) undoLastOperation(c *gin.Context) {
	subgraphID, err := strconv.ParseInt(c.Param("subgraphID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid subgraph id"})
		return
	}

	if err := s.oplog.UndoLast(c.Request.Context(), subgraphID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "撤销成功", "subgraph_id": subgraphID})
}
