package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"smart-employee/backend/internal/agent"
	"smart-employee/backend/internal/extraction"
	"smart-employee/backend/internal/graph"
	"smart-employee/backend/internal/oplog"
	"smart-employee/backend/internal/persona"
	"smart-employee/backend/internal/store"
	apperrors "smart-employee/backend/pkg/errors"
	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
)

// Server wires the HTTP surface to the core services
type Server struct {
	store     *store.Store
	graph     *graph.Repository
	oplog     *oplog.Manager
	extractor *extraction.Client
	analyzer  *persona.Analyzer
	responder *agent.Responder
	logger    *zap.Logger
}

// NewServer creates the API server with its collaborators
func NewServer(st *store.Store, repo *graph.Repository, ops *oplog.Manager, extractor *extraction.Client, analyzer *persona.Analyzer, responder *agent.Responder) *Server {
	return &Server{
		store:     st,
		graph:     repo,
		oplog:     ops,
		extractor: extractor,
		analyzer:  analyzer,
		responder: responder,
		logger:    logger.Get(),
	}
}

// RegisterRoutes attaches all API routes to the router
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	users := api.Group("/users")
	{
		users.POST("", s.createUser)
		users.GET("/list/all", s.listUsers)
		users.GET("/questions/generate", s.generateQuestions)
		users.GET("/:id", s.getUser)
		users.DELETE("/:id", s.deleteUser)
		users.POST("/:id/logic", s.submitLogicTest)
		users.POST("/:id/upload", s.uploadPersonaDocument)
	}

	kg := api.Group("/kg")
	{
		kg.POST("/subgraph", s.createSubgraph)
		kg.GET("/subgraph/list/:userID", s.listSubgraphs)
		kg.PUT("/subgraph/:id", s.updateSubgraph)
		kg.DELETE("/subgraph/:id", s.deleteSubgraph)

		kg.POST("/upload/:userID", s.uploadDocument)
		kg.GET("/search/:userID", s.searchGraph)
		kg.POST("/undo/:subgraphID", s.undoLastOperation)

		kg.POST("/node/:userID", s.createNode)
		kg.DELETE("/node/:userID/:nodeID", s.deleteNode)
		kg.POST("/relationship/:userID", s.createRelationship)
		kg.DELETE("/relationship/:userID", s.deleteRelationship)

		kg.GET("/:userID", s.getGraph)
	}

	api.POST("/chat/:userID", s.chat)
}

// respondError maps core error categories onto HTTP statuses
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNoOperations):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No operations to undo"})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	default:
		s.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
