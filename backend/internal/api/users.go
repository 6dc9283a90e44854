package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"smart-employee/backend/internal/persona"
	"go.uber.org/zap"
)

// userResponse combines an employee with their persona
type userResponse struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Role    string          `json:"role"`
	Domain  string          `json:"domain"`
	Persona *personaPayload `json:"persona,omitempty"`
}

type personaPayload struct {
	BaseLogicType          string `json:"base_logic_type,omitempty"`
	ExtractedPositiveLogic string `json:"extracted_positive_logic,omitempty"`
	ExtractedToneStyle     string `json:"extracted_tone_style,omitempty"`
	Name                   string `json:"name"`
	Description            string `json:"description"`
}

func (s *Server) userPayload(userID int64) (*userResponse, error) {
	employee, err := s.store.GetEmployee(userID)
	if err != nil {
		return nil, err
	}
	resp := &userResponse{
		ID:     employee.ID,
		Name:   employee.Name,
		Role:   employee.Role,
		Domain: employee.Domain,
	}
	if p, err := s.store.GetPersona(userID); err == nil {
		resp.Persona = &personaPayload{
			BaseLogicType:          deref(p.BaseLogicType),
			ExtractedPositiveLogic: deref(p.ExtractedPositiveLogic),
			ExtractedToneStyle:     deref(p.ExtractedToneStyle),
			Name:                   p.Name,
			Description:            p.Description,
		}
	}
	return resp, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Server) createUser(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required"`
		Role   string `json:"role"`
		Domain string `json:"domain"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	employee, err := s.store.CreateEmployee(req.Name, req.Role, req.Domain)
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp, err := s.userPayload(employee.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	resp, err := s.userPayload(userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listUsers(c *gin.Context) {
	employees, err := s.store.ListEmployees()
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := make([]userResponse, 0, len(employees))
	for _, e := range employees {
		payload, err := s.userPayload(e.ID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		resp = append(resp, *payload)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	if err := s.store.DeleteEmployee(userID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "User deleted successfully"})
}

func (s *Server) submitLogicTest(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	var req struct {
		Score   int            `json:"score"`
		Answers map[string]int `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	logicType := persona.ScoreLogicTest(req.Score)
	answersJSON, err := json.Marshal(req.Answers)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := s.store.SaveLogicTest(userID, string(answersJSON), logicType); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "逻辑测试完成", "logic_type": logicType})
}

// uploadPersonaDocument analyses uploaded documents (and/or pasted text) to
// derive the persona's tone and logic descriptors. Uploading nothing just
// returns the current persona.
func (s *Server) uploadPersonaDocument(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return
	}

	p, err := s.store.GetPersona(userID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	texts, err := s.collectUploadText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if len(texts) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"msg":            "未提供分析内容，使用当前画像",
			"analyzed_files": 0,
			"final_persona": gin.H{
				"tone":  orDefault(deref(p.ExtractedToneStyle), "待分析"),
				"logic": orDefault(deref(p.ExtractedPositiveLogic), "待分析"),
			},
		})
		return
	}

	analysis, err := s.analyzer.AnalyzeDocument(c.Request.Context(), strings.Join(texts, "\n\n"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.store.UpdatePersonaAnalysis(userID, analysis.Tone, analysis.Logic); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("Persona document analysis saved",
		zap.Int64("user_id", userID),
		zap.Int("documents", len(texts)),
	)
	c.JSON(http.StatusOK, gin.H{
		"msg":            "文档分析完成",
		"analyzed_files": len(texts),
		"final_persona": gin.H{
			"tone":  analysis.Tone,
			"logic": analysis.Logic,
		},
	})
}

func (s *Server) generateQuestions(c *gin.Context) {
	count, err := s.store.CountQuestions()
	if err != nil {
		s.respondError(c, err)
		return
	}

	if count < 40 {
		generated, err := s.analyzer.GenerateQuestions(c.Request.Context())
		if err != nil {
			s.logger.Error("Question generation failed", zap.Error(err))
		} else if len(generated) > 0 {
			if err := s.store.ReplaceQuestions(generated); err != nil {
				s.respondError(c, err)
				return
			}
		}
	}

	questions, err := s.store.ListQuestions()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
