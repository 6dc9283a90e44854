package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"smart-employee/backend/internal/oplog"
	"smart-employee/backend/internal/store"
)

// testRouter builds a router over a real sqlite store. Routes that need the
// graph store or an LLM are exercised only on their validation paths here;
// the full paths are covered by the graph integration tests.
func testRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	server := NewServer(st, nil, oplog.NewManager(st, nil), nil, nil, nil)
	router := gin.New()
	server.RegisterRoutes(router)
	return router, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestCreateUser(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "POST", "/api/users", gin.H{
		"name": "张三", "role": "工程师", "domain": "后端",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "张三", resp.Name)
	require.NotNil(t, resp.Persona)
	assert.Equal(t, "张三的画像", resp.Persona.Name)
}

func TestCreateUser_MissingName(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "POST", "/api/users", gin.H{"role": "工程师"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUser_NotFound(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "GET", "/api/users/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUser_InvalidID(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "GET", "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUsers(t *testing.T) {
	router, st := testRouter(t)
	_, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)
	_, err = st.CreateEmployee("李四", "", "")
	require.NoError(t, err)

	w := doJSON(t, router, "GET", "/api/users/list/all", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestDeleteUser(t *testing.T) {
	router, st := testRouter(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)

	w := doJSON(t, router, "DELETE", fmt.Sprintf("/api/users/%d", e.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "DELETE", fmt.Sprintf("/api/users/%d", e.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitLogicTest(t *testing.T) {
	router, st := testRouter(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)

	w := doJSON(t, router, "POST", fmt.Sprintf("/api/users/%d/logic", e.ID), gin.H{
		"score":   20,
		"answers": map[string]int{"1": 5, "2": 5, "3": 5, "4": 5},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "数据驱动型", resp["logic_type"])

	p, err := st.GetPersona(e.ID)
	require.NoError(t, err)
	require.NotNil(t, p.BaseLogicType)
	assert.Equal(t, "数据驱动型", *p.BaseLogicType)
}

func TestSubmitLogicTest_MissingAnswers(t *testing.T) {
	router, st := testRouter(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)

	w := doJSON(t, router, "POST", fmt.Sprintf("/api/users/%d/logic", e.ID), gin.H{"score": 20})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubgraphCRUDRoutes(t *testing.T) {
	router, st := testRouter(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)

	w := doJSON(t, router, "POST", "/api/kg/subgraph", gin.H{
		"user_id": e.ID, "name": "项目知识", "description": "项目相关",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sg store.Subgraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sg))
	assert.Equal(t, "项目知识", sg.Name)

	w = doJSON(t, router, "GET", fmt.Sprintf("/api/kg/subgraph/list/%d", e.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []store.Subgraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	w = doJSON(t, router, "PUT", fmt.Sprintf("/api/kg/subgraph/%d", sg.ID), gin.H{"name": "新名字"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated store.Subgraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "新名字", updated.Name)
}

func TestUpdateSubgraph_NotFound(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "PUT", "/api/kg/subgraph/999", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUndo_EmptyLog(t *testing.T) {
	router, st := testRouter(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)
	sg, err := st.CreateSubgraph(e.ID, "图谱", "")
	require.NoError(t, err)

	w := doJSON(t, router, "POST", fmt.Sprintf("/api/kg/undo/%d", sg.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "No operations to undo", resp["detail"])
}

func TestSearch_RequiresQuery(t *testing.T) {
	router, st := testRouter(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)

	w := doJSON(t, router, "GET", fmt.Sprintf("/api/kg/search/%d", e.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_NoContent(t *testing.T) {
	router, st := testRouter(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)
	sg, err := st.CreateSubgraph(e.ID, "图谱", "")
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/kg/upload/%d", e.ID),
		bytes.NewBufferString(fmt.Sprintf("subgraph_id=%d", sg.ID)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "No content provided", resp["detail"])
}

func TestUpload_UnknownUser(t *testing.T) {
	router, _ := testRouter(t)

	req, _ := http.NewRequest("POST", "/api/kg/upload/999", bytes.NewBufferString("text_input=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChat_MissingQuestion(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "POST", "/api/chat/1", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateNode_MissingFields(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "POST", "/api/kg/node/1", gin.H{"label": "Person"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteRelationship_MissingFields(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, "DELETE", "/api/kg/relationship/1", gin.H{"from_id": "a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
