package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlerd/internal/config"
	"sqlerd/internal/erd"
)

const usersOrders = `
CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(64));
CREATE TABLE orders (
	id INT PRIMARY KEY,
	user_id INT,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);`

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T, mutate func(*config.Server)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default().Server
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, erd.DefaultOptions(), nil)
}

func do(t *testing.T, s *Server, method, target, contentType, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec, env := do(t, s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", env.Status)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(t, nil)
	const id = "0b6c3f0e-3d8a-4a1e-9c55-4b5d2f1e7a10"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestInterpretSchema(t *testing.T) {
	s := newTestServer(t, nil)
	rec, env := do(t, s, http.MethodPost, "/api/v1/schema", "text/plain", usersOrders+"\nALTER TABLE ghosts ADD COLUMN x INT;")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Tables []struct {
			Name        string `json:"name"`
			ForeignKeys []struct {
				Cascade    bool `json:"cascade"`
				References struct {
					Table string `json:"table"`
				} `json:"references"`
			} `json:"foreign_keys"`
		} `json:"tables"`
		Diagnostics []struct {
			Kind string `json:"kind"`
		} `json:"diagnostics"`
		Statements int `json:"statements"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Tables, 2)
	assert.Equal(t, "users", data.Tables[0].Name)
	require.Len(t, data.Tables[1].ForeignKeys, 1)
	assert.Equal(t, "users", data.Tables[1].ForeignKeys[0].References.Table)
	assert.True(t, data.Tables[1].ForeignKeys[0].Cascade)
	assert.Equal(t, 3, data.Statements)
	require.Len(t, data.Diagnostics, 1)
	assert.Equal(t, "missing_table", data.Diagnostics[0].Kind)
}

func TestInterpretSchemaJSONBody(t *testing.T) {
	s := newTestServer(t, nil)
	body, err := json.Marshal(sqlRequest{SQL: usersOrders})
	require.NoError(t, err)

	rec, env := do(t, s, http.MethodPost, "/api/v1/schema", "application/json", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"orders"`)

	rec, env = do(t, s, http.MethodPost, "/api/v1/schema", "application/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", env.Status)
}

func TestEmptyBody(t *testing.T) {
	s := newTestServer(t, nil)
	rec, env := do(t, s, http.MethodPost, "/api/v1/schema", "text/plain", "  \n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errEmptyBody.Error(), env.Error)
}

func TestBodyTooLarge(t *testing.T) {
	s := newTestServer(t, func(c *config.Server) { c.MaxSQLBytes = 16 })
	rec, env := do(t, s, http.MethodPost, "/api/v1/schema", "text/plain", usersOrders)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Message, "16 bytes")
}

func TestRenderDiagram(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name   string
		target string
		format string
		want   string
	}{
		{name: "default drawio", target: "/api/v1/diagram", format: "drawio", want: "<mxfile"},
		{name: "mermaid", target: "/api/v1/diagram?format=mermaid", format: "mermaid", want: "erDiagram"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, s, http.MethodPost, tt.target, "text/plain", usersOrders)
			require.Equal(t, http.StatusOK, rec.Code)

			var data diagramResponse
			require.NoError(t, json.Unmarshal(env.Data, &data))
			assert.Equal(t, tt.format, string(data.Format))
			assert.Contains(t, data.Document, tt.want)
			assert.Empty(t, data.Diagnostics)
		})
	}
}

func TestRenderDiagramDeterministic(t *testing.T) {
	s := newTestServer(t, nil)
	_, first := do(t, s, http.MethodPost, "/api/v1/diagram", "text/plain", usersOrders)
	_, second := do(t, s, http.MethodPost, "/api/v1/diagram", "text/plain", usersOrders)
	assert.JSONEq(t, string(first.Data), string(second.Data))
}

func TestRenderDiagramInvalidFormat(t *testing.T) {
	s := newTestServer(t, nil)
	for _, format := range []string{"svg", "summary", "json"} {
		rec, env := do(t, s, http.MethodPost, "/api/v1/diagram?format="+format, "text/plain", usersOrders)
		assert.Equal(t, http.StatusBadRequest, rec.Code, format)
		assert.Equal(t, "Invalid format", env.Message)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, func(c *config.Server) { c.AllowedOrigins = []string{"https://example.com"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/schema", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
