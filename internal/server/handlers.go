package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sqlerd/internal/builder"
	"sqlerd/internal/core"
	"sqlerd/internal/erd"
	"sqlerd/internal/output"
)

var errEmptyBody = errors.New("request body is empty")

// sqlRequest is the JSON form of a request body. Any other content type is
// read as plain SQL text.
type sqlRequest struct {
	SQL string `json:"sql"`
}

// schemaResponse is the table list with the diagnostics of the run.
type schemaResponse struct {
	Tables      *core.Schema         `json:"tables"`
	Diagnostics []builder.Diagnostic `json:"diagnostics"`
	Statements  int                  `json:"statements"`
}

type diagramResponse struct {
	Format      output.Format        `json:"format"`
	Document    string               `json:"document"`
	Diagnostics []builder.Diagnostic `json:"diagnostics"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// interpretSchema handles POST /api/v1/schema
func (s *Server) interpretSchema(c *gin.Context) {
	text, ok := s.readSQL(c)
	if !ok {
		return
	}
	res, err := erd.Interpret(text, s.opts)
	if err != nil {
		s.internalError(c, err, "Failed to interpret SQL")
		return
	}
	success(c, http.StatusOK, schemaResponse{
		Tables:      res.Schema,
		Diagnostics: nonNil(res.Diagnostics),
		Statements:  res.Statements,
	}, "Schema interpreted successfully")
}

// renderDiagram handles POST /api/v1/diagram?format=drawio|mermaid
func (s *Server) renderDiagram(c *gin.Context) {
	format, err := output.ParseFormat(c.DefaultQuery("format", string(output.FormatDrawio)))
	if err == nil && !format.NeedsRendering() {
		err = fmt.Errorf("unsupported diagram format: %s; use 'drawio' or 'mermaid'", format)
	}
	if err != nil {
		fail(c, http.StatusBadRequest, err, "Invalid format")
		return
	}
	text, ok := s.readSQL(c)
	if !ok {
		return
	}

	res, rendering, err := erd.Run(text, s.opts)
	if err != nil {
		s.internalError(c, err, "Failed to render diagram")
		return
	}
	formatter, err := output.NewFormatter(string(format))
	if err != nil {
		s.internalError(c, err, "Failed to render diagram")
		return
	}
	doc, err := formatter.Format(&output.Report{Result: res, Rendering: rendering})
	if err != nil {
		s.internalError(c, err, "Failed to render diagram")
		return
	}
	success(c, http.StatusOK, diagramResponse{
		Format:      format,
		Document:    doc,
		Diagnostics: nonNil(res.Diagnostics),
	}, "Diagram rendered successfully")
}

// readSQL reads the request body within the configured limit. It writes the
// failure response itself and reports whether the handler may go on.
func (s *Server) readSQL(c *gin.Context) (string, bool) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxSQLBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, err,
				fmt.Sprintf("SQL text exceeds %d bytes", s.cfg.MaxSQLBytes))
			return "", false
		}
		fail(c, http.StatusBadRequest, err, "Failed to read request body")
		return "", false
	}

	text := string(raw)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req sqlRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			fail(c, http.StatusBadRequest, err, "Invalid JSON body")
			return "", false
		}
		text = req.SQL
	}
	if strings.TrimSpace(text) == "" {
		fail(c, http.StatusBadRequest, errEmptyBody, "No SQL supplied")
		return "", false
	}
	return text, true
}

func (s *Server) internalError(c *gin.Context, err error, message string) {
	s.log.Error(message,
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, err, message)
}

func nonNil(diags []builder.Diagnostic) []builder.Diagnostic {
	if diags == nil {
		return []builder.Diagnostic{}
	}
	return diags
}
