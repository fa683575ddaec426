package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caffeineduck/coderunner/language"
	"github.com/caffeineduck/coderunner/runner"
	"github.com/caffeineduck/coderunner/snippet"
)

const (
	errInvalidRequest  = "invalid_request"
	errUnknownLanguage = "unknown_language"
	errSnippetNotFound = "snippet_not_found"
	errWidgetNotFound  = "widget_not_found"
	errRunInProgress   = "run_in_progress"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

type languageView struct {
	Key   string `json:"key"`
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Ext   string `json:"ext"`
	Local bool   `json:"local"`
}

type widgetView struct {
	ID       string          `json:"id"`
	Title    string          `json:"title,omitempty"`
	Language languageView    `json:"language"`
	Source   string          `json:"source"`
	Original string          `json:"original"`
	Stdin    string          `json:"stdin,omitempty"`
	Running  bool            `json:"running"`
	Backend  runner.Backend  `json:"backend"`
	Result   runner.Snapshot `json:"result"`
}

// snippetRequest names the code to run: either inline, or a manifest entry
// by id.
type snippetRequest struct {
	SnippetID string `json:"snippet_id"`
	Code      string `json:"code"`
	Language  string `json:"language"`
	Title     string `json:"title"`
	Stdin     string `json:"stdin"`
}

type executeResponse struct {
	Language   string          `json:"language"`
	Backend    runner.Backend  `json:"backend"`
	Result     runner.Snapshot `json:"result"`
	DurationMs int64           `json:"duration_ms"`
}

type sourceRequest struct {
	Source *string `json:"source" binding:"required"`
}

// RegisterRoutes registers the snippet API on r.
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", s.HandleHealth)
	r.GET("/languages", s.HandleLanguages)
	r.GET("/snippets", s.HandleSnippets)
	r.POST("/execute", s.HandleExecute)

	w := r.Group("/widgets")
	w.POST("", s.HandleCreateWidget)
	w.GET("/:id", s.HandleGetWidget)
	w.PUT("/:id/source", s.HandleSetSource)
	w.POST("/:id/reset", s.HandleReset)
	w.POST("/:id/submit", s.HandleSubmit)
	w.DELETE("/:id", s.HandleDeleteWidget)
}

func (s *Server) HandleHealth(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"remote":  s.deps.Remote != nil && s.deps.Remote.Configured(),
		"widgets": s.widgets.len(),
	}
	if s.deps.Local != nil {
		body["local"] = gin.H{
			"language": s.deps.Local.Name(),
			"loaded":   s.deps.Local.Loaded(),
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) HandleLanguages(c *gin.Context) {
	all := language.All()
	out := make([]languageView, 0, len(all))
	for _, d := range all {
		out = append(out, s.languageView(d))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) HandleSnippets(c *gin.Context) {
	list := s.deps.Snippets.Snippets
	if list == nil {
		list = []snippet.Snippet{}
	}
	c.JSON(http.StatusOK, list)
}

// HandleExecute runs a snippet once and returns its result without keeping
// a widget.
func (s *Server) HandleExecute(c *gin.Context) {
	var req snippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	r, ok := s.newRunner(c, req)
	if !ok {
		return
	}

	start := time.Now()
	snap, err := r.Submit(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, executeResponse{
		Language:   r.Language().Key,
		Backend:    r.Backend(),
		Result:     snap,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) HandleCreateWidget(c *gin.Context) {
	var req snippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	r, ok := s.newRunner(c, req)
	if !ok {
		return
	}
	id := s.widgets.add(r)
	c.JSON(http.StatusCreated, s.widgetView(id, r))
}

func (s *Server) HandleGetWidget(c *gin.Context) {
	id, r, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.widgetView(id, r))
}

func (s *Server) HandleSetSource(c *gin.Context) {
	id, r, ok := s.lookup(c)
	if !ok {
		return
	}

	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	r.SetSource(*req.Source)
	c.JSON(http.StatusOK, s.widgetView(id, r))
}

func (s *Server) HandleReset(c *gin.Context) {
	id, r, ok := s.lookup(c)
	if !ok {
		return
	}
	r.Reset()
	c.JSON(http.StatusOK, s.widgetView(id, r))
}

// HandleSubmit runs the widget's current source. A submit while a run is in
// flight is rejected with 409 and leaves the running run alone.
func (s *Server) HandleSubmit(c *gin.Context) {
	id, r, ok := s.lookup(c)
	if !ok {
		return
	}

	// A widget run outlives its request: the result stays on the widget.
	if _, err := r.Submit(context.WithoutCancel(c.Request.Context())); err != nil {
		if errors.Is(err, runner.ErrRunning) {
			c.JSON(http.StatusConflict, ErrorResponse{
				ErrorType: errRunInProgress,
				Message:   "A run is already in progress",
				Details:   s.widgetView(id, r),
			})
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.widgetView(id, r))
}

func (s *Server) HandleDeleteWidget(c *gin.Context) {
	if !s.widgets.remove(c.Param("id")) {
		widgetNotFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) newRunner(c *gin.Context, req snippetRequest) (*runner.Runner, bool) {
	if req.SnippetID != "" {
		sn, err := s.deps.Snippets.Get(req.SnippetID)
		if err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{
				ErrorType: errSnippetNotFound,
				Message:   "Snippet not found",
				Details:   req.SnippetID,
			})
			return nil, false
		}
		req.Code, req.Language, req.Title, req.Stdin = sn.Code, sn.Language, sn.Title, sn.Stdin
	}

	if req.Code == "" {
		badRequest(c, "code is required", nil)
		return nil, false
	}
	d, err := language.Resolve(req.Language)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorType: errUnknownLanguage,
			Message:   "Unknown language",
			Details:   err.Error(),
		})
		return nil, false
	}

	r, err := runner.New(req.Code, d.Key,
		runner.WithTitle(req.Title),
		runner.WithStdin(req.Stdin),
		runner.WithRemote(s.deps.Remote),
		runner.WithLocal(s.deps.Local),
		runner.WithLogger(s.logger),
		runner.WithReporter(s.reporter()),
	)
	if err != nil {
		internalError(c, err)
		return nil, false
	}
	return r, true
}

func (s *Server) reporter() runner.Reporter {
	if s.deps.Metrics == nil {
		return nil
	}
	return s.deps.Metrics
}

func (s *Server) lookup(c *gin.Context) (string, *runner.Runner, bool) {
	id := c.Param("id")
	r, ok := s.widgets.get(id)
	if !ok {
		widgetNotFound(c)
		return "", nil, false
	}
	return id, r, true
}

func (s *Server) languageView(d language.Descriptor) languageView {
	return languageView{
		Key:   d.Key,
		ID:    d.ID,
		Name:  d.Name,
		Ext:   d.Ext,
		Local: s.deps.Local != nil && s.deps.Local.Name() == d.Key,
	}
}

func (s *Server) widgetView(id string, r *runner.Runner) widgetView {
	return widgetView{
		ID:       id,
		Title:    r.Title(),
		Language: s.languageView(r.Language()),
		Source:   r.Source(),
		Original: r.Original(),
		Stdin:    r.Stdin(),
		Running:  r.Running(),
		Backend:  r.Backend(),
		Result:   r.Snapshot(),
	}
}

func badRequest(c *gin.Context, msg string, err error) {
	resp := ErrorResponse{ErrorType: errInvalidRequest, Message: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

func widgetNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		ErrorType: errWidgetNotFound,
		Message:   "Widget not found",
		Details:   c.Param("id"),
	})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		ErrorType: "internal_error",
		Message:   "Internal error",
		Details:   err.Error(),
	})
}
