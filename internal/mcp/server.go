package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/revu/internal/analytics"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/sessions"
)

// Reviewer runs a review end to end.
type Reviewer interface {
	Run(ctx context.Context, req review.Request) (*review.Result, error)
}

// SessionRouter reads and deletes sessions according to login state.
type SessionRouter interface {
	Authenticated() bool
	List(ctx context.Context, p sessions.Policy) sessions.ListResult
	Get(ctx context.Context, id models.SessionID, p sessions.Policy) (*models.Session, sessions.Source, error)
	Delete(ctx context.Context, id models.SessionID) error
}

// Preferences supplies stored defaults and the confidence history.
type Preferences interface {
	Depth(ctx context.Context) models.Depth
	ConfidenceEntries(ctx context.Context) []models.ConfidenceEntry
}

// Server exposes reviews and session history as MCP tools.
type Server struct {
	reviewer Reviewer
	sessions SessionRouter
	prefs    Preferences
	version  string
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(r Reviewer, sr SessionRouter, prefs Preferences, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{reviewer: r, sessions: sr, prefs: prefs, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("revu", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.analyzeTool())
	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.getSessionTool())
	srv.AddTool(s.deleteSessionTool())
	srv.AddTool(s.analyticsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// revu_analyze
func (s *Server) analyzeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_analyze",
		mcp.WithDescription("Analyze a code snippet with the review backend and record the session. Returns issues, AI feedback, and a confidence value."),
		mcp.WithString("language", mcp.Required(), mcp.Description("Snippet language"), mcp.Enum("javascript", "python", "java", "c", "cpp")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Source code to analyze")),
		mcp.WithString("depth", mcp.Description("standard or deep; defaults to the saved preference"), mcp.Enum("standard", "deep")),
	)
	return tool, s.handleAnalyze
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	langArg, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: language"), nil
	}
	lang, err := models.ParseLanguage(langArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}

	depth := s.prefs.Depth(ctx)
	if d := request.GetString("depth", ""); d != "" {
		if depth, err = models.ParseDepth(d); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	// Tool calls run concurrently and are independent, so none supersedes another.
	res, err := s.reviewer.Run(ctx, review.Request{
		View:     "mcp/" + uuid.NewString(),
		Language: lang,
		Content:  content,
		Depth:    depth,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	out := struct {
		SessionID   models.SessionID `json:"session_id"`
		Depth       models.Depth     `json:"depth"`
		Issues      []models.Issue   `json:"issues"`
		AIFeedback  string           `json:"ai_feedback"`
		Confidence  float64          `json:"confidence"`
		SavedRemote bool             `json:"saved_remote"`
	}{
		SessionID:   res.Session.ID,
		Depth:       res.Depth,
		Issues:      res.Session.Issues,
		AIFeedback:  res.Session.AIFeedback,
		Confidence:  res.Confidence,
		SavedRemote: res.Save.Remote != nil,
	}
	return jsonResult(out)
}

// revu_list_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_list_sessions",
		mcp.WithDescription("List review sessions, newest first. Uses the server history when logged in and the local history otherwise."),
		mcp.WithString("language", mcp.Description("Filter by language")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return")),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.sessions.List(ctx, sessions.DashboardPolicy)
	list := sessions.FilterByLanguage(res.Sessions, request.GetString("language", ""))
	if limit := request.GetInt("limit", 0); limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	type sessionOut struct {
		ID       models.SessionID `json:"id"`
		TS       string           `json:"ts"`
		Language models.Language  `json:"language"`
		Issues   int              `json:"issues"`
	}
	out := struct {
		Source   sessions.Source `json:"source"`
		Sessions []sessionOut    `json:"sessions"`
	}{Source: res.Source, Sessions: make([]sessionOut, len(list))}
	for i, ss := range list {
		out.Sessions[i] = sessionOut{
			ID:       ss.ID,
			TS:       ss.Timestamp.Format("2006-01-02 15:04:05"),
			Language: ss.Language,
			Issues:   len(ss.Issues),
		}
	}
	return jsonResult(out)
}

// revu_get_session
func (s *Server) getSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_get_session",
		mcp.WithDescription("Get one review session with its snippet, issues, and AI feedback."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
	)
	return tool, s.handleGetSession
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	sess, _, err := s.sessions.Get(ctx, models.SessionID(id), sessions.DetailPolicy)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}
	return jsonResult(sess)
}

// revu_delete_session
func (s *Server) deleteSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_delete_session",
		mcp.WithDescription("Delete one review session. Deletes from the server when logged in and from the local history otherwise."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
	)
	return tool, s.handleDeleteSession
}

func (s *Server) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	if err := s.sessions.Delete(ctx, models.SessionID(id)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete session: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted session %s", id)), nil
}

// revu_analytics
func (s *Server) analyticsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_analytics",
		mcp.WithDescription("Issue type and severity distribution over the logged-in user's sessions, plus the confidence trend. Requires login."),
	)
	return tool, s.handleAnalytics
}

func (s *Server) handleAnalytics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.sessions.Authenticated() {
		return mcp.NewToolResultError("please log in to view analytics data"), nil
	}
	res := s.sessions.List(ctx, sessions.AnalyticsPolicy)
	if res.RemoteErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load sessions: %v", res.RemoteErr)), nil
	}

	out := struct {
		Summary analytics.Summary `json:"summary"`
		Trend   analytics.Trend   `json:"confidence"`
	}{
		Summary: analytics.Summarize(res.Sessions),
		Trend:   analytics.TrendOf(s.prefs.ConfidenceEntries(ctx)),
	}
	return jsonResult(out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
