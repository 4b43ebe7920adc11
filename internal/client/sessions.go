package client

import (
	"context"
	"net/http"

	"github.com/joescharf/revu/internal/models"
)

// FetchSessions returns the user's sessions as ordered by the backend.
func (c *Client) FetchSessions(ctx context.Context, token string) ([]models.Session, error) {
	var sessions []models.Session
	if err := c.do(ctx, http.MethodGet, "/sessions/", token, nil, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// ListSessions is FetchSessions that fails soft: any error is logged and an
// empty list returned, so callers cannot tell "none" from "failed".
func (c *Client) ListSessions(ctx context.Context, token string) []models.Session {
	sessions, err := c.FetchSessions(ctx, token)
	if err != nil {
		c.logger.Error("fetch user sessions", "error", err)
		return []models.Session{}
	}
	return sessions
}

// FetchSession returns one session by ID.
func (c *Client) FetchSession(ctx context.Context, token string, id models.SessionID) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodGet, sessionPath(id), token, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession is FetchSession that fails soft to nil.
func (c *Client) GetSession(ctx context.Context, token string, id models.SessionID) *models.Session {
	s, err := c.FetchSession(ctx, token, id)
	if err != nil {
		c.logger.Error("fetch session", "id", id, "error", err)
		return nil
	}
	return s
}

// CreateSession stores a session remotely. The write is best-effort: the
// error is logged here and returned only so callers can observe it.
func (c *Client) CreateSession(ctx context.Context, token string, data models.SessionData) (*models.Session, error) {
	var created models.Session
	if err := c.do(ctx, http.MethodPost, "/sessions/", token, data, &created); err != nil {
		c.logger.Error("save session", "error", err)
		return nil, err
	}
	return &created, nil
}

// DeleteResponse is the backend's deletion acknowledgment.
type DeleteResponse struct {
	Message string `json:"message,omitempty"`
	Detail  Detail `json:"detail,omitempty"`
}

// DeleteSession removes a session remotely. Failures are logged and returned.
func (c *Client) DeleteSession(ctx context.Context, token string, id models.SessionID) (*DeleteResponse, error) {
	var ack DeleteResponse
	if err := c.do(ctx, http.MethodDelete, sessionPath(id), token, nil, &ack); err != nil {
		c.logger.Error("delete session", "id", id, "error", err)
		return nil, err
	}
	return &ack, nil
}
