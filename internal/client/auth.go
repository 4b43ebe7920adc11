package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joescharf/revu/internal/models"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse carries either UserID or Detail.
type RegisterResponse struct {
	UserID *int64 `json:"user_id,omitempty"`
	Detail Detail `json:"detail,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries either AccessToken or Detail.
type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Detail      Detail `json:"detail,omitempty"`
}

// Register creates an account. The backend's response is passed through as
// is; an error means the backend could not be reached or answered garbage.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if _, err := c.passthrough(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginUser exchanges credentials for a token. On success the token is
// persisted before returning.
func (c *Client) LoginUser(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	code, err := c.passthrough(ctx, http.MethodPost, "/auth/login", req, &resp)
	if err != nil {
		return nil, err
	}
	if code >= 200 && code <= 299 && resp.AccessToken != "" && c.tokens != nil {
		if err := c.tokens.SaveToken(ctx, resp.AccessToken); err != nil {
			return &resp, fmt.Errorf("persist token: %w", err)
		}
	}
	return &resp, nil
}

// Me resolves the user that owns token.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Language models.Language `json:"language"`
	Content  string          `json:"content"`
	Depth    models.Depth    `json:"depth"`
}

// AnalyzeResponse is the raw backend analysis result.
type AnalyzeResponse struct {
	Issues     []models.Issue `json:"issues"`
	AIFeedback string         `json:"ai_feedback"`
	Confidence *float64       `json:"confidence,omitempty"`
}

// Analyze submits a snippet. The bearer token is attached only when non-empty.
func (c *Client) Analyze(ctx context.Context, token string, req AnalyzeRequest) (*AnalyzeResponse, error) {
	var resp AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, "/analyze", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
