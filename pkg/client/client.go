// Package client is a small Go SDK for the sql-escape-room HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a running sql-escape-room server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new sql-escape-room client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Question is the public projection of one level
type Question struct {
	ID                int               `json:"id"`
	Level             string            `json:"level"`
	Title             string            `json:"title"`
	StorySetup        string            `json:"storySetup"`
	GatekeeperMessage string            `json:"gatekeeperMessage"`
	Hint              string            `json:"hint"`
	Tables            map[string]QTable `json:"tables"`
}

// QTable is the schema of one puzzle table
type QTable struct {
	Columns []string `json:"columns"`
}

// CheckResult is the verdict for one submitted query
type CheckResult struct {
	Correct    bool   `json:"correct"`
	UnlockCode string `json:"unlockCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ScoreSubmission is one play result to record
type ScoreSubmission struct {
	Name   string `json:"name"`
	RollNo string `json:"rollNo"`
	Score  int    `json:"score"`
	Time   string `json:"time"`
}

// LeaderboardEntry is one ranked scoreboard row
type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// apiError is the server's flat error body
type apiError struct {
	Error string `json:"error"`
}

// GetQuestion retrieves the public view of a level
func (c *Client) GetQuestion(ctx context.Context, id int) (*Question, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/question/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var question Question
	if err := json.Unmarshal(resp, &question); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &question, nil
}

// Total returns the number of levels in the game
func (c *Client) Total(ctx context.Context) (int, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/total", nil)
	if err != nil {
		return 0, err
	}

	var result struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return result.Total, nil
}

// Check submits a query for a level and returns the verdict
func (c *Client) Check(ctx context.Context, id int, userAnswer string) (*CheckResult, error) {
	body, err := json.Marshal(map[string]any{
		"id":         id,
		"userAnswer": userAnswer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/check", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result CheckResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// SubmitScore records a play result
func (c *Client) SubmitScore(ctx context.Context, score ScoreSubmission) error {
	body, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = c.doRequest(ctx, http.MethodPost, "/api/score", bytes.NewReader(body))
	return err
}

// Leaderboard returns the top scores
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	path := "/api/leaderboard"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return result.Leaderboard, nil
}

// doRequest performs an HTTP request and returns the response body
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	return data, nil
}
