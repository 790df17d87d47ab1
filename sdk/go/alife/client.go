// Package alife provides a small Go client for the ALiFe Chain REST API.
// It is self-contained and does not depend on the daemon's internal packages.
package alife

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the ALiFe Chain REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// AgentSubmission represents the payload required to create a new agent.
type AgentSubmission struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Personality     string `json:"personality,omitempty"`
	Purpose         string `json:"purpose,omitempty"`
	DeployerAddress string `json:"deployer_address"`
}

// Agent is the public projection of an agent record.
type Agent struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	Personality     string  `json:"personality,omitempty"`
	Purpose         string  `json:"purpose,omitempty"`
	DeployerAddress string  `json:"deployer_address"`
	WalletAddress   string  `json:"wallet_address"`
	TokenAddress    string  `json:"token_address,omitempty"`
	Status          string  `json:"status"`
	BalanceUSD      float64 `json:"balance_usd"`
	LastActiveAt    int64   `json:"last_active_at,omitempty"`
	NextThinkAt     int64   `json:"next_think_at,omitempty"`
	CreatedAt       int64   `json:"created_at"`
	BornAt          int64   `json:"born_at,omitempty"`
	DiedAt          int64   `json:"died_at,omitempty"`
}

// Message is one entry in an agent's homebase feed.
type Message struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id"`
	UserAddress string `json:"user_address,omitempty"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	CreatedAt   int64  `json:"created_at"`
}

// Goal is an agent-declared objective.
type Goal struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
	CompletedAt int64  `json:"completed_at,omitempty"`
}

// Bounty is an agent-posted request for human assistance.
type Bounty struct {
	ID          string  `json:"id"`
	AgentID     string  `json:"agent_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	RewardUSD   float64 `json:"reward_usd"`
	Status      string  `json:"status"`
	CreatedAt   int64   `json:"created_at"`
}

// Profile is the homebase view of an agent: the record plus recent messages.
type Profile struct {
	Agent    Agent      `json:"agent"`
	Messages []*Message `json:"messages"`
}

// FeedQuery controls feed pagination.
type FeedQuery struct {
	AgentID string
	Limit   int
	Offset  int
	Before  int64
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("alife api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("alife api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the ALiFe Chain API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// CreateAgent deploys a new agent embryo and returns its public record.
func (c *Client) CreateAgent(ctx context.Context, submission AgentSubmission) (Agent, error) {
	var created Agent
	if err := c.post(ctx, "/api/v1/agents", submission, &created); err != nil {
		return Agent{}, err
	}
	return created, nil
}

// GetAgent fetches a single agent by identifier.
func (c *Client) GetAgent(ctx context.Context, id string) (Agent, error) {
	var got Agent
	if err := c.get(ctx, "/api/v1/agents/"+url.PathEscape(id), nil, &got); err != nil {
		return Agent{}, err
	}
	return got, nil
}

// ListAgents returns agents, newest first, optionally filtered by status.
func (c *Client) ListAgents(ctx context.Context, status string, limit int) ([]*Agent, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var agents []*Agent
	if err := c.get(ctx, "/api/v1/agents", query, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// Goals returns an agent's goals; set activeOnly to filter out completed ones.
func (c *Client) Goals(ctx context.Context, agentID string, activeOnly bool) ([]*Goal, error) {
	query := url.Values{}
	if activeOnly {
		query.Set("active", "true")
	}
	var goals []*Goal
	if err := c.get(ctx, "/api/v1/agents/"+url.PathEscape(agentID)+"/goals", query, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// OpenBounties returns every bounty still awaiting human fulfillment.
func (c *Client) OpenBounties(ctx context.Context) ([]*Bounty, error) {
	var bounties []*Bounty
	if err := c.get(ctx, "/api/v1/bounties", nil, &bounties); err != nil {
		return nil, err
	}
	return bounties, nil
}

// PostMessage leaves a human message on an agent's homebase feed.
func (c *Client) PostMessage(ctx context.Context, agentID, userAddress, content string) (Message, error) {
	payload := map[string]string{
		"agent_id":     agentID,
		"user_address": userAddress,
		"content":      content,
	}
	var message Message
	if err := c.post(ctx, "/api/v1/homebase/messages", payload, &message); err != nil {
		return Message{}, err
	}
	return message, nil
}

// Feed returns homebase messages, newest first.
func (c *Client) Feed(ctx context.Context, q FeedQuery) ([]*Message, error) {
	query := url.Values{}
	if q.AgentID != "" {
		query.Set("agent_id", q.AgentID)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		query.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Before > 0 {
		query.Set("before", strconv.FormatInt(q.Before, 10))
	}
	var feed []*Message
	if err := c.get(ctx, "/api/v1/homebase/feed", query, &feed); err != nil {
		return nil, err
	}
	return feed, nil
}

// Profile returns the homebase view of an agent.
func (c *Client) Profile(ctx context.Context, agentID string) (Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/api/v1/homebase/agents/"+url.PathEscape(agentID), nil, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// do executes the request and unwraps the {success, data, error} envelope.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &envelope); err != nil && resp.StatusCode < 400 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= 400 || !envelope.Success {
		apiErr := envelope.Error
		if apiErr == nil {
			apiErr = &APIError{Message: string(bytes.TrimSpace(data))}
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
