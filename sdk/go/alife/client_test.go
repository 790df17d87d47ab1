package alife

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestCreateAgent(t *testing.T) {
	var received AgentSubmission
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/agents" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode submission: %v", err)
		}
		writeEnvelope(w, http.StatusCreated, Agent{ID: "a1", Name: received.Name, Symbol: "PXL", Status: "embryo"})
	}))

	created, err := client.CreateAgent(context.Background(), AgentSubmission{
		Name: "Pixel", Symbol: "pxl", DeployerAddress: "0xdeployer",
	})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if created.ID != "a1" || created.Status != "embryo" {
		t.Fatalf("created = %+v", created)
	}
	if received.DeployerAddress != "0xdeployer" {
		t.Fatalf("submission = %+v", received)
	}
}

func TestFeedQueryEncoding(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("agent_id") != "a1" || q.Get("limit") != "2" || q.Get("before") != "5000" {
			t.Fatalf("query = %s", r.URL.RawQuery)
		}
		writeEnvelope(w, http.StatusOK, []*Message{
			{ID: "m2", AgentID: "a1", Content: "newer", CreatedAt: 4000},
			{ID: "m1", AgentID: "a1", Content: "older", CreatedAt: 3000},
		})
	}))

	feed, err := client.Feed(context.Background(), FeedQuery{AgentID: "a1", Limit: 2, Before: 5000})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(feed) != 2 || feed[0].Content != "newer" {
		t.Fatalf("feed = %+v", feed)
	}
}

func TestErrorEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"code": "AGENT_NOT_FOUND", "message": "agent not found"},
		})
	}))

	_, err := client.GetAgent(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error for missing agent")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "AGENT_NOT_FOUND" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}
