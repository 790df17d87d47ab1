package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ALiFe-Chain/internal/agent"
)

type stubWallets struct{ n int }

func (s *stubWallets) Generate(context.Context) (string, string, error) {
	s.n++
	return fmt.Sprintf("0xwallet%d", s.n), fmt.Sprintf("sealed%d", s.n), nil
}

type stubTokens struct{}

func (stubTokens) Launch(_ context.Context, _, symbol, _ string) (string, error) {
	return "0xtoken-" + symbol, nil
}

type stubBalances struct{}

func (stubBalances) BalanceUSD(_ context.Context, _ string, lastKnown float64) (float64, error) {
	return lastKnown, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *agent.MemoryStore) {
	t.Helper()
	store := agent.NewMemoryStore()
	service := agent.NewService(store, &stubWallets{}, stubTokens{}, stubBalances{})
	ts := httptest.NewServer(NewServer("", service).Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, method, url string, body any) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, parsed
}

func TestCreateAndGetAgent(t *testing.T) {
	ts, _ := newTestServer(t)

	status, created := doJSON(t, http.MethodPost, ts.URL+"/api/v1/agents", map[string]string{
		"name":             "Pixel",
		"symbol":           "pxl",
		"purpose":          "make art",
		"deployer_address": "0xdeployer",
	})
	if status != http.StatusCreated || !created.Success {
		t.Fatalf("create: status=%d success=%v error=%+v", status, created.Success, created.Error)
	}
	var pub agent.Public
	if err := json.Unmarshal(created.Data, &pub); err != nil {
		t.Fatalf("unmarshal agent: %v", err)
	}
	if pub.Symbol != "PXL" {
		t.Fatalf("symbol = %s, want uppercased PXL", pub.Symbol)
	}
	if pub.Status != agent.StatusEmbryo {
		t.Fatalf("status = %s, want embryo", pub.Status)
	}

	status, got := doJSON(t, http.MethodGet, ts.URL+"/api/v1/agents/"+pub.ID, nil)
	if status != http.StatusOK || !got.Success {
		t.Fatalf("get: status=%d error=%+v", status, got.Error)
	}
}

func TestCreateAgentValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	status, resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/agents", map[string]string{
		"name":   "Pixel",
		"symbol": "not-a-symbol!",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if resp.Success || resp.Error == nil {
		t.Fatalf("response = %+v, want error envelope", resp)
	}
}

func TestListAgentsRejectsUnknownStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/api/v1/agents", map[string]string{
		"name": "Pixel", "symbol": "PXL", "deployer_address": "0xdeployer",
	})

	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/agents?status=bogus", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an unknown status filter", status)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code == "" {
		t.Fatalf("response = %+v, want coded error", resp)
	}

	status, resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/agents?status=embryo", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, error=%+v", status, resp.Error)
	}
	var agents []*agent.Public
	if err := json.Unmarshal(resp.Data, &agents); err != nil {
		t.Fatalf("unmarshal agents: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("agents = %d, want the one embryo", len(agents))
	}
}

func TestGetAgentNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/agents/ghost", nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code == "" {
		t.Fatalf("response = %+v, want coded error", resp)
	}
}

func TestHomebaseMessagesAndFeed(t *testing.T) {
	ts, _ := newTestServer(t)

	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/v1/agents", map[string]string{
		"name": "Pixel", "symbol": "PXL", "deployer_address": "0xdeployer",
	})
	var pub agent.Public
	if err := json.Unmarshal(created.Data, &pub); err != nil {
		t.Fatalf("unmarshal agent: %v", err)
	}

	for _, content := range []string{"first", "second", "third"} {
		status, resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/homebase/messages", map[string]string{
			"agent_id":     pub.ID,
			"user_address": "0xfan",
			"content":      content,
		})
		if status != http.StatusCreated {
			t.Fatalf("post %q: status=%d error=%+v", content, status, resp.Error)
		}
	}

	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/homebase/feed?agent_id="+pub.ID+"&limit=2", nil)
	if status != http.StatusOK {
		t.Fatalf("feed: status=%d error=%+v", status, resp.Error)
	}
	var feed []*agent.Message
	if err := json.Unmarshal(resp.Data, &feed); err != nil {
		t.Fatalf("unmarshal feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed size = %d, want limit 2", len(feed))
	}
	if feed[0].Content != "third" {
		t.Fatalf("feed[0] = %q, want newest first", feed[0].Content)
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/homebase/messages", map[string]string{
		"agent_id": pub.ID, "content": "   ",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("empty message: status = %d, want 400", status)
	}
}

func TestHomebaseProfile(t *testing.T) {
	ts, _ := newTestServer(t)

	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/v1/agents", map[string]string{
		"name": "Pixel", "symbol": "PXL", "deployer_address": "0xdeployer",
	})
	var pub agent.Public
	if err := json.Unmarshal(created.Data, &pub); err != nil {
		t.Fatalf("unmarshal agent: %v", err)
	}

	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/homebase/agents/"+pub.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("profile: status=%d error=%+v", status, resp.Error)
	}
	var profile struct {
		Agent    agent.Public     `json:"agent"`
		Messages []*agent.Message `json:"messages"`
	}
	if err := json.Unmarshal(resp.Data, &profile); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}
	if profile.Agent.ID != pub.ID {
		t.Fatalf("profile agent = %s, want %s", profile.Agent.ID, pub.ID)
	}
}

func TestListBounties(t *testing.T) {
	ts, store := newTestServer(t)

	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/v1/agents", map[string]string{
		"name": "Pixel", "symbol": "PXL", "deployer_address": "0xdeployer",
	})
	var pub agent.Public
	if err := json.Unmarshal(created.Data, &pub); err != nil {
		t.Fatalf("unmarshal agent: %v", err)
	}

	if err := store.AddBounty(context.Background(), &agent.Bounty{
		ID: "b1", AgentID: pub.ID, Title: "Design a logo", RewardUSD: 5,
		Status: agent.BountyOpen, CreatedAt: 100,
	}); err != nil {
		t.Fatalf("AddBounty: %v", err)
	}

	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/bounties", nil)
	if status != http.StatusOK {
		t.Fatalf("bounties: status=%d error=%+v", status, resp.Error)
	}
	var bounties []*agent.Bounty
	if err := json.Unmarshal(resp.Data, &bounties); err != nil {
		t.Fatalf("unmarshal bounties: %v", err)
	}
	if len(bounties) != 1 || bounties[0].Title != "Design a logo" {
		t.Fatalf("bounties = %+v", bounties)
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}
