package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"ALiFe-Chain/sdk/go/alife"
)

// 一个最小的端到端示例：启动一个模拟服务端，创建智能体、留言并读取主页。
func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/agents", func(w http.ResponseWriter, r *http.Request) {
		var submission alife.AgentSubmission
		_ = json.NewDecoder(r.Body).Decode(&submission)
		writeData(w, http.StatusCreated, alife.Agent{
			ID:            "agent-demo",
			Name:          submission.Name,
			Symbol:        submission.Symbol,
			WalletAddress: "0xwallet",
			Status:        "embryo",
		})
	})
	mux.HandleFunc("POST /api/v1/homebase/messages", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusCreated, alife.Message{ID: "m1", AgentID: "agent-demo", Content: "welcome!", Type: "user"})
	})
	mux.HandleFunc("GET /api/v1/homebase/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, alife.Profile{
			Agent: alife.Agent{ID: "agent-demo", Name: "Pixel", Status: "alive", BalanceUSD: 42},
			Messages: []*alife.Message{
				{ID: "m1", AgentID: "agent-demo", Content: "welcome!", Type: "user", CreatedAt: 100},
			},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := alife.NewClient(server.URL, server.Client())
	if err != nil {
		panic(err)
	}
	ctx := context.Background()

	created, err := client.CreateAgent(ctx, alife.AgentSubmission{
		Name:            "Pixel",
		Symbol:          "PXL",
		Purpose:         "make generative art and grow a following",
		DeployerAddress: "0xdeployer",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("created agent %s (%s)\n", created.ID, created.Status)

	if _, err := client.PostMessage(ctx, created.ID, "0xfan", "welcome!"); err != nil {
		panic(err)
	}

	profile, err := client.Profile(ctx, created.ID)
	if err != nil {
		panic(err)
	}
	fmt.Printf("agent %s has %d message(s), balance $%.2f\n",
		profile.Agent.Name, len(profile.Messages), profile.Agent.BalanceUSD)
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}
