package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubWallets struct {
	address string
	sealed  string
	err     error
}

func (s *stubWallets) Generate(context.Context) (string, string, error) {
	return s.address, s.sealed, s.err
}

type stubTokens struct {
	address string
	err     error
	calls   int
}

func (s *stubTokens) Launch(_ context.Context, _, _, _ string) (string, error) {
	s.calls++
	return s.address, s.err
}

type stubBalances struct {
	balance float64
	err     error
}

func (s *stubBalances) BalanceUSD(context.Context, string, float64) (float64, error) {
	return s.balance, s.err
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *stubTokens) {
	t.Helper()
	store := NewMemoryStore()
	tokens := &stubTokens{address: "0xtoken"}
	wallets := &stubWallets{address: "0xabc", sealed: "deadbeef:cafebabe"}
	svc := NewService(store, wallets, tokens, &stubBalances{balance: 42})
	return svc, store, tokens
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateRequest
	}{
		{"empty name", CreateRequest{Symbol: "ABC"}},
		{"symbol too short", CreateRequest{Name: "Aria", Symbol: "A"}},
		{"symbol too long", CreateRequest{Name: "Aria", Symbol: "ABCDEFGHIJK"}},
		{"symbol not letters", CreateRequest{Name: "Aria", Symbol: "AB12"}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.req); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestServiceCreateEmbryo(t *testing.T) {
	svc, store, tokens := newTestService(t)
	ctx := context.Background()

	public, err := svc.Create(ctx, CreateRequest{
		Name:            "Aria",
		Symbol:          "aria",
		Personality:     "curious",
		Purpose:         "explore the network",
		DeployerAddress: "0xdeployer",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if public.Status != StatusEmbryo {
		t.Fatalf("expected embryo status, got %s", public.Status)
	}
	if public.Symbol != "ARIA" {
		t.Fatalf("expected uppercased symbol, got %s", public.Symbol)
	}
	if public.WalletAddress != "0xabc" || public.TokenAddress != "0xtoken" {
		t.Fatalf("unexpected addresses: %+v", public)
	}
	if tokens.calls != 1 {
		t.Fatalf("expected one token launch, got %d", tokens.calls)
	}

	stored, err := store.GetAgent(ctx, public.ID)
	if err != nil {
		t.Fatalf("get stored agent: %v", err)
	}
	if stored.SealedCredential == "" {
		t.Fatal("expected sealed credential to be persisted")
	}
}

func TestServiceCreateTokenLaunchFailureIsNonFatal(t *testing.T) {
	store := NewMemoryStore()
	wallets := &stubWallets{address: "0xabc", sealed: "sealed"}
	tokens := &stubTokens{err: errors.New("launchpad down")}
	svc := NewService(store, wallets, tokens, nil)

	public, err := svc.Create(context.Background(), CreateRequest{Name: "Bot", Symbol: "BOT"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if public.TokenAddress != "" {
		t.Fatalf("expected empty token address, got %s", public.TokenAddress)
	}
}

func TestServiceCreateWalletFailure(t *testing.T) {
	store := NewMemoryStore()
	wallets := &stubWallets{err: errors.New("entropy exhausted")}
	svc := NewService(store, wallets, nil, nil)

	if _, err := svc.Create(context.Background(), CreateRequest{Name: "Bot", Symbol: "BOT"}); err == nil {
		t.Fatal("expected wallet failure to abort creation")
	}
	agents, err := store.ListAgents(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(agents) != 0 {
		t.Fatalf("expected no agents persisted, got %d", len(agents))
	}
}

func TestServicePostUserMessage(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	public, err := svc.Create(ctx, CreateRequest{Name: "Aria", Symbol: "ARIA"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.PostUserMessage(ctx, public.ID, "0xfan", ""); err == nil {
		t.Fatal("expected empty content rejection")
	}
	if _, err := svc.PostUserMessage(ctx, public.ID, "0xfan", strings.Repeat("x", maxMessageLength+1)); err == nil {
		t.Fatal("expected oversized content rejection")
	}
	if _, err := svc.PostUserMessage(ctx, "missing", "0xfan", "hello"); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected agent not found, got %v", err)
	}

	message, err := svc.PostUserMessage(ctx, public.ID, "0xfan", "hello there")
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if message.Type != MessageUser || message.UserAddress != "0xfan" {
		t.Fatalf("unexpected message: %+v", message)
	}

	feed, err := store.ListMessages(ctx, FeedOptions{AgentID: public.ID})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != 1 || feed[0].Content != "hello there" {
		t.Fatalf("unexpected feed: %+v", feed)
	}
}

func TestServiceGetRefreshesAliveBalance(t *testing.T) {
	store := NewMemoryStore()
	wallets := &stubWallets{address: "0xabc", sealed: "sealed"}
	balances := &stubBalances{balance: 99.5}
	svc := NewService(store, wallets, nil, balances)
	ctx := context.Background()

	public, err := svc.Create(ctx, CreateRequest{Name: "Aria", Symbol: "ARIA"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 胚胎不刷新余额。
	got, err := svc.Get(ctx, public.ID)
	if err != nil {
		t.Fatalf("get embryo: %v", err)
	}
	if got.BalanceUSD != 0 {
		t.Fatalf("embryo balance should stay 0, got %f", got.BalanceUSD)
	}

	if err := store.MarkAlive(ctx, public.ID, 1000, 12); err != nil {
		t.Fatalf("mark alive: %v", err)
	}
	got, err = svc.Get(ctx, public.ID)
	if err != nil {
		t.Fatalf("get alive: %v", err)
	}
	if got.BalanceUSD != 99.5 {
		t.Fatalf("expected refreshed balance, got %f", got.BalanceUSD)
	}
	stored, _ := store.GetAgent(ctx, public.ID)
	if stored.BalanceUSD != 99.5 {
		t.Fatalf("expected balance written back, got %f", stored.BalanceUSD)
	}
}
