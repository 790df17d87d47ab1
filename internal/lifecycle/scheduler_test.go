package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ALiFe-Chain/internal/agent"
)

type stubBalances struct {
	byWallet map[string]float64
	err      error
}

func (s *stubBalances) BalanceUSD(_ context.Context, walletAddress string, lastKnown float64) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if balance, ok := s.byWallet[walletAddress]; ok {
		return balance, nil
	}
	return lastKnown, nil
}

type stubProducer struct {
	published []string
	err       error
}

func (s *stubProducer) Publish(_ context.Context, agentID string) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, agentID)
	return nil
}

func (s *stubProducer) Close() error { return nil }

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func newEmbryo(t *testing.T, store agent.Store, id, wallet string) *agent.Agent {
	t.Helper()
	a := &agent.Agent{
		ID:            id,
		Name:          "Agent " + id,
		Symbol:        "AGT",
		Purpose:       "create generative art",
		WalletAddress: wallet,
		Status:        agent.StatusEmbryo,
		CreatedAt:     100,
	}
	if err := store.CreateAgent(context.Background(), a); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	return a
}

func TestSchedulerActivatesFundedEmbryo(t *testing.T) {
	store := agent.NewMemoryStore()
	newEmbryo(t, store, "a1", "0xaaa")
	now := time.Unix(5000, 0)

	balances := &stubBalances{byWallet: map[string]float64{"0xaaa": 25.0}}
	producer := &stubProducer{}
	s := NewScheduler(store, producer, balances, DefaultPolicy(), WithSchedulerClock(fixedClock(now)))

	s.Tick(context.Background())

	got, err := store.GetAgent(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.Status != agent.StatusAlive {
		t.Fatalf("status = %s, want alive", got.Status)
	}
	if got.BornAt != now.Unix() {
		t.Fatalf("BornAt = %d, want %d", got.BornAt, now.Unix())
	}
	if got.NextThinkAt != now.Unix() {
		t.Fatalf("NextThinkAt = %d, want birth time %d", got.NextThinkAt, now.Unix())
	}
	if got.BalanceUSD != 25.0 {
		t.Fatalf("BalanceUSD = %.2f, want 25.00", got.BalanceUSD)
	}

	memories, err := store.ListRecentMemories(context.Background(), "a1", 10)
	if err != nil {
		t.Fatalf("ListRecentMemories: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("memories = %d, want 1 seed memory", len(memories))
	}
	if memories[0].Importance != 9 {
		t.Fatalf("seed memory importance = %d, want 9", memories[0].Importance)
	}

	abilities, err := store.ListAbilities(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ListAbilities: %v", err)
	}
	if len(abilities) != 1 || abilities[0].Name != BaselineAbility {
		t.Fatalf("abilities = %+v, want only %s", abilities, BaselineAbility)
	}

	messages, err := store.ListMessages(context.Background(), agent.FeedOptions{AgentID: "a1"})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 || messages[0].Type != agent.MessageBirth {
		t.Fatalf("messages = %+v, want one birth message", messages)
	}
}

func TestSchedulerActivatesBeyondOnePage(t *testing.T) {
	store := agent.NewMemoryStore()
	ctx := context.Background()
	balances := &stubBalances{byWallet: map[string]float64{}}

	const total = 205
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("a%03d", i)
		newEmbryo(t, store, id, "0x"+id)
		balances.byWallet["0x"+id] = 25.0
	}

	s := NewScheduler(store, &stubProducer{}, balances, DefaultPolicy(), WithSchedulerClock(fixedClock(time.Unix(5000, 0))))
	s.Tick(ctx)

	var alive int
	for offset := 0; offset < total; offset += 100 {
		page, err := store.ListAgents(ctx, agent.ListOptions{
			Statuses: []agent.Status{agent.StatusAlive},
			Limit:    100,
			Offset:   offset,
		})
		if err != nil {
			t.Fatalf("ListAgents: %v", err)
		}
		alive += len(page)
	}
	if alive != total {
		t.Fatalf("alive = %d, want all %d embryos activated", alive, total)
	}
}

func TestSchedulerSkipsUnderfundedEmbryo(t *testing.T) {
	store := agent.NewMemoryStore()
	newEmbryo(t, store, "a1", "0xaaa")

	balances := &stubBalances{byWallet: map[string]float64{"0xaaa": 9.99}}
	s := NewScheduler(store, &stubProducer{}, balances, DefaultPolicy())

	s.Tick(context.Background())

	got, err := store.GetAgent(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.Status != agent.StatusEmbryo {
		t.Fatalf("status = %s, want embryo to stay dormant", got.Status)
	}
}

func TestSchedulerPublishesDueWakeups(t *testing.T) {
	store := agent.NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(10000, 0)

	newEmbryo(t, store, "due", "0xdue")
	newEmbryo(t, store, "later", "0xlater")
	if err := store.MarkAlive(ctx, "due", 9000, 20); err != nil {
		t.Fatalf("MarkAlive: %v", err)
	}
	if err := store.MarkAlive(ctx, "later", 9000, 20); err != nil {
		t.Fatalf("MarkAlive: %v", err)
	}
	if err := store.FinishThink(ctx, "due", 20, 9500, now.Unix()-10); err != nil {
		t.Fatalf("FinishThink: %v", err)
	}
	if err := store.FinishThink(ctx, "later", 20, 9500, now.Unix()+600); err != nil {
		t.Fatalf("FinishThink: %v", err)
	}

	producer := &stubProducer{}
	s := NewScheduler(store, producer, &stubBalances{}, DefaultPolicy(), WithSchedulerClock(fixedClock(now)))
	s.publishDueWakeups(ctx)

	if len(producer.published) != 1 || producer.published[0] != "due" {
		t.Fatalf("published = %v, want [due]", producer.published)
	}
}

func TestSchedulerPublishFailureDoesNotMutateState(t *testing.T) {
	store := agent.NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(10000, 0)

	newEmbryo(t, store, "due", "0xdue")
	if err := store.MarkAlive(ctx, "due", 9000, 20); err != nil {
		t.Fatalf("MarkAlive: %v", err)
	}
	if err := store.FinishThink(ctx, "due", 20, 9500, now.Unix()-10); err != nil {
		t.Fatalf("FinishThink: %v", err)
	}

	producer := &stubProducer{err: context.DeadlineExceeded}
	s := NewScheduler(store, producer, &stubBalances{}, DefaultPolicy(), WithSchedulerClock(fixedClock(now)))
	s.publishDueWakeups(ctx)

	// 投递失败后 NextThinkAt 保持不变，下一轮扫描仍能发现它。
	due, err := store.ListDue(ctx, now.Unix())
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 1 || due[0].ID != "due" {
		t.Fatalf("due = %v, want agent still discoverable", due)
	}
}
