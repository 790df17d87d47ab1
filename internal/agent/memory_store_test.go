package agent

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedAgent(t *testing.T, store *MemoryStore, id string, status Status) *Agent {
	t.Helper()
	a := &Agent{
		ID:        id,
		Name:      "Agent " + id,
		Symbol:    "AG" + id,
		Status:    status,
		CreatedAt: time.Now().Unix(),
	}
	if err := store.CreateAgent(context.Background(), a); err != nil {
		t.Fatalf("create agent %s: %v", id, err)
	}
	return a
}

func TestMemoryStoreLifecycleTransitions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedAgent(t, store, "a1", StatusEmbryo)

	now := time.Now().Unix()

	if err := store.MarkDead(ctx, "a1", now); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal transition for embryo death, got %v", err)
	}

	if err := store.MarkAlive(ctx, "a1", now, 25.5); err != nil {
		t.Fatalf("mark alive: %v", err)
	}
	got, err := store.GetAgent(ctx, "a1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != StatusAlive || got.BornAt != now || got.BalanceUSD != 25.5 {
		t.Fatalf("unexpected agent after activation: %+v", got)
	}
	if got.NextThinkAt != now {
		t.Fatalf("expected first think scheduled at birth, got %d", got.NextThinkAt)
	}

	if err := store.MarkAlive(ctx, "a1", now, 25.5); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected second activation to fail, got %v", err)
	}

	if err := store.MarkDead(ctx, "a1", now+60); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	got, _ = store.GetAgent(ctx, "a1")
	if got.Status != StatusDead || got.DiedAt != now+60 || got.NextThinkAt != 0 {
		t.Fatalf("unexpected agent after death: %+v", got)
	}
	if err := store.MarkDead(ctx, "a1", now+120); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected second death to fail, got %v", err)
	}
}

func TestMemoryStoreListDue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().Unix()

	seedAgent(t, store, "due", StatusEmbryo)
	seedAgent(t, store, "later", StatusEmbryo)
	seedAgent(t, store, "embryo", StatusEmbryo)
	seedAgent(t, store, "gone", StatusEmbryo)

	if err := store.MarkAlive(ctx, "due", now-600, 20); err != nil {
		t.Fatalf("activate due: %v", err)
	}
	if err := store.MarkAlive(ctx, "later", now-600, 20); err != nil {
		t.Fatalf("activate later: %v", err)
	}
	if err := store.MarkAlive(ctx, "gone", now-600, 20); err != nil {
		t.Fatalf("activate gone: %v", err)
	}
	if err := store.FinishThink(ctx, "later", 20, now-300, now+900); err != nil {
		t.Fatalf("reschedule later: %v", err)
	}
	if err := store.MarkDead(ctx, "gone", now-60); err != nil {
		t.Fatalf("kill gone: %v", err)
	}

	due, err := store.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != "due" {
		t.Fatalf("unexpected due agents: %+v", due)
	}
}

func TestMemoryStoreCreateAgentConflict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedAgent(t, store, "dup", StatusEmbryo)

	err := store.CreateAgent(ctx, &Agent{ID: "dup", Name: "again"})
	if !errors.Is(err, ErrAgentConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemoryStoreAbilityUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedAgent(t, store, "a1", StatusAlive)

	first := &Ability{ID: "ab1", AgentID: "a1", Name: "post_message"}
	if err := store.AddAbility(ctx, first); err != nil {
		t.Fatalf("add ability: %v", err)
	}
	dup := &Ability{ID: "ab2", AgentID: "a1", Name: "post_message"}
	if err := store.AddAbility(ctx, dup); !errors.Is(err, ErrAbilityExists) {
		t.Fatalf("expected duplicate ability rejection, got %v", err)
	}

	abilities, err := store.ListAbilities(ctx, "a1")
	if err != nil {
		t.Fatalf("list abilities: %v", err)
	}
	if len(abilities) != 1 || abilities[0].Name != "post_message" {
		t.Fatalf("unexpected abilities: %+v", abilities)
	}
}

func TestMemoryStoreGoalCompletion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedAgent(t, store, "a1", StatusAlive)

	goal := &Goal{ID: "g1", AgentID: "a1", Description: "grow the treasury", Priority: 5}
	if err := store.AddGoal(ctx, goal); err != nil {
		t.Fatalf("add goal: %v", err)
	}
	if err := store.CompleteGoal(ctx, "a1", "missing", time.Now().Unix()); !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("expected goal not found, got %v", err)
	}

	done := time.Now().Unix()
	if err := store.CompleteGoal(ctx, "a1", "g1", done); err != nil {
		t.Fatalf("complete goal: %v", err)
	}
	active, err := store.ListGoals(ctx, "a1", true)
	if err != nil {
		t.Fatalf("list active goals: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active goals, got %+v", active)
	}
	all, err := store.ListGoals(ctx, "a1", false)
	if err != nil {
		t.Fatalf("list all goals: %v", err)
	}
	if len(all) != 1 || all[0].Status != GoalCompleted || all[0].CompletedAt != done {
		t.Fatalf("unexpected goals: %+v", all)
	}
}

func TestMemoryStoreRecentMemories(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedAgent(t, store, "a1", StatusAlive)

	base := time.Now().Add(-time.Hour).Unix()
	for i := 0; i < 12; i++ {
		memory := &Memory{
			ID:         "m" + string(rune('a'+i)),
			AgentID:    "a1",
			Content:    "entry",
			Importance: 5,
			CreatedAt:  base + int64(i*60),
		}
		if err := store.AddMemory(ctx, memory); err != nil {
			t.Fatalf("add memory %d: %v", i, err)
		}
	}

	recent, err := store.ListRecentMemories(ctx, "a1", 10)
	if err != nil {
		t.Fatalf("list memories: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("expected 10 memories, got %d", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i-1].CreatedAt < recent[i].CreatedAt {
			t.Fatalf("memories not newest-first at %d", i)
		}
	}
	if recent[0].CreatedAt != base+11*60 {
		t.Fatalf("expected newest memory first, got %d", recent[0].CreatedAt)
	}
}

func TestMemoryStoreFeedPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedAgent(t, store, "a1", StatusAlive)
	seedAgent(t, store, "a2", StatusAlive)

	base := time.Now().Add(-time.Hour).Unix()
	for i := 0; i < 5; i++ {
		owner := "a1"
		if i%2 == 1 {
			owner = "a2"
		}
		message := &Message{
			ID:        "msg" + string(rune('0'+i)),
			AgentID:   owner,
			Content:   "hello",
			Type:      MessagePost,
			CreatedAt: base + int64(i*10),
		}
		if err := store.AddMessage(ctx, message); err != nil {
			t.Fatalf("add message %d: %v", i, err)
		}
	}

	feed, err := store.ListMessages(ctx, FeedOptions{})
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	if len(feed) != 5 || feed[0].ID != "msg4" {
		t.Fatalf("unexpected feed: %+v", feed)
	}

	mine, err := store.ListMessages(ctx, FeedOptions{AgentID: "a1"})
	if err != nil {
		t.Fatalf("list agent feed: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected 3 messages for a1, got %d", len(mine))
	}

	older, err := store.ListMessages(ctx, FeedOptions{Before: base + 20})
	if err != nil {
		t.Fatalf("list with cursor: %v", err)
	}
	if len(older) != 2 || older[0].ID != "msg1" || older[1].ID != "msg0" {
		t.Fatalf("unexpected cursor page: %+v", older)
	}

	paged, err := store.ListMessages(ctx, FeedOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list with offset: %v", err)
	}
	if len(paged) != 2 || paged[0].ID != "msg2" {
		t.Fatalf("unexpected offset page: %+v", paged)
	}
}

func TestMemoryStoreOpenBounties(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedAgent(t, store, "a1", StatusAlive)

	open := &Bounty{ID: "b1", AgentID: "a1", Title: "find alpha", RewardUSD: 2}
	closed := &Bounty{ID: "b2", AgentID: "a1", Title: "done already", RewardUSD: 1, Status: BountyClosed}
	if err := store.AddBounty(ctx, open); err != nil {
		t.Fatalf("add open bounty: %v", err)
	}
	if err := store.AddBounty(ctx, closed); err != nil {
		t.Fatalf("add closed bounty: %v", err)
	}

	bounties, err := store.ListOpenBounties(ctx)
	if err != nil {
		t.Fatalf("list bounties: %v", err)
	}
	if len(bounties) != 1 || bounties[0].ID != "b1" {
		t.Fatalf("unexpected bounties: %+v", bounties)
	}
}
