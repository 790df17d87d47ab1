package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "ALiFe-Chain/internal/errors"
)

// MemoryStore 以内存方式保存智能体状态，主要用于测试与本地开发。
type MemoryStore struct {
	mu        sync.RWMutex
	agents    map[string]*Agent
	abilities []*Ability
	goals     []*Goal
	memories  []*Memory
	messages  []*Message
	bounties  []*Bounty
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{agents: make(map[string]*Agent)}
}

// CreateAgent 实现 Store 接口。
func (m *MemoryStore) CreateAgent(_ context.Context, a *Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a == nil || a.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "agent ID 不能为空")
	}
	if _, ok := m.agents[a.ID]; ok {
		return ErrAgentConflict
	}
	if a.Status == "" {
		a.Status = StatusEmbryo
	}
	if !IsValidStatus(a.Status) {
		return xerrors.New(xerrors.CodeInvalidArgument, "不支持的智能体状态")
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}
	m.agents[a.ID] = a.Clone()
	return nil
}

// GetAgent 返回指定智能体的拷贝。
func (m *MemoryStore) GetAgent(_ context.Context, id string) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return a.Clone(), nil
}

// ListAgents 按创建时间倒序返回符合过滤条件的智能体。
func (m *MemoryStore) ListAgents(_ context.Context, opts ListOptions) ([]*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts.applyDefaults()

	results := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		if opts.matches(a) {
			results = append(results, a.Clone())
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt == results[j].CreatedAt {
			return results[i].ID > results[j].ID
		}
		return results[i].CreatedAt > results[j].CreatedAt
	})

	if opts.Offset >= len(results) {
		return nil, nil
	}
	results = results[opts.Offset:]
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// ListDue 返回到期的存活智能体，先到期的排在前面。
func (m *MemoryStore) ListDue(_ context.Context, now int64) ([]*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*Agent, 0)
	for _, a := range m.agents {
		if a.Status != StatusAlive {
			continue
		}
		if a.NextThinkAt > 0 && a.NextThinkAt <= now {
			results = append(results, a.Clone())
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].NextThinkAt == results[j].NextThinkAt {
			return results[i].ID < results[j].ID
		}
		return results[i].NextThinkAt < results[j].NextThinkAt
	})
	return results, nil
}

// MarkAlive 将胚胎激活为存活状态，BornAt 只允许设置一次。
func (m *MemoryStore) MarkAlive(_ context.Context, id string, bornAt int64, balance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	if !CanTransition(a.Status, StatusAlive) || a.BornAt != 0 {
		return ErrIllegalTransition
	}
	a.Status = StatusAlive
	a.BornAt = bornAt
	a.BalanceUSD = balance
	a.NextThinkAt = bornAt
	return nil
}

// MarkDead 将存活智能体置为终态，DiedAt 只允许设置一次。
func (m *MemoryStore) MarkDead(_ context.Context, id string, diedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	if !CanTransition(a.Status, StatusDead) || a.DiedAt != 0 {
		return ErrIllegalTransition
	}
	a.Status = StatusDead
	a.DiedAt = diedAt
	a.NextThinkAt = 0
	return nil
}

// FinishThink 写入一次思考周期结束后的记账字段。
func (m *MemoryStore) FinishThink(_ context.Context, id string, balance float64, lastActiveAt, nextThinkAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	if a.Status != StatusAlive {
		return ErrAgentConflict
	}
	a.BalanceUSD = balance
	a.LastActiveAt = lastActiveAt
	a.NextThinkAt = nextThinkAt
	return nil
}

// UpdateBalance 仅刷新余额。
func (m *MemoryStore) UpdateBalance(_ context.Context, id string, balance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	a.BalanceUSD = balance
	return nil
}

// AddAbility 追加能力，名称在同一智能体内必须唯一。
func (m *MemoryStore) AddAbility(_ context.Context, ability *Ability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ability == nil || ability.AgentID == "" || ability.Name == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "ability 缺少必填字段")
	}
	if _, ok := m.agents[ability.AgentID]; !ok {
		return ErrAgentNotFound
	}
	for _, owned := range m.abilities {
		if owned.AgentID == ability.AgentID && owned.Name == ability.Name {
			return ErrAbilityExists
		}
	}
	clone := *ability
	if clone.CreatedAt == 0 {
		clone.CreatedAt = time.Now().Unix()
	}
	clone.Config = cloneConfig(ability.Config)
	m.abilities = append(m.abilities, &clone)
	return nil
}

// ListAbilities 返回指定智能体的全部能力。
func (m *MemoryStore) ListAbilities(_ context.Context, agentID string) ([]*Ability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]*Ability, 0)
	for _, ability := range m.abilities {
		if ability.AgentID != agentID {
			continue
		}
		clone := *ability
		clone.Config = cloneConfig(ability.Config)
		results = append(results, &clone)
	}
	return results, nil
}

// AddGoal 追加目标。
func (m *MemoryStore) AddGoal(_ context.Context, goal *Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if goal == nil || goal.AgentID == "" || goal.Description == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "goal 缺少必填字段")
	}
	if _, ok := m.agents[goal.AgentID]; !ok {
		return ErrAgentNotFound
	}
	clone := *goal
	if clone.Status == "" {
		clone.Status = GoalActive
	}
	if clone.CreatedAt == 0 {
		clone.CreatedAt = time.Now().Unix()
	}
	m.goals = append(m.goals, &clone)
	return nil
}

// CompleteGoal 将目标从 active 翻转为 completed。
func (m *MemoryStore) CompleteGoal(_ context.Context, agentID, goalID string, completedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, goal := range m.goals {
		if goal.ID != goalID || goal.AgentID != agentID {
			continue
		}
		if goal.Status != GoalActive {
			return ErrAgentConflict
		}
		goal.Status = GoalCompleted
		goal.CompletedAt = completedAt
		return nil
	}
	return ErrGoalNotFound
}

// ListGoals 按创建时间倒序返回目标。
func (m *MemoryStore) ListGoals(_ context.Context, agentID string, onlyActive bool) ([]*Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]*Goal, 0)
	for _, goal := range m.goals {
		if goal.AgentID != agentID {
			continue
		}
		if onlyActive && goal.Status != GoalActive {
			continue
		}
		clone := *goal
		results = append(results, &clone)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt == results[j].CreatedAt {
			return results[i].ID > results[j].ID
		}
		return results[i].CreatedAt > results[j].CreatedAt
	})
	return results, nil
}

// AddMemory 追加记忆。
func (m *MemoryStore) AddMemory(_ context.Context, memory *Memory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if memory == nil || memory.AgentID == "" || memory.Content == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "memory 缺少必填字段")
	}
	if _, ok := m.agents[memory.AgentID]; !ok {
		return ErrAgentNotFound
	}
	clone := *memory
	if clone.CreatedAt == 0 {
		clone.CreatedAt = time.Now().Unix()
	}
	m.memories = append(m.memories, &clone)
	return nil
}

// ListRecentMemories 返回最近的记忆，最新的排在前面。
func (m *MemoryStore) ListRecentMemories(_ context.Context, agentID string, limit int) ([]*Memory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]*Memory, 0)
	for i := len(m.memories) - 1; i >= 0; i-- {
		if m.memories[i].AgentID != agentID {
			continue
		}
		clone := *m.memories[i]
		results = append(results, &clone)
	}
	// 逆序遍历保证同一秒内后写入的记忆排在前面。
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// AddMessage 追加消息。
func (m *MemoryStore) AddMessage(_ context.Context, message *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if message == nil || message.AgentID == "" || message.Content == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "message 缺少必填字段")
	}
	if _, ok := m.agents[message.AgentID]; !ok {
		return ErrAgentNotFound
	}
	clone := *message
	if clone.Type == "" {
		clone.Type = MessagePost
	}
	if clone.CreatedAt == 0 {
		clone.CreatedAt = time.Now().Unix()
	}
	m.messages = append(m.messages, &clone)
	return nil
}

// ListMessages 按创建时间倒序返回消息流。
func (m *MemoryStore) ListMessages(_ context.Context, opts FeedOptions) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts.applyDefaults()

	results := make([]*Message, 0)
	for i := len(m.messages) - 1; i >= 0; i-- {
		if !opts.matches(m.messages[i]) {
			continue
		}
		clone := *m.messages[i]
		results = append(results, &clone)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})

	if opts.Offset >= len(results) {
		return nil, nil
	}
	results = results[opts.Offset:]
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// AddBounty 追加悬赏。
func (m *MemoryStore) AddBounty(_ context.Context, bounty *Bounty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bounty == nil || bounty.AgentID == "" || bounty.Title == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "bounty 缺少必填字段")
	}
	if _, ok := m.agents[bounty.AgentID]; !ok {
		return ErrAgentNotFound
	}
	clone := *bounty
	if clone.Status == "" {
		clone.Status = BountyOpen
	}
	if clone.CreatedAt == 0 {
		clone.CreatedAt = time.Now().Unix()
	}
	m.bounties = append(m.bounties, &clone)
	return nil
}

// ListOpenBounties 按创建时间倒序返回开放中的悬赏。
func (m *MemoryStore) ListOpenBounties(_ context.Context) ([]*Bounty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]*Bounty, 0)
	for _, bounty := range m.bounties {
		if bounty.Status != BountyOpen {
			continue
		}
		clone := *bounty
		results = append(results, &clone)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})
	return results, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

func cloneConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	cloned := make(map[string]any, len(config))
	for key, value := range config {
		cloned[key] = value
	}
	return cloned
}

// ensure interface compliance at compile time
var _ Store = (*MemoryStore)(nil)
