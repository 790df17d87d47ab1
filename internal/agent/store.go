package agent

import "context"

// Store 抽象智能体及其附属记录的持久化。提供内存实现（测试、开发）
// 与 MySQL 实现，两者必须满足相同的状态机约束：
// MarkAlive/MarkDead 只接受合法迁移，BornAt/DiedAt 只允许被设置一次。
type Store interface {
	// 智能体本体。
	CreateAgent(ctx context.Context, a *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	ListAgents(ctx context.Context, opts ListOptions) ([]*Agent, error)
	// ListDue 返回 next_think_at 已到期的存活智能体。
	ListDue(ctx context.Context, now int64) ([]*Agent, error)

	// 状态迁移与记账，仅供调度器调用。
	MarkAlive(ctx context.Context, id string, bornAt int64, balance float64) error
	MarkDead(ctx context.Context, id string, diedAt int64) error
	// FinishThink 在一次思考周期结束后写入余额、活跃时间与下次唤醒时间。
	FinishThink(ctx context.Context, id string, balance float64, lastActiveAt, nextThinkAt int64) error
	// UpdateBalance 供读路径刷新余额，不触碰任何调度字段。
	UpdateBalance(ctx context.Context, id string, balance float64) error

	// 附属记录。
	AddAbility(ctx context.Context, ability *Ability) error
	ListAbilities(ctx context.Context, agentID string) ([]*Ability, error)
	AddGoal(ctx context.Context, goal *Goal) error
	CompleteGoal(ctx context.Context, agentID, goalID string, completedAt int64) error
	ListGoals(ctx context.Context, agentID string, onlyActive bool) ([]*Goal, error)
	AddMemory(ctx context.Context, memory *Memory) error
	ListRecentMemories(ctx context.Context, agentID string, limit int) ([]*Memory, error)
	AddMessage(ctx context.Context, message *Message) error
	ListMessages(ctx context.Context, opts FeedOptions) ([]*Message, error)
	AddBounty(ctx context.Context, bounty *Bounty) error
	ListOpenBounties(ctx context.Context) ([]*Bounty, error)

	Close() error
}
