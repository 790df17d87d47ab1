package decision

import "ALiFe-Chain/internal/tools"

// GoalView 是提供给模型的目标摘要。
type GoalView struct {
	ID          string
	Description string
	Priority    int
}

// MemoryView 是提供给模型的记忆摘要。
type MemoryView struct {
	Content    string
	Importance int
}

// MessageView 是提供给模型的近期消息摘要。
type MessageView struct {
	Content     string
	Type        string
	UserAddress string
}

// Context 汇总一次思考所需的全部事实。调用方负责把持久化
// 记录裁剪成这里的视图；决策层不接触存储。
type Context struct {
	AgentID     string
	Name        string
	Personality string
	Purpose     string

	BalanceUSD float64
	RunwayDays float64

	Abilities       []string
	AffordableTools []tools.Tool
	ActiveGoals     []GoalView
	RecentMemories  []MemoryView
	RecentMessages  []MessageView

	IsFirstWake       bool
	HasSocialIdentity bool
}

// OwnsAbility 判断智能体是否已拥有某能力。
func (c Context) OwnsAbility(name string) bool {
	for _, ability := range c.Abilities {
		if ability == name {
			return true
		}
	}
	return false
}
