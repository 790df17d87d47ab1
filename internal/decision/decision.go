// Package decision 定义智能体每次醒来时的决策契约：
// 提供给大模型的上下文、模型产出的动作联合体，以及把任意
// 模型输出规整为可安全执行的决策的校验边界。
package decision

import "context"

// Action 枚举智能体可以采取的动作。
type Action string

const (
	ActionPost         Action = "post"
	ActionAcquireTool  Action = "acquire_tool"
	ActionPostBounty   Action = "post_bounty"
	ActionSetGoal      Action = "set_goal"
	ActionCompleteGoal Action = "complete_goal"
	ActionTip          Action = "tip"
	ActionWait         Action = "wait"
)

// BountyRequest 是 post_bounty 动作的载荷。
type BountyRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	RewardUSD   float64 `json:"reward_usd"`
}

// GoalRequest 是 set_goal 动作的载荷。
type GoalRequest struct {
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// TipRequest 是 tip 动作的载荷。
type TipRequest struct {
	AgentID   string  `json:"agent_id"`
	AmountUSD float64 `json:"amount_usd"`
	Note      string  `json:"note"`
}

// Decision 是一次思考的结构化结果。Memory 是独立的副通道，
// 任何动作都可以同时附带一条要保存的记忆。
type Decision struct {
	Action           Action         `json:"action"`
	Reasoning        string         `json:"reasoning"`
	Content          string         `json:"content,omitempty"`
	ToolName         string         `json:"tool_name,omitempty"`
	Bounty           *BountyRequest `json:"bounty,omitempty"`
	Goal             *GoalRequest   `json:"goal,omitempty"`
	GoalID           string         `json:"goal_id,omitempty"`
	Tip              *TipRequest    `json:"tip,omitempty"`
	Memory           string         `json:"memory,omitempty"`
	NextThinkMinutes int            `json:"next_think_minutes,omitempty"`
}

// Engine 定义决策提供方的统一接口。
type Engine interface {
	Decide(ctx context.Context, dc Context) (*Decision, error)
}

// Wait 构造一个带诊断理由的等待决策。
func Wait(reasoning string) *Decision {
	return &Decision{Action: ActionWait, Reasoning: reasoning}
}
