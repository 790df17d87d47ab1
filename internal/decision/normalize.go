package decision

import (
	"encoding/json"
	"strings"
)

const (
	// MinWakeMinutes 与 MaxWakeMinutes 界定智能体自主选择的唤醒间隔。
	MinWakeMinutes = 1
	MaxWakeMinutes = 360
	// DefaultWakeMinutes 在模型未给出合法间隔时使用。
	DefaultWakeMinutes = 15
)

// Parse 从模型的自由文本中提取 JSON 决策对象。
// 模型经常在 JSON 前后包一段闲聊，这里取第一个 '{' 到最后一个 '}'。
// 解析失败不报错，降级为带诊断理由的等待决策。
func Parse(content string) *Decision {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Wait("Failed to parse response")
	}

	var d Decision
	if err := json.Unmarshal([]byte(content[start:end+1]), &d); err != nil {
		return Wait("Failed to parse response")
	}
	return &d
}

// Normalize 把任意决策规整为可安全执行的决策。出了这个边界，
// 执行器不再做动作合法性判断。
func Normalize(d *Decision, balanceUSD float64) *Decision {
	if d == nil {
		d = Wait("provider returned no decision")
	}
	d.Content = strings.TrimSpace(d.Content)
	d.ToolName = strings.TrimSpace(d.ToolName)
	d.GoalID = strings.TrimSpace(d.GoalID)
	d.Memory = strings.TrimSpace(d.Memory)

	switch d.Action {
	case ActionPost:
		if d.Content == "" {
			demote(d, "post without content")
		}
	case ActionAcquireTool:
		if d.ToolName == "" {
			demote(d, "acquire_tool without tool_name")
		}
	case ActionPostBounty:
		if d.Bounty == nil || strings.TrimSpace(d.Bounty.Title) == "" {
			demote(d, "post_bounty without bounty payload")
		} else if d.Bounty.RewardUSD < 0 || d.Bounty.RewardUSD > balanceUSD {
			demote(d, "bounty reward outside affordable range")
		}
	case ActionSetGoal:
		if d.Goal == nil || strings.TrimSpace(d.Goal.Description) == "" {
			demote(d, "set_goal without goal payload")
		}
	case ActionCompleteGoal:
		if d.GoalID == "" {
			demote(d, "complete_goal without goal_id")
		}
	case ActionTip:
		if d.Tip == nil || strings.TrimSpace(d.Tip.AgentID) == "" {
			demote(d, "tip without recipient")
		} else if d.Tip.AmountUSD <= 0 || d.Tip.AmountUSD > balanceUSD {
			demote(d, "tip amount outside affordable range")
		}
	case ActionWait:
		// 无载荷。
	default:
		demote(d, "unknown action")
	}

	if d.NextThinkMinutes <= 0 {
		d.NextThinkMinutes = DefaultWakeMinutes
	}
	if d.NextThinkMinutes < MinWakeMinutes {
		d.NextThinkMinutes = MinWakeMinutes
	}
	if d.NextThinkMinutes > MaxWakeMinutes {
		d.NextThinkMinutes = MaxWakeMinutes
	}
	return d
}

// demote 把非法动作降级为等待，保留原始理由便于排查。
func demote(d *Decision, cause string) {
	d.Action = ActionWait
	if d.Reasoning == "" {
		d.Reasoning = cause
	} else {
		d.Reasoning = cause + ": " + d.Reasoning
	}
	d.Content = ""
	d.ToolName = ""
	d.Bounty = nil
	d.Goal = nil
	d.GoalID = ""
	d.Tip = nil
}
