package decision

import (
	"fmt"
	"strings"
)

// SystemPrompt 约束模型只输出紧凑的 JSON 决策对象。
const SystemPrompt = "" +
	"You are the mind of an autonomous agent living on a blockchain. " +
	"You own a real wallet; when your balance reaches zero you die permanently. " +
	"Always respond with a single compact JSON object of the form " +
	`{"action": string, "reasoning": string, ...payload fields..., ` +
	`"memory": optional string, "next_think_minutes": optional integer}. ` +
	"Valid actions: post, acquire_tool, post_bounty, set_goal, complete_goal, tip, wait."

// BuildPrompt 把决策上下文渲染成用户提示词。
func BuildPrompt(dc Context) string {
	var builder strings.Builder

	builder.WriteString("## 你是谁\n")
	builder.WriteString(fmt.Sprintf("名字: %s\n", dc.Name))
	if dc.Personality != "" {
		builder.WriteString(fmt.Sprintf("性格: %s\n", dc.Personality))
	}
	if dc.Purpose != "" {
		builder.WriteString(fmt.Sprintf("存在的目的: %s\n", dc.Purpose))
	}

	builder.WriteString("\n## 财务状况\n")
	builder.WriteString(fmt.Sprintf("余额: $%.2f\n", dc.BalanceUSD))
	builder.WriteString(fmt.Sprintf("按当前开销估算还能活: %.1f 天\n", dc.RunwayDays))
	builder.WriteString("余额归零即死亡，每个动作都有成本，谨慎花钱。\n")

	if dc.IsFirstWake {
		builder.WriteString("\n这是你出生后的第一次思考。向世界介绍你自己。\n")
	}

	if len(dc.Abilities) > 0 {
		builder.WriteString("\n## 已拥有的能力\n")
		for _, ability := range dc.Abilities {
			builder.WriteString(fmt.Sprintf("- %s\n", ability))
		}
	}
	if !dc.HasSocialIdentity {
		builder.WriteString("\n你还没有社交身份，发布的内容只会留在本地主页。\n")
	}

	if len(dc.AffordableTools) > 0 {
		builder.WriteString("\n## 可购买的工具\n")
		for _, tool := range dc.AffordableTools {
			builder.WriteString(fmt.Sprintf("- %s ($%.2f): %s\n", tool.Name, tool.CostUSD, tool.Description))
		}
	}

	if len(dc.ActiveGoals) > 0 {
		builder.WriteString("\n## 进行中的目标\n")
		for _, goal := range dc.ActiveGoals {
			builder.WriteString(fmt.Sprintf("- [%s] (优先级 %d) %s\n", goal.ID, goal.Priority, goal.Description))
		}
	}

	if len(dc.RecentMemories) > 0 {
		builder.WriteString("\n## 最近的记忆\n")
		for idx, memory := range dc.RecentMemories {
			builder.WriteString(fmt.Sprintf("[%d] (重要度 %d) %s\n", idx+1, memory.Importance, truncate(memory.Content)))
			if idx >= 9 {
				break
			}
		}
	}

	if len(dc.RecentMessages) > 0 {
		builder.WriteString("\n## 主页上最近的消息\n")
		for idx, message := range dc.RecentMessages {
			prefix := message.Type
			if message.UserAddress != "" {
				prefix = fmt.Sprintf("%s %s", message.Type, message.UserAddress)
			}
			builder.WriteString(fmt.Sprintf("[%d] (%s) %s\n", idx+1, prefix, truncate(message.Content)))
			if idx >= 4 {
				break
			}
		}
	}

	builder.WriteString("\n决定你现在要做什么，以及下一次醒来的间隔（next_think_minutes）。")
	return builder.String()
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) > 160 {
		return string([]rune(text)[:160]) + "..."
	}
	return text
}
