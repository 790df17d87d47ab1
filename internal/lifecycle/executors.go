package lifecycle

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ALiFe-Chain/internal/agent"
	"ALiFe-Chain/internal/decision"
	"ALiFe-Chain/internal/social"
	"ALiFe-Chain/internal/tools"
	"ALiFe-Chain/pkg/logger"
)

// Executors 把已规整的决策落为持久化记录与外部副作用。
// 执行语义为至少一次；所有副作用都以持久化记录收尾。
type Executors struct {
	store   agent.Store
	social  social.Client
	catalog *tools.Catalog
	tips    TipSender
	clock   Clock
}

// NewExecutors 构造执行器集合。social 与 tips 允许为空。
func NewExecutors(store agent.Store, socialClient social.Client, catalog *tools.Catalog, tips TipSender, clock Clock) *Executors {
	if clock == nil {
		clock = time.Now
	}
	if catalog == nil {
		catalog = tools.DefaultCatalog()
	}
	return &Executors{
		store:   store,
		social:  socialClient,
		catalog: catalog,
		tips:    tips,
		clock:   clock,
	}
}

// Execute 执行一条决策，最后保存记忆副通道。
// 进入这里的决策已经过校验边界，载荷缺失只会是编程错误。
func (e *Executors) Execute(ctx context.Context, a *agent.Agent, d *decision.Decision) error {
	var err error
	switch d.Action {
	case decision.ActionPost:
		err = e.executePost(ctx, a, d)
	case decision.ActionAcquireTool:
		err = e.executeAcquireTool(ctx, a, d)
	case decision.ActionPostBounty:
		err = e.executePostBounty(ctx, a, d)
	case decision.ActionSetGoal:
		err = e.executeSetGoal(ctx, a, d)
	case decision.ActionCompleteGoal:
		err = e.executeCompleteGoal(ctx, a, d)
	case decision.ActionTip:
		err = e.executeTip(ctx, a, d)
	case decision.ActionWait:
		// 什么都不做也是一种选择。
	default:
		err = fmt.Errorf("未知动作 %s 越过了校验边界", d.Action)
	}

	if memErr := e.saveMemory(ctx, a, d); memErr != nil && err == nil {
		err = memErr
	}
	return err
}

// executePost 发布内容：有社交身份时同步到公共网络，本地主页始终落一条。
func (e *Executors) executePost(ctx context.Context, a *agent.Agent, d *decision.Decision) error {
	if identity, ok := e.socialIdentity(ctx, a.ID); ok && e.social != nil {
		if hash, err := e.social.Post(ctx, identity, d.Content); err != nil {
			logger.L().Warn("社交网络发帖失败，仅保留本地消息",
				slog.Any("error", err), slog.String("agent_id", a.ID))
		} else {
			logger.L().Info("已发布到社交网络",
				slog.String("agent_id", a.ID), slog.String("cast_hash", hash))
		}
	}
	return e.store.AddMessage(ctx, &agent.Message{
		ID:        uuid.NewString(),
		AgentID:   a.ID,
		Content:   d.Content,
		Type:      agent.MessagePost,
		CreatedAt: e.clock().Unix(),
	})
}

// executeAcquireTool 购买工具：自动化工具直接成为能力，
// 人工工具转为悬赏等待人类履约。
func (e *Executors) executeAcquireTool(ctx context.Context, a *agent.Agent, d *decision.Decision) error {
	tool, ok := e.catalog.Get(d.ToolName)
	if !ok {
		logger.L().Warn("尝试购买不存在的工具",
			slog.String("agent_id", a.ID), slog.String("tool", d.ToolName))
		return nil
	}
	if tool.CostUSD > a.BalanceUSD {
		logger.L().Warn("余额不足，放弃购买工具",
			slog.String("agent_id", a.ID), slog.String("tool", tool.Name),
			slog.Float64("cost_usd", tool.CostUSD), slog.Float64("balance_usd", a.BalanceUSD))
		return nil
	}

	if !tool.Automated {
		return e.store.AddBounty(ctx, &agent.Bounty{
			ID:          uuid.NewString(),
			AgentID:     a.ID,
			Title:       fmt.Sprintf("Fulfill tool purchase: %s", tool.Name),
			Description: tool.Description,
			RewardUSD:   tool.CostUSD,
			Status:      agent.BountyOpen,
			CreatedAt:   e.clock().Unix(),
		})
	}

	config := map[string]any{"credential": uuid.NewString()}
	if tool.Name == tools.SocialToolName && e.social != nil {
		identity, err := e.social.Provision(ctx, a.Name)
		if err != nil {
			logger.L().Warn("开通社交身份失败", slog.Any("error", err), slog.String("agent_id", a.ID))
			return nil
		}
		config = social.ToAbilityConfig(identity)
	}

	err := e.store.AddAbility(ctx, &agent.Ability{
		ID:        uuid.NewString(),
		AgentID:   a.ID,
		Name:      tool.Name,
		Config:    config,
		CreatedAt: e.clock().Unix(),
	})
	if stdErrors.Is(err, agent.ErrAbilityExists) {
		logger.L().Warn("工具已拥有，跳过重复购买",
			slog.String("agent_id", a.ID), slog.String("tool", tool.Name))
		return nil
	}
	if err == nil {
		logger.Audit().Info("智能体购买了工具",
			slog.String("agent_id", a.ID),
			slog.String("tool", tool.Name),
			slog.Float64("cost_usd", tool.CostUSD),
		)
	}
	return err
}

func (e *Executors) executePostBounty(ctx context.Context, a *agent.Agent, d *decision.Decision) error {
	return e.store.AddBounty(ctx, &agent.Bounty{
		ID:          uuid.NewString(),
		AgentID:     a.ID,
		Title:       strings.TrimSpace(d.Bounty.Title),
		Description: strings.TrimSpace(d.Bounty.Description),
		RewardUSD:   d.Bounty.RewardUSD,
		Status:      agent.BountyOpen,
		CreatedAt:   e.clock().Unix(),
	})
}

func (e *Executors) executeSetGoal(ctx context.Context, a *agent.Agent, d *decision.Decision) error {
	return e.store.AddGoal(ctx, &agent.Goal{
		ID:          uuid.NewString(),
		AgentID:     a.ID,
		Description: strings.TrimSpace(d.Goal.Description),
		Priority:    d.Goal.Priority,
		Status:      agent.GoalActive,
		CreatedAt:   e.clock().Unix(),
	})
}

func (e *Executors) executeCompleteGoal(ctx context.Context, a *agent.Agent, d *decision.Decision) error {
	err := e.store.CompleteGoal(ctx, a.ID, d.GoalID, e.clock().Unix())
	if stdErrors.Is(err, agent.ErrGoalNotFound) {
		logger.L().Warn("尝试完成不存在的目标",
			slog.String("agent_id", a.ID), slog.String("goal_id", d.GoalID))
		return nil
	}
	return err
}

// executeTip 给另一个存活的智能体转账，并在双方主页留下记录。
func (e *Executors) executeTip(ctx context.Context, a *agent.Agent, d *decision.Decision) error {
	if e.tips == nil {
		logger.L().Warn("未配置转账器，放弃打赏", slog.String("agent_id", a.ID))
		return nil
	}
	recipient, err := e.store.GetAgent(ctx, d.Tip.AgentID)
	if err != nil {
		if stdErrors.Is(err, agent.ErrAgentNotFound) {
			logger.L().Warn("打赏对象不存在",
				slog.String("agent_id", a.ID), slog.String("recipient", d.Tip.AgentID))
			return nil
		}
		return err
	}
	if recipient.Status != agent.StatusAlive || recipient.WalletAddress == "" {
		logger.L().Warn("打赏对象不可接收转账",
			slog.String("agent_id", a.ID), slog.String("recipient", recipient.ID))
		return nil
	}

	txHash, err := e.tips.Send(ctx, a.SealedCredential, recipient.WalletAddress, d.Tip.AmountUSD)
	if err != nil {
		return err
	}

	note := strings.TrimSpace(d.Tip.Note)
	content := fmt.Sprintf("Sent $%.2f to %s (tx %s)", d.Tip.AmountUSD, recipient.Name, txHash)
	if note != "" {
		content += ": " + note
	}
	logger.Audit().Info("智能体完成打赏",
		slog.String("agent_id", a.ID),
		slog.String("recipient", recipient.ID),
		slog.Float64("amount_usd", d.Tip.AmountUSD),
		slog.String("tx_hash", txHash),
	)
	return e.store.AddMessage(ctx, &agent.Message{
		ID:        uuid.NewString(),
		AgentID:   a.ID,
		Content:   content,
		Type:      agent.MessagePost,
		CreatedAt: e.clock().Unix(),
	})
}

func (e *Executors) saveMemory(ctx context.Context, a *agent.Agent, d *decision.Decision) error {
	if d.Memory == "" {
		return nil
	}
	return e.store.AddMemory(ctx, &agent.Memory{
		ID:         uuid.NewString(),
		AgentID:    a.ID,
		Content:    d.Memory,
		Importance: 5,
		CreatedAt:  e.clock().Unix(),
	})
}

// socialIdentity 从能力配置里找出可用的社交身份。
func (e *Executors) socialIdentity(ctx context.Context, agentID string) (social.Identity, bool) {
	abilities, err := e.store.ListAbilities(ctx, agentID)
	if err != nil {
		logger.L().Warn("读取能力失败", slog.Any("error", err), slog.String("agent_id", agentID))
		return social.Identity{}, false
	}
	for _, ability := range abilities {
		if ability.Name != tools.SocialToolName {
			continue
		}
		if identity, ok := social.FromAbilityConfig(ability.Config); ok {
			return identity, true
		}
	}
	return social.Identity{}, false
}
