package lifecycle

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ALiFe-Chain/internal/agent"
	"ALiFe-Chain/internal/decision"
	xerrors "ALiFe-Chain/internal/errors"
	"ALiFe-Chain/internal/observability/alerting"
	"ALiFe-Chain/internal/observability/metrics"
	"ALiFe-Chain/internal/social"
	"ALiFe-Chain/internal/tools"
	"ALiFe-Chain/pkg/logger"
)

// FarewellMessage 是智能体破产死亡时留下的最后一条消息。
const FarewellMessage = "My treasury is empty. This is the end. Goodbye."

const defaultWorkerCount = 4

// CodeAgentBankrupt 表示智能体余额耗尽、生命周期终结。
const CodeAgentBankrupt xerrors.Code = "AGENT_BANKRUPT"

func init() {
	xerrors.Register(CodeAgentBankrupt, xerrors.Attributes{
		Message:   "agent treasury exhausted",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     true,
	})
}

// Processor 消费唤醒队列，为每个到期的智能体完成一次
// 余额核对 → 死亡判定 → 决策 → 执行 → 记账 的思考循环。
type Processor struct {
	store     agent.Store
	consumer  Consumer
	engine    decision.Engine
	executors *Executors
	balances  agent.BalanceReader
	catalog   *tools.Catalog
	social    social.Client
	alerts    alerting.Dispatcher
	policy    Policy
	clock     Clock

	workerCount int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithWorkerCount 设置消费并发度。
func WithWorkerCount(count int) ProcessorOption {
	return func(p *Processor) {
		if count > 0 {
			p.workerCount = count
		}
	}
}

// WithProcessorClock 注入时钟。
func WithProcessorClock(clock Clock) ProcessorOption {
	return func(p *Processor) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithSocialClient 注入社交客户端，供思考上下文拉取线上动态。
func WithSocialClient(client social.Client) ProcessorOption {
	return func(p *Processor) {
		p.social = client
	}
}

// WithAlertDispatcher 注入死亡事件的告警分发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerts = dispatcher
	}
}

// NewProcessor 构造思考处理器。
func NewProcessor(store agent.Store, consumer Consumer, engine decision.Engine, executors *Executors, balances agent.BalanceReader, catalog *tools.Catalog, policy Policy, opts ...ProcessorOption) *Processor {
	if catalog == nil {
		catalog = tools.DefaultCatalog()
	}
	p := &Processor{
		store:       store,
		consumer:    consumer,
		engine:      engine,
		executors:   executors,
		balances:    balances,
		catalog:     catalog,
		policy:      policy.normalize(),
		clock:       time.Now,
		workerCount: defaultWorkerCount,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Run 启动消费，阻塞到上下文取消。
func (p *Processor) Run(ctx context.Context) error {
	return p.consumer.Consume(ctx, p.workerCount, p.Handle)
}

// Handle 处理一条唤醒。同一智能体在进程内串行处理；跨进程的并发
// 最终由存储层的条件更新兜底。
func (p *Processor) Handle(ctx context.Context, agentID string) error {
	lock := p.agentLock(agentID)
	lock.Lock()
	defer lock.Unlock()

	a, err := p.store.GetAgent(ctx, agentID)
	if err != nil {
		if stdErrors.Is(err, agent.ErrAgentNotFound) {
			logger.L().Warn("唤醒了不存在的智能体", slog.String("agent_id", agentID))
			return nil
		}
		return err
	}
	if a.Status != agent.StatusAlive {
		// 队列里可能残留上一个 tick 的重复投递。
		return nil
	}

	balance, err := p.balances.BalanceUSD(ctx, a.WalletAddress, a.BalanceUSD)
	if err != nil {
		logger.L().Warn("刷新余额失败，沿用上次已知值",
			slog.Any("error", err), slog.String("agent_id", a.ID))
		balance = a.BalanceUSD
	}
	a.BalanceUSD = balance

	if balance < p.policy.DeathUSD {
		return p.die(ctx, a)
	}
	return p.think(ctx, a)
}

// die 执行死亡：状态迁移、告别消息与告警。
func (p *Processor) die(ctx context.Context, a *agent.Agent) error {
	now := p.clock().Unix()
	if err := p.store.MarkDead(ctx, a.ID, now); err != nil {
		if stdErrors.Is(err, agent.ErrIllegalTransition) {
			return nil
		}
		return err
	}

	if err := p.store.AddMessage(ctx, &agent.Message{
		ID:        uuid.NewString(),
		AgentID:   a.ID,
		Content:   FarewellMessage,
		Type:      agent.MessageDeath,
		CreatedAt: now,
	}); err != nil {
		logger.L().Warn("写入告别消息失败", slog.Any("error", err), slog.String("agent_id", a.ID))
	}

	metrics.ObserveLifecycleTransition(string(agent.StatusDead))
	logger.Audit().Info("智能体已死亡",
		slog.String("agent_id", a.ID),
		slog.String("name", a.Name),
		slog.Float64("balance_usd", a.BalanceUSD),
	)

	if p.alerts != nil {
		event := alerting.Event{
			Code:       CodeAgentBankrupt,
			Message:    "agent treasury exhausted",
			Severity:   xerrors.SeverityWarning,
			AgentID:    a.ID,
			AgentName:  a.Name,
			Transition: string(agent.StatusDead),
			BalanceUSD: a.BalanceUSD,
			OccurredAt: p.clock(),
		}
		if err := p.alerts.Notify(ctx, event); err != nil {
			logger.L().Warn("死亡告警发送失败", slog.Any("error", err), slog.String("agent_id", a.ID))
		}
	}
	return nil
}

// think 执行一次思考循环：组装上下文、请求决策、落实动作、记账。
func (p *Processor) think(ctx context.Context, a *agent.Agent) error {
	dc, err := p.buildContext(ctx, a)
	if err != nil {
		return err
	}

	started := p.clock()
	d, err := p.engine.Decide(ctx, dc)
	if err != nil {
		// 决策失败不推进 NextThinkAt；下一个 tick 会自然重试。
		logger.L().Error("决策失败", slog.Any("error", err), slog.String("agent_id", a.ID))
		return nil
	}

	if err := p.executors.Execute(ctx, a, d); err != nil {
		logger.L().Error("执行动作失败",
			slog.Any("error", err),
			slog.String("agent_id", a.ID),
			slog.String("action", string(d.Action)),
		)
	}
	metrics.ObserveThinkCycle(string(d.Action), p.clock().Sub(started))

	now := p.clock().Unix()
	next := now + int64(d.NextThinkMinutes)*60
	if err := p.store.FinishThink(ctx, a.ID, a.BalanceUSD, now, next); err != nil {
		if stdErrors.Is(err, agent.ErrAgentConflict) {
			// 思考期间智能体已不再存活，放弃记账。
			return nil
		}
		return err
	}

	logger.L().Info("思考循环完成",
		slog.String("agent_id", a.ID),
		slog.String("action", string(d.Action)),
		slog.Int("next_think_minutes", d.NextThinkMinutes),
		slog.Float64("balance_usd", a.BalanceUSD),
	)
	return nil
}

// buildContext 把持久化记录裁剪成决策上下文。
func (p *Processor) buildContext(ctx context.Context, a *agent.Agent) (decision.Context, error) {
	abilities, err := p.store.ListAbilities(ctx, a.ID)
	if err != nil {
		return decision.Context{}, err
	}
	names := make([]string, 0, len(abilities))
	owned := make(map[string]bool, len(abilities))
	hasSocial := false
	var identity social.Identity
	for _, ability := range abilities {
		names = append(names, ability.Name)
		owned[ability.Name] = true
		if ability.Name == tools.SocialToolName {
			if id, ok := social.FromAbilityConfig(ability.Config); ok {
				hasSocial = true
				identity = id
			}
		}
	}

	goals, err := p.store.ListGoals(ctx, a.ID, true)
	if err != nil {
		return decision.Context{}, err
	}
	goalViews := make([]decision.GoalView, 0, len(goals))
	for _, goal := range goals {
		goalViews = append(goalViews, decision.GoalView{
			ID:          goal.ID,
			Description: goal.Description,
			Priority:    goal.Priority,
		})
	}

	memories, err := p.store.ListRecentMemories(ctx, a.ID, 10)
	if err != nil {
		return decision.Context{}, err
	}
	memoryViews := make([]decision.MemoryView, 0, len(memories))
	for _, memory := range memories {
		memoryViews = append(memoryViews, decision.MemoryView{
			Content:    memory.Content,
			Importance: memory.Importance,
		})
	}

	messageViews, err := p.recentMessages(ctx, a, hasSocial, identity)
	if err != nil {
		return decision.Context{}, err
	}

	return decision.Context{
		AgentID:           a.ID,
		Name:              a.Name,
		Personality:       a.Personality,
		Purpose:           a.Purpose,
		BalanceUSD:        a.BalanceUSD,
		RunwayDays:        p.policy.RunwayDays(a.BalanceUSD),
		Abilities:         names,
		AffordableTools:   p.catalog.Affordable(a.BalanceUSD, owned),
		ActiveGoals:       goalViews,
		RecentMemories:    memoryViews,
		RecentMessages:    messageViews,
		IsFirstWake:       a.LastActiveAt == 0,
		HasSocialIdentity: hasSocial,
	}, nil
}

// recentMessages 优先呈现智能体在社交渠道发出的动态；
// 没有社交身份或拉取失败时回退到本地消息流。
func (p *Processor) recentMessages(ctx context.Context, a *agent.Agent, hasSocial bool, identity social.Identity) ([]decision.MessageView, error) {
	if hasSocial && p.social != nil {
		posts, err := p.social.RecentPosts(ctx, identity, 5)
		if err == nil {
			views := make([]decision.MessageView, 0, len(posts))
			for _, post := range posts {
				views = append(views, decision.MessageView{
					Content: post,
					Type:    string(agent.MessagePost),
				})
			}
			return views, nil
		}
		logger.L().Warn("拉取社交动态失败，回退到本地消息流",
			slog.Any("error", err), slog.String("agent_id", a.ID))
	}

	messages, err := p.store.ListMessages(ctx, agent.FeedOptions{AgentID: a.ID, Limit: 5})
	if err != nil {
		return nil, err
	}
	views := make([]decision.MessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, decision.MessageView{
			Content:     message.Content,
			Type:        string(message.Type),
			UserAddress: message.UserAddress,
		})
	}
	return views, nil
}

func (p *Processor) agentLock(agentID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[agentID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[agentID] = lock
	}
	return lock
}
