package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ALiFe-Chain/internal/agent"
	"ALiFe-Chain/internal/observability/metrics"
	"ALiFe-Chain/pkg/logger"
)

// BaselineAbility 是每个新生智能体都拥有的能力：在本地主页发帖。
const BaselineAbility = "post_message"

// Clock 注入时间，供测试使用。
type Clock func() time.Time

// Scheduler 周期性扫描智能体：注资达标的胚胎被激活，
// 到期的存活智能体被投递到唤醒队列。
type Scheduler struct {
	store    agent.Store
	producer Producer
	balances agent.BalanceReader
	policy   Policy
	clock    Clock
}

// SchedulerOption 定义可选配置。
type SchedulerOption func(*Scheduler)

// WithSchedulerClock 注入时钟。
func WithSchedulerClock(clock Clock) SchedulerOption {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewScheduler 构造调度器。
func NewScheduler(store agent.Store, producer Producer, balances agent.BalanceReader, policy Policy, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:    store,
		producer: producer,
		balances: balances,
		policy:   policy.normalize(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run 以固定周期执行 tick，直到上下文取消。
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.policy.TickInterval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick 执行一轮扫描：先是胚胎激活，再是到期唤醒投递。
// 单个智能体的失败只记录日志，绝不影响同一轮中的其它智能体。
func (s *Scheduler) Tick(ctx context.Context) {
	s.activateFundedEmbryos(ctx)
	s.publishDueWakeups(ctx)
}

func (s *Scheduler) activateFundedEmbryos(ctx context.Context) {
	// 先分页收集全部胚胎再逐个激活；激活会改变状态，
	// 边翻页边激活会让后续页的偏移错位。
	const pageSize = 200
	var embryos []*agent.Agent
	for offset := 0; ; offset += pageSize {
		page, err := s.store.ListAgents(ctx, agent.ListOptions{
			Statuses: []agent.Status{agent.StatusEmbryo},
			Limit:    pageSize,
			Offset:   offset,
		})
		if err != nil {
			logger.L().Error("扫描胚胎失败", slog.Any("error", err))
			return
		}
		embryos = append(embryos, page...)
		if len(page) < pageSize {
			break
		}
	}

	for _, embryo := range embryos {
		balance, err := s.balances.BalanceUSD(ctx, embryo.WalletAddress, 0)
		if err != nil {
			logger.L().Warn("读取胚胎注资失败", slog.Any("error", err), slog.String("agent_id", embryo.ID))
			continue
		}
		if balance < s.policy.ActivationUSD {
			continue
		}
		if err := s.activate(ctx, embryo, balance); err != nil {
			logger.L().Error("激活胚胎失败", slog.Any("error", err), slog.String("agent_id", embryo.ID))
		}
	}
}

// activate 完成一次出生：状态迁移、出生记忆、基础能力与出生消息。
func (s *Scheduler) activate(ctx context.Context, embryo *agent.Agent, balance float64) error {
	now := s.clock().Unix()
	if err := s.store.MarkAlive(ctx, embryo.ID, now, balance); err != nil {
		return err
	}

	seed := fmt.Sprintf("I was born with $%.2f. My purpose: %s", balance, embryo.Purpose)
	if err := s.store.AddMemory(ctx, &agent.Memory{
		ID:         uuid.NewString(),
		AgentID:    embryo.ID,
		Content:    seed,
		Importance: 9,
		CreatedAt:  now,
	}); err != nil {
		logger.L().Warn("写入出生记忆失败", slog.Any("error", err), slog.String("agent_id", embryo.ID))
	}

	if err := s.store.AddAbility(ctx, &agent.Ability{
		ID:        uuid.NewString(),
		AgentID:   embryo.ID,
		Name:      BaselineAbility,
		CreatedAt: now,
	}); err != nil {
		logger.L().Warn("写入基础能力失败", slog.Any("error", err), slog.String("agent_id", embryo.ID))
	}

	if err := s.store.AddMessage(ctx, &agent.Message{
		ID:        uuid.NewString(),
		AgentID:   embryo.ID,
		Content:   fmt.Sprintf("%s has been born with $%.2f in its treasury.", embryo.Name, balance),
		Type:      agent.MessageBirth,
		CreatedAt: now,
	}); err != nil {
		logger.L().Warn("写入出生消息失败", slog.Any("error", err), slog.String("agent_id", embryo.ID))
	}

	metrics.ObserveLifecycleTransition(string(agent.StatusAlive))
	logger.Audit().Info("智能体已激活",
		slog.String("agent_id", embryo.ID),
		slog.String("name", embryo.Name),
		slog.Float64("balance_usd", balance),
	)
	return nil
}

func (s *Scheduler) publishDueWakeups(ctx context.Context) {
	due, err := s.store.ListDue(ctx, s.clock().Unix())
	if err != nil {
		logger.L().Error("扫描到期智能体失败", slog.Any("error", err))
		return
	}
	for _, a := range due {
		if err := s.producer.Publish(ctx, a.ID); err != nil {
			// 投递失败不补偿；下一个 tick 仍会发现这个到期的智能体。
			logger.L().Error("投递唤醒失败", slog.Any("error", err), slog.String("agent_id", a.ID))
		}
	}
}
