package agent

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "ALiFe-Chain/internal/errors"
	"ALiFe-Chain/pkg/logger"
)

// symbolPattern 约束代币符号：2 到 10 个英文字母。
var symbolPattern = regexp.MustCompile(`^[A-Za-z]{2,10}$`)

// maxMessageLength 是单条消息允许的最大长度。
const maxMessageLength = 1000

// WalletProvider 为新智能体生成钱包与密封后的签名凭据。
type WalletProvider interface {
	Generate(ctx context.Context) (address string, sealedCredential string, err error)
}

// TokenLauncher 为新智能体部署代币，返回代币合约地址。
type TokenLauncher interface {
	Launch(ctx context.Context, name, symbol, walletAddress string) (string, error)
}

// BalanceReader 读取钱包的美元估值。
type BalanceReader interface {
	BalanceUSD(ctx context.Context, walletAddress string, lastKnown float64) (float64, error)
}

// CreateRequest 是创建智能体的入参。
type CreateRequest struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Personality     string `json:"personality"`
	Purpose         string `json:"purpose"`
	DeployerAddress string `json:"deployer_address"`
}

// Service 承载面向 API 的智能体操作：创建、查询与主页消息。
type Service struct {
	store    Store
	wallets  WalletProvider
	tokens   TokenLauncher
	balances BalanceReader
}

// NewService 构造智能体服务。tokens 与 balances 允许为空。
func NewService(store Store, wallets WalletProvider, tokens TokenLauncher, balances BalanceReader) *Service {
	return &Service{store: store, wallets: wallets, tokens: tokens, balances: balances}
}

// Create 创建一个处于胚胎状态的智能体。
// 钱包生成失败会使创建失败；代币部署失败只记录日志，不阻塞创建。
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Public, error) {
	if s.store == nil || s.wallets == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "智能体服务未初始化")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, xerrors.New(CodeAgentValidation, "智能体名称不能为空")
	}
	if len(name) > 255 {
		return nil, xerrors.New(CodeAgentValidation, "智能体名称过长")
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if !symbolPattern.MatchString(symbol) {
		return nil, xerrors.New(CodeAgentValidation, "代币符号必须是 2 到 10 个英文字母")
	}

	address, sealed, err := s.wallets.Generate(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCollaboratorFailure, err, "生成智能体钱包失败")
	}

	a := &Agent{
		ID:               uuid.NewString(),
		Name:             name,
		Symbol:           symbol,
		Personality:      strings.TrimSpace(req.Personality),
		Purpose:          strings.TrimSpace(req.Purpose),
		DeployerAddress:  strings.TrimSpace(req.DeployerAddress),
		WalletAddress:    address,
		SealedCredential: sealed,
		Status:           StatusEmbryo,
		CreatedAt:        time.Now().Unix(),
	}

	if s.tokens != nil {
		tokenAddress, launchErr := s.tokens.Launch(ctx, name, symbol, address)
		if launchErr != nil {
			logger.L().Warn("代币部署失败，智能体将以无代币状态出生",
				slog.Any("error", launchErr),
				slog.String("agent_name", name),
				slog.String("symbol", symbol),
			)
		} else {
			a.TokenAddress = tokenAddress
		}
	}

	if err := s.store.CreateAgent(ctx, a); err != nil {
		return nil, err
	}

	logger.Audit().Info("智能体已创建",
		slog.String("agent_id", a.ID),
		slog.String("name", a.Name),
		slog.String("symbol", a.Symbol),
		slog.String("wallet_address", a.WalletAddress),
		slog.String("token_address", a.TokenAddress),
	)

	public := a.ToPublic()
	return &public, nil
}

// Get 返回指定智能体的公开投影，尽力刷新链上余额。
func (s *Service) Get(ctx context.Context, id string) (*Public, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "智能体存储未初始化")
	}
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refreshBalance(ctx, a)
	public := a.ToPublic()
	return &public, nil
}

// List 返回符合过滤条件的智能体公开投影。
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Public, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "智能体存储未初始化")
	}
	agents, err := s.store.ListAgents(ctx, opts)
	if err != nil {
		return nil, err
	}
	results := make([]*Public, 0, len(agents))
	for _, a := range agents {
		public := a.ToPublic()
		results = append(results, &public)
	}
	return results, nil
}

// refreshBalance 对存活智能体读取最新估值并写回，失败时保留已知余额。
func (s *Service) refreshBalance(ctx context.Context, a *Agent) {
	if s.balances == nil || a.Status != StatusAlive || a.WalletAddress == "" {
		return
	}
	balance, err := s.balances.BalanceUSD(ctx, a.WalletAddress, a.BalanceUSD)
	if err != nil {
		logger.L().Warn("刷新智能体余额失败", slog.Any("error", err), slog.String("agent_id", a.ID))
		return
	}
	if balance == a.BalanceUSD {
		return
	}
	a.BalanceUSD = balance
	if err := s.store.UpdateBalance(ctx, a.ID, balance); err != nil {
		logger.L().Warn("写回智能体余额失败", slog.Any("error", err), slog.String("agent_id", a.ID))
	}
}

// PostUserMessage 把人类消息写入智能体主页，供下一次思考时读取。
func (s *Service) PostUserMessage(ctx context.Context, agentID, userAddress, content string) (*Message, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "智能体存储未初始化")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, xerrors.New(CodeAgentValidation, "消息内容不能为空")
	}
	if len(content) > maxMessageLength {
		return nil, xerrors.New(CodeAgentValidation, "消息内容超出长度限制")
	}
	if _, err := s.store.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}

	message := &Message{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		UserAddress: strings.TrimSpace(userAddress),
		Content:     content,
		Type:        MessageUser,
		CreatedAt:   time.Now().Unix(),
	}
	if err := s.store.AddMessage(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// Feed 返回消息流，可按智能体过滤并用 before 游标翻页。
func (s *Service) Feed(ctx context.Context, opts FeedOptions) ([]*Message, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "智能体存储未初始化")
	}
	if opts.AgentID != "" {
		if _, err := s.store.GetAgent(ctx, opts.AgentID); err != nil {
			return nil, err
		}
	}
	return s.store.ListMessages(ctx, opts)
}

// Goals 返回指定智能体的目标列表。
func (s *Service) Goals(ctx context.Context, agentID string, onlyActive bool) ([]*Goal, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "智能体存储未初始化")
	}
	if _, err := s.store.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	return s.store.ListGoals(ctx, agentID, onlyActive)
}

// Abilities 返回指定智能体已获得的能力。
func (s *Service) Abilities(ctx context.Context, agentID string) ([]*Ability, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "智能体存储未初始化")
	}
	if _, err := s.store.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	return s.store.ListAbilities(ctx, agentID)
}

// OpenBounties 返回全部开放中的悬赏。
func (s *Service) OpenBounties(ctx context.Context) ([]*Bounty, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "智能体存储未初始化")
	}
	return s.store.ListOpenBounties(ctx)
}

// Close 释放底层存储。
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// IsNotFound 判断错误是否表示智能体或其记录不存在。
func IsNotFound(err error) bool {
	return stdErrors.Is(err, ErrAgentNotFound) || stdErrors.Is(err, ErrGoalNotFound)
}
