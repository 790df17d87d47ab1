package agent

import (
	xerrors "ALiFe-Chain/internal/errors"
)

// Status 表示智能体在生命周期中的状态。
type Status string

const (
	// StatusEmbryo 表示尚未激活的休眠状态，等待钱包注资。
	StatusEmbryo Status = "embryo"
	// StatusAlive 表示已激活、会周期性思考并执行动作的状态。
	StatusAlive Status = "alive"
	// StatusDead 表示余额耗尽后的终态，不再参与任何调度。
	StatusDead Status = "dead"
)

// IsValidStatus 检查给定的状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusEmbryo, StatusAlive, StatusDead:
		return true
	default:
		return false
	}
}

// CanTransition 判断状态迁移是否合法。生命周期只允许
// embryo -> alive -> dead 单向推进，dead 是终态。
func CanTransition(from, to Status) bool {
	switch from {
	case StatusEmbryo:
		return to == StatusAlive
	case StatusAlive:
		return to == StatusDead
	default:
		return false
	}
}

// Agent 描述一个拥有钱包与代币的自治智能体。
// 状态与时间戳字段（Status、BornAt、DiedAt、NextThinkAt）仅由调度器写入；
// BalanceUSD 允许读路径在刷新余额时更新。
type Agent struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	Personality      string  `json:"personality,omitempty"`
	Purpose          string  `json:"purpose,omitempty"`
	DeployerAddress  string  `json:"deployer_address"`
	WalletAddress    string  `json:"wallet_address"`
	SealedCredential string  `json:"sealed_credential,omitempty"`
	TokenAddress     string  `json:"token_address,omitempty"`
	Status           Status  `json:"status"`
	BalanceUSD       float64 `json:"balance_usd"`
	LastActiveAt     int64   `json:"last_active_at,omitempty"`
	NextThinkAt      int64   `json:"next_think_at,omitempty"`
	CreatedAt        int64   `json:"created_at"`
	BornAt           int64   `json:"born_at,omitempty"`
	DiedAt           int64   `json:"died_at,omitempty"`
}

// Public 是对外暴露的智能体投影，绝不携带密封的签名凭据。
type Public struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	Personality     string  `json:"personality,omitempty"`
	Purpose         string  `json:"purpose,omitempty"`
	DeployerAddress string  `json:"deployer_address"`
	WalletAddress   string  `json:"wallet_address"`
	TokenAddress    string  `json:"token_address,omitempty"`
	Status          Status  `json:"status"`
	BalanceUSD      float64 `json:"balance_usd"`
	LastActiveAt    int64   `json:"last_active_at,omitempty"`
	NextThinkAt     int64   `json:"next_think_at,omitempty"`
	CreatedAt       int64   `json:"created_at"`
	BornAt          int64   `json:"born_at,omitempty"`
	DiedAt          int64   `json:"died_at,omitempty"`
}

// ToPublic 将完整记录转换为公开投影。
func (a *Agent) ToPublic() Public {
	return Public{
		ID:              a.ID,
		Name:            a.Name,
		Symbol:          a.Symbol,
		Personality:     a.Personality,
		Purpose:         a.Purpose,
		DeployerAddress: a.DeployerAddress,
		WalletAddress:   a.WalletAddress,
		TokenAddress:    a.TokenAddress,
		Status:          a.Status,
		BalanceUSD:      a.BalanceUSD,
		LastActiveAt:    a.LastActiveAt,
		NextThinkAt:     a.NextThinkAt,
		CreatedAt:       a.CreatedAt,
		BornAt:          a.BornAt,
		DiedAt:          a.DiedAt,
	}
}

// Clone 返回记录的深拷贝，存储层用它避免调用方篡改内部状态。
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

var (
	// ErrAgentNotFound 表示指定的智能体不存在。
	ErrAgentNotFound = xerrors.New(CodeAgentNotFound, "agent not found")
	// ErrAgentConflict 表示智能体 ID 或状态冲突。
	ErrAgentConflict = xerrors.New(CodeAgentConflict, "agent conflict", xerrors.WithSeverity(xerrors.SeverityWarning))
	// ErrIllegalTransition 表示违反 embryo -> alive -> dead 的状态机。
	ErrIllegalTransition = xerrors.New(CodeIllegalTransition, "illegal status transition", xerrors.WithSeverity(xerrors.SeverityCritical))
	// ErrAbilityExists 表示智能体已拥有同名能力。
	ErrAbilityExists = xerrors.New(CodeAbilityExists, "ability already owned")
	// ErrGoalNotFound 表示目标不存在或不属于该智能体。
	ErrGoalNotFound = xerrors.New(CodeGoalNotFound, "goal not found")
)

const (
	CodeAgentNotFound     xerrors.Code = "AGENT_NOT_FOUND"
	CodeAgentConflict     xerrors.Code = "AGENT_CONFLICT"
	CodeIllegalTransition xerrors.Code = "AGENT_ILLEGAL_TRANSITION"
	CodeAbilityExists     xerrors.Code = "ABILITY_EXISTS"
	CodeGoalNotFound      xerrors.Code = "GOAL_NOT_FOUND"
	CodeAgentValidation   xerrors.Code = "AGENT_VALIDATION_FAILED"
)

func init() {
	xerrors.Register(CodeAgentNotFound, xerrors.Attributes{
		Message:   "agent not found",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeAgentConflict, xerrors.Attributes{
		Message:   "agent conflict",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeIllegalTransition, xerrors.Attributes{
		Message:   "illegal status transition",
		Severity:  xerrors.SeverityCritical,
		Retryable: false,
		Alert:     true,
	})
	xerrors.Register(CodeAbilityExists, xerrors.Attributes{
		Message:   "ability already owned",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeGoalNotFound, xerrors.Attributes{
		Message:   "goal not found",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeAgentValidation, xerrors.Attributes{
		Message:   "agent validation failed",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
}
