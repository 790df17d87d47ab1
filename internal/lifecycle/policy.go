package lifecycle

import "time"

// 生命周期经济学的默认参数。
const (
	// DefaultActivationUSD 是胚胎激活所需的最低注资。
	DefaultActivationUSD = 10.0
	// DefaultDeathUSD 是死亡判定阈值，低于它即视为破产。
	DefaultDeathUSD = 0.01
	// DefaultTickInterval 是调度器扫描到期智能体的周期。
	DefaultTickInterval = 5 * time.Minute
	// DefaultDailyBurnUSD 用于估算智能体还能存活的天数。
	DefaultDailyBurnUSD = 1.0
)

// Policy 汇总生命周期的经济参数。
type Policy struct {
	ActivationUSD float64
	DeathUSD      float64
	TickInterval  time.Duration
	DailyBurnUSD  float64
}

// DefaultPolicy 返回默认参数。
func DefaultPolicy() Policy {
	return Policy{
		ActivationUSD: DefaultActivationUSD,
		DeathUSD:      DefaultDeathUSD,
		TickInterval:  DefaultTickInterval,
		DailyBurnUSD:  DefaultDailyBurnUSD,
	}
}

// normalize 把非法的参数替换为默认值。
func (p Policy) normalize() Policy {
	if p.ActivationUSD <= 0 {
		p.ActivationUSD = DefaultActivationUSD
	}
	if p.DeathUSD <= 0 {
		p.DeathUSD = DefaultDeathUSD
	}
	if p.TickInterval <= 0 {
		p.TickInterval = DefaultTickInterval
	}
	if p.DailyBurnUSD <= 0 {
		p.DailyBurnUSD = DefaultDailyBurnUSD
	}
	return p
}

// RunwayDays 估算给定余额还能支撑的天数。
func (p Policy) RunwayDays(balanceUSD float64) float64 {
	if balanceUSD <= 0 {
		return 0
	}
	return balanceUSD / p.DailyBurnUSD
}
