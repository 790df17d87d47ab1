package oracle

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"ALiFe-Chain/internal/web3"
	"ALiFe-Chain/pkg/logger"
)

// fallbackPriceUSD 是所有价格源都失效时使用的保底价格。
const fallbackPriceUSD = 2500.0

// defaultCacheTTL 控制价格缓存的有效期。
const defaultCacheTTL = time.Minute

var weiPerEth = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Service 按顺序尝试多个价格源，并缓存最近一次成功的报价。
type Service struct {
	sources []PriceSource
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	price     float64
	fetchedAt time.Time
}

// Option 调整价格服务的行为。
type Option func(*Service)

// WithSources 覆盖默认的价格源链。
func WithSources(sources ...PriceSource) Option {
	return func(s *Service) { s.sources = sources }
}

// WithCacheTTL 覆盖缓存有效期。
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock 注入时钟，供测试使用。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService 构造价格服务，默认源为 CoinGecko、CryptoCompare、Coinbase。
func NewService(httpClient *http.Client, opts ...Option) *Service {
	s := &Service{
		sources: []PriceSource{
			&CoinGecko{HTTPClient: httpClient},
			&CryptoCompare{HTTPClient: httpClient},
			&Coinbase{HTTPClient: httpClient},
		},
		ttl: defaultCacheTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EthPriceUSD 返回当前 ETH 价格，永远不返回错误。
// 缓存命中直接返回；全部源失败时退回最近一次成功的报价，
// 没有任何历史报价时使用保底价格。
func (s *Service) EthPriceUSD(ctx context.Context) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.price > 0 && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.price
	}

	for _, source := range s.sources {
		price, err := source.Price(ctx)
		if err != nil {
			logger.L().Warn("价格源查询失败",
				slog.String("source", source.Name()),
				slog.Any("error", err),
			)
			continue
		}
		s.price = price
		s.fetchedAt = s.now()
		return price
	}

	if s.price > 0 {
		logger.L().Warn("所有价格源失效，使用过期报价", slog.Float64("price", s.price))
		return s.price
	}
	logger.L().Warn("所有价格源失效且无历史报价，使用保底价格", slog.Float64("price", fallbackPriceUSD))
	return fallbackPriceUSD
}

// Valuer 将链上 wei 余额换算为美元估值。
type Valuer struct {
	chain  web3.Client
	prices *Service
}

// NewValuer 构造估值器。
func NewValuer(chain web3.Client, prices *Service) *Valuer {
	return &Valuer{chain: chain, prices: prices}
}

// BalanceUSD 返回钱包的美元估值。链查询失败时退回已知余额而不是报错，
// 网络抖动不应该被误判为破产。
func (v *Valuer) BalanceUSD(ctx context.Context, walletAddress string, lastKnown float64) (float64, error) {
	wei, err := v.chain.BalanceAt(ctx, walletAddress)
	if err != nil {
		logger.L().Warn("查询链上余额失败，保留已知余额",
			slog.String("wallet", walletAddress),
			slog.Any("error", err),
		)
		return lastKnown, nil
	}
	return WeiToUSD(wei, v.prices.EthPriceUSD(ctx)), nil
}

// WeiToUSD 按给定价格把 wei 换算成美元。
func WeiToUSD(wei *big.Int, priceUSD float64) float64 {
	if wei == nil || wei.Sign() <= 0 {
		return 0
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEth)
	usd, _ := new(big.Float).Mul(eth, big.NewFloat(priceUSD)).Float64()
	return usd
}

// USDToWei 按给定价格把美元换算成 wei，供转账执行器使用。
func USDToWei(amountUSD, priceUSD float64) *big.Int {
	if amountUSD <= 0 || priceUSD <= 0 {
		return big.NewInt(0)
	}
	eth := new(big.Float).Quo(big.NewFloat(amountUSD), big.NewFloat(priceUSD))
	wei, _ := new(big.Float).Mul(eth, weiPerEth).Int(nil)
	return wei
}
