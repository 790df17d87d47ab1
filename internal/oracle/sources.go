package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// PriceSource returns the current ETH price in USD.
type PriceSource interface {
	Name() string
	Price(ctx context.Context) (float64, error)
}

const (
	coingeckoURL     = "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd"
	cryptocompareURL = "https://min-api.cryptocompare.com/data/price?fsym=ETH&tsyms=USD"
	coinbaseURL      = "https://api.coinbase.com/v2/prices/ETH-USD/spot"
)

// CoinGecko queries the CoinGecko simple-price endpoint.
type CoinGecko struct {
	HTTPClient *http.Client
	URL        string
}

func (c *CoinGecko) Name() string { return "coingecko" }

func (c *CoinGecko) Price(ctx context.Context) (float64, error) {
	var payload struct {
		Ethereum struct {
			USD float64 `json:"usd"`
		} `json:"ethereum"`
	}
	if err := fetchJSON(ctx, c.HTTPClient, pick(c.URL, coingeckoURL), &payload); err != nil {
		return 0, err
	}
	if payload.Ethereum.USD <= 0 {
		return 0, fmt.Errorf("coingecko 返回了非法价格 %f", payload.Ethereum.USD)
	}
	return payload.Ethereum.USD, nil
}

// CryptoCompare queries the CryptoCompare price endpoint.
type CryptoCompare struct {
	HTTPClient *http.Client
	URL        string
}

func (c *CryptoCompare) Name() string { return "cryptocompare" }

func (c *CryptoCompare) Price(ctx context.Context) (float64, error) {
	var payload struct {
		USD float64 `json:"USD"`
	}
	if err := fetchJSON(ctx, c.HTTPClient, pick(c.URL, cryptocompareURL), &payload); err != nil {
		return 0, err
	}
	if payload.USD <= 0 {
		return 0, fmt.Errorf("cryptocompare 返回了非法价格 %f", payload.USD)
	}
	return payload.USD, nil
}

// Coinbase queries the Coinbase spot-price endpoint.
type Coinbase struct {
	HTTPClient *http.Client
	URL        string
}

func (c *Coinbase) Name() string { return "coinbase" }

func (c *Coinbase) Price(ctx context.Context) (float64, error) {
	var payload struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := fetchJSON(ctx, c.HTTPClient, pick(c.URL, coinbaseURL), &payload); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(payload.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("coinbase 返回了非法价格 %q: %w", payload.Data.Amount, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("coinbase 返回了非法价格 %f", price)
	}
	return price, nil
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("价格源返回状态码 %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
