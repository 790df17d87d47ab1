// Package token 对接代币发射台。部署是异步的：先提交部署请求，
// 再以有界的指数退避轮询确认结果。
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultMaxBackoff   = 30 * time.Second
	defaultMaxAttempts  = 8
)

// DeployState 是发射台报告的部署状态。
type DeployState string

const (
	StateConfirmed DeployState = "confirmed"
	StatePending   DeployState = "pending"
	StateFailed    DeployState = "failed"
)

// ErrDeployTimeout 表示在允许的轮询次数内部署仍未确认。
var ErrDeployTimeout = errors.New("代币部署确认超时")

// Config 描述调用发射台 API 所需的信息。
type Config struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	MaxAttempts  int
}

// Launcher 通过发射台 HTTP API 部署智能体代币。
type Launcher struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewLauncher 根据配置创建发射台客户端。
func NewLauncher(cfg Config) (*Launcher, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供发射台 API Key")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("未配置发射台地址")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Launcher{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		sleep:        sleepContext,
	}, nil
}

// Launch 提交部署请求并轮询到终态，返回代币合约地址。
func (l *Launcher) Launch(ctx context.Context, name, symbol, walletAddress string) (string, error) {
	payload := map[string]any{
		"name":           name,
		"symbol":         symbol,
		"owner_address":  walletAddress,
		"initial_supply": "1000000000",
	}
	var submitted struct {
		DeploymentID string `json:"deployment_id"`
		TokenAddress string `json:"token_address"`
		State        string `json:"state"`
	}
	if err := l.do(ctx, http.MethodPost, "/v1/deploy", payload, &submitted); err != nil {
		return "", err
	}
	// 同步确认的部署直接返回。
	if DeployState(submitted.State) == StateConfirmed && submitted.TokenAddress != "" {
		return submitted.TokenAddress, nil
	}
	if submitted.DeploymentID == "" {
		return "", errors.New("发射台未返回部署 ID")
	}

	backoff := l.pollInterval
	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		if err := l.sleep(ctx, backoff); err != nil {
			return "", err
		}
		if backoff < defaultMaxBackoff {
			backoff *= 2
		}

		var status struct {
			State        string `json:"state"`
			TokenAddress string `json:"token_address"`
			Error        string `json:"error"`
		}
		if err := l.do(ctx, http.MethodGet, "/v1/deploy/"+submitted.DeploymentID, nil, &status); err != nil {
			// 单次查询失败继续退避重试。
			continue
		}
		switch DeployState(status.State) {
		case StateConfirmed:
			if status.TokenAddress == "" {
				return "", errors.New("发射台确认部署但未返回代币地址")
			}
			return status.TokenAddress, nil
		case StateFailed:
			return "", fmt.Errorf("代币部署失败: %s", status.Error)
		}
	}
	return "", ErrDeployTimeout
}

func (l *Launcher) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化发射台请求失败: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("构建发射台请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求发射台失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("发射台返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
