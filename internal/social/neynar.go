package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNeynarBaseURL = "https://api.neynar.com/v2/farcaster"
	defaultNeynarTimeout = 30 * time.Second
)

// NeynarConfig 描述调用 Neynar API 所需的信息。
type NeynarConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NeynarClient 通过 Neynar 托管的 Farcaster API 实现社交能力。
type NeynarClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewNeynarClient 根据配置创建 Neynar 客户端。
func NewNeynarClient(cfg NeynarConfig) (*NeynarClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 Neynar API Key")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultNeynarBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultNeynarTimeout
	}
	return &NeynarClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Provision 创建一个新的签名者身份。
func (c *NeynarClient) Provision(ctx context.Context, displayName string) (Identity, error) {
	payload := map[string]any{"display_name": displayName}
	var decoded struct {
		FID        int64  `json:"fid"`
		SignerUUID string `json:"signer_uuid"`
	}
	if err := c.do(ctx, http.MethodPost, "/signer", payload, &decoded); err != nil {
		return Identity{}, err
	}
	identity := Identity{FID: decoded.FID, SignerUUID: decoded.SignerUUID}
	if !identity.Valid() {
		return Identity{}, errors.New("Neynar 返回的身份不完整")
	}
	return identity, nil
}

// Post 以给定身份发布一条 cast。
func (c *NeynarClient) Post(ctx context.Context, identity Identity, content string) (string, error) {
	if !identity.Valid() {
		return "", errors.New("社交身份不可用")
	}
	payload := map[string]any{
		"signer_uuid": identity.SignerUUID,
		"text":        content,
	}
	var decoded struct {
		Cast struct {
			Hash string `json:"hash"`
		} `json:"cast"`
	}
	if err := c.do(ctx, http.MethodPost, "/cast", payload, &decoded); err != nil {
		return "", err
	}
	return decoded.Cast.Hash, nil
}

// RecentPosts 返回该身份最近发布的 cast 文本。
func (c *NeynarClient) RecentPosts(ctx context.Context, identity Identity, limit int) ([]string, error) {
	if !identity.Valid() {
		return nil, errors.New("社交身份不可用")
	}
	if limit <= 0 {
		limit = 5
	}
	path := "/feed/user/casts?fid=" + strconv.FormatInt(identity.FID, 10) + "&limit=" + strconv.Itoa(limit)
	var decoded struct {
		Casts []struct {
			Text string `json:"text"`
		} `json:"casts"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &decoded); err != nil {
		return nil, err
	}
	posts := make([]string, 0, len(decoded.Casts))
	for _, cast := range decoded.Casts {
		posts = append(posts, cast.Text)
	}
	return posts, nil
}

func (c *NeynarClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化 Neynar 请求失败: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("构建 Neynar 请求失败: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 Neynar 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("Neynar 返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Client = (*NeynarClient)(nil)
