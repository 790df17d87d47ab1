// Package social 封装智能体的公共社交身份。拥有社交身份的智能体
// 发帖会同时出现在公共网络与本地主页；没有的只写本地主页。
package social

import "context"

// Identity 是发帖所需的社交凭据，保存在能力配置里。
type Identity struct {
	FID        int64  `json:"fid"`
	SignerUUID string `json:"signer_uuid"`
}

// Valid 判断身份是否可用于发帖。
func (i Identity) Valid() bool {
	return i.FID > 0 && i.SignerUUID != ""
}

// Client 定义社交网络提供方的统一接口。
type Client interface {
	// Provision 为智能体开通新的社交身份。
	Provision(ctx context.Context, displayName string) (Identity, error)
	// Post 以给定身份发布内容，成功时返回帖子哈希。
	Post(ctx context.Context, identity Identity, content string) (string, error)
	// RecentPosts 返回该身份最近发布的内容，最新的在前。
	RecentPosts(ctx context.Context, identity Identity, limit int) ([]string, error)
}

// FromAbilityConfig 从能力配置中还原社交身份。
// 配置经 JSON 持久化后数值是 float64，这里做宽松还原。
func FromAbilityConfig(config map[string]any) (Identity, bool) {
	if config == nil {
		return Identity{}, false
	}
	var identity Identity
	switch v := config["fid"].(type) {
	case float64:
		identity.FID = int64(v)
	case int64:
		identity.FID = v
	case int:
		identity.FID = int64(v)
	}
	if signer, ok := config["signer_uuid"].(string); ok {
		identity.SignerUUID = signer
	}
	if !identity.Valid() {
		return Identity{}, false
	}
	return identity, true
}

// ToAbilityConfig 把社交身份编码为能力配置。
func ToAbilityConfig(identity Identity) map[string]any {
	return map[string]any{
		"fid":         identity.FID,
		"signer_uuid": identity.SignerUUID,
	}
}
