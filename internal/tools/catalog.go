// Package tools maintains the catalog of purchasable capabilities.
// Agents spend treasury funds to acquire tools; automated tools become
// abilities immediately, manual ones turn into bounties for human operators.
package tools

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SocialToolName 是开通社交身份的内置工具名。
const SocialToolName = "social_identity"

// Tool 描述目录中的一项可购买能力。
type Tool struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	CostUSD     float64 `yaml:"cost_usd" json:"cost_usd"`
	Category    string  `yaml:"category" json:"category"`
	Automated   bool    `yaml:"automated" json:"automated"`
	Enabled     bool    `yaml:"enabled" json:"enabled"`
}

type catalogFile struct {
	Tools []Tool `yaml:"tools"`
}

// Catalog 是按名称索引的工具目录，加载后只读。
type Catalog struct {
	tools map[string]Tool
}

// DefaultCatalog 返回内置目录，配置文件缺失时使用。
func DefaultCatalog() *Catalog {
	return newCatalog([]Tool{
		{
			Name:        SocialToolName,
			Description: "在公共社交网络上开通可发帖的身份",
			CostUSD:     2,
			Category:    "social",
			Automated:   true,
			Enabled:     true,
		},
		{
			Name:        "web_search",
			Description: "基础的网页检索能力",
			CostUSD:     1,
			Category:    "research",
			Automated:   true,
			Enabled:     true,
		},
		{
			Name:        "custom_artwork",
			Description: "请人类艺术家绘制头像",
			CostUSD:     5,
			Category:    "creative",
			Automated:   false,
			Enabled:     true,
		},
	})
}

// LoadCatalog 从 YAML 文件加载目录；path 为空时返回内置目录。
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取工具目录失败: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("解析工具目录失败: %w", err)
	}
	for i, tool := range file.Tools {
		if strings.TrimSpace(tool.Name) == "" {
			return nil, fmt.Errorf("工具目录第 %d 项缺少名称", i+1)
		}
		if tool.CostUSD < 0 {
			return nil, fmt.Errorf("工具 %s 的价格不能为负数", tool.Name)
		}
	}
	return newCatalog(file.Tools), nil
}

func newCatalog(entries []Tool) *Catalog {
	tools := make(map[string]Tool, len(entries))
	for _, tool := range entries {
		tools[tool.Name] = tool
	}
	return &Catalog{tools: tools}
}

// Get 按名称查找已启用的工具。
func (c *Catalog) Get(name string) (Tool, bool) {
	tool, ok := c.tools[name]
	if !ok || !tool.Enabled {
		return Tool{}, false
	}
	return tool, true
}

// Affordable 返回余额可负担的已启用工具，按价格升序。
func (c *Catalog) Affordable(balanceUSD float64, owned map[string]bool) []Tool {
	results := make([]Tool, 0, len(c.tools))
	for _, tool := range c.tools {
		if !tool.Enabled || tool.CostUSD > balanceUSD {
			continue
		}
		if owned[tool.Name] {
			continue
		}
		results = append(results, tool)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CostUSD == results[j].CostUSD {
			return results[i].Name < results[j].Name
		}
		return results[i].CostUSD < results[j].CostUSD
	})
	return results
}

// All 返回全部已启用工具，按名称排序。
func (c *Catalog) All() []Tool {
	results := make([]Tool, 0, len(c.tools))
	for _, tool := range c.tools {
		if tool.Enabled {
			results = append(results, tool)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}
