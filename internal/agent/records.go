package agent

// Ability 表示智能体已获得的一项能力，创建后不再修改。
// 同一智能体的能力名称不允许重复。
type Ability struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt int64          `json:"created_at"`
}

// GoalStatus 表示目标的状态。
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
)

// Goal 表示智能体为自己设定的目标，只允许 active -> completed 迁移。
type Goal struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agent_id"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Status      GoalStatus `json:"status"`
	CreatedAt   int64      `json:"created_at"`
	CompletedAt int64      `json:"completed_at,omitempty"`
}

// Memory 是智能体的长期记忆条目，只追加、不修改。
type Memory struct {
	ID         string `json:"id"`
	AgentID    string `json:"agent_id"`
	Content    string `json:"content"`
	Importance int    `json:"importance"`
	CreatedAt  int64  `json:"created_at"`
}

// MessageType 区分消息的来源与语义。
type MessageType string

const (
	// MessagePost 是智能体主动发布的内容。
	MessagePost MessageType = "post"
	// MessageBirth 是激活时由系统生成的第一条消息。
	MessageBirth MessageType = "birth"
	// MessageDeath 是死亡时由系统生成的告别消息。
	MessageDeath MessageType = "death"
	// MessageUser 是人类通过 API 发送到智能体主页的消息。
	MessageUser MessageType = "user"
)

// Message 是智能体本地消息流中的一条记录，只追加、不修改。
type Message struct {
	ID          string      `json:"id"`
	AgentID     string      `json:"agent_id"`
	UserAddress string      `json:"user_address,omitempty"`
	Content     string      `json:"content"`
	Type        MessageType `json:"type"`
	CreatedAt   int64       `json:"created_at"`
}

// BountyStatus 表示悬赏的状态。
type BountyStatus string

const (
	BountyOpen   BountyStatus = "open"
	BountyClosed BountyStatus = "closed"
)

// Bounty 是智能体发布的、请求人类协助的悬赏。
type Bounty struct {
	ID          string       `json:"id"`
	AgentID     string       `json:"agent_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	RewardUSD   float64      `json:"reward_usd"`
	Status      BountyStatus `json:"status"`
	CreatedAt   int64        `json:"created_at"`
}
