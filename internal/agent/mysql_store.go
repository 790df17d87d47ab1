package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"sort"
	"strings"
	"time"

	"ALiFe-Chain/deploy/migrations"
	xerrors "ALiFe-Chain/internal/errors"
	"github.com/go-sql-driver/mysql"
)

// MySQLStore 使用 MySQL 持久化智能体的完整生命周期状态。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建一个新的 MySQLStore 并执行内嵌迁移。
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// migrate 按文件名顺序执行内嵌的 SQL 迁移。
func (s *MySQLStore) migrate() error {
	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取迁移目录失败")
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := migrations.Files.ReadFile(name)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取迁移文件 "+name+" 失败")
		}
		for _, stmt := range strings.Split(string(raw), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := s.db.Exec(stmt); err != nil {
				return xerrors.Wrap(xerrors.CodeStorageFailure, err, "执行迁移 "+name+" 失败")
			}
		}
	}
	return nil
}

// CreateAgent 插入新的智能体记录。
func (s *MySQLStore) CreateAgent(ctx context.Context, a *Agent) error {
	if a == nil || strings.TrimSpace(a.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "agent ID 不能为空")
	}
	if a.Status == "" {
		a.Status = StatusEmbryo
	}
	if !IsValidStatus(a.Status) {
		return xerrors.New(xerrors.CodeInvalidArgument, "不支持的智能体状态")
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO agents
        (id, name, symbol, personality, purpose, deployer_address, wallet_address, sealed_credential,
         token_address, status, balance_usd, last_active_at, next_think_at, created_at, born_at, died_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		a.ID,
		a.Name,
		a.Symbol,
		a.Personality,
		a.Purpose,
		a.DeployerAddress,
		a.WalletAddress,
		a.SealedCredential,
		a.TokenAddress,
		a.Status,
		a.BalanceUSD,
		a.LastActiveAt,
		a.NextThinkAt,
		a.CreatedAt,
		a.BornAt,
		a.DiedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrAgentConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入智能体失败")
	}
	return nil
}

const agentColumns = `id, name, symbol, personality, purpose, deployer_address, wallet_address,
        sealed_credential, token_address, status, balance_usd, last_active_at, next_think_at, created_at, born_at, died_at`

func scanAgent(scanner interface{ Scan(...any) error }) (*Agent, error) {
	var a Agent
	var personality, purpose, sealed sql.NullString
	if err := scanner.Scan(
		&a.ID,
		&a.Name,
		&a.Symbol,
		&personality,
		&purpose,
		&a.DeployerAddress,
		&a.WalletAddress,
		&sealed,
		&a.TokenAddress,
		&a.Status,
		&a.BalanceUSD,
		&a.LastActiveAt,
		&a.NextThinkAt,
		&a.CreatedAt,
		&a.BornAt,
		&a.DiedAt,
	); err != nil {
		return nil, err
	}
	a.Personality = personality.String
	a.Purpose = purpose.String
	a.SealedCredential = sealed.String
	return &a, nil
}

// GetAgent 查询指定智能体。
func (s *MySQLStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询智能体失败")
	}
	return a, nil
}

// ListAgents 按创建时间倒序返回智能体列表。
func (s *MySQLStore) ListAgents(ctx context.Context, opts ListOptions) ([]*Agent, error) {
	opts.applyDefaults()

	query := `SELECT ` + agentColumns + ` FROM agents`
	args := make([]any, 0, 4)
	statuses := normalizeStatuses(opts.Statuses)
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询智能体列表失败")
	}
	defer rows.Close()

	agents := make([]*Agent, 0, opts.Limit)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析智能体记录失败")
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历智能体列表失败")
	}
	return agents, nil
}

// ListDue 返回唤醒时间已到的存活智能体。
func (s *MySQLStore) ListDue(ctx context.Context, now int64) ([]*Agent, error) {
	const query = `SELECT ` + agentColumns + ` FROM agents
        WHERE status = ? AND next_think_at > 0 AND next_think_at <= ?
        ORDER BY next_think_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, StatusAlive, now)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询到期智能体失败")
	}
	defer rows.Close()

	agents := make([]*Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析到期智能体失败")
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历到期智能体失败")
	}
	return agents, nil
}

// MarkAlive 以条件更新的方式完成胚胎激活，冲突时回查原因。
func (s *MySQLStore) MarkAlive(ctx context.Context, id string, bornAt int64, balance float64) error {
	const stmt = `UPDATE agents SET status = ?, born_at = ?, balance_usd = ?, next_think_at = ?
        WHERE id = ? AND status = ? AND born_at = 0`

	res, err := s.db.ExecContext(ctx, stmt, StatusAlive, bornAt, balance, bornAt, id, StatusEmbryo)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "激活智能体失败")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		if _, getErr := s.GetAgent(ctx, id); getErr != nil {
			return getErr
		}
		return ErrIllegalTransition
	}
	return nil
}

// MarkDead 以条件更新的方式完成死亡迁移，冲突时回查原因。
func (s *MySQLStore) MarkDead(ctx context.Context, id string, diedAt int64) error {
	const stmt = `UPDATE agents SET status = ?, died_at = ?, next_think_at = 0
        WHERE id = ? AND status = ? AND died_at = 0`

	res, err := s.db.ExecContext(ctx, stmt, StatusDead, diedAt, id, StatusAlive)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "标记智能体死亡失败")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		if _, getErr := s.GetAgent(ctx, id); getErr != nil {
			return getErr
		}
		return ErrIllegalTransition
	}
	return nil
}

// FinishThink 写入思考周期的记账字段，仅对存活智能体生效。
func (s *MySQLStore) FinishThink(ctx context.Context, id string, balance float64, lastActiveAt, nextThinkAt int64) error {
	const stmt = `UPDATE agents SET balance_usd = ?, last_active_at = ?, next_think_at = ?
        WHERE id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, stmt, balance, lastActiveAt, nextThinkAt, id, StatusAlive)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新思考记账失败")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		if _, getErr := s.GetAgent(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAgentConflict
	}
	return nil
}

// UpdateBalance 仅刷新余额。
func (s *MySQLStore) UpdateBalance(ctx context.Context, id string, balance float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE agents SET balance_usd = ? WHERE id = ?`, balance, id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新余额失败")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		if _, getErr := s.GetAgent(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// AddAbility 插入能力记录，依赖唯一索引保证名称不重复。
func (s *MySQLStore) AddAbility(ctx context.Context, ability *Ability) error {
	if ability == nil || ability.AgentID == "" || ability.Name == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "ability 缺少必填字段")
	}
	if ability.CreatedAt == 0 {
		ability.CreatedAt = time.Now().Unix()
	}
	configValue, err := marshalAbilityConfig(ability.Config)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "编码能力配置失败")
	}

	const stmt = `INSERT INTO agent_abilities (id, agent_id, name, config, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, stmt, ability.ID, ability.AgentID, ability.Name, configValue, ability.CreatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrAbilityExists
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入能力失败")
	}
	return nil
}

// ListAbilities 返回指定智能体的全部能力。
func (s *MySQLStore) ListAbilities(ctx context.Context, agentID string) ([]*Ability, error) {
	const query = `SELECT id, agent_id, name, config, created_at FROM agent_abilities
        WHERE agent_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询能力列表失败")
	}
	defer rows.Close()

	abilities := make([]*Ability, 0)
	for rows.Next() {
		var ability Ability
		var config sql.NullString
		if err := rows.Scan(&ability.ID, &ability.AgentID, &ability.Name, &config, &ability.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析能力记录失败")
		}
		decoded, err := unmarshalAbilityConfig(config)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析能力配置失败")
		}
		ability.Config = decoded
		abilities = append(abilities, &ability)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历能力列表失败")
	}
	return abilities, nil
}

// AddGoal 插入目标记录。
func (s *MySQLStore) AddGoal(ctx context.Context, goal *Goal) error {
	if goal == nil || goal.AgentID == "" || goal.Description == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "goal 缺少必填字段")
	}
	if goal.Status == "" {
		goal.Status = GoalActive
	}
	if goal.CreatedAt == 0 {
		goal.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO agent_goals (id, agent_id, description, priority, status, created_at, completed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		goal.ID, goal.AgentID, goal.Description, goal.Priority, goal.Status, goal.CreatedAt, goal.CompletedAt)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入目标失败")
	}
	return nil
}

// CompleteGoal 将目标从 active 翻转为 completed。
func (s *MySQLStore) CompleteGoal(ctx context.Context, agentID, goalID string, completedAt int64) error {
	const stmt = `UPDATE agent_goals SET status = ?, completed_at = ?
        WHERE id = ? AND agent_id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, stmt, GoalCompleted, completedAt, goalID, agentID, GoalActive)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "完成目标失败")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		var status GoalStatus
		row := s.db.QueryRowContext(ctx, `SELECT status FROM agent_goals WHERE id = ? AND agent_id = ?`, goalID, agentID)
		if scanErr := row.Scan(&status); scanErr != nil {
			if stdErrors.Is(scanErr, sql.ErrNoRows) {
				return ErrGoalNotFound
			}
			return xerrors.Wrap(xerrors.CodeStorageFailure, scanErr, "查询目标状态失败")
		}
		return ErrAgentConflict
	}
	return nil
}

// ListGoals 按创建时间倒序返回目标。
func (s *MySQLStore) ListGoals(ctx context.Context, agentID string, onlyActive bool) ([]*Goal, error) {
	query := `SELECT id, agent_id, description, priority, status, created_at, completed_at FROM agent_goals
        WHERE agent_id = ?`
	args := []any{agentID}
	if onlyActive {
		query += ` AND status = ?`
		args = append(args, GoalActive)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询目标列表失败")
	}
	defer rows.Close()

	goals := make([]*Goal, 0)
	for rows.Next() {
		var goal Goal
		if err := rows.Scan(&goal.ID, &goal.AgentID, &goal.Description, &goal.Priority,
			&goal.Status, &goal.CreatedAt, &goal.CompletedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析目标记录失败")
		}
		goals = append(goals, &goal)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历目标列表失败")
	}
	return goals, nil
}

// AddMemory 插入记忆记录。
func (s *MySQLStore) AddMemory(ctx context.Context, memory *Memory) error {
	if memory == nil || memory.AgentID == "" || memory.Content == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "memory 缺少必填字段")
	}
	if memory.CreatedAt == 0 {
		memory.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO agent_memories (id, agent_id, content, importance, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt, memory.ID, memory.AgentID, memory.Content, memory.Importance, memory.CreatedAt)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入记忆失败")
	}
	return nil
}

// ListRecentMemories 返回最近的记忆，最新的排在前面。
func (s *MySQLStore) ListRecentMemories(ctx context.Context, agentID string, limit int) ([]*Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT id, agent_id, content, importance, created_at FROM agent_memories
        WHERE agent_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询记忆列表失败")
	}
	defer rows.Close()

	memories := make([]*Memory, 0, limit)
	for rows.Next() {
		var memory Memory
		if err := rows.Scan(&memory.ID, &memory.AgentID, &memory.Content, &memory.Importance, &memory.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析记忆记录失败")
		}
		memories = append(memories, &memory)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历记忆列表失败")
	}
	return memories, nil
}

// AddMessage 插入消息记录。
func (s *MySQLStore) AddMessage(ctx context.Context, message *Message) error {
	if message == nil || message.AgentID == "" || message.Content == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "message 缺少必填字段")
	}
	if message.Type == "" {
		message.Type = MessagePost
	}
	if message.CreatedAt == 0 {
		message.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO agent_messages (id, agent_id, user_address, content, type, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		message.ID, message.AgentID, message.UserAddress, message.Content, message.Type, message.CreatedAt)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入消息失败")
	}
	return nil
}

// ListMessages 按创建时间倒序返回消息流。
func (s *MySQLStore) ListMessages(ctx context.Context, opts FeedOptions) ([]*Message, error) {
	opts.applyDefaults()

	query := `SELECT id, agent_id, user_address, content, type, created_at FROM agent_messages`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if opts.AgentID != "" {
		clauses = append(clauses, "agent_id = ?")
		args = append(args, opts.AgentID)
	}
	if opts.Before > 0 {
		clauses = append(clauses, "created_at < ?")
		args = append(args, opts.Before)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询消息流失败")
	}
	defer rows.Close()

	messages := make([]*Message, 0, opts.Limit)
	for rows.Next() {
		var message Message
		if err := rows.Scan(&message.ID, &message.AgentID, &message.UserAddress,
			&message.Content, &message.Type, &message.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析消息记录失败")
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历消息流失败")
	}
	return messages, nil
}

// AddBounty 插入悬赏记录。
func (s *MySQLStore) AddBounty(ctx context.Context, bounty *Bounty) error {
	if bounty == nil || bounty.AgentID == "" || bounty.Title == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "bounty 缺少必填字段")
	}
	if bounty.Status == "" {
		bounty.Status = BountyOpen
	}
	if bounty.CreatedAt == 0 {
		bounty.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO agent_bounties (id, agent_id, title, description, reward_usd, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		bounty.ID, bounty.AgentID, bounty.Title, bounty.Description, bounty.RewardUSD, bounty.Status, bounty.CreatedAt)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入悬赏失败")
	}
	return nil
}

// ListOpenBounties 返回开放中的悬赏。
func (s *MySQLStore) ListOpenBounties(ctx context.Context) ([]*Bounty, error) {
	const query = `SELECT id, agent_id, title, description, reward_usd, status, created_at FROM agent_bounties
        WHERE status = ? ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, BountyOpen)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询悬赏列表失败")
	}
	defer rows.Close()

	bounties := make([]*Bounty, 0)
	for rows.Next() {
		var bounty Bounty
		var description sql.NullString
		if err := rows.Scan(&bounty.ID, &bounty.AgentID, &bounty.Title, &description,
			&bounty.RewardUSD, &bounty.Status, &bounty.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析悬赏记录失败")
		}
		bounty.Description = description.String
		bounties = append(bounties, &bounty)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历悬赏列表失败")
	}
	return bounties, nil
}

// Close 释放数据库连接。
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func marshalAbilityConfig(config map[string]any) (string, error) {
	if len(config) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalAbilityConfig(value sql.NullString) (map[string]any, error) {
	if !value.Valid || strings.TrimSpace(value.String) == "" {
		return nil, nil
	}
	config := make(map[string]any)
	if err := json.Unmarshal([]byte(value.String), &config); err != nil {
		return nil, err
	}
	return config, nil
}

// ensure interface compliance at compile time
var _ Store = (*MySQLStore)(nil)
