package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ALiFe-Chain/internal/agent"
	xerrors "ALiFe-Chain/internal/errors"
	"ALiFe-Chain/internal/observability/metrics"
	"ALiFe-Chain/pkg/logger"
)

// Server 暴露智能体与主页的 REST 接口。
type Server struct {
	addr    string
	service *agent.Service
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, service *agent.Service) *Server {
	return &Server{addr: addr, service: service}
}

// Handler 返回完整的路由表，测试可直接挂到 httptest 上。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/agents", s.instrument("create_agent", s.handleCreateAgent))
	mux.HandleFunc("GET /api/v1/agents", s.instrument("list_agents", s.handleListAgents))
	mux.HandleFunc("GET /api/v1/agents/{id}", s.instrument("get_agent", s.handleGetAgent))
	mux.HandleFunc("GET /api/v1/agents/{id}/goals", s.instrument("list_goals", s.handleListGoals))
	mux.HandleFunc("GET /api/v1/agents/{id}/abilities", s.instrument("list_abilities", s.handleListAbilities))
	mux.HandleFunc("GET /api/v1/bounties", s.instrument("list_bounties", s.handleListBounties))
	mux.HandleFunc("POST /api/v1/homebase/messages", s.instrument("post_message", s.handlePostMessage))
	mux.HandleFunc("GET /api/v1/homebase/feed", s.instrument("feed", s.handleFeed))
	mux.HandleFunc("GET /api/v1/homebase/agents/{id}", s.instrument("homebase_profile", s.handleProfile))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.L().Info("API 服务已启动", slog.String("addr", s.addr))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agent.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(xerrors.CodeInvalidArgument), "请求体解析失败")
		return
	}
	created, err := s.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	opts := agent.ListOptions{
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		parsed := agent.Status(status)
		if !agent.IsValidStatus(parsed) {
			writeError(w, http.StatusBadRequest, string(xerrors.CodeInvalidArgument), "未知的智能体状态: "+status)
			return
		}
		opts.Statuses = []agent.Status{parsed}
	}
	agents, err := s.service.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, agents)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	got, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, got)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	goals, err := s.service.Goals(r.Context(), r.PathValue("id"), onlyActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, goals)
}

func (s *Server) handleListAbilities(w http.ResponseWriter, r *http.Request) {
	abilities, err := s.service.Abilities(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, abilities)
}

func (s *Server) handleListBounties(w http.ResponseWriter, r *http.Request) {
	bounties, err := s.service.OpenBounties(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, bounties)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID     string `json:"agent_id"`
		UserAddress string `json:"user_address"`
		Content     string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(xerrors.CodeInvalidArgument), "请求体解析失败")
		return
	}
	message, err := s.service.PostUserMessage(r.Context(), req.AgentID, req.UserAddress, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, message)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	opts := agent.FeedOptions{
		AgentID: r.URL.Query().Get("agent_id"),
		Limit:   queryInt(r, "limit", 0),
		Offset:  queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("before"); raw != "" {
		before, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(xerrors.CodeInvalidArgument), "before 游标必须是时间戳")
			return
		}
		opts.Before = before
	}
	feed, err := s.service.Feed(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, feed)
}

// handleProfile 返回主页视角的智能体画像：基本信息加近期消息。
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	got, err := s.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	opts := agent.FeedOptions{AgentID: id, Limit: queryInt(r, "limit", 20)}
	if raw := r.URL.Query().Get("before"); raw != "" {
		before, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(xerrors.CodeInvalidArgument), "before 游标必须是时间戳")
			return
		}
		opts.Before = before
	}
	feed, err := s.service.Feed(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"agent":    got,
		"messages": feed,
	})
}

// instrument 包装处理器，记录请求耗时与状态码。
func (s *Server) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(started))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// envelope 是统一的响应信封。
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &errorBody{Code: code, Message: message}})
}

// writeServiceError 把服务层错误映射为 HTTP 状态码。
func writeServiceError(w http.ResponseWriter, err error) {
	code := xerrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch {
	case agent.IsNotFound(err):
		status = http.StatusNotFound
	case code == agent.CodeAgentValidation, code == xerrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case code == agent.CodeAgentConflict, code == agent.CodeAbilityExists:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.L().Error("请求处理失败", slog.Any("error", err))
	}
	writeError(w, status, string(code), err.Error())
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
