package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/uno-lobby/internal/config"
	"github.com/palemoky/uno-lobby/internal/game/lobby"
	"github.com/palemoky/uno-lobby/internal/server/handler"
	"github.com/palemoky/uno-lobby/internal/server/identity"
	"github.com/palemoky/uno-lobby/internal/server/session"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 身份由 JWT 校验，不限制来源
	},
	EnableCompression: false,
}

// Server WebSocket 服务器
type Server struct {
	config         *config.Config
	redis          *redis.Client
	repo           *storage.LobbyRepository
	lobbies        *lobby.Manager
	sessionManager *session.SessionManager
	verifier       *identity.Verifier
	handler        *handler.Handler

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 每个客户端至多订阅一个房间
	watches map[string]*lobbyWatch
	watchMu sync.Mutex

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	httpServer *http.Server
	done       chan struct{}
	closeOnce  sync.Once
}

// NewServer 创建服务器实例并连接 Redis
func NewServer(cfg *config.Config) (*Server, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 测试 Redis 连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	return New(cfg, rdb), nil
}

// New 使用已有的 Redis 客户端创建服务器
func New(cfg *config.Config, rdb *redis.Client) *Server {
	repo := storage.NewLobbyRepository(rdb, cfg.Lobby.Collection, cfg.Lobby.MaxUpdateRetries)

	s := &Server{
		config:         cfg,
		redis:          rdb,
		repo:           repo,
		lobbies:        lobby.NewManager(repo, cfg.Lobby.OpTimeoutDuration()),
		sessionManager: session.NewSessionManager(),
		verifier:       identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.IdentityClaim),
		clients:        make(map[string]*Client),
		watches:        make(map[string]*lobbyWatch),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		done:           make(chan struct{}),
	}

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:         s,
		Lobbies:        s.lobbies,
		SessionManager: s.sessionManager,
	})

	if cfg.Auth.JWTSecret == "" {
		log.Println("⚠️ 未配置 jwt_secret，所有连接都将被拒绝")
	}
	log.Printf("🔒 连接配置: 最大连接数=%d, 集合=%s, 冲突重试=%d",
		cfg.Server.MaxConnections, cfg.Lobby.Collection, cfg.Lobby.MaxUpdateRetries)

	return s
}

// Routes 返回 HTTP 路由
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start 启动服务器，阻塞直到关闭
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	// 启动监控 goroutine
	go s.monitorStats()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d)", addr, runtime.NumCPU())
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 关闭服务器：断开所有客户端并释放 Redis 连接
func (s *Server) Shutdown(ctx context.Context) {
	s.closeOnce.Do(func() {
		close(s.done)

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Printf("HTTP 服务关闭失败: %v", err)
			}
		}

		// 关闭所有客户端连接
		s.clientsMu.RLock()
		for _, client := range s.clients {
			client.Close()
		}
		s.clientsMu.RUnlock()

		s.watchMu.Lock()
		for id, w := range s.watches {
			w.cancel()
			delete(s.watches, id)
		}
		s.watchMu.Unlock()

		s.sessionManager.Stop()
		_ = s.redis.Close()

		log.Println("服务器已关闭")
	})
}

// monitorStats 定期输出服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			log.Printf("📊 [监控] 在线: %d | Goroutines: %d | 活跃连接: %d/%d | 订阅: %d | 内存: %.2f MB",
				s.GetOnlineCount(),
				runtime.NumGoroutine(),
				len(s.semaphore),
				s.maxConnections,
				s.watchCount(),
				float64(m.Alloc)/1024/1024)
		case <-s.done:
			return
		}
	}
}

// GetOnlineCount 获取在线连接数
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端，返回同名玩家是否还有其他连接
func (s *Server) unregisterClient(client *Client) (stillConnected bool) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[client.ID]; ok {
		delete(s.clients, client.ID)
		log.Printf("❌ 玩家 %s (%s) 已断开", client.Name, client.ID)
	}
	for _, other := range s.clients {
		if other.Name == client.Name {
			return true
		}
	}
	return false
}
