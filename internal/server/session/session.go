package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/palemoky/uno-lobby/internal/game/player"
)

const (
	// 重连等待时间
	reconnectTimeout = 2 * time.Minute
	// 会话过期时间
	sessionExpireTime = 10 * time.Minute
	// 清理间隔
	cleanupInterval = time.Minute
)

// PlayerSession 玩家会话，保存本地玩家状态（用于断线重连）
type PlayerSession struct {
	PlayerName     string
	ReconnectToken string

	DisconnectedAt time.Time // 断线时间
	IsOnline       bool      // 是否在线

	player    player.Player // 当前所在房间中的本地玩家
	hasPlayer bool

	mu sync.RWMutex
}

// Player 返回会话中的本地玩家
func (s *PlayerSession) Player() (player.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player, s.hasPlayer
}

// SessionManager 会话管理器，按玩家身份（名称）索引
type SessionManager struct {
	sessions map[string]*PlayerSession // playerName -> session
	tokens   map[string]string         // token -> playerName
	mu       sync.RWMutex

	done     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager 创建会话管理器
func NewSessionManager() *SessionManager {
	sm := &SessionManager{
		sessions: make(map[string]*PlayerSession),
		tokens:   make(map[string]string),
		done:     make(chan struct{}),
	}

	// 启动会话清理协程
	go sm.cleanupLoop()

	return sm
}

// Stop 停止清理协程
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.done) })
}

// CreateSession 创建新会话，覆盖同名旧会话
func (sm *SessionManager) CreateSession(playerName string) *PlayerSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if old, ok := sm.sessions[playerName]; ok {
		delete(sm.tokens, old.ReconnectToken)
	}

	token := generateToken()
	session := &PlayerSession{
		PlayerName:     playerName,
		ReconnectToken: token,
		IsOnline:       true,
	}

	sm.sessions[playerName] = session
	sm.tokens[token] = playerName

	return session
}

// Attach 新连接接入：已有会话时保留本地玩家并标记在线，否则创建新会话。
// resumed 表示沿用了旧会话
func (sm *SessionManager) Attach(playerName string) (session *PlayerSession, resumed bool) {
	if existing := sm.GetSession(playerName); existing != nil {
		sm.SetOnline(playerName)
		return existing, true
	}
	return sm.CreateSession(playerName), false
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(playerName string) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[playerName]
}

// GetSessionByToken 通过 token 获取会话
func (sm *SessionManager) GetSessionByToken(token string) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	playerName, ok := sm.tokens[token]
	if !ok {
		return nil
	}
	return sm.sessions[playerName]
}

// SetOffline 设置玩家离线
func (sm *SessionManager) SetOffline(playerName string) {
	sm.withSession(playerName, func(s *PlayerSession) {
		s.IsOnline = false
		s.DisconnectedAt = time.Now()
	})
}

// SetOnline 设置玩家上线
func (sm *SessionManager) SetOnline(playerName string) {
	sm.withSession(playerName, func(s *PlayerSession) {
		s.IsOnline = true
		s.DisconnectedAt = time.Time{}
	})
}

// SetPlayer 记录玩家加入房间后的本地状态
func (sm *SessionManager) SetPlayer(playerName string, p player.Player) {
	sm.withSession(playerName, func(s *PlayerSession) {
		s.player = p
		s.hasPlayer = true
	})
}

// ClearPlayer 玩家离开房间后清除本地状态
func (sm *SessionManager) ClearPlayer(playerName string) {
	sm.withSession(playerName, func(s *PlayerSession) {
		s.player = player.Player{}
		s.hasPlayer = false
	})
}

// CurrentPlayer 返回玩家的本地状态
func (sm *SessionManager) CurrentPlayer(playerName string) (player.Player, bool) {
	session := sm.GetSession(playerName)
	if session == nil {
		return player.Player{}, false
	}
	return session.Player()
}

// DeleteSession 删除会话
func (sm *SessionManager) DeleteSession(playerName string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, ok := sm.sessions[playerName]; ok {
		delete(sm.tokens, session.ReconnectToken)
		delete(sm.sessions, playerName)
	}
}

// CanReconnect 检查玩家是否可以用 token 重连
func (sm *SessionManager) CanReconnect(token, playerName string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	storedName, ok := sm.tokens[token]
	if !ok || storedName != playerName {
		return false
	}

	session, ok := sm.sessions[playerName]
	if !ok {
		return false
	}

	session.mu.RLock()
	defer session.mu.RUnlock()

	// 检查是否在重连时限内
	if !session.IsOnline && time.Since(session.DisconnectedAt) > reconnectTimeout {
		return false
	}

	return true
}

// IsOnline 检查玩家是否在线
func (sm *SessionManager) IsOnline(playerName string) bool {
	sm.mu.RLock()
	session, ok := sm.sessions[playerName]
	sm.mu.RUnlock()

	if !ok {
		return false
	}

	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.IsOnline
}

func (sm *SessionManager) withSession(playerName string, fn func(s *PlayerSession)) {
	sm.mu.RLock()
	session, ok := sm.sessions[playerName]
	sm.mu.RUnlock()

	if ok {
		session.mu.Lock()
		fn(session)
		session.mu.Unlock()
	}
}

// cleanupLoop 定期清理过期会话
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.cleanup(time.Now())
		case <-sm.done:
			return
		}
	}
}

// cleanup 清理离线超过会话过期时间的会话
func (sm *SessionManager) cleanup(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for playerName, session := range sm.sessions {
		session.mu.RLock()
		if !session.IsOnline && now.Sub(session.DisconnectedAt) > sessionExpireTime {
			delete(sm.tokens, session.ReconnectToken)
			delete(sm.sessions, playerName)
		}
		session.mu.RUnlock()
	}
}

// generateToken 生成随机 token
func generateToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
