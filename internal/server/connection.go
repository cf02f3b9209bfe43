package server

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/protocol/codec"
)

// handleWebSocket 处理 WebSocket 连接，连接存续期间占用一个连接名额
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := clientIP(r)

	// 连接数限制检查
	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	default:
		log.Printf("🚫 达到最大连接数限制 (%d), IP: %s", s.maxConnections, clientIP)
		http.Error(w, protocol.ErrorMessages[protocol.ErrCodeServerFull], http.StatusServiceUnavailable)
		return
	}

	// 身份校验
	name, err := s.verifier.FromRequest(r)
	if err != nil {
		log.Printf("🚫 身份校验失败 (IP: %s)", clientIP)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	client := NewClient(s, conn, name, codec.ForName(r.URL.Query().Get("codec")))
	client.IP = clientIP
	s.registerClient(client)

	session, resumed := s.sessionManager.Attach(name)

	// 发送连接成功消息（包含重连令牌）
	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		ClientID:       client.ID,
		PlayerName:     name,
		ReconnectToken: session.ReconnectToken,
	}))

	log.Printf("✅ 玩家 %s (%s) 已连接 [codec=%s, resumed=%t]", name, client.ID, client.codec.Name(), resumed)

	go client.WritePump()
	client.ReadPump()
}

// healthResponse 健康检查响应
type healthResponse struct {
	Status  string `json:"status"`
	Online  int    `json:"online"`
	Lobbies int64  `json:"lobbies"`
}

// handleHealth 健康检查接口，同时探测 Redis
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Online: s.GetOnlineCount()}
	status := http.StatusOK

	count, err := s.repo.Count(ctx)
	if err != nil {
		log.Printf("健康检查失败: %v", err)
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	resp.Lobbies = count

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// clientIP 获取真实客户端 IP
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
