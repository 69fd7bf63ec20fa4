package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/S1D007/Chat-App-Backend/internal/auth"
	"github.com/S1D007/Chat-App-Backend/internal/config"
	"github.com/S1D007/Chat-App-Backend/internal/metrics"
	"github.com/S1D007/Chat-App-Backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	db     *gorm.DB
	userID uint
	uname  string
	rooms  map[uint]struct{} // 由 hub.mu 保护
}

func (c *Client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inboundEvent struct {
	Event    string `json:"event"`
	ChatID   uint   `json:"chat_id"`
	Message  string `json:"message"`
	IsTyping bool   `json:"is_typing"`
}

type outboundMessage struct {
	Event     string    `json:"event"`
	ChatID    uint      `json:"chat_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Serve 升级 WebSocket 连接。socket 通道走和 HTTP 完全相同的 token 校验，
// 作者身份取自 token 而不是客户端自报的字段。
func Serve(h *Hub, p *Persister, db *gorm.DB, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = auth.BearerToken(c)
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "ERROR", "message": "Unauthorized"})
			return
		}
		claims, err := auth.ParseToken(token, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "ERROR", "message": "Unauthorized"})
			return
		}
		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "ERROR", "message": "Unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			id:     uuid.NewString(),
			hub:    h,
			conn:   conn,
			send:   make(chan []byte, 256),
			db:     db,
			userID: user.ID,
			uname:  user.Username,
			rooms:  make(map[uint]struct{}),
		}
		metrics.WsConnections.Inc()

		go client.writePump()
		client.readPump(p)
	}
}

func (c *Client) readPump(p *Persister) {
	defer func() {
		c.hub.LeaveAll(c)
		c.closeSend()
		_ = c.conn.Close()
		metrics.WsConnections.Dec()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.ChatID == 0 {
			continue
		}
		switch ev.Event {
		case "joinRoom":
			c.joinRoom(ev.ChatID)
		case "message":
			if ev.Message == "" {
				continue
			}
			c.relayMessage(p, ev.ChatID, ev.Message)
		case "typing":
			c.relayTyping(ev.ChatID, ev.IsTyping)
		}
	}
}

// joinRoom 只接受调用者确实是成员的会话房间。
func (c *Client) joinRoom(chatID uint) {
	var count int64
	err := c.db.Table("chat_members").
		Where("chat_id = ? AND user_id = ?", chatID, c.userID).
		Count(&count).Error
	if err != nil || count == 0 {
		log.Warn().Err(err).Str("conn_id", c.id).Uint("chat_id", chatID).Uint("user_id", c.userID).Msg("join rejected")
		return
	}
	c.hub.Join(c, chatID)
}

// relayMessage 先广播后持久化，两步解耦：
// 广播即时完成且不等待存储，落库走 persister 的队列，失败不回传给发送者。
func (c *Client) relayMessage(p *Persister, chatID uint, body string) {
	if !c.hub.Joined(c, chatID) {
		log.Warn().Str("conn_id", c.id).Uint("chat_id", chatID).Uint("user_id", c.userID).Msg("message to unjoined room dropped")
		return
	}
	now := time.Now()
	out := outboundMessage{
		Event:     "message",
		ChatID:    chatID,
		UserID:    c.userID,
		Username:  c.uname,
		Message:   body,
		Timestamp: now,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return
	}
	c.hub.Broadcast(chatID, c, b)
	metrics.WsMessagesTotal.Inc()
	p.Enqueue(Job{ChatID: chatID, UserID: c.userID, Body: body, At: now})
}

// relayTyping 是纯广播的输入状态信号，不落库。
func (c *Client) relayTyping(chatID uint, isTyping bool) {
	if !c.hub.Joined(c, chatID) {
		return
	}
	evt := map[string]interface{}{
		"event":     "typing",
		"chat_id":   chatID,
		"user_id":   c.userID,
		"username":  c.uname,
		"is_typing": isTyping,
	}
	if b, err := json.Marshal(evt); err == nil {
		c.hub.Broadcast(chatID, c, b)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
