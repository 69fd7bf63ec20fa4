package ws

import (
	"sync"
)

// Hub 是房间 id 到连接集合的显式注册表，由中继自己持有：
// 加入幂等、断开统一清理，不依赖传输层的隐式分组。
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Client]struct{})}
}

// Join 把连接加入房间，重复加入没有额外效果。
func (h *Hub) Join(c *Client, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[roomID] = room
	}
	if _, ok := room[c]; ok {
		return
	}
	room[c] = struct{}{}
	c.rooms[roomID] = struct{}{}
}

// Joined 判断连接是否已加入某个房间。
func (h *Hub) Joined(c *Client, roomID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

// LeaveAll 把连接从它加入过的所有房间移除，断开时调用。
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	for roomID := range c.rooms {
		if room := h.rooms[roomID]; room != nil {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	c.rooms = make(map[uint]struct{})
}

// Broadcast 把载荷发给房间内除 sender 外的每个连接。
// 发送必须在读锁内完成：关闭 send 通道要么发生在踢人时的写锁里，
// 要么发生在 LeaveAll 把连接移出注册表之后，持有读锁就不会
// 往已关闭的通道上发。尽力而为：写缓冲打满的慢连接被视为死连接，踢出。
func (h *Hub) Broadcast(roomID uint, sender *Client, payload []byte) {
	h.mu.RLock()
	var stuck []*Client
	for c := range h.rooms[roomID] {
		if c == sender {
			continue
		}
		select {
		case c.send <- payload:
		default:
			stuck = append(stuck, c)
		}
	}
	h.mu.RUnlock()

	if len(stuck) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range stuck {
		h.removeLocked(c)
		c.closeSend()
	}
	h.mu.Unlock()
}

// Online 返回房间当前的连接数，供聚合视图复用。
func (h *Hub) Online(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
