package service

import "time"

// UserDTO 是对外输出的用户数据，永远不携带凭证字段。
type UserDTO struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// MessageDTO 的 user 是解析后的作者（去除凭证）。
type MessageDTO struct {
	ID        uint      `json:"id"`
	User      UserDTO   `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatView 是成员与消息都解析为完整记录的会话视图。
type ChatView struct {
	ID          uint         `json:"id"`
	Name        string       `json:"name"`
	IsGroupChat bool         `json:"is_group_chat"`
	Online      int          `json:"online"`
	Members     []UserDTO    `json:"members"`
	Messages    []MessageDTO `json:"messages"`
}
