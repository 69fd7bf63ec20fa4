package models

import "time"

// User 的 PasswordHash 永远不参与 JSON 序列化，凭证只停留在存储层。
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Chats        []Chat    `gorm:"many2many:chat_members" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Chat 的成员关系通过 chat_members 连接表双向维护；消息主键升序即插入顺序。
type Chat struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128" json:"name"`
	IsGroupChat bool      `gorm:"not null;default:false" json:"is_group_chat"`
	Members     []User    `gorm:"many2many:chat_members" json:"-"`
	Messages    []Message `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message 创建后不可变；UserID 是指向作者的弱引用，不级联。
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    uint      `gorm:"index:idx_msg_chat_id;not null" json:"chat_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}
