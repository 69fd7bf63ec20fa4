package service

import (
	"errors"
	"time"

	"github.com/S1D007/Chat-App-Backend/internal/models"

	"gorm.io/gorm"
)

// MessageService 封装消息持久化。
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// Append 把一条消息落库并挂到目标会话的消息序列末尾。
// 会话不存在时先行失败，不留孤儿消息行；at 用广播时刻的捕获时间。
func (s *MessageService) Append(chatID, userID uint, body string, at time.Time) (*models.Message, error) {
	var chat models.Chat
	if err := s.db.First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	msg := models.Message{ChatID: chatID, UserID: userID, Body: body, CreatedAt: at}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	// 会话的 updated_at 跟随最新消息，列表排序可以直接用它。
	if err := s.db.Model(&chat).Update("updated_at", at).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}
