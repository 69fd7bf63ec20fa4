package service

import (
	"errors"
	"strings"

	"github.com/S1D007/Chat-App-Backend/internal/models"
	"github.com/S1D007/Chat-App-Backend/internal/ws"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ChatService 封装会话创建与成员感知的聚合查询。
type ChatService struct {
	db  *gorm.DB
	hub *ws.Hub
}

func NewChatService(db *gorm.DB, hub *ws.Hub) *ChatService {
	return &ChatService{db: db, hub: hub}
}

// Create 创建会话并把会话 id 逐个写进每个成员的 chats。
// 成员更新是 N 次互相独立的写入：单个成员失败只记日志，
// 不回滚会话本身，也不影响其余成员（关联写入幂等，重试可收敛）。
func (s *ChatService) Create(members []uint, name string, isGroupChat bool) (*ChatView, error) {
	name = strings.TrimSpace(name)
	if isGroupChat {
		if len(members) < 2 || name == "" {
			return nil, ErrInvalidMembers
		}
	} else if len(members) != 2 {
		return nil, ErrInvalidMembers
	}

	chat := models.Chat{Name: name, IsGroupChat: isGroupChat}
	if err := s.db.Create(&chat).Error; err != nil {
		return nil, err
	}
	for _, memberID := range members {
		var user models.User
		if err := s.db.First(&user, memberID).Error; err != nil {
			log.Error().Err(err).Uint("chat_id", chat.ID).Uint("user_id", memberID).Msg("create chat: load member")
			continue
		}
		if err := s.db.Model(&user).Association("Chats").Append(&models.Chat{ID: chat.ID}); err != nil {
			log.Error().Err(err).Uint("chat_id", chat.ID).Uint("user_id", memberID).Msg("create chat: attach member")
		}
	}
	return s.View(chat.ID, 0)
}

// ListForUser 返回调用者参与的全部会话，成员列表里去掉调用者自己。
func (s *ChatService) ListForUser(callerID uint) ([]ChatView, error) {
	var chats []models.Chat
	err := s.db.
		Joins("JOIN chat_members cm ON cm.chat_id = chats.id").
		Where("cm.user_id = ?", callerID).
		Preload("Members").
		Preload("Messages", messageOrder).
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	out := make([]ChatView, 0, len(chats))
	for i := range chats {
		view, err := s.view(&chats[i], callerID)
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

// AvailableUsers 返回除调用者外的所有用户，不做会话过滤。
func (s *ChatService) AvailableUsers(callerID uint) ([]UserDTO, error) {
	var users []models.User
	if err := s.db.Where("id <> ?", callerID).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, UserDTO{ID: u.ID, Username: u.Username})
	}
	return out, nil
}

// DiscoverableUsers 返回还没和调用者同处任何会话的用户。
// 逐会话扫描成员，O(会话数 × 平均成员数)，这个量级下足够了。
func (s *ChatService) DiscoverableUsers(callerID uint) ([]UserDTO, error) {
	var me models.User
	if err := s.db.Preload("Chats.Members").First(&me, callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	partners := make(map[uint]struct{})
	for _, chat := range me.Chats {
		for _, m := range chat.Members {
			partners[m.ID] = struct{}{}
		}
	}
	var users []models.User
	if err := s.db.Where("id <> ?", callerID).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		if _, ok := partners[u.ID]; ok {
			continue
		}
		out = append(out, UserDTO{ID: u.ID, Username: u.Username})
	}
	return out, nil
}

// View 加载单个会话的完整视图。stripID 非零时从成员列表里去掉该用户。
func (s *ChatService) View(chatID, stripID uint) (*ChatView, error) {
	var chat models.Chat
	err := s.db.
		Preload("Members").
		Preload("Messages", messageOrder).
		First(&chat, chatID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return s.view(&chat, stripID)
}

func messageOrder(tx *gorm.DB) *gorm.DB {
	return tx.Order("messages.id ASC")
}

func (s *ChatService) view(chat *models.Chat, stripID uint) (*ChatView, error) {
	members := make([]UserDTO, 0, len(chat.Members))
	for _, m := range chat.Members {
		if m.ID == stripID {
			continue
		}
		members = append(members, UserDTO{ID: m.ID, Username: m.Username})
	}
	authors, err := s.resolveAuthors(chat.Messages)
	if err != nil {
		return nil, err
	}
	messages := make([]MessageDTO, 0, len(chat.Messages))
	for _, m := range chat.Messages {
		messages = append(messages, MessageDTO{
			ID:        m.ID,
			User:      authors[m.UserID],
			Message:   m.Body,
			Timestamp: m.CreatedAt,
		})
	}
	return &ChatView{
		ID:          chat.ID,
		Name:        chat.Name,
		IsGroupChat: chat.IsGroupChat,
		Online:      s.hub.Online(chat.ID),
		Members:     members,
		Messages:    messages,
	}, nil
}

// resolveAuthors 批量解析消息涉及的作者。
func (s *ChatService) resolveAuthors(msgs []models.Message) (map[uint]UserDTO, error) {
	seen := make(map[uint]struct{}, len(msgs))
	userIDs := make([]uint, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		userIDs = append(userIDs, m.UserID)
	}

	authors := make(map[uint]UserDTO, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := s.db.Select("id", "username").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			authors[u.ID] = UserDTO{ID: u.ID, Username: u.Username}
		}
	}
	return authors, nil
}
