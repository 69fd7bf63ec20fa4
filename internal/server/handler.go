package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/S1D007/Chat-App-Backend/internal/auth"
	"github.com/S1D007/Chat-App-Backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ok / fail 输出统一的响应信封 {status, message}。
func ok(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": payload})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"status": "ERROR", "message": msg})
}

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	userSvc *service.UserService
	chatSvc *service.ChatService
}

func NewHandler(userSvc *service.UserService, chatSvc *service.ChatService) *Handler {
	return &Handler{userSvc: userSvc, chatSvc: chatSvc}
}

// Signup 处理用户注册请求。
func (h *Handler) Signup(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.Username) < 2 || len(req.Username) > 64 {
		fail(c, http.StatusBadRequest, "invalid username")
		return
	}
	if len(req.Password) < 4 || len(req.Password) > 128 {
		fail(c, http.StatusBadRequest, "invalid password")
		return
	}
	result, err := h.userSvc.Signup(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			fail(c, http.StatusInternalServerError, "username taken")
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("signup")
		fail(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	ok(c, result)
}

// Signin 处理用户登录请求。
func (h *Handler) Signin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "invalid payload")
		return
	}
	result, err := h.userSvc.Signin(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusInternalServerError, "User not found")
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("signin")
		fail(c, http.StatusInternalServerError, "signin failed")
		return
	}
	ok(c, result)
}

// Profile 返回调用者自己的信息。
func (h *Handler) Profile(c *gin.Context) {
	profile, err := h.userSvc.Profile(auth.GetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusInternalServerError, "User not found")
			return
		}
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("profile")
		fail(c, http.StatusInternalServerError, "failed to load profile")
		return
	}
	ok(c, profile)
}

// AvailableUsers 返回除调用者外的所有用户。
func (h *Handler) AvailableUsers(c *gin.Context) {
	users, err := h.chatSvc.AvailableUsers(auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("available users")
		fail(c, http.StatusInternalServerError, "failed to list users")
		return
	}
	ok(c, users)
}

// DiscoverableUsers 返回还没和调用者同处任何会话的用户。
func (h *Handler) DiscoverableUsers(c *gin.Context) {
	users, err := h.chatSvc.DiscoverableUsers(auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("discoverable users")
		fail(c, http.StatusInternalServerError, "failed to list users")
		return
	}
	ok(c, users)
}

// CreateIndividualChat 处理两人会话创建请求。
func (h *Handler) CreateIndividualChat(c *gin.Context) {
	var req struct {
		Members []uint `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload")
		return
	}
	h.createChat(c, req.Members, "", false)
}

// CreateGroupChat 处理群聊创建请求。
func (h *Handler) CreateGroupChat(c *gin.Context) {
	var req struct {
		Members []uint `json:"members"`
		Name    string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload")
		return
	}
	h.createChat(c, req.Members, req.Name, true)
}

func (h *Handler) createChat(c *gin.Context, members []uint, name string, isGroupChat bool) {
	view, err := h.chatSvc.Create(members, name, isGroupChat)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMembers) {
			fail(c, http.StatusBadRequest, "invalid chat members")
			return
		}
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("create chat")
		fail(c, http.StatusInternalServerError, "failed to create chat")
		return
	}
	ok(c, view)
}

// ListChats 返回调用者的会话列表，成员里不含调用者自己。
func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.chatSvc.ListForUser(auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("list chats")
		fail(c, http.StatusInternalServerError, "failed to list chats")
		return
	}
	ok(c, chats)
}
