package service

import (
	"errors"
	"strings"

	"github.com/S1D007/Chat-App-Backend/internal/auth"
	"github.com/S1D007/Chat-App-Backend/internal/config"
	"github.com/S1D007/Chat-App-Backend/internal/models"

	"gorm.io/gorm"
)

// UserService 封装注册、登录与个人信息相关的业务逻辑。
type UserService struct {
	db  *gorm.DB
	cfg config.Config
}

func NewUserService(db *gorm.DB, cfg config.Config) *UserService {
	return &UserService{db: db, cfg: cfg}
}

// AuthResult 注册或登录成功后返回的数据。
type AuthResult struct {
	User  UserDTO `json:"user"`
	Token string  `json:"token"`
}

// Signup 创建新用户并直接签发 token。
// 重名不做先查后插，直接插入并靠用户名唯一索引兜底，
// 把约束冲突翻译成 ErrUsernameTaken，并发注册也不会漏判。
func (s *UserService) Signup(username, password string) (*AuthResult, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{Username: username, PasswordHash: hash}
	if err := s.db.Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	token, err := auth.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTLDays)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: UserDTO{ID: user.ID, Username: user.Username}, Token: token}, nil
}

// isDuplicateKey 识别唯一索引冲突。gorm 自身的哨兵错误之外，
// 还按文本匹配 Postgres 与 SQLite 两种驱动的约束报错。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// Signin 校验用户名密码并签发 token。用户不存在和密码不匹配
// 对外是同一个错误，不泄露哪一半错了。
func (s *UserService) Signin(username, password string) (*AuthResult, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrUserNotFound
	}
	token, err := auth.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTLDays)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: UserDTO{ID: user.ID, Username: user.Username}, Token: token}, nil
}

// Profile 返回调用者自己的信息，不含凭证和会话列表。
func (s *UserService) Profile(userID uint) (*UserDTO, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &UserDTO{ID: user.ID, Username: user.Username}, nil
}
