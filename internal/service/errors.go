package service

import "errors"

// 业务层通用错误，handler 可根据错误类型映射到合适的信封与状态码。
var (
	ErrUsernameTaken  = errors.New("username taken")
	ErrUserNotFound   = errors.New("user not found")
	ErrChatNotFound   = errors.New("chat not found")
	ErrInvalidMembers = errors.New("invalid chat members")
)
