package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"goim-friend/apps/friend-service/internal/dao"
	"goim-friend/apps/friend-service/internal/model"
	"goim-friend/pkg/errs"
	"goim-friend/pkg/logger"
)

// CreateUser 注册用户
func (s *Service) CreateUser(ctx context.Context, username, firstName, lastName string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errs.Validation("username is required")
	}
	if utf8.RuneCountInString(username) > model.MaxUsernameLength {
		return nil, errs.Validation("username is too long")
	}

	id, err := s.ids.NextID()
	if err != nil {
		return nil, errs.Internal("failed to generate user id", err)
	}

	user := &model.User{
		ID:        id,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.dao.CreateUser(ctx, user); err != nil {
		if errors.Is(err, dao.ErrDuplicate) {
			return nil, errs.Conflict("username already taken")
		}
		s.logger.Error(ctx, "Failed to create user",
			logger.F("username", username),
			logger.F("error", err.Error()))
		return nil, errs.Internal("failed to create user", err)
	}

	s.logger.Info(ctx, "User created",
		logger.F("userID", user.ID),
		logger.F("username", username))
	return user, nil
}

// GetUser 获取用户
func (s *Service) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.dao.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Internal("failed to get user", err)
	}
	return user, nil
}

// ListUsers 分页获取用户，page从1开始
func (s *Service) ListUsers(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	page, pageSize = model.NormalizePage(page, pageSize)
	users, total, err := s.dao.ListUsers(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, errs.Internal("failed to list users", err)
	}
	return users, total, nil
}
