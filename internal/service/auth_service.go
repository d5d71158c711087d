package service

import (
	"fmt"
	"strings"

	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/repository"
	"github.com/courseforge/backend/internal/util"
	"github.com/courseforge/backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users *repository.UserRepository
	cfg   *config.Config
}

func NewAuthService(users *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{users: users, cfg: cfg}
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", util.ErrInvalidInput)
	}
	if !util.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", util.ErrInvalidInput)
	}
	if err := util.ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(email); err == nil {
		return nil, util.ErrEmailRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{Name: name, Email: email, Password: string(hashed)}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	logger.Log.Info("user registered", zap.Uint("user_id", user.ID))

	return s.issue(user)
}

func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return nil, util.ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, util.ErrBadCredentials
	}

	if err := s.users.UpdateLastLogin(user.ID); err != nil {
		logger.Log.Warn("failed to record login time", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return s.issue(user)
}

func (s *AuthService) GetUser(userID uint) (*model.User, error) {
	return s.users.FindByID(userID)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := util.GenerateJWT(user, s.cfg.JWT.Secret, s.cfg.JWT.ExpireTime)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
