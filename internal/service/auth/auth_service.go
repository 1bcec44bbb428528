// Package auth handles registration, login and token lifecycle.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/utils"
	"storefront/pkg/log"
	pkgutils "storefront/pkg/utils"
)

// RegisterRequest register request
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=20"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6,max=64"`
	DisplayName string `json:"display_name" binding:"omitempty,max=50"`
}

// LoginRequest login request
type LoginRequest struct {
	Account  string `json:"account" binding:"required"` // username or email
	Password string `json:"password" binding:"required"`
}

// TokenResponse token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// maxLoginFailures locks an account key in Redis after repeated failures.
const (
	maxLoginFailures   = 5
	loginFailureExpiry = 15 * time.Minute
	tokenCacheExpiry   = 2 * time.Hour
)

// AuthService authentication service interface
type AuthService interface {
	// Register user
	Register(ctx context.Context, req *RegisterRequest) (*model.User, error)

	// Login user
	Login(ctx context.Context, req *LoginRequest, ip string) (*TokenResponse, error)

	// Logout user
	Logout(ctx context.Context, userID int64) error

	// Validate token
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)

	// Refresh token
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// authService authentication service implementation
type authService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	redis      *redis.Client
}

// NewAuthService creates an authentication service
func NewAuthService(
	userRepo repository.UserRepository,
	jwtManager *utils.JWTManager,
	redisClient *redis.Client,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		redis:      redisClient,
	}
}

// Register registers a user
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, errors.New("username already exists")
	}
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already registered")
	}

	passwordHash, err := pkgutils.HashPassword(req.Password)
	if err != nil {
		log.Errorf("hash password failed: %v", err)
		return nil, errors.New("system error")
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Role:         model.RoleCustomer,
		Status:       model.UserStatusNormal,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Errorf("create user failed: %v", err)
		return nil, errors.New("registration failed")
	}

	log.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")
	return user, nil
}

// Login logs in a user
func (s *authService) Login(ctx context.Context, req *LoginRequest, ip string) (*TokenResponse, error) {
	user, err := s.findUserByAccount(ctx, req.Account)
	if err != nil {
		return nil, errors.New("username or password incorrect")
	}

	if !user.IsActive() {
		return nil, errors.New("account disabled")
	}

	userID := int64(user.ID)

	if err := s.checkLoginAttempts(ctx, userID); err != nil {
		return nil, err
	}

	if !pkgutils.CheckPassword(req.Password, user.PasswordHash) {
		s.recordLoginFailure(ctx, userID)
		return nil, errors.New("username or password incorrect")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(userID, user.Username, user.Role)
	if err != nil {
		log.Errorf("generate access token failed: %v", err)
		return nil, errors.New("system error")
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(userID, user.Username)
	if err != nil {
		log.Errorf("generate refresh token failed: %v", err)
		return nil, errors.New("system error")
	}

	if s.redis != nil {
		tokenKey := fmt.Sprintf("auth:token:%d", userID)
		s.redis.Set(ctx, tokenKey, accessToken, tokenCacheExpiry)
		s.clearLoginFailures(ctx, userID)
	}

	log.WithFields(map[string]interface{}{
		"user_id":  userID,
		"username": user.Username,
		"ip":       ip,
	}).Info("User logged in")

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(tokenCacheExpiry.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// Logout logs out a user
func (s *authService) Logout(ctx context.Context, userID int64) error {
	if s.redis == nil {
		return nil
	}
	tokenKey := fmt.Sprintf("auth:token:%d", userID)
	return s.redis.Del(ctx, tokenKey).Err()
}

// ValidateToken validates a token
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	return s.jwtManager.ValidateToken(token)
}

// RefreshToken refreshes an access token
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, uint64(claims.UserID))
	if err != nil {
		return nil, errors.New("user not found")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(claims.UserID, user.Username, user.Role)
	if err != nil {
		return nil, errors.New("system error")
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(tokenCacheExpiry.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (s *authService) findUserByAccount(ctx context.Context, account string) (*model.User, error) {
	if pkgutils.IsValidEmail(account) {
		return s.userRepo.GetByEmail(ctx, account)
	}
	return s.userRepo.GetByUsername(ctx, account)
}

func (s *authService) checkLoginAttempts(ctx context.Context, userID int64) error {
	if s.redis == nil {
		return nil
	}
	failKey := fmt.Sprintf("auth:fail:%d", userID)
	count, err := s.redis.Get(ctx, failKey).Int()
	if err == nil && count >= maxLoginFailures {
		return errors.New("too many failed attempts, try again later")
	}
	return nil
}

func (s *authService) recordLoginFailure(ctx context.Context, userID int64) {
	if s.redis == nil {
		return
	}
	failKey := fmt.Sprintf("auth:fail:%d", userID)
	s.redis.Incr(ctx, failKey)
	s.redis.Expire(ctx, failKey, loginFailureExpiry)
}

func (s *authService) clearLoginFailures(ctx context.Context, userID int64) {
	failKey := fmt.Sprintf("auth:fail:%d", userID)
	s.redis.Del(ctx, failKey)
}
