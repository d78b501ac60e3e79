package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// --- Interface ---

type UserService interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
}

type userService struct {
	users     repository.UserRepository
	jwtSecret []byte
}

func NewUserService(users repository.UserRepository, jwtSecret []byte) UserService {
	return &userService{users: users, jwtSecret: jwtSecret}
}

// --- Implementation ---

func (s *userService) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	if user == nil {
		return LoginResponse{}, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return LoginResponse{}, fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return LoginResponse{
		AccessToken: signed,
		Username:    user.Username,
		Role:        user.Role,
	}, nil
}

// HashPassword is used by seeding and user provisioning.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
