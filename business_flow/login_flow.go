package businessflow

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/hermes-crm/hermes/app/dto"
	"github.com/hermes-crm/hermes/app/services"
	"github.com/hermes-crm/hermes/config"
)

// LoginFlow defines the interface for operator authentication
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

// LoginFlowImpl implements operator authentication against the configured
// admin account. There is no operator table: the review UI is a single
// trusted account defined by configuration.
type LoginFlowImpl struct {
	adminConfig  config.Admin
	tokenService services.TokenService
	logger       *log.Logger
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(adminConfig config.Admin, tokenService services.TokenService, logger *log.Logger) LoginFlow {
	return &LoginFlowImpl{
		adminConfig:  adminConfig,
		tokenService: tokenService,
		logger:       logger,
	}
}

// Login verifies credentials and issues an access token
func (s *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if s.adminConfig.Email == "" || s.adminConfig.PasswordHash == "" {
		return nil, NewBusinessError("ADMIN_NOT_CONFIGURED", "Operator account is not configured", ErrAdminNotConfigured)
	}

	if req.Email != s.adminConfig.Email {
		// Run the hash comparison anyway so a wrong email costs the
		// same time as a wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte(s.adminConfig.PasswordHash), []byte(req.Password))
		return nil, NewBusinessError("INCORRECT_CREDENTIALS", "Email or password is incorrect", ErrIncorrectCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.adminConfig.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError("INCORRECT_CREDENTIALS", "Email or password is incorrect", ErrIncorrectCredentials)
	}

	token, expiresIn, err := s.tokenService.GenerateToken(req.Email)
	if err != nil {
		s.logger.Printf("login: token generation failed: %v", err)
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate access token", err)
	}

	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: expiresIn,
		TokenType: "Bearer",
	}, nil
}
