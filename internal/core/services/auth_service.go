package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	"github.com/pm-hub/pmhub_backend/internal/core/domain"
	portsrepo "github.com/pm-hub/pmhub_backend/internal/core/ports/repositories"
	portssvc "github.com/pm-hub/pmhub_backend/internal/core/ports/services"
	"github.com/pm-hub/pmhub_backend/internal/platform/config"
	"github.com/pm-hub/pmhub_backend/internal/utils"
)

// authServiceImpl authenticates team members against stored bcrypt hashes
// and issues HMAC-signed access tokens.
type authServiceImpl struct {
	BaseService
	cfg     *config.Config
	members portsrepo.TeamMemberReader
}

// NewAuthService creates the authentication service.
func NewAuthService(cfg *config.Config, members portsrepo.TeamMemberReader) portssvc.AuthSvc {
	return &authServiceImpl{
		cfg:     cfg,
		members: members,
	}
}

var _ portssvc.AuthSvc = (*authServiceImpl)(nil)

func (s *authServiceImpl) AuthenticateUser(ctx context.Context, email, password string) (*domain.TeamMember, error) {
	member, err := s.members.FindTeamMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Same answer as a bad password so probes learn nothing.
			return nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrForbidden)
		}
		return nil, err
	}
	if !member.IsActive || !utils.CheckPasswordHash(password, member.PasswordHash) {
		return nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrForbidden)
	}
	return member, nil
}

func (s *authServiceImpl) GenerateToken(ctx context.Context, member *domain.TeamMember) (string, error) {
	token, err := utils.GenerateJWT(
		member.UserID, member.Email, string(member.Role), member.DepartmentID,
		s.cfg.JWTSecret, s.cfg.JWTExpiryDuration, s.cfg.JWTIssuer,
	)
	if err != nil {
		s.LogError(ctx, err, "Failed to sign access token")
		return "", err
	}
	return token, nil
}

func (s *authServiceImpl) ValidateToken(ctx context.Context, token string) (*domain.Actor, error) {
	claims, err := utils.ParseAndValidateJWT(token, s.cfg.JWTSecret)
	if err != nil {
		// Keep the jwt error in the chain so the middleware can tell an
		// expired token from a forged one.
		return nil, fmt.Errorf("invalid token: %w: %w", apperrors.ErrForbidden, err)
	}
	return &domain.Actor{
		UserID:       claims.Subject,
		Email:        claims.Email,
		Role:         domain.Role(claims.Role),
		DepartmentID: claims.DepartmentID,
	}, nil
}
