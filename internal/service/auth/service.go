package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	"github.com/havenapp/mood-engine/pkg/auth"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
	"github.com/havenapp/mood-engine/pkg/security"
)

// Service handles profile registration and token exchange. A profile
// authenticates with its access key and receives a bearer token for the
// rest of the API.
type Service struct {
	profileRepo repository.ProfileRepository
	hasher      security.KeyHasher
	jwt         auth.JWTService
}

func NewService(profileRepo repository.ProfileRepository, hasher security.KeyHasher, jwt auth.JWTService) *Service {
	return &Service{
		profileRepo: profileRepo,
		hasher:      hasher,
		jwt:         jwt,
	}
}

type RegisterRequest struct {
	Name           string
	AccessKey      string
	ContactEmail   string
	EmergencyEmail string
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*model.Profile, error) {
	hash, err := s.hasher.Hash(req.AccessKey)
	if err != nil {
		return nil, apperrors.BadRequest("invalid access key", err)
	}

	profile := &model.Profile{
		ID:             uuid.New(),
		Name:           req.Name,
		AccessKeyHash:  hash,
		ContactEmail:   req.ContactEmail,
		EmergencyEmail: req.EmergencyEmail,
		CreatedAt:      time.Now(),
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

func (s *Service) Login(ctx context.Context, name, accessKey string) (string, *model.Profile, error) {
	profile, err := s.profileRepo.GetByName(ctx, name)
	if err != nil {
		return "", nil, apperrors.Unauthorized(err)
	}

	if err := s.hasher.Compare(profile.AccessKeyHash, accessKey); err != nil {
		return "", nil, apperrors.Unauthorized(err)
	}

	token, err := s.jwt.GenerateToken(profile.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, profile, nil
}
