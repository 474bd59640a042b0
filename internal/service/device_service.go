package service

import (
	"fmt"
	"time"

	"scout-sync-server/internal/domain"
	"scout-sync-server/internal/repository"
	"scout-sync-server/pkg/hash"
	"scout-sync-server/pkg/jwt"

	"github.com/google/uuid"
)

// DeviceService gates device registration behind the shared sync
// passphrase and issues one JWT per device for the protected API.
type DeviceService struct {
	repo           repository.DeviceRepository
	passphraseHash string
	jwtSecret      string
	jwtExpiration  time.Duration
}

func NewDeviceService(repo repository.DeviceRepository, passphrase, jwtSecret string, jwtExpiration time.Duration) (*DeviceService, error) {
	passphraseHash, err := hash.Hash(passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid sync passphrase: %w", err)
	}

	return &DeviceService{
		repo:           repo,
		passphraseHash: passphraseHash,
		jwtSecret:      jwtSecret,
		jwtExpiration:  jwtExpiration,
	}, nil
}

func (s *DeviceService) Register(req *domain.RegisterDeviceRequest) (*domain.RegisterDeviceResponse, error) {
	if err := hash.Compare(s.passphraseHash, req.Passphrase); err != nil {
		return nil, ErrInvalidPassphrase
	}

	now := time.Now()
	device := &domain.Device{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Role:       domain.PeerRole(req.Role),
		LastActive: now,
		CreatedAt:  now,
	}

	if err := s.repo.Create(device); err != nil {
		return nil, err
	}

	token, err := jwt.GenerateToken(device.ID, device.Name, string(device.Role), s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &domain.RegisterDeviceResponse{
		Device: device,
		Token:  token,
	}, nil
}

func (s *DeviceService) List() ([]*domain.Device, error) {
	return s.repo.List()
}

func (s *DeviceService) Touch(deviceID string) {
	if err := s.repo.UpdateLastActive(deviceID); err != nil {
		// Activity tracking is best-effort.
		return
	}
}
