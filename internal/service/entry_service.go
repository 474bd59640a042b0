package service

import (
	"time"

	"scout-sync-server/internal/domain"
	"scout-sync-server/internal/repository"
)

const exportVersion = "2.0"

type EntryService struct {
	repo repository.EntryRepository
}

func NewEntryService(repo repository.EntryRepository) *EntryService {
	return &EntryService{repo: repo}
}

func (s *EntryService) List() ([]*domain.Entry, error) {
	return s.repo.List()
}

// Export wraps the store contents in the transfer envelope understood
// by every import path (file, QR, peer). The version string is
// advisory; importers reject malformed shape, not unknown versions.
func (s *EntryService) Export() (*domain.ExportPayload, error) {
	entries, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []*domain.Entry{}
	}

	return &domain.ExportPayload{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    exportVersion,
		Entries:    entries,
	}, nil
}
