package service

import (
	"sort"
	"time"

	"scout-sync-server/internal/domain"
	"scout-sync-server/internal/repository"
	"scout-sync-server/pkg/identity"
)

// DefaultCorrectionSkew treats two corrections landing within this
// window as the same edit arriving twice. Device clocks at an event are
// never perfectly synced; widen or narrow via config, not here.
const DefaultCorrectionSkew = 1000 * time.Millisecond

type ClassifierService struct {
	repo repository.EntryRepository
	skew time.Duration
}

func NewClassifierService(repo repository.EntryRepository, skew time.Duration) *ClassifierService {
	if skew <= 0 {
		skew = DefaultCorrectionSkew
	}
	return &ClassifierService{
		repo: repo,
		skew: skew,
	}
}

// Classify partitions an incoming batch against the local store.
// Entries that are already present with identical content are discarded
// and appear in no bucket. The check order matters: a correction must
// never lose to an uncorrected capture, and near-simultaneous
// corrections must not spam conflict prompts.
func (s *ClassifierService) Classify(incoming []*domain.Entry) (*domain.ClassificationResult, error) {
	local, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Entry, len(local))
	byDetID := make(map[string]*domain.Entry, len(local))
	for _, e := range local {
		byID[e.ID] = e
		// Last-indexed wins on local duplicates; keeping the store free
		// of duplicate deterministic ids is the caller's job.
		byDetID[deterministicID(e)] = e
	}

	result := &domain.ClassificationResult{}

	for _, in := range incoming {
		if in == nil {
			continue
		}

		loc := byID[in.ID]
		if loc == nil {
			loc = byDetID[deterministicID(in)]
		}

		if loc == nil {
			result.AutoImport = append(result.AutoImport, in)
			continue
		}

		inFP := identity.Fingerprint(in.Data)
		locFP := identity.Fingerprint(loc.Data)
		sameContent := inFP == locFP

		switch {
		case !in.IsCorrected && !loc.IsCorrected && sameContent:
			// Already synced.

		case in.IsCorrected && loc.IsCorrected && sameContent && s.withinSkew(in, loc):
			// Same correction arriving twice.

		case !in.IsCorrected && !loc.IsCorrected:
			// Two independent captures disagree; no authority to pick
			// one, so defer to a human with a single bulk decision.
			result.BatchReview = append(result.BatchReview, in)

		case in.IsCorrected && !loc.IsCorrected:
			// A correction always outranks an uncorrected capture.
			result.AutoReplace = append(result.AutoReplace, domain.ConflictPair{
				Incoming: in,
				Local:    loc,
			})

		case !in.IsCorrected && loc.IsCorrected:
			// Never let an uncorrected capture clobber a correction.
			result.Conflicts = append(result.Conflicts, domain.ConflictInfo{
				Incoming:        in,
				Local:           loc,
				ConflictType:    domain.ConflictCorrectedVsUncorrected,
				IsNewerIncoming: false,
				ChangedFields:   diffChangedFields(loc, in),
			})

		default: // both corrected
			if s.withinSkew(in, loc) {
				result.AutoReplace = append(result.AutoReplace, domain.ConflictPair{
					Incoming: in,
					Local:    loc,
				})
				continue
			}
			result.Conflicts = append(result.Conflicts, domain.ConflictInfo{
				Incoming:        in,
				Local:           loc,
				ConflictType:    domain.ConflictCorrectedVsCorrected,
				IsNewerIncoming: in.CorrectionTime() > loc.CorrectionTime(),
				ChangedFields:   diffChangedFields(loc, in),
			})
		}
	}

	return result, nil
}

func (s *ClassifierService) withinSkew(a, b *domain.Entry) bool {
	delta := a.CorrectionTime() - b.CorrectionTime()
	if delta < 0 {
		delta = -delta
	}
	return delta <= s.skew.Milliseconds()
}

func deterministicID(e *domain.Entry) string {
	return identity.DeterministicID(e.EventKey, e.MatchKey, e.TeamNumber, e.Alliance)
}

// diffChangedFields flattens both payloads and reports leaves that
// differ. A field absent or nil on either side is not a conflict.
func diffChangedFields(local, incoming *domain.Entry) []domain.FieldChange {
	localFlat := identity.Flatten(local.Data)
	incomingFlat := identity.Flatten(incoming.Data)

	keys := make(map[string]struct{}, len(localFlat)+len(incomingFlat))
	for k := range localFlat {
		keys[k] = struct{}{}
	}
	for k := range incomingFlat {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []domain.FieldChange
	for _, k := range sorted {
		lv, lok := localFlat[k]
		iv, iok := incomingFlat[k]
		if !lok || !iok || lv == nil || iv == nil {
			continue
		}
		if !identity.Equal(lv, iv) {
			changes = append(changes, domain.FieldChange{
				Field:         k,
				LocalValue:    lv,
				IncomingValue: iv,
			})
		}
	}

	return changes
}
