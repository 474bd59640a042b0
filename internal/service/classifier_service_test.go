package service

import (
	"errors"
	"testing"

	"scout-sync-server/internal/domain"
)

type mockEntryRepo struct {
	entries   []*domain.Entry
	failPut   bool
	failList  bool
	deleted   []string
	putCalled []string
}

func newMockEntryRepo(entries ...*domain.Entry) *mockEntryRepo {
	return &mockEntryRepo{entries: entries}
}

func (m *mockEntryRepo) Put(entry *domain.Entry) error {
	if m.failPut {
		return errors.New("store write failed")
	}
	m.putCalled = append(m.putCalled, entry.ID)
	for i, e := range m.entries {
		if e.ID == entry.ID {
			m.entries[i] = entry
			return nil
		}
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockEntryRepo) FindByID(id string) (*domain.Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.New("entry not found")
}

func (m *mockEntryRepo) List() ([]*domain.Entry, error) {
	if m.failList {
		return nil, errors.New("store read failed")
	}
	out := make([]*domain.Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *mockEntryRepo) Delete(id string) error {
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			m.deleted = append(m.deleted, id)
			return nil
		}
	}
	return errors.New("entry not found")
}

func (m *mockEntryRepo) ReplaceAll(entries []*domain.Entry) error {
	m.entries = make([]*domain.Entry, len(entries))
	copy(m.entries, entries)
	return nil
}

func (m *mockEntryRepo) get(id string) *domain.Entry {
	for _, e := range m.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func entry(id string, team int, corrected bool, correctedAt int64, data map[string]interface{}) *domain.Entry {
	e := &domain.Entry{
		ID:          id,
		EventKey:    "2025mrcmp",
		MatchKey:    "qm1",
		TeamNumber:  team,
		Alliance:    "red",
		Data:        data,
		Timestamp:   500,
		IsCorrected: corrected,
	}
	if corrected {
		e.LastCorrectedAt = correctedAt
		e.CorrectionCount = 1
	}
	return e
}

func TestClassify_NewRecordAutoImports(t *testing.T) {
	repo := newMockEntryRepo()
	classifier := NewClassifierService(repo, 0)

	result, err := classifier.Classify([]*domain.Entry{
		entry("a", 100, false, 0, map[string]interface{}{"score": 10}),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.AutoImport) != 1 {
		t.Errorf("expected 1 auto-import, got %d", len(result.AutoImport))
	}
	if len(result.AutoReplace)+len(result.BatchReview)+len(result.Conflicts) != 0 {
		t.Error("expected no other buckets for a new record")
	}
}

func TestClassify_MatchesByDeterministicID(t *testing.T) {
	local := entry("local-id", 100, false, 0, map[string]interface{}{"score": 10})
	repo := newMockEntryRepo(local)
	classifier := NewClassifierService(repo, 0)

	// Same logical record captured on another device: different primary
	// id, different content.
	incoming := entry("other-id", 100, false, 0, map[string]interface{}{"score": 12})

	result, err := classifier.Classify([]*domain.Entry{incoming})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.AutoImport) != 0 {
		t.Error("cross-device duplicate must not auto-import")
	}
	if len(result.BatchReview) != 1 {
		t.Errorf("expected 1 batch-review entry, got %d", len(result.BatchReview))
	}
}

func TestClassify_IdenticalUncorrectedDiscarded(t *testing.T) {
	data := map[string]interface{}{"score": 10, "auto": map[string]interface{}{"coral": 2}}
	local := entry("a", 100, false, 0, data)
	repo := newMockEntryRepo(local)
	classifier := NewClassifierService(repo, 0)

	result, err := classifier.Classify([]*domain.Entry{
		entry("a", 100, false, 0, map[string]interface{}{"auto": map[string]interface{}{"coral": 2}, "score": 10}),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	total := len(result.AutoImport) + len(result.AutoReplace) + len(result.BatchReview) + len(result.Conflicts)
	if total != 0 {
		t.Errorf("already-synced record should be discarded silently, got %d bucketed", total)
	}
}

func TestClassify_SameCorrectionWithinSkewDiscarded(t *testing.T) {
	data := map[string]interface{}{"score": 10}
	local := entry("a", 100, true, 1000, data)
	repo := newMockEntryRepo(local)
	classifier := NewClassifierService(repo, 0)

	incoming := entry("a", 100, true, 1500, map[string]interface{}{"score": 10})

	result, err := classifier.Classify([]*domain.Entry{incoming})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	total := len(result.AutoImport) + len(result.AutoReplace) + len(result.BatchReview) + len(result.Conflicts)
	if total != 0 {
		t.Errorf("same correction within skew should be a no-op, got %d bucketed", total)
	}
}

func TestClassify_CorrectionOutranksUncorrected(t *testing.T) {
	local := entry("a", 100, false, 0, map[string]interface{}{"score": 10})
	repo := newMockEntryRepo(local)
	classifier := NewClassifierService(repo, 0)

	incoming := entry("a", 100, true, 2000, map[string]interface{}{"score": 12})

	result, err := classifier.Classify([]*domain.Entry{incoming})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.AutoReplace) != 1 {
		t.Fatalf("expected 1 auto-replace, got %d", len(result.AutoReplace))
	}
	if result.AutoReplace[0].Local.ID != "a" {
		t.Errorf("auto-replace should carry the local entry, got %s", result.AutoReplace[0].Local.ID)
	}
}

func TestClassify_UncorrectedNeverClobbersCorrection(t *testing.T) {
	local := entry("e::qm1::100::red", 100, true, 1000, map[string]interface{}{"score": 10})
	repo := newMockEntryRepo(local)
	classifier := NewClassifierService(repo, 0)

	incoming := entry("different-id", 100, false, 0, map[string]interface{}{"score": 12})

	result, err := classifier.Classify([]*domain.Entry{incoming})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.AutoImport) != 0 || len(result.AutoReplace) != 0 {
		t.Fatal("corrected-vs-uncorrected must never auto-apply")
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(result.Conflicts))
	}

	c := result.Conflicts[0]
	if c.ConflictType != domain.ConflictCorrectedVsUncorrected {
		t.Errorf("expected corrected-vs-uncorrected, got %s", c.ConflictType)
	}
	if c.IsNewerIncoming {
		t.Error("IsNewerIncoming must be false for corrected-vs-uncorrected")
	}
	if len(c.ChangedFields) != 1 {
		t.Fatalf("expected 1 changed field, got %d", len(c.ChangedFields))
	}
	if c.ChangedFields[0].Field != "score" {
		t.Errorf("expected changed field 'score', got %s", c.ChangedFields[0].Field)
	}
	if c.ChangedFields[0].LocalValue != 10 || c.ChangedFields[0].IncomingValue != 12 {
		t.Errorf("unexpected change values: %v -> %v", c.ChangedFields[0].LocalValue, c.ChangedFields[0].IncomingValue)
	}
}

func TestClassify_NearSimultaneousCorrectionsPreferIncoming(t *testing.T) {
	local := entry("a", 100, true, 1000, map[string]interface{}{"score": 10})
	repo := newMockEntryRepo(local)
	classifier := NewClassifierService(repo, 0)

	incoming := entry("a", 100, true, 1800, map[string]interface{}{"score": 12})

	result, err := classifier.Classify([]*domain.Entry{incoming})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.AutoReplace) != 1 {
		t.Fatalf("corrections within skew with different content should auto-replace, got %d", len(result.AutoReplace))
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %d", len(result.Conflicts))
	}
}

func TestClassify_DivergentCorrectionsConflict(t *testing.T) {
	local := entry("a", 100, true, 1000, map[string]interface{}{"score": 10})
	repo := newMockEntryRepo(local)
	classifier := NewClassifierService(repo, 0)

	incoming := entry("a", 100, true, 60000, map[string]interface{}{"score": 12})

	result, err := classifier.Classify([]*domain.Entry{incoming})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(result.Conflicts))
	}
	c := result.Conflicts[0]
	if c.ConflictType != domain.ConflictCorrectedVsCorrected {
		t.Errorf("expected corrected-vs-corrected, got %s", c.ConflictType)
	}
	if !c.IsNewerIncoming {
		t.Error("incoming correction is newer, IsNewerIncoming should be true")
	}
}

func TestClassify_ChangedFieldsSkipAbsentValues(t *testing.T) {
	local := entry("a", 100, true, 1000, map[string]interface{}{"score": 10, "notes": "fast"})
	repo := newMockEntryRepo(local)
	classifier := NewClassifierService(repo, 0)

	// "notes" absent on incoming, "climb" absent locally, "fouls" nil:
	// none of those count as changes.
	incoming := entry("a", 100, false, 0, map[string]interface{}{"score": 12, "climb": "deep", "fouls": nil})

	result, err := classifier.Classify([]*domain.Entry{incoming})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(result.Conflicts))
	}
	changed := result.Conflicts[0].ChangedFields
	if len(changed) != 1 || changed[0].Field != "score" {
		t.Errorf("expected only 'score' to register as changed, got %v", changed)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	repo := newMockEntryRepo(
		entry("existing", 200, false, 0, map[string]interface{}{"score": 5}),
	)
	classifier := NewClassifierService(repo, 0)

	batch := []*domain.Entry{
		entry("new-1", 100, false, 0, map[string]interface{}{"score": 10}),
		entry("existing", 200, true, 5000, map[string]interface{}{"score": 7}),
	}

	first, err := classifier.Classify(batch)
	if err != nil {
		t.Fatalf("first pass error: %v", err)
	}
	if len(first.AutoImport) != 1 || len(first.AutoReplace) != 1 {
		t.Fatalf("unexpected first pass: %+v", first)
	}

	// Absorb the auto buckets the way the orchestrator would.
	for _, e := range first.AutoImport {
		repo.Put(e)
	}
	for _, pair := range first.AutoReplace {
		repo.Delete(pair.Local.ID)
		repo.Put(pair.Incoming)
	}

	second, err := classifier.Classify(batch)
	if err != nil {
		t.Fatalf("second pass error: %v", err)
	}
	total := len(second.AutoImport) + len(second.AutoReplace) + len(second.Conflicts)
	if total != 0 {
		t.Errorf("second pass should be all no-ops, got %d bucketed", total)
	}
}

func TestClassify_NilEntriesIgnored(t *testing.T) {
	repo := newMockEntryRepo()
	classifier := NewClassifierService(repo, 0)

	result, err := classifier.Classify([]*domain.Entry{nil, entry("a", 1, false, 0, nil)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.AutoImport) != 1 {
		t.Errorf("expected the one real entry to import, got %d", len(result.AutoImport))
	}
}

func TestClassify_StoreReadFailure(t *testing.T) {
	repo := newMockEntryRepo()
	repo.failList = true
	classifier := NewClassifierService(repo, 0)

	if _, err := classifier.Classify([]*domain.Entry{entry("a", 1, false, 0, nil)}); err == nil {
		t.Error("expected store read failure to propagate")
	}
}
