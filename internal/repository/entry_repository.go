package repository

import (
	"context"
	"fmt"

	"scout-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// EntryRepository is the persistent record store. Keyed by primary id;
// the classifier layers its deterministic-id index on top of List.
type EntryRepository interface {
	Put(entry *domain.Entry) error
	FindByID(id string) (*domain.Entry, error)
	List() ([]*domain.Entry, error)
	Delete(id string) error
	ReplaceAll(entries []*domain.Entry) error
}

type entryRepository struct {
	client *kivik.Client
	dbName string
}

func NewEntryRepository(client *kivik.Client, dbName string) EntryRepository {
	return &entryRepository{
		client: client,
		dbName: dbName,
	}
}

// Put upserts: CouchDB requires the current _rev on rewrite, so an
// existing doc is fetched and overlaid rather than blindly written.
func (r *entryRepository) Put(entry *domain.Entry) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("entry:%s", entry.ID)

	var existingDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existingDoc); err == nil {
		doc := entryToDoc(entry)
		doc["_id"] = existingDoc["_id"]
		doc["_rev"] = existingDoc["_rev"]
		if _, err := db.Put(context.Background(), docID, doc); err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		return nil
	}

	if _, err := db.Put(context.Background(), docID, entry); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	return nil
}

func (r *entryRepository) FindByID(id string) (*domain.Entry, error) {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("entry:%s", id)
	row := db.Get(context.Background(), docID)

	var entry domain.Entry
	if err := row.ScanDoc(&entry); err != nil {
		return nil, fmt.Errorf("failed to find entry: %w", err)
	}

	return &entry, nil
}

func (r *entryRepository) List() ([]*domain.Entry, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"eventKey":  map[string]interface{}{"$exists": true},
			"matchKey":  map[string]interface{}{"$exists": true},
			"timestamp": map[string]interface{}{"$exists": true},
		},
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var entry domain.Entry
		if err := rows.ScanDoc(&entry); err != nil {
			continue // skip malformed docs
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

func (r *entryRepository) Delete(id string) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("entry:%s", id)

	var existingDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existingDoc); err != nil {
		return fmt.Errorf("failed to fetch entry for delete: %w", err)
	}

	rev, _ := existingDoc["_rev"].(string)
	if _, err := db.Delete(context.Background(), docID, rev); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	return nil
}

// ReplaceAll implements the overwrite merge mode: drop everything, then
// bulk insert. Not atomic; the orchestrator serializes access.
func (r *entryRepository) ReplaceAll(entries []*domain.Entry) error {
	existing, err := r.List()
	if err != nil {
		return err
	}

	for _, e := range existing {
		if err := r.Delete(e.ID); err != nil {
			return err
		}
	}

	for _, e := range entries {
		if err := r.Put(e); err != nil {
			return err
		}
	}

	return nil
}

func entryToDoc(entry *domain.Entry) map[string]interface{} {
	return map[string]interface{}{
		"id":              entry.ID,
		"eventKey":        entry.EventKey,
		"matchKey":        entry.MatchKey,
		"teamNumber":      entry.TeamNumber,
		"alliance":        entry.Alliance,
		"data":            entry.Data,
		"timestamp":       entry.Timestamp,
		"isCorrected":     entry.IsCorrected,
		"correctionCount": entry.CorrectionCount,
		"lastCorrectedAt": entry.LastCorrectedAt,
		"lastCorrectedBy": entry.LastCorrectedBy,
		"correctionNotes": entry.CorrectionNotes,
	}
}
