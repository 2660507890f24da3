package postgres

import (
	"context"

	"relaybot/internal/domain"

	"github.com/google/uuid"
)

// TranscriptRepo implements repository.TranscriptRepository
type TranscriptRepo struct {
	db DBTX
}

// NewTranscriptRepo creates a new transcript repository
func NewTranscriptRepo(db DBTX) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

// Append saves a relayed message
func (r *TranscriptRepo) Append(ctx context.Context, entry *domain.TranscriptEntry) error {
	query := `
		INSERT INTO transcripts (id, pairing_key, sender_id, original_text, translated_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.PairingKey, entry.SenderID, entry.OriginalText, entry.TranslatedText, entry.CreatedAt,
	)
	return err
}

// ListByPairing returns up to limit most recent entries of a pairing, oldest first
func (r *TranscriptRepo) ListByPairing(ctx context.Context, pairingKey uuid.UUID, limit int) ([]domain.TranscriptEntry, error) {
	query := `
		SELECT id, pairing_key, sender_id, original_text, translated_text, created_at
		FROM transcripts
		WHERE pairing_key = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, pairingKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TranscriptEntry
	for rows.Next() {
		var e domain.TranscriptEntry
		if err := rows.Scan(&e.ID, &e.PairingKey, &e.SenderID, &e.OriginalText, &e.TranslatedText, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest-first from the query, callers read a conversation top to bottom
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
