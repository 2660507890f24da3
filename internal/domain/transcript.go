package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// pairingNamespace scopes pairing keys so they never collide with other name-based UUIDs
var pairingNamespace = uuid.MustParse("6f1c2a4e-8b0d-4c57-9a43-2d1e5b7f9c10")

// TranscriptEntry is one relayed message. Entries are append-only.
type TranscriptEntry struct {
	ID             uuid.UUID
	PairingKey     uuid.UUID
	SenderID       int64
	OriginalText   string
	TranslatedText string
	CreatedAt      time.Time
}

// PairingKeyFor derives a stable key for the pair, independent of argument order
func PairingKeyFor(a, b int64) uuid.UUID {
	if a > b {
		a, b = b, a
	}
	name := strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
	return uuid.NewSHA1(pairingNamespace, []byte(name))
}
