package domain

import "time"

// Audit carries the generated identity and bookkeeping columns shared by every
// persisted entity.
type Audit struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
