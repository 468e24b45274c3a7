package models

import "time"

// Parcel is one locally persisted tax-parcel record. The payload is an
// opaque key/value map produced by the scoring pipeline; the sync engine
// moves it around without interpreting individual fields.
type Parcel struct {
	UpdatedAt time.Time      `json:"updated_at"` // wall-clock time of the winning write
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload"`
	ID        string         `json:"id"`
	UpdatedBy string         `json:"updated_by"` // device that produced the current version
	Deleted   bool           `json:"deleted"`    // soft delete (tombstone)

	// PendingVerification marks a record awaiting confirmation from a full
	// sync pass. Records the server no longer returns stay marked; they are
	// retained, never deleted, unless explicitly tombstoned.
	PendingVerification bool `json:"pending_verification"`
}

// NewerThan reports whether p should win a last-write-wins comparison
// against other. Ties go to other: the server is the tie-break authority,
// so a local record never beats a remote one with an equal timestamp.
func (p *Parcel) NewerThan(other *Parcel) bool {
	return p.UpdatedAt.After(other.UpdatedAt)
}

// Clone returns a deep copy of the parcel.
func (p *Parcel) Clone() *Parcel {
	payload := make(map[string]any, len(p.Payload))
	for k, v := range p.Payload {
		payload[k] = v
	}
	return &Parcel{
		ID:                  p.ID,
		Payload:             payload,
		UpdatedAt:           p.UpdatedAt,
		CreatedAt:           p.CreatedAt,
		UpdatedBy:           p.UpdatedBy,
		Deleted:             p.Deleted,
		PendingVerification: p.PendingVerification,
	}
}
