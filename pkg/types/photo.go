package types

import (
	"fmt"
	"time"
)

// MaxPhotoSize is the per-photo byte cap enforced before any row is written.
const MaxPhotoSize = 5 * 1024 * 1024

// Photo is one image attached to a report. Data is resolved from the blob
// store on read; StorageKey is where the bytes actually live.
type Photo struct {
	ID          int64     `db:"id" json:"id"`
	ReportID    int64     `db:"report_id" json:"report_id"`
	StorageKey  string    `db:"storage_key" json:"-"`
	PhotoName   string    `db:"photo_name" json:"photo_name"`
	PhotoType   string    `db:"photo_type" json:"photo_type"`
	PhotoSize   int64     `db:"photo_size" json:"photo_size"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	Data []byte `db:"-" json:"data,omitempty"`
}

// PhotoUpload is the inbound photo descriptor of a save call.
type PhotoUpload struct {
	Data        []byte `json:"data"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	Description string `json:"description"`
}

// DeclaredSize returns the declared byte size, falling back to the actual
// payload length when the client did not declare one.
func (p *PhotoUpload) DeclaredSize() int64 {
	if p.Size > 0 {
		return p.Size
	}
	return int64(len(p.Data))
}

func (p *PhotoUpload) validate(position int) []string {
	var violations []string

	if len(p.Data) == 0 {
		violations = append(violations, fmt.Sprintf("Photo #%d : données manquantes", position))
	}
	if p.Name == "" {
		violations = append(violations, fmt.Sprintf("Photo #%d : nom manquant", position))
	}
	if p.DeclaredSize() > MaxPhotoSize {
		violations = append(violations, fmt.Sprintf("Photo trop volumineuse : %s (max 5MB)", p.Name))
	}

	return violations
}
