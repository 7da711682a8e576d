package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents one archived session run.
type Run struct {
	ID          uuid.UUID
	SessionID   string
	TotalEssays int
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
}
