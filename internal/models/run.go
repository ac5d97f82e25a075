package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SyncRun is one reconciliation pass. Created at pass start, finalized at
// pass end or on fatal failure.
type SyncRun struct {
	ID                string     `json:"id" gorm:"type:uuid;primary_key"`
	Status            RunStatus  `json:"status" gorm:"not null"`
	ProductsProcessed int        `json:"products_processed" gorm:"default:0"`
	VariantsProcessed int        `json:"variants_processed" gorm:"default:0"`
	ProductsSkipped   int        `json:"products_skipped" gorm:"default:0"`
	ErrorsCount       int        `json:"errors_count" gorm:"default:0"`
	DurationSeconds   int        `json:"duration_seconds"`
	LastSyncTime      *time.Time `json:"last_sync_time"`
	CreatedAt         time.Time  `json:"created_at"`

	Errors []SyncEntityError `json:"errors,omitempty" gorm:"foreignKey:SyncRunID"`
}

// SyncEntityError is an itemized per-entity failure recorded against a run.
// A failed entity is never silently dropped.
type SyncEntityError struct {
	ID              string    `json:"id" gorm:"type:uuid;primary_key"`
	SyncRunID       string    `json:"sync_run_id" gorm:"type:uuid;not null;index"`
	SourceProductID string    `json:"source_product_id" gorm:"index"`
	ErrorType       string    `json:"error_type" gorm:"not null"`
	ErrorMessage    string    `json:"error_message" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (e *SyncEntityError) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
