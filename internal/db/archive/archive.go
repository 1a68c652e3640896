// Package archive keeps a relational copy of terminal jobs swept out of
// the record store, so completed and failed work stays queryable after
// its Redis records expire.
package archive

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// ArchivedJob is the relational row for a swept terminal job
type ArchivedJob struct {
	ID             uint             `gorm:"primarykey"`
	JobID          string           `gorm:"uniqueIndex;not null"`
	SourcePath     string           `gorm:"type:text"`
	SourceLang     string           `gorm:"not null"`
	TargetLang     string           `gorm:"not null"`
	Tier           models.Tier      `gorm:"not null"`
	Status         models.JobStatus `gorm:"not null;index"`
	Progress       float64          `gorm:"not null"`
	TotalPages     int              `gorm:"not null"`
	ProcessedPages int              `gorm:"not null"`
	FinalOutput    *string          `gorm:"type:text"`
	Error          *string          `gorm:"type:text"`
	CreatedAt      time.Time        `gorm:"index"`
	UpdatedAt      time.Time
	ArchivedAt     time.Time `gorm:"not null;index"`
}

// Archive persists ArchivedJob rows
type Archive struct {
	db *gorm.DB
}

// Open connects to Postgres with the given DSN and runs migrations
func Open(dsn string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to archive database: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and runs migrations
func New(db *gorm.DB) (*Archive, error) {
	if err := db.AutoMigrate(&ArchivedJob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Save stores a terminal job, rejecting non-terminal ones
func (a *Archive) Save(ctx context.Context, job *models.Job) error {
	if !job.Status.IsTerminal() {
		return fmt.Errorf("refusing to archive non-terminal job %s (%s)", job.ID, job.Status)
	}
	row := ArchivedJob{
		JobID:          job.ID,
		SourcePath:     job.SourcePath,
		SourceLang:     job.SourceLang,
		TargetLang:     job.TargetLang,
		Tier:           job.Tier,
		Status:         job.Status,
		Progress:       job.Progress,
		TotalPages:     job.TotalPages,
		ProcessedPages: job.ProcessedPages,
		FinalOutput:    job.FinalOutput,
		Error:          job.Error,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		ArchivedAt:     time.Now().UTC(),
	}
	return a.db.WithContext(ctx).Create(&row).Error
}

// GetByJobID loads an archived job by its pipeline id
func (a *Archive) GetByJobID(ctx context.Context, jobID string) (*ArchivedJob, error) {
	var row ArchivedJob
	if err := a.db.WithContext(ctx).Where(&ArchivedJob{JobID: jobID}).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns archived jobs ordered by archival time descending
func (a *Archive) List(ctx context.Context, limit int) ([]ArchivedJob, error) {
	var rows []ArchivedJob
	query := a.db.WithContext(ctx).Order("archived_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}
