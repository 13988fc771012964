package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jingnanl/infant-guard/internal/datastore"
)

const maxBatchSize = 10000

// Migrator copies analysis records between two open databases.
type Migrator struct {
	source    *gorm.DB
	target    *gorm.DB
	batchSize int
}

// Stats summarizes one export run.
type Stats struct {
	Read     int64
	Written  int64
	Skipped  int64
	Batches  int
	Duration time.Duration
}

// Print writes a short summary to w.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Export Summary ===")
	fmt.Fprintf(w, "%-10s %d\n", "Read", s.Read)
	fmt.Fprintf(w, "%-10s %d\n", "Written", s.Written)
	fmt.Fprintf(w, "%-10s %d\n", "Skipped", s.Skipped)
	fmt.Fprintf(w, "%-10s %d\n", "Batches", s.Batches)
	fmt.Fprintf(w, "%-10s %s\n", "Duration", s.Duration.Round(time.Millisecond))
}

// NewMigrator validates the batch size and returns a Migrator.
func NewMigrator(source, target *gorm.DB, batchSize int) (*Migrator, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("source and target databases are required")
	}
	if batchSize < 1 || batchSize > maxBatchSize {
		return nil, fmt.Errorf("batch-size must be between 1 and %d", maxBatchSize)
	}
	return &Migrator{source: source, target: target, batchSize: batchSize}, nil
}

// Run copies every record in primary key order, which FindInBatches uses to
// page. Records whose ID already exists in the target are counted as skipped.
func (m *Migrator) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	var batch []datastore.BabyAnalysis
	res := m.source.WithContext(ctx).
		FindInBatches(&batch, m.batchSize, func(tx *gorm.DB, n int) error {
			written := m.target.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&batch)
			if written.Error != nil {
				return fmt.Errorf("batch %d: %w", n, written.Error)
			}
			stats.Batches++
			stats.Read += int64(len(batch))
			stats.Written += written.RowsAffected
			stats.Skipped += int64(len(batch)) - written.RowsAffected
			return nil
		})
	stats.Duration = time.Since(start)
	if res.Error != nil {
		return stats, res.Error
	}
	return stats, nil
}

// Verify checks that every source record is present in the target. The target
// may hold more rows when it already had its own history.
func (m *Migrator) Verify(ctx context.Context) (source, target int64, err error) {
	if err := m.source.WithContext(ctx).Model(&datastore.BabyAnalysis{}).Count(&source).Error; err != nil {
		return 0, 0, fmt.Errorf("count source: %w", err)
	}
	if err := m.target.WithContext(ctx).Model(&datastore.BabyAnalysis{}).Count(&target).Error; err != nil {
		return 0, 0, fmt.Errorf("count target: %w", err)
	}
	if target < source {
		return source, target, fmt.Errorf("target has %d records, source has %d", target, source)
	}
	return source, target, nil
}
