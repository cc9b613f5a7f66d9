package db

import (
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/lifecycle"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PhaseRecord struct {
	gorm.Model
	RunID     string `gorm:"index"`
	Phase     string
	ElapsedMs int64
	Error     string
}

// PhaseCompleted stores one row for the phase. Journal failures are logged
// and never affect the lifecycle.
func (d *Database) PhaseCompleted(phase lifecycle.Phase, elapsed time.Duration, err error) {
	record := PhaseRecord{
		RunID:     d.RunID,
		Phase:     string(phase),
		ElapsedMs: elapsed.Milliseconds(),
	}
	if err != nil {
		record.Error = err.Error()
	}
	if result := d.Db.Create(&record); result.Error != nil {
		d.logger.Warn("Unable to journal lifecycle phase", zap.String("phase", string(phase)), zap.Error(result.Error))
	}
}

// GetPhasesByRun returns the phases journaled for runID in the order they ran.
func GetPhasesByRun(runID string, db *Database) ([]PhaseRecord, error) {
	var records []PhaseRecord
	result := db.Db.Where(&PhaseRecord{RunID: runID}).Order("id").Find(&records)
	return records, result.Error
}
