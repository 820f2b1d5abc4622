package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"sirep/internal/errs"
	"sirep/internal/infrastructure/persistence/sqlite/model"
	"sirep/internal/ports"
)

type JobRunRepository struct {
	db *gorm.DB
}

func NewJobRunRepository(db *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

var _ ports.JobRunRepository = (*JobRunRepository)(nil)

func (r *JobRunRepository) Start(ctx context.Context, input ports.JobRunStart) (ports.JobRun, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.JobRun{}, err
	}
	if strings.TrimSpace(input.JobName) == "" {
		return ports.JobRun{}, errors.New("job name is required")
	}

	info, err := encodeJSONColumn(normalizeInfo(input.Info), "info")
	if err != nil {
		return ports.JobRun{}, err
	}

	row := model.JobRun{
		JobName:   input.JobName,
		Step:      input.Step,
		InputHash: input.InputHash,
		Info:      info,
		Status:    ports.JobRunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.JobRun{}, errs.Wrap(err, "insert job run")
	}
	return mapJobRun(row)
}

func (r *JobRunRepository) Finish(ctx context.Context, id uint64, status string, infoUpdate map[string]any) (ports.JobRun, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.JobRun{}, err
	}

	var row model.JobRun
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.JobRun{}, ports.ErrJobRunNotFound
		}
		return ports.JobRun{}, errs.Wrap(err, "query job run")
	}

	info := map[string]any{}
	if err := decodeJSONColumn(row.Info, &info, "info"); err != nil {
		return ports.JobRun{}, err
	}
	for key, value := range infoUpdate {
		info[key] = value
	}
	encoded, err := encodeJSONColumn(info, "info")
	if err != nil {
		return ports.JobRun{}, err
	}

	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		status = ports.JobRunFinished
	}
	row.Status = status
	row.Info = encoded
	if row.FinishedAt == nil {
		now := time.Now().UTC()
		row.FinishedAt = &now
	}

	if err := db.Save(&row).Error; err != nil {
		return ports.JobRun{}, errs.Wrap(err, "update job run")
	}
	return mapJobRun(row)
}

func normalizeInfo(info map[string]any) map[string]any {
	if info == nil {
		return map[string]any{}
	}
	return info
}

func mapJobRun(row model.JobRun) (ports.JobRun, error) {
	item := ports.JobRun{
		ID:         row.ID,
		JobName:    row.JobName,
		Step:       row.Step,
		InputHash:  row.InputHash,
		Status:     row.Status,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}
	item.Info = map[string]any{}
	if err := decodeJSONColumn(row.Info, &item.Info, "info"); err != nil {
		return ports.JobRun{}, err
	}
	return item, nil
}
