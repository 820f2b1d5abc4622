package model

import "time"

// JobRun tracks one execution of a named unit of work. Info is a
// JSON-encoded blob merged on finish.
type JobRun struct {
	ID         uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	JobName    string     `gorm:"column:job_name;type:text;not null"`
	Step       string     `gorm:"column:step;type:text"`
	InputHash  string     `gorm:"column:input_hash;type:text"`
	Info       string     `gorm:"column:info;type:text"`
	Status     string     `gorm:"column:status;type:text;not null;default:RUNNING"`
	StartedAt  time.Time  `gorm:"column:started_at;not null"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
}

func (JobRun) TableName() string {
	return "job_runs"
}
