package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"sirep/internal/domain/rescission"
	"sirep/internal/errs"
	"sirep/internal/infrastructure/persistence/sqlite/model"
	"sirep/internal/ports"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

var _ ports.AuditLogRepository = (*AuditLogRepository)(nil)

func (r *AuditLogRepository) Add(ctx context.Context, entry ports.AuditEntry) (ports.AuditEntry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.AuditEntry{}, err
	}

	status := strings.ToUpper(strings.TrimSpace(entry.Status))
	if status == "" {
		status = rescission.AuditInfo
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := model.PlanLog{
		Contexto:    rescission.NormalizeContext(entry.Contexto),
		NumeroPlano: entry.NumeroPlano,
		TreatmentID: entry.TreatmentID,
		EtapaNumero: entry.EtapaNumero,
		EtapaNome:   entry.EtapaNome,
		Status:      status,
		Mensagem:    entry.Mensagem,
		CreatedAt:   createdAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.AuditEntry{}, errs.Wrap(err, "insert plan log")
	}
	return mapAuditEntry(row), nil
}

func (r *AuditLogRepository) Recent(ctx context.Context, limit int, contexto string, order ports.AuditOrder) ([]ports.AuditEntry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 200
	}

	direction := "desc"
	if order == ports.AuditOrderAsc {
		direction = "asc"
	}

	query := db.Model(&model.PlanLog{})
	if contexto != "" {
		query = query.Where("contexto = ?", rescission.NormalizeContext(contexto))
	}

	var rows []model.PlanLog
	if err := query.
		Order("created_at " + direction + ", id " + direction).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query recent plan logs")
	}
	return mapAuditEntries(rows), nil
}

func (r *AuditLogRepository) Range(ctx context.Context, from time.Time, to time.Time, contexto string) ([]ports.AuditEntry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.PlanLog{}).Where("created_at >= ? AND created_at <= ?", from, to)
	if contexto != "" {
		query = query.Where("contexto = ?", rescission.NormalizeContext(contexto))
	}

	var rows []model.PlanLog
	if err := query.Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query plan logs by range")
	}
	return mapAuditEntries(rows), nil
}

func mapAuditEntries(rows []model.PlanLog) []ports.AuditEntry {
	items := make([]ports.AuditEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAuditEntry(row))
	}
	return items
}

func mapAuditEntry(row model.PlanLog) ports.AuditEntry {
	return ports.AuditEntry{
		ID:          row.ID,
		Contexto:    row.Contexto,
		NumeroPlano: row.NumeroPlano,
		TreatmentID: row.TreatmentID,
		EtapaNumero: row.EtapaNumero,
		EtapaNome:   row.EtapaNome,
		Status:      row.Status,
		Mensagem:    row.Mensagem,
		CreatedAt:   row.CreatedAt,
	}
}
