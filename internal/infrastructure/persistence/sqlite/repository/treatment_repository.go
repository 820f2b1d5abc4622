package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"sirep/internal/errs"
	"sirep/internal/infrastructure/persistence/sqlite/model"
	"sirep/internal/ports"
)

type TreatmentRepository struct {
	db *gorm.DB
}

func NewTreatmentRepository(db *gorm.DB) *TreatmentRepository {
	return &TreatmentRepository{db: db}
}

var _ ports.TreatmentRepository = (*TreatmentRepository)(nil)

func (r *TreatmentRepository) Add(ctx context.Context, plan *ports.TreatmentPlan) error {
	if plan == nil {
		return errors.New("treatment plan is required")
	}

	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row, err := unmapTreatment(*plan)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	if row.Status == "" {
		row.Status = "pendente"
	}

	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert treatment plan")
	}
	plan.ID = row.ID
	plan.Status = row.Status
	plan.CreatedAt = row.CreatedAt
	plan.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *TreatmentRepository) Get(ctx context.Context, id uint64) (ports.TreatmentPlan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.TreatmentPlan{}, err
	}

	var row model.TreatmentPlan
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.TreatmentPlan{}, ports.ErrTreatmentNotFound
		}
		return ports.TreatmentPlan{}, errs.Wrap(err, "query treatment plan")
	}
	return mapTreatment(row)
}

func (r *TreatmentRepository) ByPlanID(ctx context.Context, planID uint64) (ports.TreatmentPlan, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.TreatmentPlan{}, false, err
	}

	var row model.TreatmentPlan
	if err := db.Where("plan_id = ?", planID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.TreatmentPlan{}, false, nil
		}
		return ports.TreatmentPlan{}, false, errs.Wrap(err, "query treatment by plan id")
	}

	item, err := mapTreatment(row)
	if err != nil {
		return ports.TreatmentPlan{}, false, err
	}
	return item, true, nil
}

func (r *TreatmentRepository) ListAll(ctx context.Context) ([]ports.TreatmentPlan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.TreatmentPlan
	if err := db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query treatment plans")
	}
	return mapTreatments(rows)
}

func (r *TreatmentRepository) ListRescindedBetween(ctx context.Context, from time.Time, to time.Time) ([]ports.TreatmentPlan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.TreatmentPlan
	if err := db.
		Where("status = ? AND rescisao_data >= ? AND rescisao_data <= ?", "rescindido", from, to).
		Order("rescisao_data asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query rescinded treatments")
	}
	return mapTreatments(rows)
}

func (r *TreatmentRepository) Update(ctx context.Context, plan ports.TreatmentPlan) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row, err := unmapTreatment(plan)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()
	row.CreatedAt = plan.CreatedAt

	result := db.Model(&model.TreatmentPlan{}).Where("id = ?", plan.ID).Updates(map[string]any{
		"status":        row.Status,
		"etapa_atual":   row.EtapaAtual,
		"razao_social":  row.RazaoSocial,
		"periodo":       row.Periodo,
		"cnpjs":         row.CNPJs,
		"bases":         row.Bases,
		"notas":         row.Notas,
		"etapas":        row.Etapas,
		"rescisao_data": row.RescisaoData,
		"updated_at":    row.UpdatedAt,
	})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update treatment plan")
	}
	if result.RowsAffected == 0 {
		return ports.ErrTreatmentNotFound
	}
	return nil
}

func mapTreatments(rows []model.TreatmentPlan) ([]ports.TreatmentPlan, error) {
	items := make([]ports.TreatmentPlan, 0, len(rows))
	for _, row := range rows {
		item, err := mapTreatment(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapTreatment(row model.TreatmentPlan) (ports.TreatmentPlan, error) {
	item := ports.TreatmentPlan{
		ID:           row.ID,
		PlanID:       row.PlanID,
		NumeroPlano:  row.NumeroPlano,
		RazaoSocial:  row.RazaoSocial,
		Status:       row.Status,
		EtapaAtual:   row.EtapaAtual,
		Periodo:      row.Periodo,
		RescisaoData: row.RescisaoData,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}

	if err := decodeJSONColumn(row.CNPJs, &item.CNPJs, "cnpjs"); err != nil {
		return ports.TreatmentPlan{}, err
	}
	if err := decodeJSONColumn(row.Bases, &item.Bases, "bases"); err != nil {
		return ports.TreatmentPlan{}, err
	}
	if err := decodeJSONColumn(row.Notas, &item.Notas, "notas"); err != nil {
		return ports.TreatmentPlan{}, err
	}
	if err := decodeJSONColumn(row.Etapas, &item.Etapas, "etapas"); err != nil {
		return ports.TreatmentPlan{}, err
	}
	if item.Notas == nil {
		item.Notas = map[string]string{}
	}
	return item, nil
}

func unmapTreatment(plan ports.TreatmentPlan) (model.TreatmentPlan, error) {
	row := model.TreatmentPlan{
		ID:           plan.ID,
		PlanID:       plan.PlanID,
		NumeroPlano:  plan.NumeroPlano,
		RazaoSocial:  plan.RazaoSocial,
		Status:       plan.Status,
		EtapaAtual:   plan.EtapaAtual,
		Periodo:      plan.Periodo,
		RescisaoData: plan.RescisaoData,
	}

	var err error
	if row.CNPJs, err = encodeJSONColumn(plan.CNPJs, "cnpjs"); err != nil {
		return model.TreatmentPlan{}, err
	}
	if row.Bases, err = encodeJSONColumn(plan.Bases, "bases"); err != nil {
		return model.TreatmentPlan{}, err
	}
	if row.Notas, err = encodeJSONColumn(plan.Notas, "notas"); err != nil {
		return model.TreatmentPlan{}, err
	}
	if row.Etapas, err = encodeJSONColumn(plan.Etapas, "etapas"); err != nil {
		return model.TreatmentPlan{}, err
	}
	return row, nil
}

func decodeJSONColumn(raw string, target any, column string) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return errs.Wrapf(err, "decode %s column", column)
	}
	return nil
}

func encodeJSONColumn(value any, column string) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", errs.Wrapf(err, "encode %s column", column)
	}
	return string(raw), nil
}
