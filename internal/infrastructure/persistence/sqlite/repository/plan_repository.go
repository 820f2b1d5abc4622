package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"sirep/internal/errs"
	"sirep/internal/infrastructure/persistence/sqlite/model"
	"sirep/internal/ports"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

var _ ports.PlanRepository = (*PlanRepository)(nil)

func dbFromContext(ctx context.Context, fallback *gorm.DB) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return fallback.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *PlanRepository) GetByNumero(ctx context.Context, numeroPlano string) (ports.Plan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Plan{}, err
	}

	var row model.Plan
	if err := db.Where("numero_plano = ?", numeroPlano).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Plan{}, ports.ErrPlanNotFound
		}
		return ports.Plan{}, errs.Wrap(err, "query plan by numero")
	}
	return mapPlan(row), nil
}

// Upsert implements insert-if-absent / merge-on-present keyed by
// numero_plano. The mutator sees the current state (zero value for new
// plans) and the full row is written back.
func (r *PlanRepository) Upsert(ctx context.Context, numeroPlano string, apply func(*ports.Plan)) (ports.Plan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Plan{}, err
	}

	var row model.Plan
	found := true
	if err := db.Where("numero_plano = ?", numeroPlano).Take(&row).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Plan{}, errs.Wrap(err, "query plan by numero")
		}
		found = false
		row = model.Plan{NumeroPlano: numeroPlano, CreatedAt: time.Now().UTC()}
	}

	plan := mapPlan(row)
	if apply != nil {
		apply(&plan)
	}
	plan.NumeroPlano = numeroPlano

	next := unmapPlan(plan)
	next.ID = row.ID
	next.CreatedAt = row.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	if !found {
		next.CreatedAt = next.UpdatedAt
		if err := db.Create(&next).Error; err != nil {
			return ports.Plan{}, errs.Wrap(err, "insert plan")
		}
	} else if err := db.Save(&next).Error; err != nil {
		return ports.Plan{}, errs.Wrap(err, "update plan")
	}
	return mapPlan(next), nil
}

func (r *PlanRepository) ListAll(ctx context.Context) ([]ports.Plan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Plan
	if err := db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query plans")
	}
	return mapPlans(rows), nil
}

func (r *PlanRepository) ListByStatus(ctx context.Context, status string) ([]ports.Plan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Plan
	if err := db.Where("status = ?", status).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query plans by status")
	}
	return mapPlans(rows), nil
}

func (r *PlanRepository) Paginate(ctx context.Context, pagina int, tamanho int) ([]ports.Plan, int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}
	if pagina < 1 {
		pagina = 1
	}
	if tamanho < 1 {
		tamanho = 10
	}

	var total int64
	if err := db.Model(&model.Plan{}).Count(&total).Error; err != nil {
		return nil, 0, errs.Wrap(err, "count plans")
	}

	var rows []model.Plan
	if err := db.
		Order("saldo desc, id asc").
		Offset((pagina - 1) * tamanho).
		Limit(tamanho).
		Find(&rows).Error; err != nil {
		return nil, 0, errs.Wrap(err, "paginate plans")
	}
	return mapPlans(rows), total, nil
}

func (r *PlanRepository) CountAll(ctx context.Context) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Plan{}).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count plans")
	}
	return count, nil
}

func (r *PlanRepository) CountBySituacao(ctx context.Context, situacaoAtual string) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Plan{}).Where("situacao_atual = ?", situacaoAtual).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count plans by situacao")
	}
	return count, nil
}

func mapPlans(rows []model.Plan) []ports.Plan {
	items := make([]ports.Plan, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapPlan(row))
	}
	return items
}

func mapPlan(row model.Plan) ports.Plan {
	return ports.Plan{
		ID:                    row.ID,
		NumeroPlano:           row.NumeroPlano,
		Gifug:                 row.Gifug,
		RazaoSocial:           row.RazaoSocial,
		SituacaoAtual:         row.SituacaoAtual,
		SituacaoAnterior:      row.SituacaoAnterior,
		DiasEmAtraso:          row.DiasEmAtraso,
		Tipo:                  row.Tipo,
		DtSituacaoAtual:       row.DtSituacaoAtual,
		Saldo:                 row.Saldo,
		DtProposta:            row.DtProposta,
		Resolucao:             row.Resolucao,
		NumeroInscricao:       row.NumeroInscricao,
		Representacao:         row.Representacao,
		TipoParcelamento:      row.TipoParcelamento,
		SaldoTotal:            row.SaldoTotal,
		Status:                row.Status,
		DataRescisao:          row.DataRescisao,
		DataComunicacao:       row.DataComunicacao,
		MetodoComunicacao:     row.MetodoComunicacao,
		ReferenciaComunicacao: row.ReferenciaComunicacao,
		ParcelasAtraso:        row.ParcelasAtraso,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
}

func unmapPlan(plan ports.Plan) model.Plan {
	return model.Plan{
		ID:                    plan.ID,
		NumeroPlano:           plan.NumeroPlano,
		Gifug:                 plan.Gifug,
		RazaoSocial:           plan.RazaoSocial,
		SituacaoAtual:         plan.SituacaoAtual,
		SituacaoAnterior:      plan.SituacaoAnterior,
		DiasEmAtraso:          plan.DiasEmAtraso,
		Tipo:                  plan.Tipo,
		DtSituacaoAtual:       plan.DtSituacaoAtual,
		Saldo:                 plan.Saldo,
		DtProposta:            plan.DtProposta,
		Resolucao:             plan.Resolucao,
		NumeroInscricao:       plan.NumeroInscricao,
		Representacao:         plan.Representacao,
		TipoParcelamento:      plan.TipoParcelamento,
		SaldoTotal:            plan.SaldoTotal,
		Status:                plan.Status,
		DataRescisao:          plan.DataRescisao,
		DataComunicacao:       plan.DataComunicacao,
		MetodoComunicacao:     plan.MetodoComunicacao,
		ReferenciaComunicacao: plan.ReferenciaComunicacao,
		ParcelasAtraso:        plan.ParcelasAtraso,
		CreatedAt:             plan.CreatedAt,
		UpdatedAt:             plan.UpdatedAt,
	}
}
