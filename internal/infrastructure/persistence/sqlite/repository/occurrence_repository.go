package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sirep/internal/errs"
	"sirep/internal/infrastructure/persistence/sqlite/model"
	"sirep/internal/ports"
)

type OccurrenceRepository struct {
	db *gorm.DB
}

func NewOccurrenceRepository(db *gorm.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

var _ ports.OccurrenceRepository = (*OccurrenceRepository)(nil)

func (r *OccurrenceRepository) Add(ctx context.Context, occ ports.Occurrence) (ports.Occurrence, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Occurrence{}, err
	}

	row := model.DiscardedPlan{
		NumeroPlano:     occ.NumeroPlano,
		Situacao:        occ.Situacao,
		CNPJ:            occ.CNPJ,
		Tipo:            occ.Tipo,
		Saldo:           occ.Saldo,
		DtSituacaoAtual: occ.DtSituacaoAtual,
		CreatedAt:       time.Now().UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Occurrence{}, errs.Wrap(err, "insert discarded plan")
	}
	return mapOccurrence(row), nil
}

func (r *OccurrenceRepository) ListAll(ctx context.Context) ([]ports.Occurrence, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.DiscardedPlan
	if err := db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query discarded plans")
	}

	items := make([]ports.Occurrence, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapOccurrence(row))
	}
	return items, nil
}

func (r *OccurrenceRepository) Paginate(ctx context.Context, pagina int, tamanho int) ([]ports.Occurrence, int64, error) {
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

	var rows []model.DiscardedPlan
	if err := db.
		Order("id desc").
		Offset((pagina - 1) * tamanho).
		Limit(tamanho).
		Find(&rows).Error; err != nil {
		return nil, 0, errs.Wrap(err, "paginate discarded plans")
	}

	var total int64
	if err := db.Model(&model.DiscardedPlan{}).Count(&total).Error; err != nil {
		return nil, 0, errs.Wrap(err, "count discarded plans")
	}

	items := make([]ports.Occurrence, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapOccurrence(row))
	}
	return items, total, nil
}

func (r *OccurrenceRepository) CountAll(ctx context.Context) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.DiscardedPlan{}).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count discarded plans")
	}
	return count, nil
}

func mapOccurrence(row model.DiscardedPlan) ports.Occurrence {
	return ports.Occurrence{
		ID:              row.ID,
		NumeroPlano:     row.NumeroPlano,
		Situacao:        row.Situacao,
		CNPJ:            row.CNPJ,
		Tipo:            row.Tipo,
		Saldo:           row.Saldo,
		DtSituacaoAtual: row.DtSituacaoAtual,
		CreatedAt:       row.CreatedAt,
	}
}
