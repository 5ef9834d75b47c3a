package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/types"
)

type ScoreRepo interface {
	Create(dbc dbctx.Context, score *types.GeoScore) (*types.GeoScore, error)
	GetLatestByBrand(dbc dbctx.Context, brandID uuid.UUID) (*types.GeoScore, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GeoScore, error)
}

type scoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreRepo(db *gorm.DB, baseLog *logger.Logger) ScoreRepo {
	return &scoreRepo{
		db:  db,
		log: baseLog.With("repo", "ScoreRepo"),
	}
}

func (r *scoreRepo) Create(dbc dbctx.Context, score *types.GeoScore) (*types.GeoScore, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(score).Error; err != nil {
		return nil, err
	}
	return score, nil
}

func (r *scoreRepo) GetLatestByBrand(dbc dbctx.Context, brandID uuid.UUID) (*types.GeoScore, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if brandID == uuid.Nil {
		return nil, nil
	}
	var score types.GeoScore
	err := transaction.WithContext(dbc.Ctx).
		Where("brand_id = ?", brandID).
		Order("created_at DESC").
		Limit(1).
		Find(&score).Error
	if err != nil {
		return nil, err
	}
	if score.ID == uuid.Nil {
		return nil, nil
	}
	return &score, nil
}

func (r *scoreRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GeoScore, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var score types.GeoScore
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&score).Error
	if err != nil {
		return nil, err
	}
	if score.ID == uuid.Nil {
		return nil, nil
	}
	return &score, nil
}

type ReportRepo interface {
	Create(dbc dbctx.Context, report *types.Report) (*types.Report, error)
	GetLatestByBrand(dbc dbctx.Context, brandID uuid.UUID) (*types.Report, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{
		db:  db,
		log: baseLog.With("repo", "ReportRepo"),
	}
}

func (r *reportRepo) Create(dbc dbctx.Context, report *types.Report) (*types.Report, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (r *reportRepo) GetLatestByBrand(dbc dbctx.Context, brandID uuid.UUID) (*types.Report, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if brandID == uuid.Nil {
		return nil, nil
	}
	var report types.Report
	err := transaction.WithContext(dbc.Ctx).
		Where("brand_id = ?", brandID).
		Order("created_at DESC").
		Limit(1).
		Find(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == uuid.Nil {
		return nil, nil
	}
	return &report, nil
}
