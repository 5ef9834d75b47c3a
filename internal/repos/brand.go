package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/types"
)

type BrandRepo interface {
	Create(dbc dbctx.Context, brand *types.Brand) (*types.Brand, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Brand, error)
	List(dbc dbctx.Context, limit int, offset int) ([]*types.Brand, error)
	Exists(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type brandRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBrandRepo(db *gorm.DB, baseLog *logger.Logger) BrandRepo {
	return &brandRepo{
		db:  db,
		log: baseLog.With("repo", "BrandRepo"),
	}
}

func (r *brandRepo) Create(dbc dbctx.Context, brand *types.Brand) (*types.Brand, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(brand).Error; err != nil {
		return nil, err
	}
	return brand, nil
}

func (r *brandRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Brand, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var brand types.Brand
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&brand).Error
	if err != nil {
		return nil, err
	}
	if brand.ID == uuid.Nil {
		return nil, nil
	}
	return &brand, nil
}

func (r *brandRepo) List(dbc dbctx.Context, limit int, offset int) ([]*types.Brand, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.Brand
	err := transaction.WithContext(dbc.Ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *brandRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Brand{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
