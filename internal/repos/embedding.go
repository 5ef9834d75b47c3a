package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/types"
)

type EmbeddingRepo interface {
	Create(dbc dbctx.Context, embeddings []*types.Embedding) ([]*types.Embedding, error)
	CountByBrand(dbc dbctx.Context, brandID uuid.UUID) (int64, error)
}

type embeddingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmbeddingRepo(db *gorm.DB, baseLog *logger.Logger) EmbeddingRepo {
	return &embeddingRepo{
		db:  db,
		log: baseLog.With("repo", "EmbeddingRepo"),
	}
}

func (r *embeddingRepo) Create(dbc dbctx.Context, embeddings []*types.Embedding) ([]*types.Embedding, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(embeddings) == 0 {
		return []*types.Embedding{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&embeddings).Error; err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (r *embeddingRepo) CountByBrand(dbc dbctx.Context, brandID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if brandID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Embedding{}).
		Where("brand_id = ? AND error = ''", brandID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
