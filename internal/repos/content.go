package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/types"
)

type ContentEntryRepo interface {
	Create(dbc dbctx.Context, entries []*types.ContentEntry) ([]*types.ContentEntry, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentEntry, error)
	ListByBrand(dbc dbctx.Context, brandID uuid.UUID) ([]*types.ContentEntry, error)
}

type contentEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentEntryRepo(db *gorm.DB, baseLog *logger.Logger) ContentEntryRepo {
	return &contentEntryRepo{
		db:  db,
		log: baseLog.With("repo", "ContentEntryRepo"),
	}
}

func (r *contentEntryRepo) Create(dbc dbctx.Context, entries []*types.ContentEntry) ([]*types.ContentEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*types.ContentEntry{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *contentEntryRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentEntry
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentEntryRepo) ListByBrand(dbc dbctx.Context, brandID uuid.UUID) ([]*types.ContentEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentEntry
	if brandID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("brand_id = ?", brandID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type ContentClaimRepo interface {
	Create(dbc dbctx.Context, claims []*types.ContentClaim) ([]*types.ContentClaim, error)
	ListByEntry(dbc dbctx.Context, entryID uuid.UUID) ([]*types.ContentClaim, error)
}

type contentClaimRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentClaimRepo(db *gorm.DB, baseLog *logger.Logger) ContentClaimRepo {
	return &contentClaimRepo{
		db:  db,
		log: baseLog.With("repo", "ContentClaimRepo"),
	}
}

func (r *contentClaimRepo) Create(dbc dbctx.Context, claims []*types.ContentClaim) ([]*types.ContentClaim, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(claims) == 0 {
		return []*types.ContentClaim{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *contentClaimRepo) ListByEntry(dbc dbctx.Context, entryID uuid.UUID) ([]*types.ContentClaim, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentClaim
	if entryID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("entry_id = ?", entryID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type ContentChunkRepo interface {
	Create(dbc dbctx.Context, chunks []*types.ContentChunk) ([]*types.ContentChunk, error)
	ListByEntries(dbc dbctx.Context, entryIDs []uuid.UUID) ([]*types.ContentChunk, error)
}

type contentChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentChunkRepo(db *gorm.DB, baseLog *logger.Logger) ContentChunkRepo {
	return &contentChunkRepo{
		db:  db,
		log: baseLog.With("repo", "ContentChunkRepo"),
	}
}

func (r *contentChunkRepo) Create(dbc dbctx.Context, chunks []*types.ContentChunk) ([]*types.ContentChunk, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chunks) == 0 {
		return []*types.ContentChunk{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *contentChunkRepo) ListByEntries(dbc dbctx.Context, entryIDs []uuid.UUID) ([]*types.ContentChunk, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentChunk
	if len(entryIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("entry_id IN ?", entryIDs).
		Order("entry_id, chunk_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
