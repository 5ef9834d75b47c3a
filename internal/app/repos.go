package app

import (
	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/repos"
)

type Repos struct {
	Jobs       repos.JobRepo
	Brands     repos.BrandRepo
	Entries    repos.ContentEntryRepo
	Claims     repos.ContentClaimRepo
	Chunks     repos.ContentChunkRepo
	Embeddings repos.EmbeddingRepo
	Responses  repos.ResponseRepo
	Scores     repos.ScoreRepo
	Reports    repos.ReportRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Jobs:       repos.NewJobRepo(db, log),
		Brands:     repos.NewBrandRepo(db, log),
		Entries:    repos.NewContentEntryRepo(db, log),
		Claims:     repos.NewContentClaimRepo(db, log),
		Chunks:     repos.NewContentChunkRepo(db, log),
		Embeddings: repos.NewEmbeddingRepo(db, log),
		Responses:  repos.NewResponseRepo(db, log),
		Scores:     repos.NewScoreRepo(db, log),
		Reports:    repos.NewReportRepo(db, log),
	}
}
