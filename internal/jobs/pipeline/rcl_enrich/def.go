package rcl_enrich

import (
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type Pipeline struct {
	log    *logger.Logger
	enrich services.RCLEnrichmentService
}

func New(baseLog *logger.Logger, enrich services.RCLEnrichmentService) *Pipeline {
	return &Pipeline{
		log:    baseLog.With("job", services.JobTypeRCLEnrich),
		enrich: enrich,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeRCLEnrich }
