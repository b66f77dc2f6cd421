package bill_sync

import (
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type Pipeline struct {
	log  *logger.Logger
	sync services.SyncService
}

func New(baseLog *logger.Logger, sync services.SyncService) *Pipeline {
	return &Pipeline{
		log:  baseLog.With("job", services.JobTypeBillSync),
		sync: sync,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeBillSync }
