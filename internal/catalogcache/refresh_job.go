package catalogcache

import (
	"context"
	"errors"

	"github.com/magisurprise/backend/internal/cron"
)

// RefreshJob is the scheduled refresh of stale catalog collections.
type RefreshJob struct {
	service *Service
}

func NewRefreshJob(service *Service) (*RefreshJob, error) {
	if service == nil {
		return nil, errors.New("catalog service required")
	}
	return &RefreshJob{service: service}, nil
}

func (j *RefreshJob) Name() string { return cron.JobCatalogRefresh }

func (j *RefreshJob) Run(ctx context.Context) error {
	return j.service.RefreshStale(ctx)
}
