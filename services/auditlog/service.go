package auditlog

import (
	"context"
	"time"

	"smallbiznis-license/pkg/db/option"
	"smallbiznis-license/pkg/db/pagination"
	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recorder appends audit entries. Implementations never fail the caller.
type Recorder interface {
	Record(ctx context.Context, entry *Entry)
}

type Service struct {
	repo repository.Repository[Entry]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo: repository.ProvideStore[Entry](p.DB),
	}
}

// Record inserts entry, truncating values wider than their column. A failed
// insert is logged and otherwise ignored so an audit outage never changes the
// outcome of the audited operation.
func (s *Service) Record(ctx context.Context, entry *Entry) {
	entry.fitColumns()
	if err := s.repo.Create(ctx, entry); err != nil {
		zap.L().Warn("[auditlog] failed to record entry",
			zap.String("license_key", entry.LicenseKey),
			zap.String("action", string(entry.Action)),
			zap.Bool("succeeded", entry.Succeeded),
			zap.Error(err),
		)
	}
}

// List returns the entries recorded for key, newest first.
func (s *Service) List(ctx context.Context, key string, page pagination.Pagination) ([]*Entry, *pagination.PageInfo, error) {
	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
	}

	if page.Cursor != "" {
		id, err := pagination.DecodeID(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "id", Operator: option.LT, Value: id}))
	}
	if page.Limit > 0 {
		opts = append(opts, option.ApplyPagination(page.Limit+1))
	}

	entries, err := s.repo.Find(ctx, &Entry{LicenseKey: key}, opts...)
	if err != nil {
		return nil, nil, err
	}

	entries, info := pagination.BuildCursorPageInfo(entries, page.Limit, func(e *Entry) string {
		return pagination.EncodeID(e.ID)
	})
	return entries, info, nil
}

// Purge deletes entries created before the cutoff and returns how many went.
func (s *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.Delete(ctx, nil, option.ApplyOperator(option.Condition{
		Field:    "created_at",
		Operator: option.LT,
		Value:    before.UTC(),
	}))
	if err != nil {
		return 0, err
	}

	zap.L().Info("[auditlog] purged entries", zap.Time("before", before), zap.Int64("deleted", n))
	return n, nil
}
