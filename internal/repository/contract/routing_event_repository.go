package contract

import (
	"context"

	"answerhub-be/internal/entity"
	"answerhub-be/internal/repository/specification"
)

type RoutingEventRepository interface {
	Create(ctx context.Context, event *entity.RoutingEvent) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RoutingEvent, error)
	CountByDomain(ctx context.Context) (map[string]int64, error)
}
