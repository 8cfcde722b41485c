package implementation

import (
	"context"

	"answerhub-be/internal/entity"
	"answerhub-be/internal/mapper"
	"answerhub-be/internal/model"
	"answerhub-be/internal/repository/contract"
	"answerhub-be/internal/repository/specification"

	"gorm.io/gorm"
)

type RoutingEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewRoutingEventRepository(db *gorm.DB) contract.RoutingEventRepository {
	return &RoutingEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *RoutingEventRepositoryImpl) Create(ctx context.Context, event *entity.RoutingEvent) error {
	m := r.mapper.RoutingEventToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.RoutingEventToEntity(m)
	return nil
}

func (r *RoutingEventRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RoutingEvent, error) {
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	var models []*model.RoutingEvent
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.RoutingEvent, len(models))
	for i, m := range models {
		entities[i] = r.mapper.RoutingEventToEntity(m)
	}
	return entities, nil
}

func (r *RoutingEventRepositoryImpl) CountByDomain(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Domain string
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.RoutingEvent{}).
		Select("domain, count(*) as total").
		Group("domain").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Domain] = r.Total
	}
	return counts, nil
}
