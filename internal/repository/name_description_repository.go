package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"name-smart-go/internal/model"
)

// NameDescriptionRepository 读取名字的来源、含义和描述。
type NameDescriptionRepository interface {
	FindByNames(ctx context.Context, pop model.Population, names []string) (map[string]model.NameDescription, error)
	FindByName(ctx context.Context, pop model.Population, name string) (*model.NameDescription, error)
}

type nameDescriptionRepository struct {
	db *gorm.DB
}

// NewNameDescriptionRepository 创建一个新的 NameDescriptionRepository 实例。
func NewNameDescriptionRepository(db *gorm.DB) NameDescriptionRepository {
	return &nameDescriptionRepository{db: db}
}

func (r *nameDescriptionRepository) FindByNames(ctx context.Context, pop model.Population, names []string) (map[string]model.NameDescription, error) {
	out := make(map[string]model.NameDescription, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var rows []model.NameDescription
	err := r.db.WithContext(ctx).
		Where("population = ? AND name IN ?", pop, names).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find name descriptions: %w", err)
	}
	for _, row := range rows {
		out[row.Name] = row
	}
	return out, nil
}

func (r *nameDescriptionRepository) FindByName(ctx context.Context, pop model.Population, name string) (*model.NameDescription, error) {
	rows, err := r.FindByNames(ctx, pop, []string{model.CanonicalName(name)})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		return &row, nil
	}
	return nil, nil
}
