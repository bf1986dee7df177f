package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/commitsense/commitsense/domain/project"
	"github.com/commitsense/commitsense/internal/database"
)

// ProjectStore implements project.Store using GORM.
type ProjectStore struct {
	db     database.Database
	mapper ProjectMapper
}

// NewProjectStore creates a new ProjectStore.
func NewProjectStore(db database.Database) ProjectStore {
	return ProjectStore{db: db}
}

// Save creates or updates a project.
func (s ProjectStore) Save(ctx context.Context, p project.Project) (project.Project, error) {
	model := s.mapper.ToModel(p)
	model.UpdatedAt = time.Now()

	var result *gorm.DB
	if p.ID() == 0 {
		result = s.db.Session(ctx).Create(&model)
	} else {
		result = s.db.Session(ctx).Save(&model)
	}
	if result.Error != nil {
		return project.Project{}, fmt.Errorf("save project: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// FindByID returns the project with the given identifier.
func (s ProjectStore) FindByID(ctx context.Context, id int64) (project.Project, error) {
	var model ProjectModel
	result := s.db.Session(ctx).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return project.Project{}, database.ErrNotFound
		}
		return project.Project{}, fmt.Errorf("find project: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// FindAll returns all registered projects.
func (s ProjectStore) FindAll(ctx context.Context) ([]project.Project, error) {
	var models []ProjectModel
	result := s.db.Session(ctx).Order("id").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("list projects: %w", result.Error)
	}

	projects := make([]project.Project, len(models))
	for i, m := range models {
		projects[i] = s.mapper.ToDomain(m)
	}
	return projects, nil
}
