package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/activity"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.activities[a.ID]; ok {
		return activity.Activity{}, core.NewConflictError("activity already exists")
	}
	repo.db.activities[a.ID] = &a
	return a, nil
}

func (repo *activityRepository) QueryActivities(_ context.Context, filter *activity.QueryFilter, ordering []core.DBOrdering) ([]activity.Activity, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	activities := make([]activity.Activity, 0, len(repo.db.activities))
	for _, a := range repo.db.activities {
		if filter != nil {
			if filter.VisibleTo != "" && !(a.Published || a.CreatedBy == filter.VisibleTo) {
				continue
			}
			if filter.Search != "" && !(containsFold(a.Title, filter.Search) || containsFold(a.Description, filter.Search)) {
				continue
			}
			if filter.BNCCPrefix != "" && !strings.HasPrefix(a.BNCCCode, filter.BNCCPrefix) {
				continue
			}
			if filter.Stage != "" && a.Stage != filter.Stage {
				continue
			}
			if filter.Subject != "" && !strings.EqualFold(a.Subject, filter.Subject) {
				continue
			}
			if filter.Published != nil && a.Published != *filter.Published {
				continue
			}
		}
		activities = append(activities, *a)
	}

	orderBy(len(activities), func(i, j int) { activities[i], activities[j] = activities[j], activities[i] }, ordering, comparators{
		"title":      func(i, j int) int { return strings.Compare(activities[i].Title, activities[j].Title) },
		"bncc_code":  func(i, j int) int { return strings.Compare(activities[i].BNCCCode, activities[j].BNCCCode) },
		"stage":      func(i, j int) int { return strings.Compare(activities[i].Stage, activities[j].Stage) },
		"subject":    func(i, j int) int { return strings.Compare(activities[i].Subject, activities[j].Subject) },
		"created_at": func(i, j int) int { return cmpTime(activities[i].CreatedAt, activities[j].CreatedAt) },
	}, "created_at")
	return activities, nil
}

func (repo *activityRepository) GetActivity(_ context.Context, id string) (activity.Activity, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.activities[id]; ok {
		return *a, nil
	}
	return activity.Activity{}, activity.ErrNotFound
}

func (repo *activityRepository) UpdateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.activities[a.ID]; !ok {
		return activity.Activity{}, activity.ErrNotFound
	}
	repo.db.activities[a.ID] = &a
	return a, nil
}

func (repo *activityRepository) DeleteActivity(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.activities[id]; !ok {
		return activity.ErrNotFound
	}
	delete(repo.db.activities, id)
	return nil
}
