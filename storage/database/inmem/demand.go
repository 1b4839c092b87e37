package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/demand"
)

var priorityRank = map[string]int{demand.PriorityLow: 1, demand.PriorityMedium: 2, demand.PriorityHigh: 3}

type demandRepository struct {
	db *DB
}

var _ demand.Repository = (*demandRepository)(nil) // interface compliance check

func NewDemandRepository(db *DB) *demandRepository {
	return &demandRepository{db: db}
}

func (repo *demandRepository) CreateDemand(_ context.Context, d demand.Demand) (demand.Demand, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.demands[d.ID]; ok {
		return demand.Demand{}, core.NewConflictError("demand already exists")
	}
	repo.db.demands[d.ID] = &d
	return d, nil
}

func (repo *demandRepository) QueryDemands(_ context.Context, filter *demand.QueryFilter, ordering []core.DBOrdering) ([]demand.Demand, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	demands := make([]demand.Demand, 0, len(repo.db.demands))
	for _, d := range repo.db.demands {
		if filter != nil {
			if filter.Search != "" && !(containsFold(d.Title, filter.Search) ||
				containsFold(d.Description, filter.Search) || containsFold(d.Requester, filter.Search)) {
				continue
			}
			if filter.DueWeek != nil && !(d.DueDate.Valid && filter.DueWeek.Contains(d.DueDate.Time)) {
				continue
			}
			if len(filter.Statuses) > 0 && !inSlice(d.Status, filter.Statuses) {
				continue
			}
			if len(filter.Priorities) > 0 && !inSlice(d.Priority, filter.Priorities) {
				continue
			}
			if filter.AssignedTo != "" && d.AssignedTo.String != filter.AssignedTo {
				continue
			}
		}
		demands = append(demands, *d)
	}

	orderBy(len(demands), func(i, j int) { demands[i], demands[j] = demands[j], demands[i] }, ordering, comparators{
		"title":    func(i, j int) int { return strings.Compare(demands[i].Title, demands[j].Title) },
		"status":   func(i, j int) int { return strings.Compare(demands[i].Status, demands[j].Status) },
		"priority": func(i, j int) int { return cmpInt(priorityRank[demands[i].Priority], priorityRank[demands[j].Priority]) },
		"due_date": func(i, j int) int {
			// NULLS LAST
			a, b := demands[i].DueDate, demands[j].DueDate
			switch {
			case !a.Valid && !b.Valid:
				return 0
			case !a.Valid:
				return 1
			case !b.Valid:
				return -1
			}
			return cmpTime(a.Time, b.Time)
		},
		"created_at": func(i, j int) int { return cmpTime(demands[i].CreatedAt, demands[j].CreatedAt) },
	}, "created_at")
	return demands, nil
}

func (repo *demandRepository) GetDemand(_ context.Context, id string) (demand.Demand, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if d, ok := repo.db.demands[id]; ok {
		return *d, nil
	}
	return demand.Demand{}, demand.ErrNotFound
}

func (repo *demandRepository) UpdateDemand(_ context.Context, d demand.Demand) (demand.Demand, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.demands[d.ID]; !ok {
		return demand.Demand{}, demand.ErrNotFound
	}
	repo.db.demands[d.ID] = &d
	return d, nil
}

func (repo *demandRepository) DeleteDemand(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.demands[id]; !ok {
		return demand.ErrNotFound
	}
	delete(repo.db.demands, id)
	return nil
}
