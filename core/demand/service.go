package demand

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/user"
)

var ErrNotFound = core.NewNotFoundError("demand")

type (
	Repository interface {
		CreateDemand(ctx context.Context, d Demand) (Demand, error)
		// QueryDemands applies AND operation on available QueryFilter fields.
		// QueryFilter.DueWeek keeps demands whose due_date falls in the week.
		QueryDemands(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Demand, error)
		GetDemand(ctx context.Context, id string) (Demand, error)
		UpdateDemand(ctx context.Context, d Demand) (Demand, error)
		DeleteDemand(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		users *user.Service
	}
)

func NewService(repo Repository, users *user.Service) *Service {
	return &Service{repo: repo, users: users}
}

// CanManage tells whether actor may access demands: root or any capability flag.
func CanManage(actor user.User) bool {
	if !actor.IsActive {
		return false
	}
	return actor.IsRoot() || actor.CanManage(user.SubsystemCourses) || actor.CanManage(user.SubsystemActivities)
}

func (svc *Service) checkAssignee(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := svc.users.GetByID(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "assigned_to", Error: "user not found"})
		}
		return errors.Wrap(err, "finding assignee")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, nd NewDemand) (Demand, error) {
	if !CanManage(actor) {
		return Demand{}, core.ErrForbidden
	}
	if err := svc.checkAssignee(ctx, nd.AssignedTo); err != nil {
		return Demand{}, err
	}

	now := time.Now().UTC()
	d := Demand{
		ID:          uuid.New().String(),
		Title:       nd.Title,
		Description: nd.Description,
		Requester:   nd.Requester,
		Status:      nd.Status,
		Priority:    nd.Priority,
		AssignedTo:  null.NewString(nd.AssignedTo, nd.AssignedTo != ""),
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.Status == "" {
		d.Status = StatusOpen
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if nd.DueDate != "" {
		due, err := parseDate(nd.DueDate)
		if err != nil {
			return Demand{}, core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid date, expected YYYY-MM-DD"})
		}
		d.DueDate = null.TimeFrom(due)
	}
	return svc.repo.CreateDemand(ctx, d)
}

func (svc *Service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Demand, error) {
	if !CanManage(actor) {
		return nil, core.ErrForbidden
	}
	ordering = core.CleanOrderings(ordering, "title", "status", "priority", "due_date", "created_at")
	return svc.repo.QueryDemands(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Demand, error) {
	if !CanManage(actor) {
		return Demand{}, core.ErrForbidden
	}
	return svc.repo.GetDemand(ctx, id)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, ud UpdateDemand) (Demand, error) {
	d, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Demand{}, err
	}

	if ud.Title != nil {
		d.Title = *ud.Title
	}
	if ud.Description != nil {
		d.Description = *ud.Description
	}
	if ud.Requester != nil {
		d.Requester = *ud.Requester
	}
	if ud.Status != "" {
		d.Status = ud.Status
	}
	if ud.Priority != "" {
		d.Priority = ud.Priority
	}
	if ud.DueDate != nil {
		if *ud.DueDate == "" {
			d.DueDate = null.Time{}
		} else {
			due, err := parseDate(*ud.DueDate)
			if err != nil {
				return Demand{}, core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid date, expected YYYY-MM-DD"})
			}
			d.DueDate = null.TimeFrom(due)
		}
	}
	if ud.AssignedTo != nil {
		if err := svc.checkAssignee(ctx, *ud.AssignedTo); err != nil {
			return Demand{}, err
		}
		d.AssignedTo = null.NewString(*ud.AssignedTo, *ud.AssignedTo != "")
	}
	d.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDemand(ctx, d)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if !CanManage(actor) {
		return core.ErrForbidden
	}
	return svc.repo.DeleteDemand(ctx, id)
}
