package activity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/user"
)

var ErrNotFound = core.NewNotFoundError("activity")

type (
	Repository interface {
		CreateActivity(ctx context.Context, a Activity) (Activity, error)
		// QueryActivities applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Activity.Title or Activity.Description.
		QueryActivities(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Activity, error)
		GetActivity(ctx context.Context, id string) (Activity, error)
		UpdateActivity(ctx context.Context, a Activity) (Activity, error)
		DeleteActivity(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CanCreate tells whether actor may add activities to the catalog: teacher rank or the capability flag.
func CanCreate(actor user.User) bool {
	return user.Authorize(actor, user.RoleTeacher, user.CatalogHierarchy) ||
		(actor.IsActive && actor.CanManage(user.SubsystemActivities))
}

// CanManageAll tells whether actor may modify any activity: admin rank or the capability flag.
func CanManageAll(actor user.User) bool {
	return user.Authorize(actor, user.RoleAdmin, user.CatalogHierarchy) ||
		(actor.IsActive && actor.CanManage(user.SubsystemActivities))
}

// CanModify tells whether actor may update or delete a.
func CanModify(actor user.User, a Activity) bool {
	if actor.IsActive && a.CreatedBy != "" && a.CreatedBy == actor.ID {
		return true
	}
	return CanManageAll(actor)
}

func visible(actor user.User, a Activity) bool {
	return a.Published || CanModify(actor, a)
}

func (svc *Service) Create(ctx context.Context, actor user.User, na NewActivity) (Activity, error) {
	if !CanCreate(actor) {
		return Activity{}, core.ErrForbidden
	}
	now := time.Now().UTC()
	return svc.repo.CreateActivity(ctx, Activity{
		ID:          uuid.New().String(),
		Title:       na.Title,
		Description: na.Description,
		BNCCCode:    na.BNCCCode,
		Stage:       StageOf(na.BNCCCode),
		Subject:     na.Subject,
		Grade:       na.Grade,
		Published:   na.Published,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Query lists activities. Actors who cannot manage the catalog see published activities and their own.
func (svc *Service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Activity, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !CanManageAll(actor) {
		filter.VisibleTo = actor.ID
	}
	ordering = core.CleanOrderings(ordering, "title", "bncc_code", "stage", "subject", "created_at")
	return svc.repo.QueryActivities(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Activity, error) {
	a, err := svc.repo.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if !visible(actor, a) {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, ua UpdateActivity) (Activity, error) {
	a, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Activity{}, err
	}
	if !CanModify(actor, a) {
		return Activity{}, core.ErrForbidden
	}

	if ua.Title != nil {
		a.Title = *ua.Title
	}
	if ua.Description != nil {
		a.Description = *ua.Description
	}
	if ua.BNCCCode != nil {
		a.BNCCCode = *ua.BNCCCode
		a.Stage = StageOf(a.BNCCCode)
	}
	if ua.Subject != nil {
		a.Subject = *ua.Subject
	}
	if ua.Grade != nil {
		a.Grade = *ua.Grade
	}
	if ua.Published != nil {
		a.Published = *ua.Published
	}
	a.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateActivity(ctx, a)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	a, err := svc.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !CanModify(actor, a) {
		return core.ErrForbidden
	}
	return svc.repo.DeleteActivity(ctx, id)
}
