package enrollment

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/user"
)

var (
	// errors
	ErrGrantNotFound = core.NewNotFoundError("grant")
	ErrNotEnrolled   = core.NewNotFoundError("enrollment")
	ErrGrantExists   = core.NewConflictError("user already has access to this course")
	ErrMissingGrant  = core.NewForbiddenError("access to this course requires a grant")
	ErrInvalidRole   = errors.New("user role cannot hold course grants")
)

type (
	Repository interface {
		GetGrant(ctx context.Context, userID, courseID string) (Grant, error)
		QueryGrants(ctx context.Context, filter *QueryFilter) ([]Grant, error)
		// CreateGrant inserts g and, in the same transaction, enrolls the user when the course is published
		// and not already enrolled, incrementing the course's enrolled_count. Returns ErrGrantExists on duplicates.
		CreateGrant(ctx context.Context, g Grant) (enrollmentCreated bool, err error)
		// DeleteGrant removes the grant and any enrollment of the same pair, decrementing
		// enrolled_count (floored at 0) in the same transaction. Returns ErrGrantNotFound when absent.
		DeleteGrant(ctx context.Context, userID, courseID string) (enrollmentRemoved bool, err error)

		GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter *QueryFilter) ([]Enrollment, error)
		// CreateEnrollment is a no-op when the pair is already enrolled; otherwise it inserts the row and
		// increments enrolled_count in the same transaction.
		CreateEnrollment(ctx context.Context, e Enrollment) (created bool, err error)
		// DeleteEnrollment is a no-op when the pair is not enrolled; otherwise it deletes the row and
		// decrements enrolled_count (floored at 0) in the same transaction.
		DeleteEnrollment(ctx context.Context, userID, courseID string) (removed bool, err error)

		// ReconcileEnrolledCounts sets every course's enrolled_count to its number of enrollments
		// and returns the number of courses that drifted.
		ReconcileEnrolledCounts(ctx context.Context) (int, error)
	}

	Service struct {
		repo    Repository
		users   *user.Service
		courses course.Repository
		mailer  core.EmailService
	}
)

// NewService returns an enrollment Service. mailer may be nil to skip grant notifications.
func NewService(repo Repository, users *user.Service, courses course.Repository, mailer core.EmailService) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		courses: courses,
		mailer:  mailer,
	}
}

// CanManageGrants tells whether actor may grant and revoke course access: root or the courses capability.
func CanManageGrants(actor user.User) bool {
	if !actor.IsActive {
		return false
	}
	return actor.IsRoot() || actor.CanManage(user.SubsystemCourses)
}

// Grant gives userID access to courseID and enrolls them when the course is published.
func (svc *Service) Grant(ctx context.Context, actor user.User, userID, courseID string) (enrollmentCreated bool, err error) {
	if !CanManageGrants(actor) {
		return false, core.ErrForbidden
	}
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "finding user")
	}
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return false, errors.Wrap(err, "finding course")
	}
	if !user.CanHoldGrant(usr.Role) {
		return false, core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "user_id", Error: ErrInvalidRole.Error()})
	}

	enrollmentCreated, err = svc.repo.CreateGrant(ctx, Grant{
		UserID:    usr.ID,
		CourseID:  crs.ID,
		GrantedBy: actor.ID,
		GrantedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, errors.Wrap(err, "creating grant")
	}

	svc.notifyGrant(usr, crs, enrollmentCreated)
	return enrollmentCreated, nil
}

// Revoke removes the access of userID to courseID along with their enrollment.
func (svc *Service) Revoke(ctx context.Context, actor user.User, userID, courseID string) (enrollmentRemoved bool, err error) {
	if !CanManageGrants(actor) {
		return false, core.ErrForbidden
	}
	enrollmentRemoved, err = svc.repo.DeleteGrant(ctx, userID, courseID)
	return enrollmentRemoved, errors.Wrap(err, "deleting grant")
}

// resolveTarget returns the user an enrollment call acts upon. Only root may act for someone else.
func (svc *Service) resolveTarget(ctx context.Context, actor user.User, userID string) (user.User, error) {
	if userID == "" || userID == actor.ID {
		return actor, nil
	}
	if !actor.IsRoot() {
		return user.User{}, core.ErrForbidden
	}
	usr, err := svc.users.GetByID(ctx, userID)
	return usr, errors.Wrap(err, "finding user")
}

// SelfEnroll enrolls the actor (or, for root, userID) in a published course. Enrolling twice is a no-op.
func (svc *Service) SelfEnroll(ctx context.Context, actor user.User, userID, courseID string) (created bool, err error) {
	usr, err := svc.resolveTarget(ctx, actor, userID)
	if err != nil {
		return false, err
	}
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return false, errors.Wrap(err, "finding course")
	}
	if !crs.IsPublished() {
		return false, course.ErrNotFound
	}
	if user.RequiresGrant(usr.Role) {
		if _, err := svc.repo.GetGrant(ctx, usr.ID, crs.ID); err != nil {
			if core.IsNotFound(err) {
				return false, ErrMissingGrant
			}
			return false, errors.Wrap(err, "finding grant")
		}
	}

	created, err = svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:     usr.ID,
		CourseID:   crs.ID,
		EnrolledAt: time.Now().UTC(),
	})
	return created, errors.Wrap(err, "creating enrollment")
}

// SelfUnenroll removes the enrollment of the actor (or, for root, userID). Unenrolling twice is a no-op.
func (svc *Service) SelfUnenroll(ctx context.Context, actor user.User, userID, courseID string) (removed bool, err error) {
	usr, err := svc.resolveTarget(ctx, actor, userID)
	if err != nil {
		return false, err
	}
	removed, err = svc.repo.DeleteEnrollment(ctx, usr.ID, courseID)
	return removed, errors.Wrap(err, "deleting enrollment")
}

func (svc *Service) QueryGrants(ctx context.Context, actor user.User, filter *QueryFilter) ([]Grant, error) {
	if !CanManageGrants(actor) {
		return nil, core.ErrForbidden
	}
	return svc.repo.QueryGrants(ctx, filter)
}

// QueryEnrollments lists enrollments. Actors who cannot manage courses only see their own.
func (svc *Service) QueryEnrollments(ctx context.Context, actor user.User, filter *QueryFilter) ([]Enrollment, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !course.CanManage(actor) {
		filter.UserID = actor.ID
	}
	return svc.repo.QueryEnrollments(ctx, filter)
}

// Reconcile recomputes enrolled_count of every course from the enrollment rows.
func (svc *Service) Reconcile(ctx context.Context, actor user.User) (int, error) {
	if !(actor.IsActive && actor.IsRoot()) {
		return 0, core.ErrForbidden
	}
	n, err := svc.repo.ReconcileEnrolledCounts(ctx)
	return n, errors.Wrap(err, "reconciling enrolled counts")
}

func (svc *Service) notifyGrant(usr user.User, crs course.Course, enrolled bool) {
	if usr.Email == "" || svc.mailer == nil {
		return
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Acesso liberado: " + crs.Title,
		TemplateName: "course_access_granted",
		TemplateData: grantNotice{
			UserName:    usr.Name,
			CourseTitle: crs.Title,
			CourseID:    crs.ID,
			Enrolled:    enrolled,
		},
	}
	svc.mailer.SendMessages(msg)
}
