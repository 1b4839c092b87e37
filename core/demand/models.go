package demand

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core"
)

// Statuses
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCanceled   = "canceled"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const dateLayout = "2006-01-02"

// Demand is an internal request tracked by the platform administrators.
type Demand struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Requester   string      `json:"requester"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	DueDate     null.Time   `json:"due_date"`
	AssignedTo  null.String `json:"assigned_to"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

type NewDemand struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description"`
	Requester   string `json:"requester" validate:"max=255"`
	Status      string `json:"status" validate:"omitempty,oneof=open in_progress done canceled"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	AssignedTo  string `json:"assigned_to"`
}

func (nd *NewDemand) Validate(validate *validator.Validate) error {
	nd.Title = core.CleanString(nd.Title)
	nd.Description = core.CleanString(nd.Description)
	nd.Requester = core.CleanString(nd.Requester)
	nd.Status = core.CleanString(nd.Status, true /* lower */)
	nd.Priority = core.CleanString(nd.Priority, true /* lower */)
	nd.DueDate = core.CleanString(nd.DueDate)
	nd.AssignedTo = core.CleanString(nd.AssignedTo)
	return validate.Struct(nd)
}

// UpdateDemand only overwrites the provided fields. An empty due_date or assigned_to clears it.
type UpdateDemand struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description"`
	Requester   *string `json:"requester" validate:"omitempty,max=255"`
	Status      string  `json:"status" validate:"omitempty,oneof=open in_progress done canceled"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string `json:"due_date" validate:"omitempty"`
	AssignedTo  *string `json:"assigned_to"`
}

func (ud *UpdateDemand) Validate(validate *validator.Validate) error {
	clean := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := core.CleanString(*s)
		return &v
	}
	ud.Title = clean(ud.Title)
	ud.Description = clean(ud.Description)
	ud.Requester = clean(ud.Requester)
	ud.DueDate = clean(ud.DueDate)
	ud.AssignedTo = clean(ud.AssignedTo)
	ud.Status = core.CleanString(ud.Status, true /* lower */)
	ud.Priority = core.CleanString(ud.Priority, true /* lower */)
	if err := validate.Struct(ud); err != nil {
		return err
	}
	if ud.DueDate != nil && *ud.DueDate != "" {
		if _, err := parseDate(*ud.DueDate); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid date, expected YYYY-MM-DD"})
		}
	}
	return nil
}

type QueryFilter struct {
	Search     string   `query:"search"`
	Week       string   `query:"week"`
	Statuses   []string `query:"status"`
	Priorities []string `query:"priority"`
	AssignedTo string   `query:"assigned_to"`

	// DueWeek is parsed from Week by Clean.
	DueWeek *Week `query:"-"`
}

// Clean normalizes the filter and parses Week.
func (qf *QueryFilter) Clean() error {
	qf.Search = core.CleanString(qf.Search)
	qf.Week = core.CleanString(qf.Week, false)
	qf.AssignedTo = core.CleanString(qf.AssignedTo)
	qf.DueWeek = nil
	if qf.Week != "" {
		w, err := ParseWeek(qf.Week)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "week", Error: err.Error()})
		}
		qf.DueWeek = &w
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
