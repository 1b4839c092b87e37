package activity

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cursos/core"
)

var (
	bnccTag  = "bncc"
	bnccText = "invalid BNCC code"
)

// InitValidators registers the activity validators on `validate`. Call it after core.InitValidators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(bnccTag, func(fl validator.FieldLevel) bool {
		return IsValidBNCC(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, bnccTag, bnccText)
}

// Activity is a catalog entry aligned to a BNCC skill.
type Activity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BNCCCode    string    `json:"bncc_code"`
	Stage       string    `json:"stage"`
	Subject     string    `json:"subject"`
	Grade       string    `json:"grade"`
	Published   bool      `json:"published"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewActivity struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description"`
	BNCCCode    string `json:"bncc_code" validate:"required,bncc"`
	Subject     string `json:"subject" validate:"max=100"`
	Grade       string `json:"grade" validate:"max=20"`
	Published   bool   `json:"published"`
}

func (na *NewActivity) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.BNCCCode = NormalizeBNCC(na.BNCCCode)
	na.Subject = core.CleanString(na.Subject)
	na.Grade = core.CleanString(na.Grade)
	return validate.Struct(na)
}

type UpdateActivity struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description"`
	BNCCCode    *string `json:"bncc_code" validate:"omitempty,bncc"`
	Subject     *string `json:"subject" validate:"omitempty,max=100"`
	Grade       *string `json:"grade" validate:"omitempty,max=20"`
	Published   *bool   `json:"published"`
}

func (ua *UpdateActivity) Validate(validate *validator.Validate) error {
	clean := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := core.CleanString(*s)
		return &v
	}
	ua.Title = clean(ua.Title)
	ua.Description = clean(ua.Description)
	ua.Subject = clean(ua.Subject)
	ua.Grade = clean(ua.Grade)
	if ua.BNCCCode != nil {
		code := NormalizeBNCC(*ua.BNCCCode)
		ua.BNCCCode = &code
	}
	return validate.Struct(ua)
}

type QueryFilter struct {
	Search     string `query:"search"`
	BNCCPrefix string `query:"bncc"`
	Stage      string `query:"stage"`
	Subject    string `query:"subject"`
	Published  *bool  `query:"published"`

	// VisibleTo restricts results to published activities and the ones created by this user id.
	VisibleTo string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.BNCCPrefix = NormalizeBNCC(qf.BNCCPrefix)
	qf.Stage = core.CleanString(qf.Stage, true /* lower */)
	qf.Subject = core.CleanString(qf.Subject)
	qf.VisibleTo = ""
}
