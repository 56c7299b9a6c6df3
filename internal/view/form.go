// Package view turns domain values into the render models used by the HTML
// templates. It performs no I/O.
package view

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/pkg/datefmt"
)

// Form field names, shared by the templates and the read-only set.
const (
	FieldID                 = "id"
	FieldProfessorID        = "professor_id"
	FieldRecommendationType = "recommendationType"
	FieldDetails            = "details"
	FieldDueDate            = "dueDate"
)

// OptionOther is always offered by both selects so incomplete reference
// data never blocks a submission.
const OptionOther = "Other"

// FormState is the request form as posted by the browser. Disabled controls
// are not posted, so read-only fields arrive empty.
type FormState struct {
	ID                 string `form:"id"`
	ProfessorID        string `form:"professor_id"`
	RecommendationType string `form:"recommendationType"`
	Details            string `form:"details"`
	DueDate            string `form:"dueDate"`

	ProfessorName string `form:"-"`
}

// Draft converts the posted form into a domain draft.
func (s FormState) Draft() models.RequestDraft {
	return models.RequestDraft{
		ProfessorID:        s.ProfessorID,
		RecommendationType: s.RecommendationType,
		Details:            s.Details,
		DueDate:            s.DueDate,
	}
}

// FormStateFromRequest pre-fills the edit form. The due date is shown in loc.
func FormStateFromRequest(r models.RecommendationRequest, loc *time.Location) FormState {
	state := FormState{
		ID:                 strconv.FormatInt(r.ID, 10),
		RecommendationType: r.RecommendationType,
		Details:            r.Details,
		ProfessorName:      r.Professor.FullName,
	}
	if r.Professor.ID != 0 {
		state.ProfessorID = strconv.FormatInt(r.Professor.ID, 10)
	}
	if loc == nil {
		loc = time.Local
	}
	if due, ok := datefmt.ParseTimestamp(r.DueDate, loc); ok {
		state.DueDate = due.In(loc).Format(datefmt.InputLayout)
	}
	return state
}

// ReadOnlyFields is the set of fields rendered disabled and exempt from validation.
type ReadOnlyFields map[string]bool

// ReadOnly builds a read-only set.
func ReadOnly(fields ...string) ReadOnlyFields {
	set := make(ReadOnlyFields, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// Has reports whether field is read-only. A nil set has no read-only fields.
func (r ReadOnlyFields) Has(field string) bool {
	return r[field]
}

// EditReadOnlyFields are locked once a request exists.
var EditReadOnlyFields = ReadOnly(FieldProfessorID, FieldRecommendationType, FieldDueDate)

type fieldCheck struct {
	tag     string
	message string
}

type fieldRule struct {
	field  string
	value  func(FormState) string
	checks []fieldCheck
	// waivable rules are skipped when the field is read-only.
	waivable bool
}

var requestFormRules = []fieldRule{
	{
		field:    FieldProfessorID,
		value:    func(s FormState) string { return s.ProfessorID },
		checks:   []fieldCheck{{tag: "required", message: "Please select a professor"}},
		waivable: true,
	},
	{
		field:    FieldRecommendationType,
		value:    func(s FormState) string { return s.RecommendationType },
		checks:   []fieldCheck{{tag: "required", message: "Please select a recommendation type"}},
		waivable: true,
	},
	{
		field:    FieldDetails,
		value:    func(s FormState) string { return s.Details },
		waivable: true,
	},
	{
		field: FieldDueDate,
		value: func(s FormState) string { return s.DueDate },
		checks: []fieldCheck{
			{tag: "required", message: "Please provide a due date"},
			{tag: "datetime_local", message: "Please provide a valid due date"},
		},
		waivable: true,
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("datetime_local", func(fl validator.FieldLevel) bool {
		_, ok := datefmt.ParseInput(fl.Field().String(), time.UTC)
		return ok
	})
	return v
}

// ValidateForm applies the form rules and returns one message per failing
// field. An empty map means the form may be submitted.
func ValidateForm(state FormState, readOnly ReadOnlyFields) map[string]string {
	errs := map[string]string{}
	for _, rule := range requestFormRules {
		if rule.waivable && readOnly.Has(rule.field) {
			continue
		}
		value := rule.value(state)
		for _, check := range rule.checks {
			if err := validate.Var(value, check.tag); err != nil {
				errs[rule.field] = check.message
				break
			}
		}
	}
	return errs
}

// Option is one entry of a select control.
type Option struct {
	Value    string
	Label    string
	Selected bool
	Disabled bool
}

// FieldView is the render model of one form control.
type FieldView struct {
	Name     string
	Label    string
	Value    string
	Disabled bool
	Error    string
	Options  []Option
}

// Invalid reports whether the field failed validation.
func (f FieldView) Invalid() bool { return f.Error != "" }

// FormView is the render model of the request form.
type FormView struct {
	Action      string
	ButtonLabel string
	CancelURL   string

	ShowID             bool
	ID                 FieldView
	Professor          FieldView
	RecommendationType FieldView
	Details            FieldView
	DueDate            FieldView
}

// FormOptions configures BuildForm.
type FormOptions struct {
	Action      string
	ButtonLabel string
	CancelURL   string
	// Editing is set when the form shows an existing request.
	Editing      bool
	State        FormState
	ReadOnly     ReadOnlyFields
	Errors       map[string]string
	Professors   []models.UserRef
	RequestTypes []models.RequestType
}

// BuildForm assembles the request form. Empty reference lists render a
// "none available" placeholder rather than an error.
func BuildForm(opts FormOptions) FormView {
	if opts.ButtonLabel == "" {
		opts.ButtonLabel = "Create"
	}
	state := opts.State
	field := func(name, label, value string) FieldView {
		return FieldView{
			Name:     name,
			Label:    label,
			Value:    value,
			Disabled: opts.ReadOnly.Has(name),
			Error:    opts.Errors[name],
		}
	}

	view := FormView{
		Action:             opts.Action,
		ButtonLabel:        opts.ButtonLabel,
		CancelURL:          opts.CancelURL,
		ShowID:             opts.Editing,
		Professor:          field(FieldProfessorID, "Professor", state.ProfessorID),
		RecommendationType: field(FieldRecommendationType, "Recommendation Type", state.RecommendationType),
		Details:            field(FieldDetails, "Details", state.Details),
		DueDate:            field(FieldDueDate, "Due Date", state.DueDate),
	}
	if opts.Editing {
		view.ID = FieldView{Name: FieldID, Label: "Id", Value: state.ID, Disabled: true}
	}

	professors := make([]Option, 0, len(opts.Professors))
	for _, p := range opts.Professors {
		professors = append(professors, Option{Value: strconv.FormatInt(p.ID, 10), Label: p.FullName})
	}
	view.Professor.Options = selectOptions(professors, state.ProfessorID, state.ProfessorName,
		"Select a professor", "No professors available")

	types := make([]Option, 0, len(opts.RequestTypes))
	for _, t := range opts.RequestTypes {
		types = append(types, Option{Value: t.RequestType, Label: t.RequestType})
	}
	view.RecommendationType.Options = selectOptions(types, state.RecommendationType, "",
		"Select a recommendation type", "No recommendation types available, use Other in details")

	return view
}

// selectOptions prepends the placeholder, appends Other and marks the
// current value. A current value missing from the list is kept so an edit
// form still shows what the request holds.
func selectOptions(items []Option, current, currentLabel, prompt, empty string) []Option {
	placeholder := Option{Value: "", Label: prompt, Disabled: true}
	if len(items) == 0 {
		placeholder.Label = empty
	}
	out := make([]Option, 0, len(items)+3)
	out = append(out, placeholder)
	out = append(out, items...)

	found, hasOther := current == "" || current == OptionOther, false
	for _, o := range items {
		found = found || o.Value == current
		hasOther = hasOther || o.Value == OptionOther
	}
	if !found {
		label := currentLabel
		if label == "" {
			label = current
		}
		out = append(out, Option{Value: current, Label: label})
	}
	if !hasOther {
		out = append(out, Option{Value: OptionOther, Label: OptionOther})
	}

	selected := false
	for i := range out[1:] {
		if out[i+1].Value == current && !selected {
			out[i+1].Selected = true
			selected = true
		}
	}
	if !selected {
		out[0].Selected = true
	}
	return out
}
