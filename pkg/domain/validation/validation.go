// Package validation checks templates, guests and assign buffers before they
// are sent to the server. Failures are reported per field.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/matlist"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

// ValidationError maps json field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// TemplateNameChecker resolves true when name is unused within the facility
// or belongs to the template excludingID.
type TemplateNameChecker interface {
	CheckTemplateNameUnique(ctx context.Context, facilityID int64, name string, excludingID int64) (bool, error)
}

// GuestNameChecker is the guest counterpart of TemplateNameChecker.
type GuestNameChecker interface {
	CheckGuestNameUnique(ctx context.Context, facilityID int64, firstName, lastName string, excludingID int64) (bool, error)
}

const notUnique = "That name is already in use within this facility"

var clockTime = regexp.MustCompile(`^\d\d:\d\d(:\d\d)?$`)

// ClockTime reports whether s is 99:99 or 99:99:99.
func ClockTime(s string) bool {
	return clockTime.MatchString(s)
}

var labels = map[string]string{
	"Name":          "Name",
	"AllMats":       "All Mats",
	"HandicapMats":  "Handicap Mats",
	"SocketMats":    "Socket Mats",
	"FirstName":     "First Name",
	"LastName":      "Last Name",
	"GuestID":       "Guest",
	"PaymentType":   "Payment Type",
	"PaymentAmount": "Payment Amount",
	"ShowerTime":    "Shower Time",
	"WakeupTime":    "Wakeup Time",
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

type Validator struct {
	validate  *validator.Validate
	templates TemplateNameChecker
	guests    GuestNameChecker
}

// New builds a Validator. Nil checkers skip the uniqueness checks.
func New(templates TemplateNameChecker, guests GuestNameChecker) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("matlist", func(fl validator.FieldLevel) bool {
		return matlist.Valid(fl.Field().String())
	})
	_ = v.RegisterValidation("matsubset", func(fl validator.FieldLevel) bool {
		all := reflect.Indirect(fl.Parent()).FieldByName(fl.Param())
		if !all.IsValid() || all.Kind() != reflect.String {
			return false
		}
		return matlist.IsSubset(fl.Field().String(), all.String())
	})
	_ = v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		return ClockTime(fl.Field().String())
	})
	_ = v.RegisterValidation("paytype", func(fl validator.FieldLevel) bool {
		return model.PaymentType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		return model.Amount(fl.Field().String()).Valid()
	})
	return &Validator{validate: v, templates: templates, guests: guests}
}

// Template validates t for saving into its facility.
func (v *Validator) Template(ctx context.Context, t model.Template) error {
	const op = "validation.Template"

	verr := v.structErrors(t)
	if _, bad := verr.Fields["name"]; !bad && v.templates != nil {
		ok, err := v.templates.CheckTemplateNameUnique(ctx, t.FacilityID, t.Name, t.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			verr.Fields["name"] = notUnique
		}
	}
	return verr.orNil()
}

// Guest validates g for creation or update.
func (v *Validator) Guest(ctx context.Context, g model.Guest) error {
	const op = "validation.Guest"

	verr := v.structErrors(g)
	_, badFirst := verr.Fields["firstName"]
	_, badLast := verr.Fields["lastName"]
	if !badFirst && !badLast && v.guests != nil {
		ok, err := v.guests.CheckGuestNameUnique(ctx, g.FacilityID, g.FirstName, g.LastName, g.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			verr.Fields["lastName"] = notUnique
		}
	}
	return verr.orNil()
}

// Assign validates an assign buffer.
func (v *Validator) Assign(a model.Assign) error {
	return v.structErrors(a).orNil()
}

func (v *Validator) structErrors(s any) *ValidationError {
	verr := &ValidationError{Fields: map[string]string{}}
	err := v.validate.Struct(s)
	if err == nil {
		return verr
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		verr.Fields["_"] = err.Error()
		return verr
	}
	for _, fe := range fes {
		if _, seen := verr.Fields[fe.Field()]; seen {
			continue
		}
		verr.Fields[fe.Field()] = message(fe)
	}
	return verr
}

func message(fe validator.FieldError) string {
	l := label(fe.StructField())
	switch fe.Tag() {
	case "required":
		return l + " is required"
	case "matlist":
		text, _ := fe.Value().(string)
		if _, err := matlist.Parse(text); err != nil {
			return fmt.Sprintf("Invalid %s list format: %v", l, err)
		}
		return fmt.Sprintf("Invalid %s list format", l)
	case "matsubset":
		return fmt.Sprintf("%s must be a subset of %s", l, label(fe.Param()))
	case "clocktime":
		return fmt.Sprintf("Invalid %s format, must be 99:99 or 99:99:99", l)
	case "paytype":
		return fmt.Sprintf("Invalid %s %q", l, fe.Value())
	case "amount":
		return l + " must be a non-negative number"
	default:
		return fmt.Sprintf("%s failed %s", l, fe.Tag())
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
