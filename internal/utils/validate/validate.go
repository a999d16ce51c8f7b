// Package validate holds the field-level rules shared by every entity in the
// registry.
//
// There is exactly ONE definition of each rule. The rules are registered
// with go-playground/validator as custom tags or aliases, so the same rule
// backs both:
//
//   - struct tags on the entity types, e.g. `validate:"required,person_name"`
//   - the plain predicates below, e.g. validate.Name("Ada Lovelace")
//
// Range rules (age, year, grade) follow their documented meaning: a value
// inside the range is VALID.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Tag names usable in `validate:"..."` struct tags.
const (
	TagNonBlank   = "nonblank"
	TagPersonName = "person_name"
	TagEmail      = "email_address"
	TagAge        = "age"
	TagStudyYear  = "study_year"
	TagCourseYear = "course_year"
	TagGrade      = "grade"
)

// Bounds for the range rules.
const (
	MinAge   = 10 // exclusive
	MaxAge   = 30 // exclusive
	MinYear  = 1
	MaxYear  = 5
	MinGrade = 0.0
	MaxGrade = 100.0
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nameRegex  = regexp.MustCompile(`^[a-zA-Z\s']+$`)
)

// v is configured once; *validator.Validate caches struct metadata and is
// meant to be shared.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so messages match the persisted file.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(val, TagNonBlank, func(fl validator.FieldLevel) bool {
		return NonEmpty(fl.Field().String())
	})
	mustRegister(val, TagPersonName, func(fl validator.FieldLevel) bool {
		return Name(fl.Field().String())
	})
	mustRegister(val, TagEmail, func(fl validator.FieldLevel) bool {
		return Email(fl.Field().String())
	})
	mustRegister(val, TagCourseYear, func(fl validator.FieldLevel) bool {
		// 0 means "not specified" for a course.
		year := fl.Field().Int()
		return year == 0 || (year >= MinYear && year <= MaxYear)
	})

	val.RegisterAlias(TagAge, fmt.Sprintf("gt=%d,lt=%d", MinAge, MaxAge))
	val.RegisterAlias(TagStudyYear, fmt.Sprintf("min=%d,max=%d", MinYear, MaxYear))
	val.RegisterAlias(TagGrade, fmt.Sprintf("gte=%g,lte=%g", MinGrade, MaxGrade))

	return val
}

func mustRegister(val *validator.Validate, tag string, fn validator.Func) {
	if err := val.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %q: %v", tag, err))
	}
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return emailRegex.MatchString(s)
}

// Name reports whether s is a person's name: letters, whitespace and
// apostrophes, with at least one letter.
func Name(s string) bool {
	return nameRegex.MatchString(s) && strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// NonEmpty reports whether s has any non-whitespace content.
func NonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Age reports whether age lies strictly between MinAge and MaxAge.
func Age(age int) bool {
	return v.Var(age, TagAge) == nil
}

// Year reports whether year is a study year in [MinYear, MaxYear].
func Year(year int) bool {
	return v.Var(year, TagStudyYear) == nil
}

// Grade reports whether grade lies in [MinGrade, MaxGrade].
func Grade(grade float64) bool {
	return v.Var(grade, TagGrade) == nil
}

// Error is returned by Struct when one or more fields fail their rules.
// Messages holds one human-readable sentence per failing field, in field
// order.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, ", ")
}

// Struct checks every `validate:"..."` tag on s.
//
// It returns nil when s is valid, a *Error describing each failing field
// otherwise. Programming errors (s is not a struct) are returned unchanged.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return &Error{Messages: msgs}
}

// message converts one validator.FieldError into an English sentence.
// Tag() returns the alias name ("age") rather than the expanded rule
// ("gt"), which is what we want to switch on.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", TagNonBlank:
		return fmt.Sprintf("%s cannot be empty", fe.Field())
	case TagPersonName:
		return fmt.Sprintf("invalid name %q: must contain letters and may contain spaces and apostrophes only", fe.Value())
	case TagEmail:
		return fmt.Sprintf("invalid email %q: must be a valid email address", fe.Value())
	case TagAge:
		return fmt.Sprintf("invalid age %v: must be greater than %d and less than %d", fe.Value(), MinAge, MaxAge)
	case TagStudyYear, TagCourseYear:
		return fmt.Sprintf("invalid year %v: must be between %d and %d", fe.Value(), MinYear, MaxYear)
	case TagGrade:
		return fmt.Sprintf("invalid grade %v: must be between %g and %g", fe.Value(), MinGrade, MaxGrade)
	default:
		return fmt.Sprintf("field %s is invalid", fe.Field())
	}
}
