// Package validation turns raw form input into typed values, or into the
// field-keyed messages shown next to the form.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violations maps a form field name to its error messages.
type Violations map[string][]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add appends msg to field, skipping duplicates.
func (v Violations) Add(field, msg string) {
	for _, existing := range v[field] {
		if existing == msg {
			return
		}
	}
	v[field] = append(v[field], msg)
}

// Has reports whether field has at least one message.
func (v Violations) Has(field string) bool { return len(v[field]) > 0 }

// First returns the first message for field, or "".
func (v Violations) First(field string) string {
	if msgs := v[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

var validate = newValidator()

// newValidator reports struct fields under their form names so errors line
// up with the submitted keys.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// collect runs the validator on s and records one message per failing field,
// taken from messages, falling back to a generic one.
func collect(s any, messages map[string]string) Violations {
	out := Violations{}
	err := validate.Struct(s)
	if err == nil {
		return out
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		out.Add("form", err.Error())
		return out
	}
	for _, fe := range errs {
		msg, ok := messages[fe.Field()]
		if !ok {
			msg = "Invalid value"
		}
		out.Add(fe.Field(), msg)
	}
	return out
}
