// Package validation checks inbound request structs against their
// `validate` tags and renders failures as readable English messages.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var defaultValidator *Validator

func init() {
	var err error

	if defaultValidator, err = New(); err != nil {
		panic(err)
	}
}

type Validator struct {
	v *validator.Validate
	t ut.Translator
}

func New() (*Validator, error) {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	translate, _ := uni.GetTranslator("en")
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := entranslations.RegisterDefaultTranslations(validate, translate); err != nil {
		return nil, err
	}

	if err := registerTranslations(validate, translate); err != nil {
		return nil, err
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" || name == "-" {
			name = fld.Name
		}

		return strings.SplitN(name, ",", 2)[0]
	})

	return &Validator{v: validate, t: translate}, nil
}

// Struct validates s and returns *Error when any rule fails.
func (v *Validator) Struct(s any) error {
	return wrapError(v.v.Struct(s), v.t)
}

// Struct validates s with the package default validator.
func Struct(s any) error { return defaultValidator.Struct(s) }

func registerTranslations(validate *validator.Validate, trans ut.Translator) error {
	return validate.RegisterTranslation("http_url", trans,
		func(t ut.Translator) error {
			return t.Add("http_url", "{0} must be an absolute http or https URL", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("http_url", fe.Field())
			return msg
		},
	)
}
