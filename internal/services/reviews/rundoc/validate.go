package rundoc

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ValidatorSvc holds the shared validator and its english translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc
)

// Validator returns the document validator, building it on first use.
// Messages use json tag names so they match the keys people write
func Validator() *ValidatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerShortMin(v, trans)
		registerAppID(v, trans)

		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

// Problem is one translated validation failure
type Problem struct {
	Field   string // path such as apps[1].start_date
	Message string
}

// Problems flattens a validator error into translated messages.
// Errors that did not come from the validator yield a single problem
func Problems(err error) []Problem {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Problem{{Message: err.Error()}}
	}
	tr := Validator().Translator
	out := make([]Problem, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Problem{
			Field:   fieldPath(fe.Namespace()),
			Message: fe.Translate(tr),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func registerShortMin(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterTranslation("min", trans,
		func(ut ut.Translator) error {
			return ut.Add("min", "{0} must be at least {1}", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("min", fe.Field(), fe.Param())
			return msg
		},
	)
}

// appID matches store application ids such as com.example.app; the id
// becomes a file name so separators and dot segments are refused
var appID = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

func registerAppID(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterValidation("appid", func(fl validator.FieldLevel) bool {
		return appID.MatchString(fl.Field().String())
	})
	_ = v.RegisterTranslation("appid", trans,
		func(ut ut.Translator) error {
			return ut.Add("appid", "{0} must be an application id such as com.example.app", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("appid", fe.Field())
			return msg
		},
	)
}
