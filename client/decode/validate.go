package decode

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("decode: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Validate checks val against its declared `validate` tags. Values that are
// not structs, or pointers to structs, carry no schema and always pass.
func Validate(val any) error {
	target, ok := structTarget(val)
	if !ok {
		return nil
	}

	if err := validate.Struct(target); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		fields := make(FieldErrors, 0, len(verrors))
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: fieldPath(verror.Namespace()),
				Err:   customErrForTag(verror.Tag(), verror),
			})
		}
		return fields
	}

	return nil
}

// fieldPath drops the root type name from a validator namespace,
// "User.address.city" becomes "address.city".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// structTarget unwraps pointers until it reaches a struct or a pointer to
// one, the shapes validator.Struct accepts.
func structTarget(val any) (any, bool) {
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		if rv.Elem().Kind() == reflect.Struct {
			return rv.Interface(), true
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	return rv.Interface(), true
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "This field is required"
	default:
		return verror.Translate(translator)
	}
}
