// Package validation checks request structs against their validate tags and
// reports failures as coded domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/password"
)

// TagSecretHash checks a string against the configured hashing scheme
const TagSecretHash = "secret_hash"

// Validator wraps a validator.Validate bound to one hashing scheme
type Validator struct {
	validate *validator.Validate
	scheme   password.Scheme
}

// New creates a Validator whose secret_hash rule accepts only hashes of scheme
func New(scheme password.Scheme) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonName)

	// Registering a non-empty tag with a non-nil func cannot fail
	_ = validate.RegisterValidation(TagSecretHash, func(fl validator.FieldLevel) bool {
		return password.Validate(fl.Field().String(), scheme) == nil
	})

	return &Validator{
		validate: validate,
		scheme:   scheme,
	}
}

// Struct validates s. Every failed field is reported; errors.Is matches the
// code of the first one.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return domain.ErrInvalidRequestBody.Wrap(err)
	}

	violations := make([]domain.FieldError, 0, len(failures))
	for _, fe := range failures {
		violations = append(violations, v.toDomain(fe))
	}
	return domain.NewValidationError(violations)
}

func (v *Validator) toDomain(fe validator.FieldError) domain.FieldError {
	field := fieldPath(fe.Namespace())

	switch fe.Tag() {
	case TagSecretHash:
		hash, _ := fe.Value().(string)
		return domain.ErrInvalidHash.WithField(field, password.Validate(hash, v.scheme))
	case "unique":
		return domain.ErrDuplicateClientID.WithField(field,
			fmt.Errorf("%q appears more than once", firstDuplicate(fe.Value(), fe.Param())))
	case "required", "min":
		if fe.Kind() == reflect.Slice {
			return domain.ErrEmptyClientList.WithField(field, errors.New("must not be empty"))
		}
		return domain.ErrInvalidField.WithField(field, fmt.Errorf("%s is required", fe.Field()))
	case "gte":
		return domain.ErrInvalidField.WithField(field, fmt.Errorf("must be greater than or equal to %s", fe.Param()))
	default:
		return domain.ErrInvalidField.WithField(field, fmt.Errorf("failed %s validation", fe.Tag()))
	}
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// fieldPath turns SyncTarget.clients[1].Client.client_secret_hash into
// clients[1].client_secret_hash. Segments that keep their Go name are
// embedded structs, since every API field has a lower-case JSON name.
func fieldPath(namespace string) string {
	segments := strings.Split(namespace, ".")
	if len(segments) > 1 {
		segments = segments[1:]
	}

	path := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" && unicode.IsUpper(rune(s[0])) {
			continue
		}
		path = append(path, s)
	}
	return strings.Join(path, ".")
}

// firstDuplicate returns the first repeated value of the named field across
// the elements of a slice of structs
func firstDuplicate(list any, field string) string {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return ""
	}

	seen := make(map[string]struct{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := reflect.Indirect(rv.Index(i))
		if elem.Kind() != reflect.Struct {
			continue
		}
		f := elem.FieldByName(field)
		if !f.IsValid() {
			continue
		}
		key := fmt.Sprint(f.Interface())
		if _, ok := seen[key]; ok {
			return key
		}
		seen[key] = struct{}{}
	}
	return ""
}
