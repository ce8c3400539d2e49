package petition

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports a required field that is missing or empty.
// It is returned before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid petition: " + e.Reason
	}
	return fmt.Sprintf("invalid petition: %s %s", e.Field, e.Reason)
}

// Fields is the input for creating a record.
type Fields struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`

	Extra map[string]any `json:"-"`
}

// Patch is the input for updating a record. Nil pointers leave the field
// unchanged; a nil value in Extra removes that key.
type Patch struct {
	Name        *string
	Description *string
	Extra       map[string]any
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks that name and description are present and not blank.
func (f Fields) Validate() error {
	trimmed := f
	trimmed.Name = strings.TrimSpace(f.Name)
	trimmed.Description = strings.TrimSpace(f.Description)
	return toValidationError(validatorInstance().Struct(trimmed))
}

// Validate rejects empty patches and blank replacements for required fields.
func (p Patch) Validate() error {
	if p.Name == nil && p.Description == nil && len(p.Extra) == 0 {
		return &ValidationError{Reason: "no fields to update"}
	}
	v := validatorInstance()
	if p.Name != nil {
		if err := v.Var(strings.TrimSpace(*p.Name), "required"); err != nil {
			return &ValidationError{Field: KeyName, Reason: "is required"}
		}
	}
	if p.Description != nil {
		if err := v.Var(strings.TrimSpace(*p.Description), "required"); err != nil {
			return &ValidationError{Field: KeyDescription, Reason: "is required"}
		}
	}
	return nil
}

// Apply merges the patch into r in place. ID and timestamps are not touched.
func (p Patch) Apply(r *Record) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	for k, v := range p.Extra {
		if IsReserved(k) {
			continue
		}
		if v == nil {
			delete(r.Extra, k)
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[k] = CloneValue(v)
	}
	if len(r.Extra) == 0 {
		r.Extra = nil
	}
}

// PatchFromMap builds a Patch from loosely typed input such as a decoded
// JSON body. id, created_at and updated_at are dropped; name and description
// must be strings when present.
func PatchFromMap(m map[string]any) (Patch, error) {
	var p Patch
	for k, v := range m {
		switch k {
		case KeyID, KeyCreatedAt, KeyUpdatedAt:
		case KeyName, KeyDescription:
			s, ok := v.(string)
			if !ok {
				return Patch{}, &ValidationError{Field: k, Reason: "must be a string"}
			}
			if k == KeyName {
				p.Name = &s
			} else {
				p.Description = &s
			}
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = v
		}
	}
	return p, nil
}

// FieldsFromMap is the creation counterpart of PatchFromMap.
func FieldsFromMap(m map[string]any) (Fields, error) {
	var f Fields
	for k, v := range m {
		switch k {
		case KeyID, KeyCreatedAt, KeyUpdatedAt:
		case KeyName, KeyDescription:
			s, ok := v.(string)
			if !ok {
				return Fields{}, &ValidationError{Field: k, Reason: "must be a string"}
			}
			if k == KeyName {
				f.Name = s
			} else {
				f.Description = s
			}
		default:
			if f.Extra == nil {
				f.Extra = make(map[string]any)
			}
			f.Extra[k] = v
		}
	}
	return f, nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := "is " + fe.Tag()
		if fe.Tag() == "required" {
			reason = "is required"
		}
		return &ValidationError{Field: fe.Field(), Reason: reason}
	}
	return &ValidationError{Reason: err.Error()}
}
