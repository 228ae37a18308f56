package core

import "strings"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, fld := range err.Fields {
		msgs = append(msgs, fld.Field+": "+fld.Error)
	}
	return strings.Join(msgs, "; ")
}

func (err ValidationError) Unwrap() error {
	return err.Err
}

// FieldMap returns the field errors keyed by field name; the first error wins for repeated fields.
func (err ValidationError) FieldMap() map[string]string {
	flds := make(map[string]string, len(err.Fields))
	for _, fld := range err.Fields {
		if _, ok := flds[fld.Field]; !ok {
			flds[fld.Field] = fld.Error
		}
	}
	return flds
}
