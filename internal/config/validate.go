package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// FieldError is one schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError lists every violation found in a config.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Validate checks c against the embedded schema plus the rules CUE cannot
// express over duration strings.
func (c Config) Validate() error {
	data, err := c.YAML()
	if err != nil {
		return err
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	file, err := cueyaml.Extract("config.yaml", data)
	if err != nil {
		return fmt.Errorf("extract config: %w", err)
	}
	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.BuildFile(file))

	var fieldErrs []FieldError
	if err := value.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			format, args := e.Msg()
			fieldErrs = append(fieldErrs, FieldError{
				Field:   strings.Join(e.Path(), "."),
				Message: fmt.Sprintf(format, args...),
			})
		}
	}

	if c.Queue.DebounceWindow < 0 {
		fieldErrs = append(fieldErrs, FieldError{Field: "queue.debounce_window", Message: "must not be negative"})
	}
	if c.Model.CallTimeout <= 0 {
		fieldErrs = append(fieldErrs, FieldError{Field: "model.call_timeout", Message: "must be positive"})
	}

	if len(fieldErrs) > 0 {
		return &ValidationError{Errors: fieldErrs}
	}
	return nil
}
