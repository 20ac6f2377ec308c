// Package validation checks request payloads before handlers run. Each field
// has an ordered rule chain that stops at its first failure; failures are
// collected across fields so the client sees every broken field at once.
package validation

import (
	"context"
)

// Doc is a decoded request: a JSON object read with json.Number preserved,
// or the first value of each query parameter as a string.
type Doc map[string]any

func (d Doc) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// Rule inspects v and returns the value for the next rule in the chain, or a
// non-empty message on failure.
type Rule func(ctx context.Context, v any, doc Doc) (any, string)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Field struct {
	Name  string
	Rules []Rule
	// When, if set, must report true for the field to be checked.
	When func(Doc) bool
}

func NewField(name string, rules ...Rule) Field {
	return Field{Name: name, Rules: rules}
}

// Optional only checks the field when it is present.
func (f Field) Optional() Field {
	name := f.Name
	f.When = func(d Doc) bool { return d.Has(name) }
	return f
}

// check runs the rule chain and returns the sanitized value. skipped reports
// that When excluded the field.
func (f Field) check(ctx context.Context, doc Doc) (v any, msg string, skipped bool) {
	if f.When != nil && !f.When(doc) {
		return nil, "", true
	}
	v = doc[f.Name]
	for _, rule := range f.Rules {
		next, msg := rule(ctx, v, doc)
		if msg != "" {
			return v, msg, false
		}
		v = next
	}
	return v, "", false
}

type Schema struct {
	Fields []Field
	// AtLeastOne lists fields of which at least one must be present.
	AtLeastOne []string
}

// Validate checks every field against the unmodified doc. On success the
// sanitized values (trimmed strings, parsed integers) replace the originals.
func (s Schema) Validate(ctx context.Context, doc Doc) []FieldError {
	var errs []FieldError
	if len(s.AtLeastOne) > 0 {
		found := false
		for _, name := range s.AtLeastOne {
			if doc.Has(name) {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, FieldError{Field: "body", Message: "Please provide at least one field to update!"})
		}
	}
	clean := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, msg, skipped := f.check(ctx, doc)
		switch {
		case msg != "":
			errs = append(errs, FieldError{Field: f.Name, Message: msg})
		case !skipped && doc.Has(f.Name):
			clean[f.Name] = v
		}
	}
	if len(errs) == 0 {
		for k, v := range clean {
			doc[k] = v
		}
	}
	return errs
}
