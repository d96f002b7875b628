// Package registry holds the static set of fields polled from the device
// and the poll request derived from it.
package registry

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/anicoll/baratron-integration/internal/pkg/model"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidField = errors.New("invalid field definition")
)

// Registry is immutable once built and safe for concurrent reads.
type Registry struct {
	fields []model.Field
	byName map[string]int
	byID   map[string]int
}

func New(fields ...model.Field) (*Registry, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrInvalidField)
	}
	if dup := lo.FindDuplicates(lo.Map(fields, func(f model.Field, _ int) string { return f.Name })); len(dup) > 0 {
		return nil, fmt.Errorf("%w: duplicate names %q", ErrInvalidField, dup)
	}
	if dup := lo.FindDuplicates(lo.Map(fields, func(f model.Field, _ int) string { return f.Identifier })); len(dup) > 0 {
		return nil, fmt.Errorf("%w: duplicate identifiers %q", ErrInvalidField, dup)
	}

	r := &Registry{
		fields: make([]model.Field, 0, len(fields)),
		byName: make(map[string]int, len(fields)),
		byID:   make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if err := validate(f); err != nil {
			return nil, err
		}
		f.Labels = append([]string(nil), f.Labels...)
		r.fields = append(r.fields, f)
		r.byName[f.Name] = i
		r.byID[f.Identifier] = i
	}
	return r, nil
}

func MustNew(fields ...model.Field) *Registry {
	r, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry for the eBaratron capacitance manometer.
func Default() *Registry {
	return MustNew(DefaultFields()...)
}

func validate(f model.Field) error {
	if f.Name == "" || f.Identifier == "" {
		return fmt.Errorf("%w: name and identifier are required (%q, %q)", ErrInvalidField, f.Name, f.Identifier)
	}
	switch f.Kind {
	case model.DecodeRaw, model.DecodeFloat:
	case model.DecodeDuration:
		if f.SecondsPerUnit <= 0 {
			return fmt.Errorf("%w: %s needs a positive scale", ErrInvalidField, f.Name)
		}
	case model.DecodeEnum:
		if len(f.Labels) == 0 {
			return fmt.Errorf("%w: %s has no labels", ErrInvalidField, f.Name)
		}
	case model.DecodeBitmask:
		if len(f.Labels) == 0 || len(f.Labels) > 64 {
			return fmt.Errorf("%w: %s needs between 1 and 64 bit labels", ErrInvalidField, f.Name)
		}
		if f.Fallback == "" {
			return fmt.Errorf("%w: %s has no fallback label", ErrInvalidField, f.Name)
		}
	default:
		return fmt.Errorf("%w: %s has unsupported kind %q", ErrInvalidField, f.Name, f.Kind)
	}
	return nil
}

func (r *Registry) Lookup(name string) (model.Field, error) {
	i, ok := r.byName[name]
	if !ok {
		return model.Field{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return r.fields[i], nil
}

func (r *Registry) ByIdentifier(identifier string) (model.Field, bool) {
	i, ok := r.byID[identifier]
	if !ok {
		return model.Field{}, false
	}
	return r.fields[i], true
}

func (r *Registry) Fields() []model.Field {
	return append([]model.Field(nil), r.fields...)
}

func (r *Registry) Names() []string {
	return lo.Map(r.fields, func(f model.Field, _ int) string { return f.Name })
}

func (r *Registry) Identifiers() []string {
	return lo.Map(r.fields, func(f model.Field, _ int) string { return f.Identifier })
}

// PollRequest renders the ToolWeb envelope asking for every registered identifier:
//
//	<PollRequest><V Name="EVID_100"/>...</PollRequest>
func (r *Registry) PollRequest() []byte {
	var b strings.Builder
	b.WriteString("<PollRequest>")
	for _, id := range r.Identifiers() {
		b.WriteString(`<V Name="`)
		_ = xml.EscapeText(&b, []byte(id))
		b.WriteString(`"/>`)
	}
	b.WriteString("</PollRequest>")
	return []byte(b.String())
}
