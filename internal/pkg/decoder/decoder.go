// Package decoder turns ToolWeb poll responses into device state.
package decoder

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/baratron-integration/internal/pkg/model"
	"github.com/anicoll/baratron-integration/internal/pkg/registry"
)

// Item is one <V Name="...">value</V> element of a response.
type Item struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

// the root tag is not checked, only its direct V children matter.
type response struct {
	Items []Item `xml:"V"`
}

type Decoder struct {
	registry *registry.Registry
	logger   *zap.Logger
}

func New(r *registry.Registry) *Decoder {
	return &Decoder{
		registry: r,
		logger:   zap.L(), // returns the global logger.
	}
}

// Items extracts the V elements of payload in document order.
func (d *Decoder) Items(payload []byte) ([]Item, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))

	res := response{}
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		switch t := tok.(type) {
		case xml.StartElement, xml.EndElement:
			return nil, fmt.Errorf("%w: %w", ErrParse, errTrailer)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: %w", ErrParse, errTrailer)
			}
		}
	}
	return res.Items, nil
}

// Decode maps the fields the registry recognises to their decoded values.
// Unknown identifiers are skipped. When an identifier repeats, the last one wins.
func (d *Decoder) Decode(payload []byte) (model.State, error) {
	items, err := d.Items(payload)
	if err != nil {
		return nil, err
	}

	state := make(model.State, len(items))
	for _, item := range items {
		field, ok := d.registry.ByIdentifier(item.Name)
		if !ok {
			d.logger.Debug("skipping unknown identifier", zap.String("identifier", item.Name))
			continue
		}
		value, err := Value(field, item.Value)
		if err != nil {
			return nil, err
		}
		state[field.Name] = value
	}
	return state, nil
}

// Value applies the decode rule of f to raw.
func Value(f model.Field, raw string) (any, error) {
	fail := func(err error) (any, error) {
		return nil, &DecodeError{Field: f.Name, Identifier: f.Identifier, Value: raw, Err: err}
	}
	text := strings.TrimSpace(raw)

	switch f.Kind {
	case model.DecodeRaw:
		return raw, nil
	case model.DecodeFloat:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fail(err)
		}
		return v, nil
	case model.DecodeDuration:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fail(err)
		}
		return v / f.SecondsPerUnit, nil
	case model.DecodeEnum:
		i, err := strconv.Atoi(text)
		if err != nil {
			return fail(err)
		}
		if i < 0 || i >= len(f.Labels) {
			return fail(fmt.Errorf("%w: %d not in [0, %d)", errIndex, i, len(f.Labels)))
		}
		return f.Labels[i], nil
	case model.DecodeBitmask:
		bits, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return fail(err)
		}
		return bitmask(bits, f.Labels, f.Fallback), nil
	}
	return fail(fmt.Errorf("unsupported kind %q", f.Kind))
}

func bitmask(bits uint64, labels []string, fallback string) string {
	set := make([]string, 0, len(labels))
	for bit, label := range labels {
		if label != "" && bits>>uint(bit)&1 == 1 {
			set = append(set, label)
		}
	}
	if len(set) == 0 {
		return fallback
	}
	return strings.Join(set, ", ")
}
