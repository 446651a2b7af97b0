package cards

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawCard is a card record as found in a set file. Field names and shapes
// vary by source, so every field is kept as raw JSON until Adapt resolves it.
type RawCard struct {
	fields map[string]json.RawMessage
}

// fieldAliases lists the accepted spellings for each field, in lookup order.
var fieldAliases = map[string][]string{
	"name":        {"Name", "name", "cardName", "CardName"},
	"subtitle":    {"Subtitle", "subtitle", "subTitle"},
	"number":      {"Number", "number", "CardNumber", "cardNumber", "collectorNumber"},
	"aspects":     {"Aspects", "aspects"},
	"type":        {"Type", "type", "Types", "types"},
	"rarity":      {"Rarity", "rarity"},
	"marketPrice": {"MarketPrice", "marketPrice", "market_price", "Price", "price"},
}

// ErrMalformedSetFile is returned when a set file is neither an array nor {data: [...]}.
var ErrMalformedSetFile = errors.New("malformed set file")

// UnmarshalJSON keeps the object's fields for later resolution.
func (r *RawCard) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.fields = fields
	return nil
}

// MarshalJSON writes the fields back out unchanged.
func (r RawCard) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.fields)
}

// NewRawCard builds a raw record from plain values. Mostly useful in tests.
func NewRawCard(values map[string]any) RawCard {
	fields := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		fields[k] = b
	}
	return RawCard{fields: fields}
}

// ParseSetFile decodes set file contents shaped as a bare array or {"data": [...]}.
func ParseSetFile(data []byte) ([]RawCard, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedSetFile)
	}

	switch trimmed[0] {
	case '[':
		var records []RawCard
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSetFile, err)
		}
		return records, nil
	case '{':
		var wrapper struct {
			Data []RawCard `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSetFile, err)
		}
		if wrapper.Data == nil {
			return nil, fmt.Errorf("%w: missing data array", ErrMalformedSetFile)
		}
		return wrapper.Data, nil
	default:
		return nil, fmt.Errorf("%w: unexpected leading %q", ErrMalformedSetFile, trimmed[0])
	}
}

// Adapt resolves the raw fields into a Card. ok is false when the record has
// no usable name or no finite positive number.
func (r RawCard) Adapt(setKey string, syn *Synonyms) (card Card, ok bool) {
	name := r.text("name")
	if name == "" {
		return Card{}, false
	}
	number, ok := r.number("number")
	if !ok {
		return Card{}, false
	}

	price, _ := r.float("marketPrice")
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		price = 0
	}

	return Card{
		SetKey:      setKey,
		Name:        name,
		Subtitle:    r.text("subtitle"),
		Number:      number,
		Aspects:     r.list("aspects"),
		Type:        syn.NormalizeType(r.text("type")),
		Rarity:      syn.NormalizeRarity(r.text("rarity")),
		MarketPrice: price,
	}, true
}

func (r RawCard) raw(field string) json.RawMessage {
	for _, alias := range fieldAliases[field] {
		if v, ok := r.fields[alias]; ok && !isNull(v) {
			return v
		}
	}
	return nil
}

// text resolves a string field. Nested objects contribute their name-like member,
// arrays contribute their first resolvable element.
func (r RawCard) text(field string) string {
	return strings.TrimSpace(textOf(r.raw(field)))
}

func (r RawCard) number(field string) (int, bool) {
	f, ok := r.float(field)
	if !ok || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func (r RawCard) float(field string) (float64, bool) {
	v := r.raw(field)
	if v == nil {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}

	s := strings.TrimSpace(textOf(v))
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (r RawCard) list(field string) []string {
	v := r.raw(field)
	if v == nil {
		return []string{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		if s := strings.TrimSpace(textOf(v)); s != "" {
			return []string{s}
		}
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(textOf(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func textOf(v json.RawMessage) string {
	if v == nil || isNull(v) {
		return ""
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err == nil {
		for _, key := range []string{"Name", "name", "Text", "text", "value"} {
			if inner, ok := obj[key]; ok {
				return textOf(inner)
			}
		}
		return ""
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(v, &arr); err == nil {
		for _, item := range arr {
			if s := textOf(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
