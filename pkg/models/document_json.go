package models

import (
	"encoding/json"
	"strings"
)

// OptionAttributePrefix prefixes flattened product option attributes.
const OptionAttributePrefix = "option_"

// MarshalJSON writes the document fields plus one option_<key> attribute per option.
// encoding/json sorts map keys, so the output is stable for equal documents.
func (d ProductDocument) MarshalJSON() ([]byte, error) {
	type plain ProductDocument
	base, err := json.Marshal(plain(d))
	if err != nil {
		return nil, err
	}
	if len(d.Options) == 0 {
		return base, nil
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for key, values := range d.Options {
		raw, err := json.Marshal(values)
		if err != nil {
			return nil, err
		}
		fields[OptionAttributePrefix+key] = raw
	}
	return json.Marshal(fields)
}

// UnmarshalJSON collects option_<key> attributes back into Options.
func (d *ProductDocument) UnmarshalJSON(data []byte) error {
	type plain ProductDocument
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, raw := range fields {
		if !strings.HasPrefix(key, OptionAttributePrefix) {
			continue
		}
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			continue
		}
		if p.Options == nil {
			p.Options = map[string][]string{}
		}
		p.Options[strings.TrimPrefix(key, OptionAttributePrefix)] = values
	}

	*d = ProductDocument(p)
	return nil
}
