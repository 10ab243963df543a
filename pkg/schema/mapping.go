package schema

import (
	"encoding/json"
)

// MappingTarget names the destination variable a source variable is written
// to. It is an untagged union of three JSON shapes:
//
//	"NAME"                          KeyOnly
//	{"key": "NAME"}                 CopyMapping
//	{"key": "NAME", "function": F}  ConvertMapping
//
// Decoding order matters. A ConvertMapping payload also satisfies the
// CopyMapping shape, so candidates are tried from the most constrained to the
// least constrained (see mappingTargetDecoders). Reordering them silently
// turns every ConvertMapping into a CopyMapping and drops its function.
type MappingTarget interface {
	// TargetKey is the destination variable name used for matching.
	TargetKey() string
	mappingTarget()
}

// KeyOnly writes the value under the given name unchanged.
type KeyOnly string

// CopyMapping writes the value under Key unchanged.
type CopyMapping struct {
	Key string `json:"key"`
}

// ConvertMapping writes the value under Key after applying Function.
type ConvertMapping struct {
	Key      string `json:"key"`
	Function string `json:"function"`
}

func (k KeyOnly) TargetKey() string        { return string(k) }
func (c CopyMapping) TargetKey() string    { return c.Key }
func (c ConvertMapping) TargetKey() string { return c.Key }

func (KeyOnly) mappingTarget()        {}
func (CopyMapping) mappingTarget()    {}
func (ConvertMapping) mappingTarget() {}

// mappingTargetDecoders is tried in order; the first decoder that accepts the
// value wins.
var mappingTargetDecoders = []func(json.RawMessage) (MappingTarget, bool){
	decodeConvertMapping,
	decodeCopyMapping,
	decodeKeyOnly,
}

func decodeConvertMapping(raw json.RawMessage) (MappingTarget, bool) {
	var v struct {
		Key      *string `json:"key"`
		Function *string `json:"function"`
	}
	if err := json.Unmarshal(raw, &v); err != nil || v.Key == nil || v.Function == nil {
		return nil, false
	}
	return ConvertMapping{Key: *v.Key, Function: *v.Function}, true
}

func decodeCopyMapping(raw json.RawMessage) (MappingTarget, bool) {
	var v struct {
		Key *string `json:"key"`
	}
	if err := json.Unmarshal(raw, &v); err != nil || v.Key == nil {
		return nil, false
	}
	return CopyMapping{Key: *v.Key}, true
}

func decodeKeyOnly(raw json.RawMessage) (MappingTarget, bool) {
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil, false
	}
	return KeyOnly(*v), true
}

func decodeMappingTarget(path string, raw json.RawMessage) (MappingTarget, error) {
	for _, dec := range mappingTargetDecoders {
		if m, ok := dec(raw); ok {
			return m, nil
		}
	}
	return nil, schemaErrorf(path, "value did not match any mapping target shape (string, {key} or {key, function})")
}

func encodeMappingTarget(m MappingTarget) ([]byte, error) {
	switch v := m.(type) {
	case KeyOnly:
		return json.Marshal(string(v))
	case CopyMapping:
		return json.Marshal(v)
	case ConvertMapping:
		return json.Marshal(v)
	}
	return nil, schemaErrorf("", "unsupported mapping target %T", m)
}
