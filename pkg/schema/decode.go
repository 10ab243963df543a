package schema

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// object is a decoded JSON object whose fields are pulled one by one so that
// missing and mistyped fields can be reported with their full path. Fields not
// asked for are ignored.
type object struct {
	path   string
	fields map[string]json.RawMessage
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeObject(path string, raw json.RawMessage) (object, error) {
	if isNull(raw) {
		return object{}, schemaErrorf(path, "expected object, got null")
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return object{}, &SchemaError{Path: path, Msg: "expected object", Err: err}
	}
	return object{path: path, fields: fields}, nil
}

// has reports whether the field is present and not null.
func (o object) has(name string) bool {
	raw, ok := o.fields[name]
	return ok && !isNull(raw)
}

func (o object) raw(name string) json.RawMessage {
	return o.fields[name]
}

func (o object) required(name string, dst interface{}) error {
	if !o.has(name) {
		return schemaErrorf(fieldPath(o.path, name), "missing field")
	}
	return o.decode(name, dst)
}

func (o object) optional(name string, dst interface{}) error {
	if !o.has(name) {
		return nil
	}
	return o.decode(name, dst)
}

func (o object) decode(name string, dst interface{}) error {
	if err := json.Unmarshal(o.fields[name], dst); err != nil {
		var serr *SchemaError
		if errors.As(err, &serr) {
			return serr
		}
		return &SchemaError{Path: fieldPath(o.path, name), Msg: "invalid value", Err: err}
	}
	return nil
}

// tag returns the value of the "type" discriminator.
func (o object) tag() (string, error) {
	var t string
	if err := o.required(tagField, &t); err != nil {
		return "", err
	}
	return t, nil
}

const tagField = "type"

// marshalTagged encodes v, which must encode as a JSON object, with the
// discriminator field prepended.
func marshalTagged(kind string, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"` + tagField + `":`)
	buf.Write(tag)
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, errors.Errorf("variant %s does not encode as an object", kind)
	}
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
