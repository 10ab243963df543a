// Package schema defines the variable share document: per project, a list of
// tasks that copy configuration values from a source backend to a target
// backend through a key mapping.
//
// Documents are JSON. Decoding tolerates unknown fields and reports any other
// problem as a *SchemaError carrying the path of the offending field.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"
)

// VariableShareConfig is one parsed variable share document.
type VariableShareConfig struct {
	// Version is parsed as a semantic version. It is only checked against a
	// supported range when parsing in strict mode (see WithSupportedVersions).
	Version semver.Version
	Tasks   []Task
}

// Mapping maps source variable names to the target variables they are written to.
//
// A nil Mapping and an empty one mean the same: both encode as {} and decode
// as an empty, non-nil Mapping. Likewise a nil target list encodes as [].
type Mapping map[string][]MappingTarget

// Task moves the values named in Mapping from Source to Target.
type Task struct {
	Source  Source
	Target  Target
	Mapping Mapping
}

// SourceKeys returns the source variable names of the task, sorted.
func (t Task) SourceKeys() []string {
	keys := make([]string, 0, len(t.Mapping))
	for k := range t.Mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TargetKeys returns the destination variable names of every mapping target
// of the task, flattened, deduplicated and sorted.
func (t Task) TargetKeys() []string {
	seen := map[string]struct{}{}
	for _, targets := range t.Mapping {
		for _, m := range targets {
			seen[m.TargetKey()] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t Task) String() string {
	src, tgt := "<nil>", "<nil>"
	if t.Source != nil {
		src = string(t.Source.Kind())
	}
	if t.Target != nil {
		tgt = string(t.Target.Kind())
	}
	return fmt.Sprintf("%s %v -> %s %v", src, t.SourceKeys(), tgt, t.TargetKeys())
}

type options struct {
	supported     semver.Range
	supportedDesc string
}

// Option configures Parse.
type Option func(*options)

// WithSupportedVersions enables strict mode: documents whose version does not
// satisfy the given range (blang/semver syntax, e.g. ">=1.0.0 <2.0.0") are
// rejected.
func WithSupportedVersions(r semver.Range, desc string) Option {
	return func(o *options) {
		o.supported = r
		o.supportedDesc = desc
	}
}

// Parse decodes a variable share document.
func Parse(b []byte, opts ...Option) (*VariableShareConfig, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	root, err := decodeObject("", b)
	if err != nil {
		return nil, err
	}

	cfg := &VariableShareConfig{}
	var version string
	if err := root.required("version", &version); err != nil {
		return nil, err
	}
	if cfg.Version, err = semver.Parse(version); err != nil {
		return nil, &SchemaError{Path: "version", Msg: "invalid semantic version", Err: err}
	}
	if o.supported != nil && !o.supported(cfg.Version) {
		return nil, schemaErrorf("version", "version %s is not supported, expected %s", cfg.Version, o.supportedDesc)
	}

	var rawTasks []json.RawMessage
	if err := root.required("tasks", &rawTasks); err != nil {
		return nil, err
	}
	cfg.Tasks = make([]Task, 0, len(rawTasks))
	for i, raw := range rawTasks {
		t, err := decodeTask(indexPath("tasks", i), raw)
		if err != nil {
			return nil, err
		}
		cfg.Tasks = append(cfg.Tasks, t)
	}
	return cfg, nil
}

func decodeTask(path string, raw json.RawMessage) (Task, error) {
	o, err := decodeObject(path, raw)
	if err != nil {
		return Task{}, err
	}

	var t Task
	if !o.has("source") {
		return t, schemaErrorf(fieldPath(path, "source"), "missing field")
	}
	if t.Source, err = decodeSource(fieldPath(path, "source"), o.raw("source")); err != nil {
		return t, err
	}
	if !o.has("target") {
		return t, schemaErrorf(fieldPath(path, "target"), "missing field")
	}
	if t.Target, err = decodeTarget(fieldPath(path, "target"), o.raw("target")); err != nil {
		return t, err
	}

	var rawMapping map[string]json.RawMessage
	if err := o.required("mapping", &rawMapping); err != nil {
		return t, err
	}
	mappingPath := fieldPath(path, "mapping")
	t.Mapping = make(Mapping, len(rawMapping))
	for key, rawList := range rawMapping {
		var rawTargets []json.RawMessage
		if isNull(rawList) {
			return t, schemaErrorf(keyPath(mappingPath, key), "expected list of mapping targets, got null")
		}
		if err := json.Unmarshal(rawList, &rawTargets); err != nil {
			return t, &SchemaError{Path: keyPath(mappingPath, key), Msg: "expected list of mapping targets", Err: err}
		}
		targets := make([]MappingTarget, 0, len(rawTargets))
		for i, rawTarget := range rawTargets {
			m, err := decodeMappingTarget(indexPath(keyPath(mappingPath, key), i), rawTarget)
			if err != nil {
				return t, err
			}
			targets = append(targets, m)
		}
		t.Mapping[key] = targets
	}
	return t, nil
}

// UnmarshalJSON decodes a document in lenient mode.
func (c *VariableShareConfig) UnmarshalJSON(b []byte) error {
	cfg, err := Parse(b)
	if err != nil {
		return err
	}
	*c = *cfg
	return nil
}

// MarshalJSON encodes the document in the same shape Parse accepts.
func (c VariableShareConfig) MarshalJSON() ([]byte, error) {
	tasks := c.Tasks
	if tasks == nil {
		tasks = []Task{}
	}
	return json.Marshal(struct {
		Version string `json:"version"`
		Tasks   []Task `json:"tasks"`
	}{Version: c.Version.String(), Tasks: tasks})
}

// UnmarshalJSON decodes a single task. Error paths are relative to the task.
func (t *Task) UnmarshalJSON(b []byte) error {
	task, err := decodeTask("", b)
	if err != nil {
		return err
	}
	*t = task
	return nil
}

// MarshalJSON encodes a task in the same shape Parse accepts.
func (t Task) MarshalJSON() ([]byte, error) {
	if t.Source == nil || t.Target == nil {
		return nil, errors.Errorf("task %v: source and target must be set", t)
	}
	src, err := encodeSource(t.Source)
	if err != nil {
		return nil, errors.Wrap(err, "encode source")
	}
	tgt, err := encodeTarget(t.Target)
	if err != nil {
		return nil, errors.Wrap(err, "encode target")
	}

	mapping := make(map[string][]json.RawMessage, len(t.Mapping))
	for key, targets := range t.Mapping {
		encoded := make([]json.RawMessage, 0, len(targets))
		for _, m := range targets {
			b, err := encodeMappingTarget(m)
			if err != nil {
				return nil, errors.Wrapf(err, "encode mapping %q", key)
			}
			encoded = append(encoded, b)
		}
		mapping[key] = encoded
	}
	return json.Marshal(struct {
		Source  json.RawMessage              `json:"source"`
		Target  json.RawMessage              `json:"target"`
		Mapping map[string][]json.RawMessage `json:"mapping"`
	}{Source: src, Target: tgt, Mapping: mapping})
}

// Merge concatenates the tasks of several documents of one project, in the
// given order, keeping the highest version.
func Merge(cfgs ...*VariableShareConfig) *VariableShareConfig {
	merged := &VariableShareConfig{Tasks: []Task{}}
	for i, c := range cfgs {
		if i == 0 || c.Version.GT(merged.Version) {
			merged.Version = c.Version
		}
		merged.Tasks = append(merged.Tasks, c.Tasks...)
	}
	return merged
}

// IsSchemaError reports whether err, or any error it wraps, is a *SchemaError.
func IsSchemaError(err error) bool {
	var serr *SchemaError
	return errors.As(err, &serr)
}
