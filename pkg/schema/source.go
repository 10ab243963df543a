package schema

import (
	"encoding/json"
)

// SourceKind is the discriminator of a Source as written in the "type" field.
type SourceKind string

const (
	SourceEnvironment                 SourceKind = "Environment"
	SourceTerraformFile               SourceKind = "TerraformFile"
	SourceGitlabProjectTerraformState SourceKind = "GitlabProjectTerraformState"
	SourceGitlabProjectVariables      SourceKind = "GitlabProjectVariables"
	SourceEnvFile                     SourceKind = "EnvFile"
	SourceAzureKeyvault               SourceKind = "AzureKeyvault"
	SourceHardCoded                   SourceKind = "HardCoded"
	SourceRedis                       SourceKind = "Redis"
)

// SourceKinds lists every source variant.
var SourceKinds = []SourceKind{
	SourceEnvironment,
	SourceTerraformFile,
	SourceGitlabProjectTerraformState,
	SourceGitlabProjectVariables,
	SourceEnvFile,
	SourceAzureKeyvault,
	SourceHardCoded,
	SourceRedis,
}

// Source is the backend a task reads values from.
//
// The set of implementations is closed. Every variant lives in this file and
// carries the unexported sourceBackend marker, so a type switch over Source
// only has to handle the types below. Adding a variant means adding it to
// SourceKinds, decodeSource and encodeSource.
type Source interface {
	Kind() SourceKind
	sourceBackend()
}

// EnvironmentSource reads from the process environment.
type EnvironmentSource struct{}

// TerraformFileSource reads terraform outputs or state from a local file.
type TerraformFileSource struct {
	FileName   string              `json:"file_name"`
	FileFormat TerraformFileFormat `json:"file_format"`
}

// GitlabTerraformStateSource reads the terraform state managed by a GitLab project.
type GitlabTerraformStateSource struct {
	Config GitlabProjectConfig
}

// GitlabVariablesSource reads GitLab CI variables. Policy forbids it as a
// source; it is decoded so it can be reported.
type GitlabVariablesSource struct {
	Config GitlabProjectConfig
}

// EnvFileSource reads a dotenv file.
type EnvFileSource struct {
	File string `json:"file"`
}

// AzureKeyvaultSource reads secrets or certificates from a key vault.
type AzureKeyvaultSource struct {
	Config AzureKeyvaultConfig
}

// HardCodedSource provides literal values. Nil Variables encode as {} and
// decode as an empty, non-nil map.
type HardCodedSource struct {
	Variables map[string]string `json:"variables"`
}

// RedisSource reads keys from a redis host.
type RedisSource struct {
	Hostname   string  `json:"hostname"`
	SPObjectID *string `json:"sp_object_id,omitempty"`
}

func (EnvironmentSource) Kind() SourceKind          { return SourceEnvironment }
func (TerraformFileSource) Kind() SourceKind        { return SourceTerraformFile }
func (GitlabTerraformStateSource) Kind() SourceKind { return SourceGitlabProjectTerraformState }
func (GitlabVariablesSource) Kind() SourceKind      { return SourceGitlabProjectVariables }
func (EnvFileSource) Kind() SourceKind              { return SourceEnvFile }
func (AzureKeyvaultSource) Kind() SourceKind        { return SourceAzureKeyvault }
func (HardCodedSource) Kind() SourceKind            { return SourceHardCoded }
func (RedisSource) Kind() SourceKind                { return SourceRedis }

func (EnvironmentSource) sourceBackend()          {}
func (TerraformFileSource) sourceBackend()        {}
func (GitlabTerraformStateSource) sourceBackend() {}
func (GitlabVariablesSource) sourceBackend()      {}
func (EnvFileSource) sourceBackend()              {}
func (AzureKeyvaultSource) sourceBackend()        {}
func (HardCodedSource) sourceBackend()            {}
func (RedisSource) sourceBackend()                {}

func decodeSource(path string, raw json.RawMessage) (Source, error) {
	o, err := decodeObject(path, raw)
	if err != nil {
		return nil, err
	}
	kind, err := o.tag()
	if err != nil {
		return nil, err
	}

	switch SourceKind(kind) {
	case SourceEnvironment:
		return EnvironmentSource{}, nil
	case SourceTerraformFile:
		var s TerraformFileSource
		if err := o.required("file_name", &s.FileName); err != nil {
			return nil, err
		}
		if err := o.required("file_format", &s.FileFormat); err != nil {
			return nil, err
		}
		switch s.FileFormat {
		case OutputJSON, State:
		default:
			return nil, schemaErrorf(fieldPath(path, "file_format"), "unknown terraform file format %q, expected %q or %q", s.FileFormat, OutputJSON, State)
		}
		return s, nil
	case SourceGitlabProjectTerraformState:
		c, err := decodeGitlabProject(o)
		if err != nil {
			return nil, err
		}
		return GitlabTerraformStateSource{Config: c}, nil
	case SourceGitlabProjectVariables:
		c, err := decodeGitlabProject(o)
		if err != nil {
			return nil, err
		}
		return GitlabVariablesSource{Config: c}, nil
	case SourceEnvFile:
		var s EnvFileSource
		if err := o.required("file", &s.File); err != nil {
			return nil, err
		}
		return s, nil
	case SourceAzureKeyvault:
		c, err := decodeAzureKeyvault(o)
		if err != nil {
			return nil, err
		}
		return AzureKeyvaultSource{Config: c}, nil
	case SourceHardCoded:
		var s HardCodedSource
		if err := o.required("variables", &s.Variables); err != nil {
			return nil, err
		}
		return s, nil
	case SourceRedis:
		host, sp, err := decodeRedis(o)
		if err != nil {
			return nil, err
		}
		return RedisSource{Hostname: host, SPObjectID: sp}, nil
	}
	return nil, unknownVariant(o, "source", kind)
}

func encodeSource(s Source) ([]byte, error) {
	switch v := s.(type) {
	case GitlabTerraformStateSource:
		return marshalTagged(string(v.Kind()), v.Config)
	case GitlabVariablesSource:
		return marshalTagged(string(v.Kind()), v.Config)
	case AzureKeyvaultSource:
		return marshalTagged(string(v.Kind()), v.Config)
	case HardCodedSource:
		if v.Variables == nil {
			v.Variables = map[string]string{}
		}
		return marshalTagged(string(v.Kind()), v)
	}
	return marshalTagged(string(s.Kind()), s)
}
