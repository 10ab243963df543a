package schema

import (
	"encoding/json"
)

// TargetKind is the discriminator of a Target as written in the "type" field.
type TargetKind string

const (
	TargetCommand                TargetKind = "Command"
	TargetProcessEnvironment     TargetKind = "ProcessEnvironment"
	TargetAzureKeyvault          TargetKind = "AzureKeyvault"
	TargetGlobalEnvironment      TargetKind = "GlobalEnvironment"
	TargetStdOutEnvironment      TargetKind = "StdOutEnvironment"
	TargetEnvFile                TargetKind = "EnvFile"
	TargetFile                   TargetKind = "File"
	TargetKubeConfig             TargetKind = "KubeConfig"
	TargetGitlabProjectVariables TargetKind = "GitlabProjectVariables"
	TargetRedis                  TargetKind = "Redis"
)

// TargetKinds lists every target variant.
var TargetKinds = []TargetKind{
	TargetCommand,
	TargetProcessEnvironment,
	TargetAzureKeyvault,
	TargetGlobalEnvironment,
	TargetStdOutEnvironment,
	TargetEnvFile,
	TargetFile,
	TargetKubeConfig,
	TargetGitlabProjectVariables,
	TargetRedis,
}

// Target is the backend a task writes values to. Like Source, the set of
// implementations is closed and sealed with an unexported marker method.
type Target interface {
	Kind() TargetKind
	targetBackend()
}

// CommandTarget passes values to a command.
type CommandTarget struct{}

// ProcessEnvironmentTarget exports values into the current process.
type ProcessEnvironmentTarget struct{}

// AzureKeyvaultTarget writes secrets or certificates into a key vault.
type AzureKeyvaultTarget struct {
	Config AzureKeyvaultConfig
}

// GlobalEnvironmentTarget exports values into the user's global environment.
type GlobalEnvironmentTarget struct{}

// StdOutEnvironmentTarget prints values as environment assignments.
type StdOutEnvironmentTarget struct{}

// EnvFileTarget writes a dotenv file.
type EnvFileTarget struct {
	File string `json:"file"`
}

// FileTarget writes each value into a file.
type FileTarget struct{}

// KubeConfigTarget writes a kubeconfig.
type KubeConfigTarget struct{}

// GitlabVariablesTarget writes GitLab CI variables.
type GitlabVariablesTarget struct {
	Config  GitlabProjectConfig           `json:"config"`
	Details *GitlabProjectVariableDetails `json:"details,omitempty"`
}

// RedisTarget writes keys to a redis host.
type RedisTarget struct {
	Hostname   string  `json:"hostname"`
	SPObjectID *string `json:"sp_object_id,omitempty"`
}

func (CommandTarget) Kind() TargetKind            { return TargetCommand }
func (ProcessEnvironmentTarget) Kind() TargetKind { return TargetProcessEnvironment }
func (AzureKeyvaultTarget) Kind() TargetKind      { return TargetAzureKeyvault }
func (GlobalEnvironmentTarget) Kind() TargetKind  { return TargetGlobalEnvironment }
func (StdOutEnvironmentTarget) Kind() TargetKind  { return TargetStdOutEnvironment }
func (EnvFileTarget) Kind() TargetKind            { return TargetEnvFile }
func (FileTarget) Kind() TargetKind               { return TargetFile }
func (KubeConfigTarget) Kind() TargetKind         { return TargetKubeConfig }
func (GitlabVariablesTarget) Kind() TargetKind    { return TargetGitlabProjectVariables }
func (RedisTarget) Kind() TargetKind              { return TargetRedis }

func (CommandTarget) targetBackend()            {}
func (ProcessEnvironmentTarget) targetBackend() {}
func (AzureKeyvaultTarget) targetBackend()      {}
func (GlobalEnvironmentTarget) targetBackend()  {}
func (StdOutEnvironmentTarget) targetBackend()  {}
func (EnvFileTarget) targetBackend()            {}
func (FileTarget) targetBackend()               {}
func (KubeConfigTarget) targetBackend()         {}
func (GitlabVariablesTarget) targetBackend()    {}
func (RedisTarget) targetBackend()              {}

func decodeTarget(path string, raw json.RawMessage) (Target, error) {
	o, err := decodeObject(path, raw)
	if err != nil {
		return nil, err
	}
	kind, err := o.tag()
	if err != nil {
		return nil, err
	}

	switch TargetKind(kind) {
	case TargetCommand:
		return CommandTarget{}, nil
	case TargetProcessEnvironment:
		return ProcessEnvironmentTarget{}, nil
	case TargetAzureKeyvault:
		c, err := decodeAzureKeyvault(o)
		if err != nil {
			return nil, err
		}
		return AzureKeyvaultTarget{Config: c}, nil
	case TargetGlobalEnvironment:
		return GlobalEnvironmentTarget{}, nil
	case TargetStdOutEnvironment:
		return StdOutEnvironmentTarget{}, nil
	case TargetEnvFile:
		var t EnvFileTarget
		if err := o.required("file", &t.File); err != nil {
			return nil, err
		}
		return t, nil
	case TargetFile:
		return FileTarget{}, nil
	case TargetKubeConfig:
		return KubeConfigTarget{}, nil
	case TargetGitlabProjectVariables:
		var t GitlabVariablesTarget
		if !o.has("config") {
			return nil, schemaErrorf(fieldPath(path, "config"), "missing field")
		}
		co, err := decodeObject(fieldPath(path, "config"), o.raw("config"))
		if err != nil {
			return nil, err
		}
		if t.Config, err = decodeGitlabProject(co); err != nil {
			return nil, err
		}
		if o.has("details") {
			do, err := decodeObject(fieldPath(path, "details"), o.raw("details"))
			if err != nil {
				return nil, err
			}
			if t.Details, err = decodeGitlabVariableDetails(do); err != nil {
				return nil, err
			}
		}
		return t, nil
	case TargetRedis:
		host, sp, err := decodeRedis(o)
		if err != nil {
			return nil, err
		}
		return RedisTarget{Hostname: host, SPObjectID: sp}, nil
	}
	return nil, unknownVariant(o, "target", kind)
}

func encodeTarget(t Target) ([]byte, error) {
	if v, ok := t.(AzureKeyvaultTarget); ok {
		return marshalTagged(string(v.Kind()), v.Config)
	}
	return marshalTagged(string(t.Kind()), t)
}
