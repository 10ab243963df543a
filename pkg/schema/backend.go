package schema

import "fmt"

// SecretType selects which kind of Azure Key Vault object values are stored as.
type SecretType string

const (
	Secret      SecretType = "secret"
	Certificate SecretType = "certificate"
)

// AzureKeyvaultConfig identifies a key vault. URL is compared verbatim by the
// resolver; no case folding or trailing slash handling is done.
type AzureKeyvaultConfig struct {
	URL        string     `json:"url"`
	SecretType SecretType `json:"secretType"`
}

// GitlabProjectConfig identifies a remote GitLab project and, optionally, the
// environment scope and the CI variable holding the API token.
type GitlabProjectConfig struct {
	ProjectID         uint64  `json:"project_id"`
	Environment       *string `json:"environment,omitempty"`
	TokenVariableName *string `json:"tokenVariableName,omitempty"`
	URL               *string `json:"url,omitempty"`
}

// GitlabProjectVariableDetails is metadata for GitLab CI variable targets. It
// is not used when matching projects. A nil list is absent and encodes as
// null; an empty list is present and encodes as [].
type GitlabProjectVariableDetails struct {
	ProtectedVariables []string `json:"protected_variables"`
	MaskedVariables    []string `json:"masked_variables"`
	Files              []string `json:"files"`
}

// TerraformFileFormat is the layout of a terraform file source.
type TerraformFileFormat string

const (
	OutputJSON TerraformFileFormat = "OutputJson"
	State      TerraformFileFormat = "State"
)

func decodeAzureKeyvault(o object) (AzureKeyvaultConfig, error) {
	var c AzureKeyvaultConfig
	if err := o.required("url", &c.URL); err != nil {
		return c, err
	}
	if err := o.required("secretType", &c.SecretType); err != nil {
		return c, err
	}
	switch c.SecretType {
	case Secret, Certificate:
	default:
		return c, schemaErrorf(fieldPath(o.path, "secretType"), "unknown secret type %q, expected %q or %q", c.SecretType, Secret, Certificate)
	}
	return c, nil
}

func decodeGitlabProject(o object) (GitlabProjectConfig, error) {
	var c GitlabProjectConfig
	if err := o.required("project_id", &c.ProjectID); err != nil {
		return c, err
	}
	if err := o.optional("environment", &c.Environment); err != nil {
		return c, err
	}
	if err := o.optional("tokenVariableName", &c.TokenVariableName); err != nil {
		return c, err
	}
	if err := o.optional("url", &c.URL); err != nil {
		return c, err
	}
	return c, nil
}

func decodeGitlabVariableDetails(o object) (*GitlabProjectVariableDetails, error) {
	d := &GitlabProjectVariableDetails{}
	if err := o.optional("protected_variables", &d.ProtectedVariables); err != nil {
		return nil, err
	}
	if err := o.optional("masked_variables", &d.MaskedVariables); err != nil {
		return nil, err
	}
	if err := o.optional("files", &d.Files); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeRedis(o object) (hostname string, spObjectID *string, err error) {
	if err := o.required("hostname", &hostname); err != nil {
		return "", nil, err
	}
	if err := o.optional("sp_object_id", &spObjectID); err != nil {
		return "", nil, err
	}
	return hostname, spObjectID, nil
}

func unknownVariant(o object, what, kind string) error {
	return &SchemaError{Path: fieldPath(o.path, tagField), Msg: fmt.Sprintf("unknown %s variant %q", what, kind)}
}
