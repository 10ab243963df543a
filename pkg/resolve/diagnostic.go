package resolve

import "fmt"

// Severity of a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Rule names the check that produced a diagnostic.
type Rule string

const (
	// RuleTerraformStateSameProject: a task reads the terraform state of its own project.
	RuleTerraformStateSameProject Rule = "terraform-state-same-project"
	// RuleTerraformStateCrossProject: a task reads the terraform state of another
	// project. This is not a supported dependency channel.
	RuleTerraformStateCrossProject Rule = "terraform-state-cross-project"
	// RuleInvalidSourceBackend: GitLab project variables used as a source.
	RuleInvalidSourceBackend Rule = "invalid-source-backend"
	// RuleRedisNoSharedVariables: same redis host on both sides but no variable in common.
	RuleRedisNoSharedVariables Rule = "redis-no-shared-variables"
	// RuleAzureKeyvaultMatch: a key vault source matches a key vault target.
	RuleAzureKeyvaultMatch Rule = "azure-keyvault-match"
	// RuleRedisMatch: a redis source matches a redis target with shared variables.
	RuleRedisMatch Rule = "redis-match"
	// RuleAzureKeyvaultMismatch: a key vault source and target with different URLs.
	RuleAzureKeyvaultMismatch Rule = "azure-keyvault-mismatch"
	// RuleRedisHostnameMismatch: a redis source and target with different hostnames.
	RuleRedisHostnameMismatch Rule = "redis-hostname-mismatch"
)

// Diagnostic is a non fatal finding of the resolver. Project and Task locate
// the consuming task; Peer and PeerTask the producing task when the rule
// compares two tasks.
type Diagnostic struct {
	Rule     Rule
	Severity Severity
	Project  string
	Task     int
	Peer     string
	PeerTask int
	Message  string
}

func (d Diagnostic) String() string {
	if d.Peer == "" {
		return fmt.Sprintf("%s %s: project %s task %d: %s", d.Severity, d.Rule, d.Project, d.Task, d.Message)
	}
	return fmt.Sprintf("%s %s: project %s task %d / project %s task %d: %s", d.Severity, d.Rule, d.Project, d.Task, d.Peer, d.PeerTask, d.Message)
}
