// Package resolve infers dependencies between projects from their variable
// share documents.
//
// Project A depends on project B when a task of A reads from a backend that a
// task of B writes to, per backend specific matching rules:
//
//   - Azure Key Vault: the source URL equals the target URL, byte for byte.
//   - Redis: the hostnames are equal and at least one source variable of A's
//     task is written by B's task.
//
// Other backends never create dependencies. Matches, mismatches between tasks
// of the same backend and policy violations are reported as diagnostics, never
// as errors.
package resolve

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/observatorium/cfganalyzer/pkg/schema"
)

// Edge is a dependency between two projects: DependedBy (the consumer) depends
// on DependsOn (the producer).
type Edge struct {
	DependsOn  string
	DependedBy string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s", e.DependsOn, e.DependedBy)
}

// Result of a resolution pass.
type Result struct {
	Edges       []Edge
	Diagnostics []Diagnostic
}

// Filter returns the diagnostics with the given severity.
func (r Result) Filter(s Severity) []Diagnostic {
	var ret []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			ret = append(ret, d)
		}
	}
	return ret
}

// Resolve computes the dependency edges between the given projects, keyed by
// project key (the numeric project id as a decimal string).
//
// Every ordered pair of distinct projects is evaluated on its own, so both
// directions may be present and self loops never are. At most one edge is
// emitted per ordered pair. Projects are visited in key order, which makes
// the output deterministic for a given input. The input is only read.
func Resolve(projects map[string]*schema.VariableShareConfig) Result {
	keys := make([]string, 0, len(projects))
	for k := range projects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var res Result
	for _, key := range keys {
		res.Diagnostics = append(res.Diagnostics, checkSources(key, tasksOf(projects[key]))...)
	}

	for _, consumer := range keys {
		for _, producer := range keys {
			if consumer == producer {
				continue
			}

			found := false
			for i, t1 := range tasksOf(projects[consumer]) {
				for j, t2 := range tasksOf(projects[producer]) {
					m := pairMatch{consumer: consumer, task: i, producer: producer, peerTask: j}
					ok, diag := m.match(t1, t2)
					if diag != nil {
						res.Diagnostics = append(res.Diagnostics, *diag)
					}
					found = found || ok
				}
			}
			if found {
				res.Edges = append(res.Edges, Edge{DependsOn: producer, DependedBy: consumer})
			}
		}
	}
	return res
}

func tasksOf(cfg *schema.VariableShareConfig) []schema.Task {
	if cfg == nil {
		return nil
	}
	return cfg.Tasks
}

// checkSources applies the rules that depend on a single task's source only.
func checkSources(key string, tasks []schema.Task) []Diagnostic {
	var diags []Diagnostic
	for i, t := range tasks {
		switch s := t.Source.(type) {
		case schema.GitlabTerraformStateSource:
			id := strconv.FormatUint(s.Config.ProjectID, 10)
			if id == key {
				diags = append(diags, Diagnostic{
					Rule: RuleTerraformStateSameProject, Severity: Info, Project: key, Task: i,
					Message: fmt.Sprintf("terraform state of project %s used in the same project", id),
				})
				continue
			}
			diags = append(diags, Diagnostic{
				Rule: RuleTerraformStateCrossProject, Severity: Error, Project: key, Task: i,
				Message: fmt.Sprintf("terraform state of project %s used from another project; not a supported dependency channel", id),
			})
		case schema.GitlabVariablesSource:
			diags = append(diags, Diagnostic{
				Rule: RuleInvalidSourceBackend, Severity: Error, Project: key, Task: i,
				Message: fmt.Sprintf("%s can only be used as a target", s.Kind()),
			})
		}
	}
	return diags
}

type pairMatch struct {
	consumer string
	task     int
	producer string
	peerTask int
}

func (m pairMatch) diag(rule Rule, sev Severity, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Rule:     rule,
		Severity: sev,
		Project:  m.consumer,
		Task:     m.task,
		Peer:     m.producer,
		PeerTask: m.peerTask,
		Message:  fmt.Sprintf(format, args...),
	}
}

// match reports whether t1, a task of the consumer, reads what t2, a task of
// the producer, writes.
func (m pairMatch) match(t1, t2 schema.Task) (bool, *Diagnostic) {
	switch src := t1.Source.(type) {
	case schema.AzureKeyvaultSource:
		tgt, ok := t2.Target.(schema.AzureKeyvaultTarget)
		if !ok {
			return false, nil
		}
		if src.Config.URL != tgt.Config.URL {
			return false, m.diag(RuleAzureKeyvaultMismatch, Info, "key vault %s read, %s written", src.Config.URL, tgt.Config.URL)
		}
		return true, m.diag(RuleAzureKeyvaultMatch, Info, "key vault %s shared", src.Config.URL)

	case schema.RedisSource:
		tgt, ok := t2.Target.(schema.RedisTarget)
		if !ok {
			return false, nil
		}
		if src.Hostname != tgt.Hostname {
			return false, m.diag(RuleRedisHostnameMismatch, Warning, "redis host %s read, %s written", src.Hostname, tgt.Hostname)
		}
		sourceKeys, targetKeys := t1.SourceKeys(), t2.TargetKeys()
		shared := intersect(sourceKeys, targetKeys)
		if len(shared) == 0 {
			return false, m.diag(RuleRedisNoSharedVariables, Warning,
				"redis host %s shared but no variables in common: %v != %v", src.Hostname, sourceKeys, targetKeys)
		}
		return true, m.diag(RuleRedisMatch, Info, "redis host %s shared with variables %v", src.Hostname, shared)

	case schema.EnvironmentSource, schema.TerraformFileSource, schema.EnvFileSource, schema.HardCodedSource,
		schema.GitlabTerraformStateSource, schema.GitlabVariablesSource:
		// No cross project rule. The last two are reported by checkSources.
		return false, nil
	}
	return false, nil
}

// intersect returns the elements of a that are in b. Both must be sorted.
func intersect(a, b []string) []string {
	var ret []string
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] == b[j]:
			ret = append(ret, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return ret
}
