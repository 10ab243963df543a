package resolve

import (
	"testing"

	"github.com/blang/semver/v4"
	"github.com/observatorium/cfganalyzer/pkg/schema"
	"github.com/observatorium/cfganalyzer/pkg/testutil"
)

func doc(tasks ...schema.Task) *schema.VariableShareConfig {
	return &schema.VariableShareConfig{Version: semver.MustParse("1.0.0"), Tasks: tasks}
}

func keyvault(url string) schema.AzureKeyvaultConfig {
	return schema.AzureKeyvaultConfig{URL: url, SecretType: schema.Secret}
}

func rulesOf(diags []Diagnostic) []Rule {
	var ret []Rule
	for _, d := range diags {
		ret = append(ret, d.Rule)
	}
	return ret
}

func TestResolve_AzureKeyvault(t *testing.T) {
	for _, tcase := range []struct {
		name      string
		targetURL string
		expEdges  []Edge
		expRule   Rule
	}{
		{
			name:      "same url",
			targetURL: "https://kv1",
			expEdges:  []Edge{{DependsOn: "20", DependedBy: "10"}},
			expRule:   RuleAzureKeyvaultMatch,
		},
		{
			name:      "different url",
			targetURL: "https://kv2",
			expRule:   RuleAzureKeyvaultMismatch,
		},
		{
			name:      "trailing slash is not normalized",
			targetURL: "https://kv1/",
			expRule:   RuleAzureKeyvaultMismatch,
		},
		{
			name:      "case is not normalized",
			targetURL: "https://KV1",
			expRule:   RuleAzureKeyvaultMismatch,
		},
	} {
		t.Run(tcase.name, func(t *testing.T) {
			res := Resolve(map[string]*schema.VariableShareConfig{
				"10": doc(schema.Task{
					Source:  schema.AzureKeyvaultSource{Config: keyvault("https://kv1")},
					Target:  schema.CommandTarget{},
					Mapping: schema.Mapping{"A": {schema.KeyOnly("A")}},
				}),
				"20": doc(schema.Task{
					Source:  schema.EnvironmentSource{},
					Target:  schema.AzureKeyvaultTarget{Config: keyvault(tcase.targetURL)},
					Mapping: schema.Mapping{"A": {schema.KeyOnly("A")}},
				}),
			})
			testutil.Equals(t, tcase.expEdges, res.Edges)
			testutil.Equals(t, []Rule{tcase.expRule}, rulesOf(res.Diagnostics))
			testutil.Equals(t, Info, res.Diagnostics[0].Severity)
			testutil.Equals(t, "10", res.Diagnostics[0].Project)
			testutil.Equals(t, "20", res.Diagnostics[0].Peer)
		})
	}
}

func TestResolve_Redis(t *testing.T) {
	redisProjects := func(targetKey string) map[string]*schema.VariableShareConfig {
		return map[string]*schema.VariableShareConfig{
			"10": doc(schema.Task{
				Source:  schema.RedisSource{Hostname: "r1"},
				Target:  schema.ProcessEnvironmentTarget{},
				Mapping: schema.Mapping{"A": {schema.KeyOnly("A")}},
			}),
			"20": doc(schema.Task{
				Source:  schema.EnvironmentSource{},
				Target:  schema.RedisTarget{Hostname: "r1"},
				Mapping: schema.Mapping{"X": {schema.CopyMapping{Key: targetKey}}},
			}),
		}
	}

	t.Run("shared variable", func(t *testing.T) {
		res := Resolve(redisProjects("A"))
		testutil.Equals(t, []Edge{{DependsOn: "20", DependedBy: "10"}}, res.Edges)
		testutil.Equals(t, 0, len(res.Filter(Warning)))
		testutil.Equals(t, []Rule{RuleRedisMatch}, rulesOf(res.Filter(Info)))
	})
	t.Run("no shared variable", func(t *testing.T) {
		res := Resolve(redisProjects("B"))
		testutil.Equals(t, 0, len(res.Edges))

		warnings := res.Filter(Warning)
		testutil.Equals(t, []Rule{RuleRedisNoSharedVariables}, rulesOf(warnings))
		testutil.Equals(t, "10", warnings[0].Project)
		testutil.Equals(t, "20", warnings[0].Peer)
	})
	t.Run("different host", func(t *testing.T) {
		projects := redisProjects("A")
		projects["20"].Tasks[0].Target = schema.RedisTarget{Hostname: "r2"}

		res := Resolve(projects)
		testutil.Equals(t, 0, len(res.Edges))
		testutil.Equals(t, []Diagnostic{{
			Rule: RuleRedisHostnameMismatch, Severity: Warning, Project: "10", Task: 0, Peer: "20", PeerTask: 0,
			Message: "redis host r1 read, r2 written",
		}}, res.Diagnostics)
	})
	t.Run("other backend on the peer side", func(t *testing.T) {
		projects := redisProjects("A")
		projects["20"].Tasks[0].Target = schema.EnvFileTarget{File: ".env"}

		res := Resolve(projects)
		testutil.Equals(t, 0, len(res.Edges))
		testutil.Equals(t, 0, len(res.Diagnostics))
	})
	t.Run("converted key counts", func(t *testing.T) {
		projects := redisProjects("A")
		projects["20"].Tasks[0].Mapping = schema.Mapping{
			"X": {schema.KeyOnly("Z")},
			"Y": {schema.KeyOnly("Q"), schema.ConvertMapping{Key: "A", Function: "base64"}},
		}

		res := Resolve(projects)
		testutil.Equals(t, []Edge{{DependsOn: "20", DependedBy: "10"}}, res.Edges)
	})
	t.Run("source mapping values are not matched", func(t *testing.T) {
		projects := redisProjects("B")
		projects["10"].Tasks[0].Mapping = schema.Mapping{"A": {schema.KeyOnly("B")}}

		res := Resolve(projects)
		testutil.Equals(t, 0, len(res.Edges))
	})
}

func TestResolve_TerraformState(t *testing.T) {
	res := Resolve(map[string]*schema.VariableShareConfig{
		"10": doc(
			schema.Task{
				Source: schema.GitlabTerraformStateSource{Config: schema.GitlabProjectConfig{ProjectID: 10}},
				Target: schema.CommandTarget{},
			},
			schema.Task{
				Source: schema.GitlabTerraformStateSource{Config: schema.GitlabProjectConfig{ProjectID: 20}},
				Target: schema.CommandTarget{},
			},
		),
		"20": doc(schema.Task{
			Source: schema.EnvironmentSource{},
			Target: schema.GitlabVariablesTarget{Config: schema.GitlabProjectConfig{ProjectID: 10}},
		}),
	})
	testutil.Equals(t, 0, len(res.Edges))
	testutil.Equals(t, []Diagnostic{
		{
			Rule: RuleTerraformStateSameProject, Severity: Info, Project: "10", Task: 0,
			Message: "terraform state of project 10 used in the same project",
		},
		{
			Rule: RuleTerraformStateCrossProject, Severity: Error, Project: "10", Task: 1,
			Message: "terraform state of project 20 used from another project; not a supported dependency channel",
		},
	}, res.Diagnostics)
}

func TestResolve_GitlabVariablesSource(t *testing.T) {
	res := Resolve(map[string]*schema.VariableShareConfig{
		"10": doc(schema.Task{
			Source: schema.GitlabVariablesSource{Config: schema.GitlabProjectConfig{ProjectID: 20}},
			Target: schema.CommandTarget{},
		}),
		"20": doc(schema.Task{
			Source: schema.EnvironmentSource{},
			Target: schema.GitlabVariablesTarget{Config: schema.GitlabProjectConfig{ProjectID: 20}},
		}),
	})
	testutil.Equals(t, 0, len(res.Edges))
	testutil.Equals(t, []Rule{RuleInvalidSourceBackend}, rulesOf(res.Filter(Error)))
}

func TestResolve_NoRuleBackends(t *testing.T) {
	sources := []schema.Source{
		schema.EnvironmentSource{},
		schema.TerraformFileSource{FileName: "tfoutput.json", FileFormat: schema.OutputJSON},
		schema.EnvFileSource{File: ".env"},
		schema.HardCodedSource{Variables: map[string]string{"A": "1"}},
	}
	targets := []schema.Target{
		schema.AzureKeyvaultTarget{Config: keyvault("https://kv1")},
		schema.RedisTarget{Hostname: "r1"},
		schema.EnvFileTarget{File: ".env"},
	}

	projects := map[string]*schema.VariableShareConfig{"1": doc(), "2": doc()}
	for _, s := range sources {
		projects["1"].Tasks = append(projects["1"].Tasks, schema.Task{Source: s, Target: schema.CommandTarget{}, Mapping: schema.Mapping{"A": {schema.KeyOnly("A")}}})
	}
	for _, tgt := range targets {
		projects["2"].Tasks = append(projects["2"].Tasks, schema.Task{Source: schema.EnvironmentSource{}, Target: tgt, Mapping: schema.Mapping{"A": {schema.KeyOnly("A")}}})
	}

	res := Resolve(projects)
	testutil.Equals(t, 0, len(res.Edges))
	testutil.Equals(t, 0, len(res.Diagnostics))
}

func TestResolve_OneEdgePerOrderedPair(t *testing.T) {
	kvTask := func(url string) schema.Task {
		return schema.Task{Source: schema.AzureKeyvaultSource{Config: keyvault(url)}, Target: schema.AzureKeyvaultTarget{Config: keyvault(url)}}
	}
	res := Resolve(map[string]*schema.VariableShareConfig{
		// Both projects read and write the same vaults: edges in both
		// directions, one each, and no self loops.
		"1": doc(kvTask("https://a"), kvTask("https://b")),
		"2": doc(kvTask("https://a"), kvTask("https://b")),
		"3": doc(kvTask("https://c")),
	})
	testutil.Equals(t, []Edge{
		{DependsOn: "2", DependedBy: "1"},
		{DependsOn: "1", DependedBy: "2"},
	}, res.Edges)
	for _, e := range res.Edges {
		testutil.Assert(t, e.DependsOn != e.DependedBy, "self loop %v", e)
	}
}

func TestResolve_EmptyAndNil(t *testing.T) {
	testutil.Equals(t, Result{}, Resolve(nil))
	testutil.Equals(t, Result{}, Resolve(map[string]*schema.VariableShareConfig{"1": nil, "2": doc()}))
}

func TestResolve_Deterministic(t *testing.T) {
	projects := map[string]*schema.VariableShareConfig{}
	for _, k := range []string{"5", "4", "3", "2", "1"} {
		projects[k] = doc(schema.Task{
			Source:  schema.AzureKeyvaultSource{Config: keyvault("https://shared")},
			Target:  schema.AzureKeyvaultTarget{Config: keyvault("https://shared")},
			Mapping: schema.Mapping{},
		})
	}
	first := Resolve(projects)
	testutil.Equals(t, 20, len(first.Edges))
	for i := 0; i < 10; i++ {
		testutil.Equals(t, first, Resolve(projects))
	}
}

func TestIntersect(t *testing.T) {
	testutil.Equals(t, []string{"b", "d"}, intersect([]string{"a", "b", "c", "d"}, []string{"b", "d", "e"}))
	testutil.Equals(t, []string(nil), intersect([]string{"a"}, []string{"b"}))
	testutil.Equals(t, []string(nil), intersect(nil, []string{"b"}))
}
