package project

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/blang/semver/v4"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/go-kit/kit/log"
	"github.com/observatorium/cfganalyzer/pkg/graph"
	"github.com/observatorium/cfganalyzer/pkg/resolve"
	"github.com/observatorium/cfganalyzer/pkg/testutil"
)

const (
	keyvaultConsumer = `{
  "version": "1.0.0",
  "tasks": [{
    "source": {"type": "AzureKeyvault", "url": "https://kv1", "secretType": "secret"},
    "target": {"type": "Command"},
    "mapping": {"DB_PASSWORD": ["DB_PASSWORD"]}
  }]
}`
	keyvaultProducer = `{
  "version": "1.1.0",
  "tasks": [{
    "source": {"type": "Environment"},
    "target": {"type": "AzureKeyvault", "url": "https://kv1", "secretType": "secret"},
    "mapping": {"DB_PASSWORD": [{"key": "DB_PASSWORD"}]}
  }]
}`
	redisConsumer = `{
  "version": "1.0.0",
  "tasks": [{
    "source": {"type": "Redis", "hostname": "r1"},
    "target": {"type": "ProcessEnvironment"},
    "mapping": {"SESSION_KEY": ["SESSION_KEY"]}
  }]
}`
)

type testRepo struct {
	t    *testing.T
	repo *git.Repository
	wt   *git.Worktree
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	r, err := git.Init(memory.NewStorage(), memfs.New())
	testutil.Ok(t, err)
	wt, err := r.Worktree()
	testutil.Ok(t, err)
	return &testRepo{t: t, repo: r, wt: wt}
}

func (r *testRepo) commit(files map[string]string) plumbing.Hash {
	r.t.Helper()
	for name, content := range files {
		testutil.Ok(r.t, util.WriteFile(r.wt.Filesystem, name, []byte(content), 0644))
		_, err := r.wt.Add(name)
		testutil.Ok(r.t, err)
	}
	h, err := r.wt.Commit("update config", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1600000000, 0)},
	})
	testutil.Ok(r.t, err)
	return h
}

func testConfig() *Config {
	return &Config{
		Ref: "master",
		Projects: []ProjectConfig{
			{ID: 10, Name: "billing", Group: "payments", URL: "https://example.com/billing.git"},
			{ID: 20, Name: "vault-sync", Group: "platform", URL: "https://example.com/vault-sync.git"},
		},
	}
}

func TestIsConfigFile(t *testing.T) {
	for name, exp := range map[string]bool{
		"cli-config-app.json":        true,
		"deploy/cli-config-app.json": true,
		"redis.json":                 true,
		"redis-cache.json":           true,
		"cli-config-app.yaml":        false,
		"config-cli-app.json":        false,
		"my-redis.json":              false,
		"cli-config-app.json/x":      false,
	} {
		testutil.Equals(t, exp, IsConfigFile(name), name)
	}
}

func TestSnapshot(t *testing.T) {
	billing := newTestRepo(t)
	billing.commit(map[string]string{
		"cli-config-app.json":    keyvaultConsumer,
		"deploy/redis-main.json": redisConsumer,
		"redis-broken.json":      `{"version": "1.0.0", "tasks": [{"source": {"type": "Nope"}}]}`,
		"settings.json":          `not a config`,
		"README.md":              "# billing",
	})
	vault := newTestRepo(t)
	vault.commit(map[string]string{"cli-config-push.json": keyvaultProducer})

	ctx := context.Background()
	p, err := New(ctx, log.NewNopLogger(), testConfig(), t.TempDir(),
		WithRepository("10", billing.repo),
		WithRepository("20", vault.repo),
	)
	testutil.Ok(t, err)

	s, err := p.Snapshot(ctx, "")
	testutil.Ok(t, err)

	testutil.Equals(t, map[string]graph.ProjectNode{
		"10": {ID: "10", Name: "billing", Group: "payments"},
		"20": {ID: "20", Name: "vault-sync", Group: "platform"},
	}, s.Nodes)
	testutil.Equals(t, 3, s.Files)
	testutil.Equals(t, 1, s.Errors.Len())

	// Documents of one project are merged in path order.
	testutil.Equals(t, 2, len(s.Configs["10"].Tasks))
	testutil.Equals(t, "AzureKeyvault", string(s.Configs["10"].Tasks[0].Source.Kind()))
	testutil.Equals(t, "Redis", string(s.Configs["10"].Tasks[1].Source.Kind()))
	testutil.Equals(t, semver.MustParse("1.1.0"), s.Configs["20"].Version)

	a, err := s.Analyze(graph.NewBuilder(rand.NewSource(1), 0))
	testutil.Ok(t, err)
	testutil.Equals(t, []resolve.Edge{{DependsOn: "20", DependedBy: "10"}}, a.Result.Edges)
	testutil.Equals(t, 1, len(a.Graph.Edges()))
}

func TestSnapshot_StrictVersions(t *testing.T) {
	billing := newTestRepo(t)
	billing.commit(map[string]string{"cli-config-app.json": keyvaultConsumer})
	vault := newTestRepo(t)
	vault.commit(map[string]string{"cli-config-push.json": keyvaultProducer})

	cfg := testConfig()
	cfg.SupportedVersions = ">=1.1.0"
	cfg.Versions = semver.MustParseRange(cfg.SupportedVersions)

	ctx := context.Background()
	p, err := New(ctx, log.NewNopLogger(), cfg, t.TempDir(),
		WithRepository("10", billing.repo),
		WithRepository("20", vault.repo),
	)
	testutil.Ok(t, err)

	s, err := p.Snapshot(ctx, "")
	testutil.Ok(t, err)
	testutil.Equals(t, 1, s.Errors.Len())
	_, ok := s.Configs["10"]
	testutil.Assert(t, !ok, "billing config should have been rejected")
	_, ok = s.Configs["20"]
	testutil.Assert(t, ok, "vault-sync config should have been accepted")
}

func TestSnapshot_AtRef(t *testing.T) {
	billing := newTestRepo(t)
	first := billing.commit(map[string]string{"cli-config-app.json": keyvaultConsumer})
	_, err := billing.repo.CreateTag("v1", first, nil)
	testutil.Ok(t, err)
	billing.commit(map[string]string{"cli-config-app.json": redisConsumer})

	vault := newTestRepo(t)
	vault.commit(map[string]string{"cli-config-push.json": keyvaultProducer})
	_, err = vault.repo.CreateTag("v1", mustHead(t, vault.repo), nil)
	testutil.Ok(t, err)

	ctx := context.Background()
	p, err := New(ctx, log.NewNopLogger(), testConfig(), t.TempDir(),
		WithRepository("10", billing.repo),
		WithRepository("20", vault.repo),
	)
	testutil.Ok(t, err)

	b := graph.NewBuilder(rand.NewSource(1), 0)

	old, err := p.Snapshot(ctx, "v1")
	testutil.Ok(t, err)
	oldAnalysis, err := old.Analyze(b)
	testutil.Ok(t, err)
	testutil.Equals(t, 1, len(oldAnalysis.Result.Edges))

	cur, err := p.Snapshot(ctx, "master")
	testutil.Ok(t, err)
	curAnalysis, err := cur.Analyze(b)
	testutil.Ok(t, err)
	testutil.Equals(t, 0, len(curAnalysis.Result.Edges))
}

func TestSnapshot_UnknownRef(t *testing.T) {
	billing := newTestRepo(t)
	billing.commit(map[string]string{"cli-config-app.json": keyvaultConsumer})
	vault := newTestRepo(t)
	vault.commit(map[string]string{"cli-config-push.json": keyvaultProducer})

	ctx := context.Background()
	p, err := New(ctx, log.NewNopLogger(), testConfig(), t.TempDir(),
		WithRepository("10", billing.repo),
		WithRepository("20", vault.repo),
	)
	testutil.Ok(t, err)

	s, err := p.Snapshot(ctx, "does-not-exist")
	testutil.Ok(t, err)
	testutil.Equals(t, 2, s.Errors.Len())
	testutil.Equals(t, 0, len(s.Configs))
	testutil.Equals(t, 2, len(s.Nodes))
}

func mustHead(t *testing.T, r *git.Repository) plumbing.Hash {
	t.Helper()
	ref, err := r.Head()
	testutil.Ok(t, err)
	return ref.Hash()
}
