package project

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/observatorium/cfganalyzer/pkg/graph"
	"github.com/observatorium/cfganalyzer/pkg/merrors"
	"github.com/observatorium/cfganalyzer/pkg/schema"
	"github.com/pkg/errors"
)

// Ref is a git revision config documents are read at: a branch, tag or commit SHA.
type Ref string

// IsConfigFile reports whether a repository file holds a variable share
// document: its base name starts with "cli-config-" or "redis" and ends with ".json".
func IsConfigFile(name string) bool {
	base := path.Base(name)
	return (strings.HasPrefix(base, "cli-config-") || strings.HasPrefix(base, "redis")) &&
		strings.HasSuffix(base, ".json")
}

// Project gives access to the repositories of all configured projects.
type Project struct {
	Logger log.Logger

	cacheDir string
	cfg      *Config
	auth     transport.AuthMethod

	repos map[string]*repo
}

type repo struct {
	repo *git.Repository
	// remote repositories were cloned from the project URL and are fetched
	// before reading.
	remote bool
	auth   transport.AuthMethod
}

func (r *repo) fetch(ctx context.Context) error {
	if !r.remote {
		return nil
	}
	if err := r.repo.FetchContext(ctx, &git.FetchOptions{
		Auth:  r.auth,
		Tags:  git.AllTags,
		Force: true,
	}); err != nil && errors.Cause(err) != git.NoErrAlreadyUpToDate {
		return errors.Wrap(err, "fetch")
	}
	return nil
}

// resolve prefers remote tracking branches for cloned repositories, so a
// fetched branch wins over the local one created at clone time.
func (r *repo) resolve(ref Ref) (*plumbing.Hash, error) {
	candidates := []string{string(ref), "origin/" + string(ref)}
	if r.remote {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}

	var firstErr error
	for _, c := range candidates {
		h, err := r.repo.ResolveRevision(plumbing.Revision(c))
		if err == nil {
			return h, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, errors.Wrapf(firstErr, "resolve revision %v", ref)
}

type file struct {
	path    string
	content []byte
}

// configFiles returns the variable share documents at ref, sorted by path.
func (r *repo) configFiles(ref Ref) ([]file, error) {
	h, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(*h)
	if err != nil {
		return nil, errors.Wrapf(err, "commit %v", h)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrapf(err, "tree of commit %v", h)
	}

	var files []file
	if err := tree.Files().ForEach(func(f *object.File) error {
		if !IsConfigFile(f.Name) {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			return errors.Wrapf(err, "read %v", f.Name)
		}
		files = append(files, file{path: f.Name, content: []byte(content)})
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

// Option configures New.
type Option func(*Project)

// WithToken authenticates HTTPS remotes with a GitLab (or other) access token.
func WithToken(token string) Option {
	return func(p *Project) {
		if token == "" {
			return
		}
		p.auth = &githttp.BasicAuth{Username: "oauth2", Password: token}
	}
}

// WithRepository uses an already opened repository for the project with the
// given key instead of cloning its URL. It is never fetched.
func WithRepository(key string, r *git.Repository) Option {
	return func(p *Project) {
		p.repos[key] = &repo{repo: r}
	}
}

// New opens the repository of every configured project, cloning the missing
// ones into cacheDir.
func New(ctx context.Context, logger log.Logger, cfg *Config, cacheDir string, opts ...Option) (*Project, error) {
	p := &Project{
		Logger:   logger,
		cacheDir: cacheDir,
		cfg:      cfg,
		repos:    map[string]*repo{},
	}
	for _, o := range opts {
		o(p)
	}

	for _, pc := range cfg.Projects {
		if _, ok := p.repos[pc.Key()]; ok {
			continue
		}
		dir := p.localRepoDir(pc)
		level.Debug(logger).Log("msg", "opening project repo", "project", pc.Name, "url", pc.URL, "dir", dir)
		r, err := git.PlainOpen(dir)
		if errors.Cause(err) == git.ErrRepositoryNotExists {
			level.Debug(logger).Log("msg", "project repo not found, cloning", "project", pc.Name, "url", pc.URL, "dir", dir)
			r, err = git.PlainCloneContext(ctx, dir, true, &git.CloneOptions{
				URL:  pc.URL,
				Auth: p.auth,
				Tags: git.AllTags,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "clone project repo %v to %v", pc.URL, dir)
			}
		} else if err != nil {
			return nil, errors.Wrapf(err, "open project repo %v in %v", pc.URL, dir)
		}
		p.repos[pc.Key()] = &repo{repo: r, remote: true, auth: p.auth}
	}
	return p, nil
}

func (p *Project) localRepoDir(pc ProjectConfig) string {
	return filepath.Join(p.cacheDir, "projects", pc.URL)
}

// Config returns the analyzer configuration.
func (p *Project) Config() *Config { return p.cfg }

// Snapshot is the parsed state of every project at one ref.
type Snapshot struct {
	Ref     Ref
	Nodes   map[string]graph.ProjectNode
	Configs map[string]*schema.VariableShareConfig
	// Files is the number of config documents found, including invalid ones.
	Files int
	// Errors holds per project and per file failures. They do not stop the
	// snapshot; the affected file or project is skipped.
	Errors *merrors.Error
}

// Snapshot reads and parses the config documents of every project. When ref
// is empty, each project's own ref, or the default ref, is used.
func (p *Project) Snapshot(ctx context.Context, ref Ref) (*Snapshot, error) {
	s := &Snapshot{
		Ref:     ref,
		Nodes:   map[string]graph.ProjectNode{},
		Configs: map[string]*schema.VariableShareConfig{},
		Errors:  merrors.New(),
	}

	var opts []schema.Option
	if p.cfg.Versions != nil {
		opts = append(opts, schema.WithSupportedVersions(p.cfg.Versions, p.cfg.SupportedVersions))
	}

	for _, pc := range p.cfg.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := pc.Key()
		s.Nodes[key] = graph.ProjectNode{ID: key, Name: pc.Name, Group: pc.Group}
		logger := log.With(p.Logger, "project", pc.Name, "id", key)

		r, ok := p.repos[key]
		if !ok {
			return nil, errors.Errorf("no repository for project %v", key)
		}
		if err := r.fetch(ctx); err != nil {
			level.Warn(logger).Log("msg", "skipping project", "err", err)
			s.Errors.Add(errors.Wrapf(err, "project %v", pc.Name))
			continue
		}

		projectRef := ref
		if projectRef == "" {
			projectRef = pc.Ref
		}
		if projectRef == "" {
			projectRef = p.cfg.Ref
		}
		files, err := r.configFiles(projectRef)
		if err != nil {
			level.Warn(logger).Log("msg", "skipping project", "ref", projectRef, "err", err)
			s.Errors.Add(errors.Wrapf(err, "project %v", pc.Name))
			continue
		}

		var docs []*schema.VariableShareConfig
		for _, f := range files {
			s.Files++
			doc, err := schema.Parse(f.content, opts...)
			if err != nil {
				level.Warn(logger).Log("msg", "skipping invalid config file", "file", f.path, "err", err)
				s.Errors.Add(errors.Wrapf(err, "project %v file %v", pc.Name, f.path))
				continue
			}
			level.Debug(logger).Log("msg", "parsed config file", "file", f.path, "version", doc.Version, "tasks", len(doc.Tasks))
			docs = append(docs, doc)
		}
		if len(docs) > 0 {
			s.Configs[key] = schema.Merge(docs...)
		}
	}
	return s, nil
}
