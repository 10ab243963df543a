package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"time"

	"github.com/blang/semver/v4"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/observatorium/cfganalyzer/pkg/extkingpin"
	"github.com/observatorium/cfganalyzer/pkg/graph"
	"github.com/observatorium/cfganalyzer/pkg/merrors"
	"github.com/observatorium/cfganalyzer/pkg/metrics"
	"github.com/observatorium/cfganalyzer/pkg/project"
	"github.com/observatorium/cfganalyzer/pkg/render"
	"github.com/observatorium/cfganalyzer/pkg/resolve"
	"github.com/observatorium/cfganalyzer/pkg/schema"
	"github.com/pkg/errors"
)

func registerGraph(app *extkingpin.App, metricsPath *string) {
	cmd := app.Command("graph", "Print the dependency graph of all projects.")
	ref := cmd.Flag("ref", "Git branch, tag or commit to read config documents at. Defaults to the ref of each project.").Short('r').String()
	formats := make([]string, 0, len(render.Formats))
	for _, f := range render.Formats {
		formats = append(formats, string(f))
	}
	output := cmd.Flag("output", "Output format.").Short('o').Default(string(render.FormatDOT)).Enum(formats...)
	seed := cmd.Flag("seed", "Seed for initial node positions. 0 picks a random one.").Int64()

	cmd.Run(func(ctx context.Context, prj *project.Project) error {
		a, err := analyze(ctx, prj, project.Ref(*ref), *seed)
		if err != nil {
			return err
		}
		if *metricsPath != "" {
			m := metrics.New()
			m.Observe(a)
			if err := m.WriteTextfile(*metricsPath); err != nil {
				return err
			}
		}
		return render.Write(os.Stdout, render.Format(*output), a.Graph)
	})
}

func registerDiff(app *extkingpin.App) {
	cmd := app.Command("diff", "Print dependency changes between two refs.")
	baseRef := cmd.Arg("base-ref", "Git branch, tag or commit of project repositories to use as base.").Required().String()
	newRef := cmd.Arg("new-ref", "Git branch, tag or commit of project repositories to compare with.").Required().String()

	cmd.Run(func(ctx context.Context, prj *project.Project) error {
		base, err := analyze(ctx, prj, project.Ref(*baseRef), 1)
		if err != nil {
			return err
		}
		cur, err := analyze(ctx, prj, project.Ref(*newRef), 1)
		if err != nil {
			return err
		}
		return render.Diff(os.Stdout, *baseRef, *newRef, render.EdgeList(base.Graph), render.EdgeList(cur.Graph))
	})
}

func registerValidate(app *extkingpin.App) {
	cmd := app.Command("validate", "Check local variable share documents against the schema.")
	supported := cmd.Flag("supported-versions", "Semver range documents must satisfy, e.g. '>=1.0.0 <2.0.0'. Empty accepts any version.").String()
	files := cmd.Arg("file", "Config document to validate.").Required().ExistingFiles()

	cmd.RunLocal(func() error {
		var opts []schema.Option
		if *supported != "" {
			r, err := semver.ParseRange(*supported)
			if err != nil {
				return errors.Wrapf(err, "parse supported versions %q", *supported)
			}
			opts = append(opts, schema.WithSupportedVersions(r, *supported))
		}

		errs := merrors.New()
		for _, f := range *files {
			b, err := ioutil.ReadFile(f)
			if err != nil {
				errs.Add(errors.Wrapf(err, "read %v", f))
				continue
			}
			cfg, err := schema.Parse(b, opts...)
			if err != nil {
				fmt.Printf("%s: %v\n", f, err)
				errs.Add(errors.Wrap(err, f))
				continue
			}
			fmt.Printf("%s: ok, version %s, %d tasks\n", f, cfg.Version, len(cfg.Tasks))
		}
		if errs.Len() > 0 {
			return errors.Errorf("%d of %d documents are invalid", errs.Len(), len(*files))
		}
		return nil
	})
}

// analyze takes a snapshot of all projects at ref and resolves it, logging
// everything that was skipped or reported on the way.
func analyze(ctx context.Context, prj *project.Project, ref project.Ref, seed int64) (*project.Analysis, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s, err := prj.Snapshot(ctx, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot at %q", ref)
	}
	a, err := s.Analyze(graph.NewBuilder(rand.NewSource(seed), prj.Config().SpawnSize))
	if err != nil {
		return nil, err
	}
	logAnalysis(prj.Logger, a)
	return a, nil
}

func logAnalysis(logger log.Logger, a *project.Analysis) {
	for _, d := range a.Result.Diagnostics {
		l := level.Info(logger)
		switch d.Severity {
		case resolve.Warning:
			l = level.Warn(logger)
		case resolve.Error:
			l = level.Error(logger)
		}
		kv := []interface{}{"msg", d.Message, "rule", d.Rule, "project", d.Project, "task", d.Task}
		if d.Peer != "" {
			kv = append(kv, "peer", d.Peer, "peerTask", d.PeerTask)
		}
		l.Log(kv...)
	}
	if err := a.Graph.DetectCycles(); err != nil {
		level.Warn(logger).Log("msg", "projects depend on each other", "err", err)
	}
	if a.Errors.Len() > 0 {
		level.Warn(logger).Log("msg", "some projects or config files were skipped", "errors", a.Errors.Len())
	}
	level.Info(logger).Log("msg", "analysis done", "ref", a.Ref, "projects", len(a.Nodes), "files", a.Files, "edges", len(a.Result.Edges))
}
