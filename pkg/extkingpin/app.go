// Copyright (c) The Observatorium Authors.
// Licensed under the Apache License 2.0.

// Package extkingpin lets commands register their action next to their flags
// and get the opened project only when they need one.
package extkingpin

import (
	"context"
	"fmt"
	"os"

	"github.com/observatorium/cfganalyzer/pkg/project"
	"gopkg.in/alecthomas/kingpin.v2"
)

// Runner runs a parsed command.
type Runner struct {
	// NeedsProject is false for commands that only work on local files.
	NeedsProject bool
	Run          func(context.Context, *project.Project) error
}

// App is a kingpin application with per command runners.
type App struct {
	*kingpin.Application

	runners map[string]Runner
}

func NewApp(app *kingpin.Application) *App {
	app.HelpFlag.Short('h')
	return &App{Application: app, runners: map[string]Runner{}}
}

// Command adds a new sub command.
func (a *App) Command(name, help string) *CmdClause {
	return &CmdClause{CmdClause: a.Application.Command(name, help), app: a}
}

// Parse parses os.Args and returns the selected command name and its runner.
// It exits the process on parse errors.
func (a *App) Parse() (string, Runner) {
	cmd, err := a.Application.Parse(os.Args[1:])
	if err != nil {
		a.Usage(os.Args[1:])
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	r, ok := a.runners[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "command %q has no action\n", cmd)
		os.Exit(2)
	}
	return cmd, r
}

type CmdClause struct {
	*kingpin.CmdClause

	app *App
}

// Run sets the action of a command that works on the configured projects.
func (c *CmdClause) Run(f func(context.Context, *project.Project) error) {
	c.app.runners[c.FullCommand()] = Runner{NeedsProject: true, Run: f}
}

// RunLocal sets the action of a command that does not need the projects.
func (c *CmdClause) RunLocal(f func() error) {
	c.app.runners[c.FullCommand()] = Runner{Run: func(context.Context, *project.Project) error { return f() }}
}
