// Package cli implements the azdeck command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/waabox/azdeck/internal/config"
	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/git"
	"github.com/waabox/azdeck/internal/hooks"
	azlog "github.com/waabox/azdeck/internal/log"
	"github.com/waabox/azdeck/internal/provider"
	"github.com/waabox/azdeck/internal/provider/azure"
)

const servicesURL = "https://dev.azure.com"

// Options carries the collaborators of the command tree. Zero values select
// the real implementations.
type Options struct {
	Out io.Writer
	Err io.Writer
	// Dir is the directory searched for a git checkout.
	Dir string
	// NewProvider builds the provider for the resolved configuration.
	NewProvider func(cfg config.Config, project domain.Project) (domain.PipelineProvider, error)
	HookRunner  hooks.Runner
	// Sleep replaces the wait between polls of a running pipeline.
	Sleep   func(ctx context.Context, d time.Duration) error
	Version string
}

// RunFailedError is returned when a waited-for run ended Failed or Canceled.
type RunFailedError struct {
	RunID int
	Label string
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run #%d finished: %s", e.RunID, e.Label)
}

type app struct {
	opts Options

	org        string
	project    string
	configPath string
	debug      bool

	cfg      config.Config
	logger   *slog.Logger
	repo     *git.Repository
	target   domain.Project
	provider domain.PipelineProvider
	hooks    *hooks.Service
}

// NewRootCommand builds the azdeck command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Dir == "" {
		opts.Dir, _ = os.Getwd()
	}
	if opts.HookRunner == nil {
		opts.HookRunner = &hooks.ProcessRunner{}
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "azdeck",
		Short:         "Monitor and control Azure Pipelines runs from the terminal",
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&a.org, "org", "", "Azure DevOps organization")
	flags.StringVar(&a.project, "project", "", "Azure DevOps project")
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.config/azdeck/config.toml)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.listCommand(),
		a.runsCommand(),
		a.statusCommand(),
		a.runCommand(),
		a.waitCommand(),
		a.cancelCommand(),
		a.paramsCommand(),
		a.browseCommand(),
	)
	return root
}

// Execute runs the command tree with args under ctx.
func Execute(ctx context.Context, args []string, opts Options) error {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// setup loads configuration and the logger. Remote access is set up lazily by connect.
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a.logger = azlog.New(a.opts.Err, a.debug)
	cmd.SetContext(azlog.IntoContext(ctx, a.logger))

	path := a.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadFrom(ctx, path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.hooks = hooks.NewService(cfg.Hooks, a.opts.HookRunner, a.logger)

	if repo, err := git.Open(a.opts.Dir); err == nil {
		a.repo = repo
	} else {
		a.logger.Debug("no git checkout", "dir", a.opts.Dir, "err", err)
	}
	return nil
}

// connect resolves the target project and the provider serving it.
// Flags win over configuration and environment, which win over the origin remote.
func (a *app) connect() error {
	target := domain.Project{Org: a.cfg.Azure.Org, Name: a.cfg.Azure.Project}
	if a.repo != nil && (target.Org == "" || target.Name == "") {
		if detected, err := a.repo.Project(); err == nil {
			if target.Org == "" {
				target.Org = detected.Org
			}
			if target.Name == "" {
				target.Name = detected.Name
			}
			target.Repo = detected.Repo
			target.RemoteURL = detected.RemoteURL
		} else {
			a.logger.Debug("origin remote not usable", "err", err)
		}
	}
	if a.org != "" {
		target.Org = a.org
	}
	if a.project != "" {
		target.Name = a.project
	}
	if target.Org == "" || target.Name == "" {
		return errors.New("could not determine the organization and project: use --org and --project, " +
			"set azure.org and azure.project in the config file, or run inside an Azure Repos checkout")
	}
	a.target = target

	newProvider := a.opts.NewProvider
	if newProvider == nil {
		newProvider = defaultProvider
	}
	p, err := newProvider(a.cfg, target)
	if err != nil {
		return err
	}
	a.provider = p
	a.logger.Debug("connected", "org", target.Org, "project", target.Name)
	return nil
}

// defaultProvider selects the Azure DevOps adapter for the configured service
// URL, or for the origin remote when none is configured.
func defaultProvider(cfg config.Config, project domain.Project) (domain.PipelineProvider, error) {
	if cfg.Azure.Token == "" {
		return nil, errors.New("no personal access token: set AZURE_DEVOPS_EXT_PAT or azure.token in the config file")
	}
	services := azure.NewAdapter(cfg.Azure.Token, servicesURL)

	registry := provider.NewRegistry()
	registry.Register("dev.azure.com", services)
	registry.Register("visualstudio.com", services)
	if cfg.Azure.URL != "" {
		u, err := url.Parse(cfg.Azure.URL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid azure.url %q", cfg.Azure.URL)
		}
		registry.Register(u.Hostname(), azure.NewAdapter(cfg.Azure.Token, strings.TrimSuffix(cfg.Azure.URL, "/")))
		return registry.Detect(cfg.Azure.URL)
	}
	if project.RemoteURL != "" {
		return registry.Detect(project.RemoteURL)
	}
	return services, nil
}

// resolveDefinition finds a pipeline definition by numeric id or by name.
func (a *app) resolveDefinition(ctx context.Context, ref string) (domain.Definition, error) {
	defs, err := a.provider.ListDefinitions(ctx, a.target)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("listing pipelines: %w", err)
	}
	if id, err := strconv.Atoi(ref); err == nil {
		for _, d := range defs {
			if d.ID == id {
				return d, nil
			}
		}
	}
	for _, d := range defs {
		if strings.EqualFold(d.Name, ref) {
			return d, nil
		}
	}
	return domain.Definition{}, fmt.Errorf("pipeline %q: %w", ref, domain.ErrNotFound)
}

// definitionOf returns the definition a run belongs to.
func definitionOf(run domain.Run) domain.Definition {
	return domain.Definition{ID: run.DefinitionID, Name: run.DefinitionName}
}

func parseRunID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q", arg)
	}
	return id, nil
}

// parseKeyValues parses repeated key=value flags.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[k] = v
	}
	return out, nil
}
