package app

import (
	"fmt"

	"github.com/pesio-ai/be-approval-chains/configs"
	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/client"
	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
	"github.com/pesio-ai/be-approval-chains/internal/orggraph"
	"github.com/pesio-ai/be-approval-chains/internal/repository"
	"github.com/pesio-ai/be-approval-chains/internal/service"
)

// App wires the engine over one directory snapshot and an in-memory request
// store.
type App struct {
	Config    config.Config
	Log       *logger.Logger
	Directory *config.DirectoryFile
	Graphs    *orggraph.Holder
	Source    *orggraph.FileSource // nil when running from the embedded sample
	Policies  map[approval.RequestType]service.Policy
	Fallback  *service.FallbackProvider
	Builder   *service.ChainBuilder
	Machine   *service.ApprovalStateMachine
	Alerts    *client.LogAlertReporter
	Notifier  *client.LogNotificationDispatcher
	Store     *repository.RequestRepository
	Service   *service.ApprovalService
}

// New loads the directory named by cfg (or the embedded sample) and builds
// every component.
func New(cfg config.Config, log *logger.Logger) (*App, error) {
	dir, err := loadDirectory(cfg.Directory.File)
	if err != nil {
		return nil, err
	}
	return FromDirectory(cfg, dir, log)
}

// FromDirectory builds the engine over an already-parsed directory file.
func FromDirectory(cfg config.Config, dir *config.DirectoryFile, log *logger.Logger) (*App, error) {
	graph, err := orggraph.FromConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("build org graph: %w", err)
	}
	if d := graph.Dangling(); len(d) > 0 {
		log.Warn().Strs("employees", d).Msg("reports_to references unknown identities; upward paths stop there")
	}
	graphs := orggraph.NewHolder(graph)

	policies, err := service.CompilePolicies(dir)
	if err != nil {
		return nil, err
	}
	classifier, err := service.ClassifierFromConfig(dir.Classifier)
	if err != nil {
		return nil, err
	}
	fallback, err := service.NewFallbackProvider(policies, graphs, log)
	if err != nil {
		return nil, err
	}

	alerts := client.NewLogAlertReporter(log.Logger)
	notifier := client.NewLogNotificationDispatcher(log.Logger, 0)
	store := repository.NewRequestRepository()
	builder := service.NewChainBuilder(graphs, policies, classifier, fallback, log)
	machine := service.NewApprovalStateMachine(alerts, log)

	a := &App{
		Config:    cfg,
		Log:       log,
		Directory: dir,
		Graphs:    graphs,
		Policies:  policies,
		Fallback:  fallback,
		Builder:   builder,
		Machine:   machine,
		Alerts:    alerts,
		Notifier:  notifier,
		Store:     store,
		Service:   service.NewApprovalService(builder, machine, store, notifier, log),
	}
	if cfg.Directory.File != "" {
		a.Source = &orggraph.FileSource{Path: cfg.Directory.File, Holder: graphs, Log: log}
	}

	log.Info().
		Int("employees", graph.Len()).
		Int("departments", len(graph.Departments())).
		Int("policies", len(policies)).
		Msg("approval chain engine ready")
	return a, nil
}

func loadDirectory(path string) (*config.DirectoryFile, error) {
	if path != "" {
		return config.LoadDirectory(path)
	}
	data, err := configs.Load(configs.SampleDirectory)
	if err != nil {
		return nil, err
	}
	return config.DirectoryFromYAML(data)
}
