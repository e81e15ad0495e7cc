package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/db"
	"github.com/lucasnoah/worksplit/internal/jobs"
	"github.com/lucasnoah/worksplit/internal/llm"
	"github.com/lucasnoah/worksplit/internal/runner"
	"github.com/lucasnoah/worksplit/internal/status"
)

// appContext bundles the long-lived pieces every command needs.
type appContext struct {
	root    string
	cfg     config.Config
	log     *zap.Logger
	jobsMgr *jobs.Manager
	store   *status.Store
	eventDB *db.DB
}

// newAppContext loads config and opens the stores.
func newAppContext(overrides config.Overrides) (*appContext, func(), error) {
	root, err := projectRoot()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}
	cfg = cfg.WithOverrides(overrides)

	log := newLogger()
	mgr := jobs.NewManager(root, cfg.Limits, log)

	store, err := status.Open(mgr.JobsDir(), log)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}

	var eventDB *db.DB
	if cfg.Behavior.RecordEvents && mgr.JobsFolderExists() {
		eventDB, err = db.Open(mgr.JobsDir())
		if err != nil {
			// The audit log is best-effort.
			log.Warn("event log unavailable", zap.Error(err))
			eventDB = nil
		}
	}

	cleanup := func() {
		if eventDB != nil {
			eventDB.Close()
		}
		_ = log.Sync()
	}
	return &appContext{
		root:    root,
		cfg:     cfg,
		log:     log,
		jobsMgr: mgr,
		store:   store,
		eventDB: eventDB,
	}, cleanup, nil
}

// newRunner builds the job runner over the app context.
func (a *appContext) newRunner() *runner.Runner {
	gen := llm.NewClient(a.cfg.Ollama, a.log)
	return runner.New(a.cfg, a.root, gen, runner.ShellRunner{}, a.store, a.jobsMgr, a.eventDB, a.log)
}

// parseAllJobs parses every discovered job, returning errors per id.
func (a *appContext) parseAllJobs() (map[string]error, error) {
	ids, err := a.jobsMgr.DiscoverJobs()
	if err != nil {
		return nil, err
	}
	results := make(map[string]error, len(ids))
	for _, id := range ids {
		_, err := a.jobsMgr.ParseJob(id)
		results[id] = err
	}
	return results, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
