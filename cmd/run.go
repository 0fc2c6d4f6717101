package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/config"
	"github.com/abhisek/cognify/internal/engine"
	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/memory"
	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/remediation"
	"github.com/abhisek/cognify/internal/store"
	"github.com/abhisek/cognify/internal/tracing"
)

// runtime is a fully wired engine and the resources behind it.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *store.Store
	engine  *engine.Engine
	metrics *metrics.Metrics
	tracer  trace.TracerProvider

	closers []func(context.Context) error
}

// buildRuntime opens the store, seeds the concept graph and wires the
// engine's collaborators. The LLM provider is optional; without it
// remediation reports content as unavailable.
func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log}
	rt.closers = append(rt.closers, func(context.Context) error {
		_ = log.Sync()
		return nil
	})

	st, err := openStore(cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.store = st
	rt.closers = append(rt.closers, func(context.Context) error { return st.Close() })

	tp, shutdown, err := tracing.Setup(cfg.Tracing, version, log)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	rt.tracer = tp
	rt.closers = append(rt.closers, shutdown)

	graph, err := seedGraph(ctx, cfg, st, log)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.Events(), log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Remediation lessons will be unavailable.")
		provider = nil
	}
	if provider == nil {
		log.Warn("content generation disabled", zap.String("provider", cfg.LLM.Provider))
	}

	rt.metrics = metrics.New()
	mem := memory.NewService(st.Notes(),
		lessons.NewSummarizer(provider, lessons.DefaultSummarizerConfig()), memory.DefaultWindow)

	remCfg := cfg.Remediation
	remCfg.WeakCutoff = cfg.Engine.WeakCutoff()
	orch := remediation.NewOrchestrator(st.Episodes(),
		lessons.NewGenerator(provider, cfg.Lessons), mem, remCfg, log,
		remediation.WithObserver(func(t remediation.Transition) {
			rt.metrics.ObserveTransition(string(t.From), string(t.To), t.Trigger)
		}))

	eng, err := engine.New(engine.Deps{
		Graphs:      conceptgraph.NewHolder(graph),
		Ledger:      st.Skills(),
		Attempts:    st.Attempts(),
		Times:       st.Attempts(),
		GraphStore:  st.Concepts(),
		Events:      st.Events(),
		Remediation: orch,
		Memory:      mem,
		Metrics:     rt.metrics,
		Tracer:      tp.Tracer("github.com/abhisek/cognify/internal/engine"),
		Logger:      log,
	}, cfg.Engine)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.engine = eng
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// seedGraph returns the persisted concept graph. On first run it loads the
// configured curriculum file, or the embedded calculus curriculum, and
// persists it.
func seedGraph(ctx context.Context, cfg *config.Config, st *store.Store, log *zap.Logger) (*conceptgraph.Graph, error) {
	g, err := st.Concepts().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load concept graph: %w", err)
	}
	if g != nil {
		log.Debug("concept graph loaded from store", zap.Int("concepts", g.Len()))
		return g, nil
	}

	if cfg.Curriculum != "" {
		g, err = loadCurriculumFile(cfg.Curriculum)
	} else {
		g, err = conceptgraph.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("seed concept graph: %w", err)
	}
	if err := st.Concepts().Save(ctx, g); err != nil {
		return nil, fmt.Errorf("persist concept graph: %w", err)
	}
	log.Info("concept graph seeded", zap.Int("concepts", g.Len()), zap.String("source", cfg.Curriculum))
	return g, nil
}

func loadCurriculumFile(path string) (*conceptgraph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return conceptgraph.LoadYAML(f)
}
