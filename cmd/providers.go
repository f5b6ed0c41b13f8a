package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/ai/anthropic"
	"github.com/spigell/cv-screener/internal/ai/gemini"
	"github.com/spigell/cv-screener/internal/ai/vertex"
	"github.com/spigell/cv-screener/internal/evaluation"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/notify"
	"github.com/spigell/cv-screener/internal/resume"
	"github.com/spigell/cv-screener/internal/role"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/secrets"
	"github.com/spigell/cv-screener/internal/session"
	"github.com/spigell/cv-screener/internal/similarity"
	"github.com/spigell/cv-screener/internal/storage"
)

const (
	providerGemini    = "gemini"
	providerAnthropic = "anthropic"
	providerVertex    = "vertex"

	storageLocal = "local"
	storageGCS   = "gcs"
)

var errEmbeddingsDisabled = errors.New("embeddings are disabled: gemini api key is not configured")

type disabledEmbedder struct{}

func (disabledEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errEmbeddingsDisabled
}

// runtime holds everything a command needs to screen resumes.
type runtime struct {
	sessions   *session.Manager
	notifier   *notify.Notifier
	scheduler  notify.Scheduler
	blobs      storage.BlobStore
	containers storage.Containers
	closers    []io.Closer
}

func (r *runtime) Close() {
	for _, c := range r.closers {
		_ = c.Close()
	}
}

func newRuntime(ctx context.Context, config *Config, log *zap.Logger) (*runtime, error) {
	if config.AI == nil {
		return nil, errors.New("ai configuration is required")
	}
	rt := &runtime{}

	oracle, err := newOracle(ctx, config.AI, rt, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("building ai oracle: %w", err)
	}
	logOracle(log, oracle)

	embedder, err := newEmbedder(ctx, config.AI, oracle, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	evalCfg := config.Evaluation
	if evalCfg == nil {
		evalCfg = &EvaluationConfig{}
	}
	evaluator, err := evaluation.NewEvaluator(oracle, evaluation.Options{
		Weights:      evalCfg.Weights,
		Timeout:      evalCfg.Timeout,
		MaxLogLength: config.AI.MaxLogLength,
		Logger:       log,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("building evaluator: %w", err)
	}

	if err := newStorage(ctx, config.Storage, rt); err != nil {
		rt.Close()
		return nil, fmt.Errorf("building storage: %w", err)
	}

	maxConcurrency := 0
	if config.Batch != nil {
		maxConcurrency = config.Batch.MaxConcurrency
	}

	orchestrator := screening.NewOrchestrator(screening.Deps{
		Extractor:  resume.NewTextExtractor(config.PDFToText),
		Similarity: similarity.NewScorer(similarity.NewCache(embedder), log),
		Evaluator:  evaluator,
		Blobs:      rt.blobs,
		Container:  rt.containers.Resumes,
		Logger:     log,
	}, maxConcurrency)

	rt.sessions = session.NewManager(role.NewExtractor(oracle, evalCfg.RoleTimeout, log), orchestrator, log)

	if err := newNotifications(ctx, config.Notify, rt, log); err != nil {
		rt.Close()
		return nil, fmt.Errorf("building notifications: %w", err)
	}

	return rt, nil
}

// logOracle names the provider and model the analysis runs on.
func logOracle(log *zap.Logger, oracle ai.Completer) {
	d, ok := oracle.(ai.Describer)
	if !ok {
		log.Info("ai oracle ready")
		return
	}
	log.Info("ai oracle ready", logger.CommonFields(d.Provider(), d.Model())...)
}

func newOracle(ctx context.Context, cfg *AIConfig, rt *runtime, log *zap.Logger) (ai.Completer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider == "" {
		provider = providerGemini
	}

	switch provider {
	case providerGemini:
		return newGemini(ctx, cfg, log)
	case providerAnthropic:
		if cfg.Anthropic == nil {
			return nil, errors.New("anthropic configuration is required")
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "anthropic api key",
			Value: cfg.Anthropic.APIKey,
			Env:   "ANTHROPIC_API_KEY",
			File:  cfg.Anthropic.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w or ai.anthropic.api-key-file", err)
		}
		return anthropic.NewClient(apiKey, cfg.Anthropic.Model, cfg.MaxRetries, log)
	case providerVertex:
		if cfg.Vertex == nil {
			return nil, errors.New("vertex configuration is required")
		}
		client, err := vertex.NewClient(ctx, cfg.Vertex.Project, cfg.Vertex.Location, cfg.Vertex.Model, cfg.MaxRetries, log)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client)
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newGemini(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Generator, error) {
	g := cfg.Gemini
	if g == nil {
		g = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: g.APIKey,
		Env:   "GEMINI_API_KEY",
		File:  g.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w or ai.gemini.api-key-file", err)
	}

	return gemini.NewGenerator(ctx, gemini.Options{
		APIKey:         apiKey,
		Model:          g.Model,
		EmbeddingModel: g.EmbeddingModel,
		MaxRetries:     cfg.MaxRetries,
		Logger:         log,
	})
}

// newEmbedder reuses the gemini oracle when possible. Other providers still
// embed with gemini and fall back to zero similarity without a key.
func newEmbedder(ctx context.Context, cfg *AIConfig, oracle ai.Completer, log *zap.Logger) (ai.Embedder, error) {
	if e, ok := oracle.(ai.Embedder); ok {
		return e, nil
	}

	generator, err := newGemini(ctx, cfg, log)
	if err != nil {
		log.Warn("jd similarity disabled", zap.Error(err))
		return disabledEmbedder{}, nil
	}
	return generator, nil
}

func newStorage(ctx context.Context, cfg *StorageConfig, rt *runtime) error {
	if cfg == nil {
		cfg = &StorageConfig{}
	}
	rt.containers = cfg.Containers.WithDefaults()

	switch strings.TrimSpace(strings.ToLower(cfg.Backend)) {
	case "", "none":
		rt.blobs = storage.Discard{}
	case storageLocal:
		local, err := storage.NewLocal(cfg.Dir)
		if err != nil {
			return err
		}
		rt.blobs = local
	case storageGCS:
		gcs, err := storage.NewGCS(ctx, cfg.Bucket)
		if err != nil {
			return err
		}
		rt.blobs = gcs
		rt.closers = append(rt.closers, gcs)
	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
	return nil
}

func newNotifications(ctx context.Context, cfg *NotifyConfig, rt *runtime, log *zap.Logger) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if cfg.DryRun {
		rt.notifier = notify.NewNotifier(notify.LogMailer{Logger: log}, log)
		return nil
	}

	oauthCfg, err := notify.OAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	client, err := notify.Client(ctx, oauthCfg, cfg.TokenFile)
	if err != nil {
		return err
	}

	mailer, err := notify.NewGmail(ctx, client, cfg.From, cfg.RatePerSecond, log)
	if err != nil {
		return err
	}
	rt.notifier = notify.NewNotifier(mailer, log)

	scheduler, err := notify.NewCalendar(ctx, client, cfg.CalendarID, cfg.TimeZone, log)
	if err != nil {
		return err
	}
	rt.scheduler = scheduler
	return nil
}
