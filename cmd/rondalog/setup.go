package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rondalog/rondalog/internal/ai"
	"github.com/rondalog/rondalog/internal/catalog"
	"github.com/rondalog/rondalog/internal/config"
	"github.com/rondalog/rondalog/internal/extract"
	"github.com/rondalog/rondalog/internal/logging"
	"github.com/rondalog/rondalog/internal/model"
	"github.com/rondalog/rondalog/internal/normalize"
	"github.com/rondalog/rondalog/internal/pipeline"
)

var errNoRemote = errors.New("remote service not configured")

type env struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func (e *env) Close() {
	if e.closer != nil {
		e.closer.Close()
	}
}

func loadEnv() (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFrom(configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config (run 'rondalog config' to fix it):\n%w", err)
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.Open(logPath, logging.ParseLevel(cfg.Log.Level), verboseFlag)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, closer: closer}, nil
}

// newAIProvider builds the configured backend. errNoRemote means the
// credentials for it are missing.
func newAIProvider(cfg *config.Config, logger *slog.Logger) (ai.Provider, error) {
	timeout := cfg.Timeout()
	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: set ai.openai_api_key or OPENAI_API_KEY", errNoRemote)
		}
		return ai.NewOpenAI(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIBaseURL, cfg.AI.Model, timeout, logger), nil
	case "anthropic":
		if cfg.AI.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: set ai.anthropic_api_key or ANTHROPIC_API_KEY", errNoRemote)
		}
		return ai.NewAnthropicAPI(cfg.AI.AnthropicAPIKey, cfg.AI.AnthropicBaseURL, cfg.AI.Model, timeout, logger), nil
	case "claude-cli":
		return ai.NewClaudeCLI(cfg.AI.Model, logger), nil
	default:
		if cfg.AI.ServiceURL == "" {
			return nil, fmt.Errorf("%w: set ai.service_url or RONDALOG_SERVICE_URL", errNoRemote)
		}
		return ai.NewService(cfg.AI.ServiceURL, cfg.AI.ServiceAPIKey, timeout, logger), nil
	}
}

func newPipeline(e *env) (*pipeline.Pipeline, error) {
	cfg := e.cfg

	var remote normalize.Corrector
	provider, err := newAIProvider(cfg, e.logger)
	switch {
	case errors.Is(err, errNoRemote):
		e.logger.Warn("correcting locally only", "reason", err)
	case err != nil:
		return nil, err
	default:
		remote = provider
	}

	typos := normalize.DefaultTypoTable()
	if cfg.Normalizer.TypoTable != "" {
		if typos, err = normalize.LoadTypoTable(cfg.Normalizer.TypoTable); err != nil {
			return nil, err
		}
	}
	normalizer := normalize.New(remote,
		normalize.WithTimeout(cfg.Timeout()),
		normalize.WithTypoTable(typos),
		normalize.WithEmailTemplate(normalize.EmailTemplate{
			Salutation: cfg.Normalizer.EmailSalutation,
			Signature:  cfg.Normalizer.EmailSignature,
		}),
		normalize.WithLogger(e.logger),
	)

	keywords := extract.DefaultKeywordTable()
	if cfg.Extractor.KeywordTable != "" {
		if keywords, err = extract.LoadKeywordTable(cfg.Extractor.KeywordTable); err != nil {
			return nil, err
		}
	}

	return pipeline.New(normalizer, extract.New(keywords), e.logger), nil
}

func loadCatalog(cfg *config.Config) (model.Catalog, error) {
	path, err := cfg.CatalogPath()
	if err != nil {
		return nil, err
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return c, nil
}
