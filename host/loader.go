package host

import (
	"fmt"

	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/hostfuncs"
	"github.com/ocwasm/ocsafe/infrastructure/parser"
	"go.uber.org/zap"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	parser     ports.FixtureParser
	logger     *zap.Logger
	middleware []hostfuncs.Middleware
	hostOpts   []hostfuncs.HostOption
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser: parser.NewYamlFixtureParser(),
	}
}

// Loader builds reference hosts from YAML fixtures.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom fixture parser.
func WithParser(p ports.FixtureParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithLoaderLogger sets the logger of loaded hosts and their method calls.
func WithLoaderLogger(l *zap.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = l
	}
}

// WithMiddleware appends middleware wrapping every fixture method.
func WithMiddleware(mw ...hostfuncs.Middleware) LoaderOption {
	return func(c *loaderConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithHostOptions passes options to every host the loader builds.
func WithHostOptions(opts ...hostfuncs.HostOption) LoaderOption {
	return func(c *loaderConfig) {
		c.hostOpts = append(c.hostOpts, opts...)
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = hostfuncs.Logger()
	}
	return &Loader{config: cfg}
}

// LoadFixture parses a fixture and returns a host serving its components,
// with the fixture's signals already queued.
func (l *Loader) LoadFixture(raw []byte) (*hostfuncs.Host, error) {
	fix, err := l.config.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	bundle, err := hostfuncs.FixtureBundle(fix)
	if err != nil {
		return nil, fmt.Errorf("failed to build components: %w", err)
	}
	signals, err := hostfuncs.FixtureSignals(fix)
	if err != nil {
		return nil, fmt.Errorf("failed to build signals: %w", err)
	}

	mw := append([]hostfuncs.Middleware{
		hostfuncs.PanicRecoveryMiddleware(),
		hostfuncs.LoggingMiddleware(l.config.logger),
	}, l.config.middleware...)
	registry, err := hostfuncs.NewRegistry(hostfuncs.WithMiddleware(mw...), hostfuncs.WithBundle(bundle))
	if err != nil {
		return nil, fmt.Errorf("failed to register components: %w", err)
	}

	opts := append([]hostfuncs.HostOption{hostfuncs.WithHostLogger(l.config.logger)}, l.config.hostOpts...)
	h := hostfuncs.NewHost(registry, opts...)
	for _, s := range signals {
		if err := h.InjectSignal(s.Name, s.Params...); err != nil {
			return nil, fmt.Errorf("failed to queue signal %s: %w", s.Name, err)
		}
	}

	l.config.logger.Debug("fixture loaded",
		zap.Int("components", registry.Len()),
		zap.Int("signals", len(signals)))
	return h, nil
}
