// Package service implements the multi-agent orchestration pipeline and the
// registry, session and collaboration queries around it.
package service

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiaot623/ensemble/internal/adapter/llm"
	"github.com/xiaot623/ensemble/internal/config"
	"github.com/xiaot623/ensemble/internal/repository"
	"github.com/xiaot623/ensemble/internal/routing"
	"github.com/xiaot623/ensemble/policy"
)

const (
	defaultMaxTokens  = 2000
	defaultLLMTimeout = 60 * time.Second
	defaultStaleAfter = 10 * time.Minute
	titleMaxRunes     = 100
)

type Service struct {
	store        repository.Store
	config       *config.Config
	policyEngine *policy.Engine
	router       *routing.Router
	extractor    routing.SuggestionExtractor
	invoker      *Invoker
	recorder     *Recorder
	tracer       trace.Tracer
}

// Option customises a Service.
type Option func(*Service)

// WithRouter replaces the default keyword router.
func WithRouter(r *routing.Router) Option {
	return func(s *Service) { s.router = r }
}

// WithSuggestionExtractor replaces the default phrase extractor.
func WithSuggestionExtractor(e routing.SuggestionExtractor) Option {
	return func(s *Service) { s.extractor = e }
}

// New creates the service. A nil completer leaves orchestration disabled;
// a nil policy engine allows every active agent.
func New(store repository.Store, completer llm.Completer, cfg *config.Config, policyEngine *policy.Engine, opts ...Option) *Service {
	if cfg == nil {
		cfg = &config.Config{}
	}
	s := &Service{
		store:        store,
		config:       cfg,
		policyEngine: policyEngine,
		router:       routing.NewRouter(nil),
		extractor:    routing.NewDefaultExtractor(),
		recorder:     NewRecorder(store),
		tracer:       otel.Tracer("github.com/xiaot623/ensemble/internal/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if completer != nil {
		s.invoker = NewInvoker(completer, s.extractor, InvokerConfig{
			Model:     cfg.LLMModel,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   cfg.LLMTimeout,
		})
		s.invoker.tracer = s.tracer
	}
	return s
}
