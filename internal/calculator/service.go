package calculator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Analysis outcomes reported to the Observer.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Service decodes canvas snapshots and delegates recognition to an Analyzer.
type Service struct {
	analyzer Analyzer
	cache    Cache
	observer Observer
	logger   *zap.Logger
	maxSide  int
}

// Option configures a Service.
type Option func(*Service)

// WithCache reuses results for identical canvases and variables.
func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithObserver reports analysis outcomes and cache hits.
func WithObserver(observer Observer) Option {
	return func(s *Service) {
		s.observer = observer
	}
}

// WithMaxImageSide bounds the longer image side sent to the analyzer.
func WithMaxImageSide(pixels int) Option {
	return func(s *Service) {
		s.maxSide = pixels
	}
}

// NewService returns a Service. A nil analyzer makes every Calculate call
// fail with ErrAnalyzerUnavailable after input validation.
func NewService(analyzer Analyzer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		analyzer: analyzer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate recognises and solves the math drawn in req.Image.
func (s *Service) Calculate(ctx context.Context, req Request) ([]Result, error) {
	img, err := DecodeDataURL(req.Image)
	if err != nil {
		return nil, err
	}
	png, err := Normalize(img, s.maxSide)
	if err != nil {
		return nil, err
	}

	vars := stringVars(req.DictOfVars)
	key := cacheKey(png, vars)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if s.observer != nil {
				s.observer.ObserveCacheHit()
			}
			s.logger.Debug("calculation served from cache", zap.String("key", key))
			return cached, nil
		}
	}

	if s.analyzer == nil {
		return nil, ErrAnalyzerUnavailable
	}

	start := time.Now()
	results, err := s.analyzer.Analyze(ctx, png, vars)
	s.observe(err, time.Since(start))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Put(key, results)
	}
	s.logger.Info("canvas analysed",
		zap.Int("results", len(results)),
		zap.Int("variables", len(vars)),
		zap.Int("image_bytes", len(png)),
	)
	return results, nil
}

func (s *Service) observe(err error, elapsed time.Duration) {
	if s.observer == nil {
		return
	}
	outcome := OutcomeSuccess
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeTimeout
	case err != nil:
		outcome = OutcomeError
	}
	s.observer.ObserveAnalysis(outcome, elapsed.Seconds())
}

// cacheKey digests the normalised image together with the variables, since
// the same drawing evaluates differently once variables change.
func cacheKey(png []byte, vars map[string]string) string {
	h := sha256.New()
	h.Write(png)
	h.Write([]byte{0})
	encoded, _ := json.Marshal(vars)
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil))
}
