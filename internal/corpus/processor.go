package corpus

import (
	"context"
	"sync/atomic"

	"github.com/FocuswithJustin/xmlinput/core/cache"
	"github.com/FocuswithJustin/xmlinput/core/config"
	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/sentence"
	"github.com/FocuswithJustin/xmlinput/core/vocab"
	"github.com/FocuswithJustin/xmlinput/internal/metrics"
)

// Processor ingests sentences under a configuration that can be swapped
// while it is in use. Sentences from all configurations share one
// vocabulary. A Processor is safe for concurrent use.
type Processor struct {
	vocab   *vocab.Collection
	builder atomic.Pointer[sentence.Builder]
	cache   *cache.SentenceCache
	metrics *metrics.Collector
}

// NewProcessor creates a processor. m may be nil.
func NewProcessor(cfg *config.Config, m *metrics.Collector) *Processor {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Processor{
		vocab:   vocab.NewCollection(),
		cache:   cache.NewSentenceCache(cfg.Cache.MaxEntries),
		metrics: m,
	}
	p.builder.Store(sentence.NewBuilder(p.vocab, cfg.Clone()))
	return p
}

// Config returns the active configuration. Callers must not modify it.
func (p *Processor) Config() *config.Config {
	return p.builder.Load().Config()
}

// SetConfig replaces the active configuration. Sentences already being
// ingested finish under the previous one. The cache size is fixed at
// construction.
func (p *Processor) SetConfig(cfg *config.Config) {
	p.builder.Store(sentence.NewBuilder(p.vocab, cfg.Clone()))
}

// Vocab returns the shared vocabulary.
func (p *Processor) Vocab() *vocab.Collection {
	return p.vocab
}

// CacheStats returns sentence cache statistics.
func (p *Processor) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// Parse ingests one sentence. The second result reports a cache hit.
func (p *Processor) Parse(ctx context.Context, input string) (*sentence.Sentence, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	b := p.builder.Load()
	cfg := b.Config()
	path := string(sentence.PathPlain)
	if cfg.Input.MarkupEnabled {
		path = string(sentence.PathMarkup)
	}

	fp := cfg.Fingerprint()
	if p.cache.Enabled() {
		s, ok := p.cache.Get(fp, input)
		p.metrics.RecordCache(ok)
		if ok {
			p.recordAccepted(path, s)
			return s, true, nil
		}
	}

	s, err := b.Build(input)
	if err != nil {
		p.metrics.RecordRejected(path, errors.Kind(err))
		return nil, false, err
	}
	p.cache.Put(fp, input, s)
	p.recordAccepted(path, s)
	return s, false, nil
}

func (p *Processor) recordAccepted(path string, s *sentence.Sentence) {
	if p.metrics == nil {
		return
	}
	anns := s.Annotations()
	tags := make([]string, len(anns))
	for i, a := range anns {
		tags[i] = a.Tag
	}
	p.metrics.RecordAccepted(path, s.Len(), tags)
}

// Process ingests one corpus line and reports the outcome as a Result.
// Input errors become rejected results; they are never returned.
func (p *Processor) Process(ctx context.Context, line int, input string) Result {
	s, cached, err := p.Parse(ctx, input)
	r := Result{Line: line, Input: input, Sentence: s, Cached: cached}
	if err != nil {
		r.Error = NewErrorInfo(err)
		r.err = err
	}
	return r
}
