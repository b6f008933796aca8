package dictionary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kasemsan-k/thai-search-core/pkg/config"
	pkgerrors "github.com/kasemsan-k/thai-search-core/pkg/errors"
	"github.com/kasemsan-k/thai-search-core/pkg/metrics"
)

// RejectedEntry reports one entry skipped during load and why.
type RejectedEntry struct {
	Domain string `json:"domain"`
	Word   string `json:"word"`
	Reason string `json:"reason"`
}

// LoadSummary reports the outcome of one load or reload.
type LoadSummary struct {
	Version  uint64          `json:"version"`
	Loaded   int             `json:"loaded"`
	Domains  map[string]int  `json:"domains"`
	Rejected []RejectedEntry `json:"rejected,omitempty"`
	Took     time.Duration   `json:"-"`
	TookMs   int64           `json:"took_ms"`
}

// Store publishes immutable dictionary generations. Readers call Generation
// and keep the returned snapshot for the whole call; Reload swaps in a new
// snapshot atomically and never disturbs in-flight readers. Old generations
// are reclaimed by the garbage collector once unreferenced.
type Store struct {
	cfg     config.DictionaryConfig
	source  Source
	metrics *metrics.Metrics
	logger  *slog.Logger

	gen     atomic.Pointer[Generation]
	version atomic.Uint64

	// reloadMu serializes writers; readers never take it.
	reloadMu sync.Mutex
}

// NewStore creates a Store backed by source. Call Reload before serving.
func NewStore(cfg config.DictionaryConfig, source Source, m *metrics.Metrics) *Store {
	s := &Store{
		cfg:     cfg,
		source:  source,
		metrics: m,
		logger:  slog.Default().With("component", "dictionary-store"),
	}
	// Version 0: empty generation so lookups are valid before first load.
	s.gen.Store(newGeneration(0, nil, nil, nil, cfg.PreferDomainTieBreak))
	return s
}

// Generation returns the current immutable snapshot.
func (s *Store) Generation() *Generation {
	return s.gen.Load()
}

// Reload fetches the source, validates entries individually, and publishes a
// new generation. Invalid entries are skipped and reported in the summary;
// only a source-level failure aborts the reload, leaving the previous
// generation active.
func (s *Store) Reload(ctx context.Context) (*LoadSummary, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	domains, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrDictionaryUnavailable, err)
	}

	version := s.version.Add(1)
	entries, synonyms, abbreviations, rejected := s.buildEntries(domains)
	gen := newGeneration(version, entries, synonyms, abbreviations, s.cfg.PreferDomainTieBreak)
	s.gen.Store(gen)

	summary := &LoadSummary{
		Version:  version,
		Loaded:   len(entries),
		Domains:  gen.DomainCounts(),
		Rejected: rejected,
		Took:     time.Since(start),
		TookMs:   time.Since(start).Milliseconds(),
	}
	if s.metrics != nil {
		s.metrics.DictionaryGeneration.Set(float64(version))
		s.metrics.EntriesRejectedTotal.Add(float64(len(rejected)))
		for domain, n := range summary.Domains {
			s.metrics.DictionaryEntries.WithLabelValues(domain).Set(float64(n))
		}
	}
	s.logger.Info("dictionary generation published",
		"source", s.source.Name(),
		"version", version,
		"loaded", summary.Loaded,
		"rejected", len(rejected),
		"took", summary.Took,
	)
	return summary, nil
}

// buildEntries flattens the per-domain sections into validated entries in a
// deterministic load order: domains sorted by name, entries in declaration
// order within each domain.
func (s *Store) buildEntries(domains map[string]DomainFile) ([]*Entry, map[string][]string, map[string]string, []RejectedEntry) {
	names := make([]string, 0, len(domains))
	for name := range domains {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		entries       []*Entry
		rejected      []RejectedEntry
		synonyms      = make(map[string][]string)
		abbreviations = make(map[string]string)
		// word and variations must be distinct within one domain
		seen = make(map[string]map[string]struct{})
	)

	reject := func(domain, word, reason string) {
		rejected = append(rejected, RejectedEntry{Domain: domain, Word: word, Reason: reason})
	}

	for _, domain := range names {
		if seen[domain] == nil {
			seen[domain] = make(map[string]struct{})
		}
		file := domains[domain]
	compounds:
		for _, c := range file.Compounds {
			if err := validateSurface(c.Word, s.cfg.RequireThaiScript); err != nil {
				reject(domain, c.Word, err.Error())
				continue
			}
			if c.Confidence < 0 || c.Confidence > 1 {
				reject(domain, c.Word, "confidence out of range [0,1]")
				continue
			}
			surfaces := append([]string{c.Word}, c.Variations...)
			for _, surface := range surfaces {
				if err := validateSurface(surface, s.cfg.RequireThaiScript); err != nil {
					reject(domain, c.Word, fmt.Sprintf("variation %q: %v", surface, err))
					continue compounds
				}
				if _, dup := seen[domain][surface]; dup {
					reject(domain, c.Word, fmt.Sprintf("duplicate surface %q in domain %s", surface, domain))
					continue compounds
				}
			}
			for _, surface := range surfaces {
				seen[domain][surface] = struct{}{}
			}
			entries = append(entries, &Entry{
				Word:       c.Word,
				Domain:     domain,
				Variations: c.Variations,
				Synonyms:   c.Synonyms,
				Confidence: c.Confidence,
			})
		}
		for term, values := range file.Synonyms {
			synonyms[term] = append(synonyms[term], values...)
		}
		for abbr, full := range file.Abbreviations {
			if abbr == "" || full == "" {
				reject(domain, abbr, "empty abbreviation mapping")
				continue
			}
			abbreviations[abbr] = full
		}
	}
	return entries, synonyms, abbreviations, rejected
}
