package dictionary

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/kasemsan-k/thai-search-core/pkg/postgres"
	"github.com/kasemsan-k/thai-search-core/pkg/resilience"
)

// PostgresSource loads dictionary entries from the external collaborator's
// dictionary tables. The admin frontend owns the schema; this source only
// reads it.
type PostgresSource struct {
	client *postgres.Client
}

// NewPostgresSource creates a PostgresSource over an existing client.
func NewPostgresSource(client *postgres.Client) *PostgresSource {
	return &PostgresSource{client: client}
}

func (s *PostgresSource) Name() string {
	return "postgres"
}

// Fetch reads compounds, synonym groups, and abbreviations. Transient query
// failures are retried with backoff before giving up.
func (s *PostgresSource) Fetch(ctx context.Context) (map[string]DomainFile, error) {
	var domains map[string]DomainFile
	err := resilience.Retry(ctx, "dictionary-fetch", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		domains, err = s.fetchOnce(ctx)
		return err
	})
	return domains, err
}

func (s *PostgresSource) fetchOnce(ctx context.Context) (map[string]DomainFile, error) {
	domains := make(map[string]DomainFile)

	rows, err := s.client.DB.QueryContext(ctx, `
		SELECT word, domain, COALESCE(variations, '{}'), COALESCE(synonyms, '{}'), COALESCE(confidence, 0)
		FROM dictionary_compounds
		ORDER BY domain, id`)
	if err != nil {
		return nil, fmt.Errorf("querying compounds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c      Compound
			domain string
		)
		if err := rows.Scan(&c.Word, &domain, pq.Array(&c.Variations), pq.Array(&c.Synonyms), &c.Confidence); err != nil {
			return nil, fmt.Errorf("scanning compound row: %w", err)
		}
		file := domains[domain]
		file.Compounds = append(file.Compounds, c)
		domains[domain] = file
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating compound rows: %w", err)
	}

	synRows, err := s.client.DB.QueryContext(ctx, `
		SELECT term, domain, equivalents
		FROM dictionary_synonyms
		ORDER BY domain, id`)
	if err != nil {
		return nil, fmt.Errorf("querying synonyms: %w", err)
	}
	defer synRows.Close()
	for synRows.Next() {
		var (
			term, domain string
			equivalents  []string
		)
		if err := synRows.Scan(&term, &domain, pq.Array(&equivalents)); err != nil {
			return nil, fmt.Errorf("scanning synonym row: %w", err)
		}
		file := domains[domain]
		if file.Synonyms == nil {
			file.Synonyms = make(map[string][]string)
		}
		file.Synonyms[term] = append(file.Synonyms[term], equivalents...)
		domains[domain] = file
	}
	if err := synRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating synonym rows: %w", err)
	}

	abbrRows, err := s.client.DB.QueryContext(ctx, `
		SELECT short_form, full_form, domain
		FROM dictionary_abbreviations
		ORDER BY domain, id`)
	if err != nil {
		return nil, fmt.Errorf("querying abbreviations: %w", err)
	}
	defer abbrRows.Close()
	for abbrRows.Next() {
		var short, full, domain string
		if err := abbrRows.Scan(&short, &full, &domain); err != nil {
			return nil, fmt.Errorf("scanning abbreviation row: %w", err)
		}
		file := domains[domain]
		if file.Abbreviations == nil {
			file.Abbreviations = make(map[string]string)
		}
		file.Abbreviations[short] = full
		domains[domain] = file
	}
	if err := abbrRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating abbreviation rows: %w", err)
	}
	return domains, nil
}
