package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kasemsan-k/thai-search-core/internal/cache"
	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/internal/engine"
	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
	"github.com/kasemsan-k/thai-search-core/pkg/config"
	"github.com/kasemsan-k/thai-search-core/pkg/logger"
)

// segment tokenizes text from the command line or stdin without starting
// the HTTP service. Useful for inspecting dictionary coverage.
func main() {
	dictPath := flag.String("dict", "configs/dictionary.json", "path to dictionary file")
	domain := flag.String("domain", "", "preferred domain for tie-breaking")
	asJSON := flag.Bool("json", false, "emit the full result as JSON")
	flag.Parse()

	logger.Setup("warn", "text")

	cfg := config.Default()
	cfg.Dictionary.Path = *dictPath

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := dictionary.NewStore(cfg.Dictionary, dictionary.NewFileSource(*dictPath), nil)
	if _, err := store.Reload(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load dictionary: %v\n", err)
		os.Exit(1)
	}

	chain, err := segmenter.NewChain(cfg.Segmenter, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build chain: %v\n", err)
		os.Exit(1)
	}
	eng := engine.New(cfg.Segmenter, chain, store, cache.New[*engine.Result](cfg.Cache, nil, nil), nil)

	if flag.NArg() > 0 {
		run(ctx, eng, strings.Join(flag.Args(), " "), *domain, *asJSON)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		run(ctx, eng, line, *domain, *asJSON)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, eng *engine.Engine, text, domain string, asJSON bool) {
	result, err := eng.Tokenize(ctx, text, segmenter.Options{Domain: domain})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokenize failed: %v\n", err)
		return
	}
	if asJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return
	}
	parts := make([]string, 0, len(result.Tokens))
	for _, t := range result.Tokens {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		if t.Compound {
			parts = append(parts, t.Text+"*")
		} else {
			parts = append(parts, t.Text)
		}
	}
	fmt.Println(strings.Join(parts, " | "))
}
