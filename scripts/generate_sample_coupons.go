package main

import (
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"kasa/internal/config"
	"kasa/internal/coupon"

	"github.com/rs/zerolog"
)

// Sample coupon lists. A code is accepted when it appears on at least two.
//
//	SPRING2026, AUTUMN2026 and KASA10OFF are valid
//	WINTER2026, ONLYONE111 and ONLYTWO222 are on one list only
var sampleLists = map[string][]string{
	"couponbase1.gz": {"SPRING2026", "AUTUMN2026", "KASA10OFF", "ONLYONE111"},
	"couponbase2.gz": {"SPRING2026", "KASA10OFF", "ONLYTWO222"},
	"couponbase3.gz": {"AUTUMN2026", "WINTER2026"},
}

func main() {
	dir := flag.String("dir", "data/coupons", "output directory")
	flag.Parse()

	logger := config.NewLogger(config.LoggerConfig{Level: "info", Format: "console"}, "coupon-seed")

	if err := run(*dir, logger); err != nil {
		logger.Error().Err(err).Msg("failed to generate coupon files")
		os.Exit(1)
	}
}

func run(dir string, logger zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	names := make([]string, 0, len(sampleLists))
	for name := range sampleLists {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		if err := writeList(paths[i], sampleLists[name]); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		logger.Info().Str("path", paths[i]).Int("codes", len(sampleLists[name])).Msg("coupon list written")
	}

	// Read the lists back the way the API does and report each code.
	ctx := context.Background()
	checker, err := coupon.NewChecker(ctx, coupon.Config{Names: paths, MinMatchCount: 2}, coupon.NewFileSource(), logger)
	if err != nil {
		return fmt.Errorf("failed to load written lists: %w", err)
	}
	defer checker.Close()

	seen := make(map[string]bool)
	for _, name := range names {
		for _, code := range sampleLists[name] {
			if seen[code] {
				continue
			}
			seen[code] = true
			logger.Info().Str("code", code).Bool("valid", checker.Check(ctx, code) == nil).Msg("sample coupon")
		}
	}
	return nil
}

func writeList(path string, codes []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	for _, code := range codes {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", code); err != nil {
			return fmt.Errorf("failed to write coupon: %w", err)
		}
	}
	return gzipWriter.Close()
}
