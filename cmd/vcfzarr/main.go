// Command vcfzarr consolidates sharded npy array files extracted from VCF
// regions into a single zarr container.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"

	"github.com/vcfzarr/vcfzarr/agg"
)

const arrayTypePlaceholder = "{array_type}"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(context.Background(), log, cfg); err != nil {
		log.Fatal().Err(err).Msg("aggregation failed")
	}
}

func run(ctx context.Context, log zerolog.Logger, cfg *Config) error {
	bucket, err := openContainer(ctx, cfg.Output)
	if err != nil {
		return err
	}
	defer bucket.Close()

	variantsPattern := strings.ReplaceAll(cfg.Pattern, arrayTypePlaceholder, "variants")
	calldataPattern := strings.ReplaceAll(cfg.Pattern, arrayTypePlaceholder, "calldata")

	// The cardinality gate runs before any write so a mismatch cannot
	// clobber an existing target.
	if !cfg.VariantsOnly {
		variants, err := agg.DiscoverShards(variantsPattern)
		if err != nil {
			return err
		}
		calldata, err := agg.DiscoverShards(calldataPattern)
		if err != nil {
			return err
		}
		if err := agg.ValidatePairedCardinality(len(variants), len(calldata)); err != nil {
			return err
		}
	}

	opts := agg.Options{
		ByteBudget: cfg.ChunkBytes,
		WidthHint:  cfg.ChunkWidth,
		Compressor: cfg.compressor(),
		Filters:    cfg.filters(),
		Observer:   logObserver{log: log},
	}

	variantsLayout := agg.LayoutGroup
	if cfg.TabulateVariants {
		variantsLayout = agg.LayoutTable
	}

	variantRows, err := agg.Ingest(ctx, bucket, variantsPattern, cfg.Group, "variants", variantsLayout, opts)
	if err != nil {
		return err
	}

	if !cfg.VariantsOnly {
		if _, err := agg.Ingest(ctx, bucket, calldataPattern, cfg.Group, "calldata", agg.LayoutGroup, opts); err != nil {
			return err
		}
	}

	if cfg.Samples != "" {
		samples, err := readSamples(cfg.Samples)
		if err != nil {
			return err
		}
		if err := agg.AttachSamples(ctx, bucket, cfg.Group, samples); err != nil {
			return err
		}
		log.Info().Int("samples", len(samples)).Msg("attached sample identifiers")
	}

	shards, err := agg.DiscoverShards(variantsPattern)
	if err != nil {
		return err
	}
	err = agg.AttachProvenance(ctx, bucket, cfg.Group, map[string]interface{}{
		"source_pattern": cfg.Pattern,
		"variant_shards": len(shards),
		"variant_rows":   variantRows,
		"created_by":     "vcfzarr",
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	log.Info().Int("rows", variantRows).Msg("aggregation complete")
	return nil
}

// openContainer opens the output container, accepting either a blob URL or
// a local directory path (created if missing).
func openContainer(ctx context.Context, output string) (*blob.Bucket, error) {
	if output == "" {
		return nil, fmt.Errorf("output container path is required")
	}
	url := output
	if !strings.Contains(output, "://") {
		abs, err := filepath.Abs(output)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output path %s: %w", output, err)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", abs, err)
		}
		url = "file://" + filepath.ToSlash(abs)
	}
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open container %s: %w", url, err)
	}
	return bucket, nil
}

// logObserver reports aggregation progress through zerolog. The agg engine
// itself stays free of process-wide logging state.
type logObserver struct {
	log zerolog.Logger
}

func (o logObserver) DatasetCreated(path string, chunks []int) {
	o.log.Info().Str("dataset", path).Ints("chunks", chunks).Msg("created dataset")
}

func (o logObserver) ShardLoaded(target, shard string, rows int) {
	o.log.Debug().Str("target", target).Str("shard", shard).Int("rows", rows).Msg("loaded shard")
}

func (o logObserver) TargetDone(target string, rows int) {
	o.log.Info().Str("target", target).Int("rows", rows).Msg("target complete")
}

var _ agg.Observer = logObserver{}
