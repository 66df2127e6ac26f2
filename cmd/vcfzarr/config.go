package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vcfzarr/vcfzarr/agg"
	"github.com/vcfzarr/vcfzarr/zarr"
)

// Config is the full option surface, settable from a YAML file and
// overridable per-option by command-line flags.
type Config struct {
	Pattern          string `yaml:"pattern"`
	Output           string `yaml:"output"`
	Group            string `yaml:"group"`
	ChunkBytes       int    `yaml:"chunk_bytes"`
	ChunkWidth       int    `yaml:"chunk_width"`
	Compression      string `yaml:"compression"`
	CompressionLevel int    `yaml:"compression_level"`
	Shuffle          bool   `yaml:"shuffle"`
	Checksum         bool   `yaml:"checksum"`
	ScaleOffset      int    `yaml:"scale_offset"`
	VariantsOnly     bool   `yaml:"variants_only"`
	TabulateVariants bool   `yaml:"tabulate_variants"`
	Samples          string `yaml:"samples"`
}

func defaultConfig() *Config {
	return &Config{
		ChunkBytes:  agg.DefaultByteBudget,
		ChunkWidth:  agg.DefaultWidthHint,
		Compression: "gzip",
		ScaleOffset: -1,
	}
}

func loadConfig(args []string) (*Config, error) {
	flagCfg := defaultConfig()

	fs := flag.NewFlagSet("vcfzarr", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file; flags override its values")
	fs.StringVar(&flagCfg.Pattern, "pattern", flagCfg.Pattern, "shard glob pattern containing {array_type}")
	fs.StringVar(&flagCfg.Output, "output", flagCfg.Output, "output container directory or blob URL")
	fs.StringVar(&flagCfg.Group, "group", flagCfg.Group, "root group path inside the container")
	fs.IntVar(&flagCfg.ChunkBytes, "chunk-bytes", flagCfg.ChunkBytes, "target chunk size in bytes")
	fs.IntVar(&flagCfg.ChunkWidth, "chunk-width", flagCfg.ChunkWidth, "cap on the second chunk dimension")
	fs.StringVar(&flagCfg.Compression, "compression", flagCfg.Compression, "chunk compressor: gzip, zstd, snappy or none")
	fs.IntVar(&flagCfg.CompressionLevel, "compression-level", flagCfg.CompressionLevel, "gzip compression level")
	fs.BoolVar(&flagCfg.Shuffle, "shuffle", flagCfg.Shuffle, "enable the byte shuffle filter")
	fs.BoolVar(&flagCfg.Checksum, "checksum", flagCfg.Checksum, "enable the fletcher32 checksum filter")
	fs.IntVar(&flagCfg.ScaleOffset, "scale-offset", flagCfg.ScaleOffset, "enable scale-offset packing for integer datasets (-1 disables)")
	fs.BoolVar(&flagCfg.VariantsOnly, "variants-only", flagCfg.VariantsOnly, "skip the calldata shard family")
	fs.BoolVar(&flagCfg.TabulateVariants, "tabulate-variants", flagCfg.TabulateVariants, "store variants as one compound table instead of per-field datasets")
	fs.StringVar(&flagCfg.Samples, "samples", flagCfg.Samples, "sample identifier source: VCF file or newline-separated list")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := flagCfg
	if *configPath != "" {
		cfg = defaultConfig()
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", *configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", *configPath, err)
		}
		// Flags set on the command line win over file values.
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "pattern":
				cfg.Pattern = flagCfg.Pattern
			case "output":
				cfg.Output = flagCfg.Output
			case "group":
				cfg.Group = flagCfg.Group
			case "chunk-bytes":
				cfg.ChunkBytes = flagCfg.ChunkBytes
			case "chunk-width":
				cfg.ChunkWidth = flagCfg.ChunkWidth
			case "compression":
				cfg.Compression = flagCfg.Compression
			case "compression-level":
				cfg.CompressionLevel = flagCfg.CompressionLevel
			case "shuffle":
				cfg.Shuffle = flagCfg.Shuffle
			case "checksum":
				cfg.Checksum = flagCfg.Checksum
			case "scale-offset":
				cfg.ScaleOffset = flagCfg.ScaleOffset
			case "variants-only":
				cfg.VariantsOnly = flagCfg.VariantsOnly
			case "tabulate-variants":
				cfg.TabulateVariants = flagCfg.TabulateVariants
			case "samples":
				cfg.Samples = flagCfg.Samples
			}
		})
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pattern == "" {
		return fmt.Errorf("shard pattern is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output container path is required")
	}
	switch c.Compression {
	case "", "none", zarr.CompressorGzip, zarr.CompressorZstd, zarr.CompressorSnappy:
	default:
		return fmt.Errorf("unsupported compression: %s", c.Compression)
	}
	if c.ChunkBytes <= 0 {
		return fmt.Errorf("chunk-bytes must be positive")
	}
	if c.ChunkWidth <= 0 {
		return fmt.Errorf("chunk-width must be positive")
	}
	return nil
}

func (c *Config) compressor() *zarr.CompressorConfig {
	if c.Compression == "" || c.Compression == "none" {
		return nil
	}
	return &zarr.CompressorConfig{ID: c.Compression, Level: c.CompressionLevel}
}

// filters builds the pipeline in codec order: scale-offset packing, then
// byte shuffle, then the checksum last so it covers filtered bytes.
func (c *Config) filters() []zarr.FilterConfig {
	var filters []zarr.FilterConfig
	if c.ScaleOffset >= 0 {
		filters = append(filters, zarr.FilterConfig{ID: zarr.FilterScaleOffset})
	}
	if c.Shuffle {
		filters = append(filters, zarr.FilterConfig{ID: zarr.FilterShuffle})
	}
	if c.Checksum {
		filters = append(filters, zarr.FilterConfig{ID: zarr.FilterFletcher32})
	}
	return filters
}
