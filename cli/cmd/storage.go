package cmd

import (
	"context"
	"errors"
	"fmt"

	lodestore "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/config"
	"github.com/pithecene-io/faultline/cli/reader"
	"github.com/pithecene-io/faultline/lode"
)

// storageChoice holds the resolved archive location.
type storageChoice struct {
	dataset   string
	backend   string // "fs" or "s3"
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

// resolveStorage merges storage flags over the config file.
func resolveStorage(c *cli.Context, cfg *config.Config) storageChoice {
	return storageChoice{
		dataset:   resolveString(c, "storage-dataset", configVal(cfg, func(c *config.Config) string { return c.Storage.Dataset })),
		backend:   resolveString(c, "storage-backend", configVal(cfg, func(c *config.Config) string { return c.Storage.Backend })),
		path:      resolveString(c, "storage-path", configVal(cfg, func(c *config.Config) string { return c.Storage.Path })),
		region:    resolveString(c, "storage-region", configVal(cfg, func(c *config.Config) string { return c.Storage.Region })),
		endpoint:  resolveString(c, "storage-endpoint", configVal(cfg, func(c *config.Config) string { return c.Storage.Endpoint })),
		pathStyle: resolveBool(c, "storage-s3-path-style", configVal(cfg, func(c *config.Config) bool { return c.Storage.S3PathStyle })),
	}
}

// validate reports the first missing or invalid setting as an actionable error.
func (s storageChoice) validate() error {
	if s.backend == "" {
		return errors.New("--storage-backend is required (fs or s3), or set storage.backend in faultline.yaml")
	}
	if s.path == "" {
		return errors.New("--storage-path is required, or set storage.path in faultline.yaml")
	}
	switch s.backend {
	case "fs":
		if s.endpoint != "" || s.pathStyle {
			return errors.New("--storage-endpoint and --storage-s3-path-style require --storage-backend s3")
		}
	case "s3":
	default:
		return fmt.Errorf("unsupported --storage-backend %q (must be fs or s3)", s.backend)
	}
	return nil
}

func (s storageChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(s.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       s.region,
		Endpoint:     s.endpoint,
		UsePathStyle: s.pathStyle,
	}
}

// factory returns the Lode store factory for the chosen backend.
func (s storageChoice) factory(ctx context.Context) (lodestore.StoreFactory, error) {
	switch s.backend {
	case "fs":
		return lodestore.NewFSFactory(s.path), nil
	case "s3":
		return lode.NewS3StoreFactory(ctx, s.s3Config())
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", s.backend)
	}
}

// buildReadDataset opens the archive for reading.
func buildReadDataset(ctx context.Context, s storageChoice) (lodestore.Dataset, error) {
	factory, err := s.factory(ctx)
	if err != nil {
		return nil, lode.WrapInitError(err, s.dataset)
	}
	return lode.NewReadDataset(s.dataset, factory)
}

// buildLodeClient opens the archive for writing.
func buildLodeClient(ctx context.Context, s storageChoice, cfg lode.Config) (*lode.LodeClient, error) {
	cfg.Dataset = s.dataset
	factory, err := s.factory(ctx)
	if err != nil {
		return nil, lode.WrapInitError(err, s.dataset)
	}
	return lode.NewLodeClientWithFactory(cfg, factory)
}

// newReader returns the reader selected by --stub or the storage settings.
func newReader(c *cli.Context) (reader.Reader, error) {
	if c.Bool("stub") {
		return reader.NewStubReader(reader.SampleEvents(), reader.SampleMetrics()), nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	choice := resolveStorage(c, cfg)
	if err := choice.validate(); err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	ds, err := buildReadDataset(c.Context, choice)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to initialize storage reader: %v", err), exitStorage)
	}
	return reader.NewLodeReader(ds), nil
}

// readError maps reader failures to exit codes. Missing records are
// usage errors; everything else is a storage failure.
func readError(err error) error {
	if errors.Is(err, lode.ErrEventNotFound) || errors.Is(err, lode.ErrNoMetricsFound) {
		return cli.Exit(err.Error(), exitUsage)
	}
	return cli.Exit(fmt.Sprintf("storage read failed: %v", err), exitStorage)
}
