package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/adapter"
	natsadapter "github.com/pithecene-io/faultline/adapter/nats"
	redisadapter "github.com/pithecene-io/faultline/adapter/redis"
	"github.com/pithecene-io/faultline/adapter/webhook"
	"github.com/pithecene-io/faultline/cli/config"
	"github.com/pithecene-io/faultline/ingest"
	"github.com/pithecene-io/faultline/iox"
	"github.com/pithecene-io/faultline/lode"
	"github.com/pithecene-io/faultline/log"
	"github.com/pithecene-io/faultline/metrics"
	"github.com/pithecene-io/faultline/policy"
	"github.com/pithecene-io/faultline/types"
)

// Exit codes.
const (
	exitSuccess = 0
	exitUsage   = 1
	exitRuntime = 2
	exitStorage = 3
)

// defaultAdapterRetries applies when neither flag nor config sets retries.
const defaultAdapterRetries = 3

// IngestCommand returns the ingest command.
// This is the only command that writes to the archive.
func IngestCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{Name: "source", Usage: "Source identifier for partitioning (required)"},
		&cli.StringFlag{Name: "ingest-id", Usage: "Ingest session ID (default: random UUID)"},
		&cli.StringFlag{Name: "release", Usage: "Release tag added to every event"},
		&cli.BoolFlag{Name: "quiet", Usage: "Suppress the session summary"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error", Value: "info"},

		// Policy flags
		&cli.StringFlag{Name: "policy", Usage: "Ingestion policy: strict, buffered or noop", Value: "strict"},
		&cli.IntFlag{Name: "buffer-events", Usage: "Max buffered events (buffered policy)"},
		&cli.Int64Flag{Name: "buffer-bytes", Usage: "Max buffer size in bytes (buffered policy)"},

		// Session flags
		&cli.BoolFlag{Name: "fail-on-decode-error", Usage: "Stop on the first undecodable frame instead of skipping it"},
		&cli.DurationFlag{Name: "flush-timeout", Usage: "Bound on the final policy flush", Value: ingest.DefaultFlushTimeout},
		&cli.DurationFlag{Name: "publish-timeout", Usage: "Bound on each notification publish", Value: ingest.DefaultPublishTimeout},

		// Adapter flags
		&cli.StringFlag{Name: "adapter", Usage: "Notification adapter: webhook, redis or nats"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Adapter endpoint URL"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
		&cli.StringFlag{Name: "adapter-stream", Usage: "Redis stream (XADD instead of PUBLISH)"},
		&cli.StringFlag{Name: "adapter-subject", Usage: "NATS subject"},
		&cli.BoolFlag{Name: "adapter-per-level", Usage: "Suffix the channel or subject with the event level"},
		&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as key=value (repeatable)"},
		&cli.StringFlag{Name: "adapter-secret", Usage: "Webhook signing secret"},
		&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-publish timeout"},
		&cli.IntFlag{Name: "adapter-retries", Usage: "Retry attempts after a failed publish", Value: defaultAdapterRetries},
	}
	flags = append(flags, StorageFlags()...)
	flags = append(flags, builderFlags()...)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest length-prefixed capture frames into the archive",
		ArgsUsage: "[file|-]",
		Flags:     flags,
		Action:    ingestAction,
	}
}

// policyChoice holds parsed policy configuration.
type policyChoice struct {
	name      string
	maxEvents int
	maxBytes  int64
}

// adapterChoice holds parsed adapter configuration.
type adapterChoice struct {
	kind     string
	url      string
	channel  string
	stream   string
	subject  string
	perLevel bool
	headers  map[string]string
	secret   string
	timeout  time.Duration
	retries  int
}

func ingestAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	source := resolveString(c, "source", configVal(cfg, func(c *config.Config) string { return c.Source }))
	if source == "" {
		return cli.Exit("--source is required, or set source in faultline.yaml", exitUsage)
	}

	pc := policyChoice{
		name:      resolveString(c, "policy", configVal(cfg, func(c *config.Config) string { return c.Policy.Name })),
		maxEvents: resolveInt(c, "buffer-events", configVal(cfg, func(c *config.Config) int { return c.Policy.BufferEvents })),
		maxBytes:  resolveInt64(c, "buffer-bytes", configVal(cfg, func(c *config.Config) int64 { return c.Policy.BufferBytes })),
	}
	if err := validatePolicyConfig(pc); err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	storage := resolveStorage(c, cfg)
	if pc.name != "noop" {
		if err := storage.validate(); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}

	ac, err := parseAdapterConfig(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	builder, err := newBuilder(c, cfg)
	if err != nil {
		return err
	}

	meta := &types.IngestMeta{
		IngestID: c.String("ingest-id"),
		Source:   source,
	}
	if meta.IngestID == "" {
		meta.IngestID = uuid.NewString()
	}
	if release := resolveString(c, "release", configVal(cfg, func(c *config.Config) string { return c.Release })); release != "" {
		meta.Release = &release
	}

	logger, err := log.NewLoggerWithLevel(meta, resolveString(c, "log-level", configVal(cfg, func(c *config.Config) string { return c.Log.Level })))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer iox.DiscardErr(logger.Sync)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := storage.backend
	if pc.name == "noop" {
		backend = "none"
	}
	collector := metrics.NewCollector(pc.name, backend, ac.kind, meta.IngestID, meta.Source)

	var sink *lode.InstrumentedSink
	if pc.name != "noop" {
		client, err := buildLodeClient(ctx, storage, lode.Config{Source: meta.Source, IngestID: meta.IngestID})
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to initialize storage: %v", err), exitStorage)
		}
		sink = lode.NewInstrumentedSink(lode.NewSink(client), collector)
	}

	pol, err := buildPolicy(pc, sink, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create policy: %v", err), exitUsage)
	}
	defer iox.DiscardErr(pol.Close)

	adp, err := buildAdapter(ac, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create adapter: %v", err), exitUsage)
	}
	if adp != nil {
		defer iox.DiscardClose(adp)
	}

	in, err := openInput(c)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(in)

	sessionCfg := ingest.SessionConfig{
		Input:             in,
		Meta:              meta,
		Policy:            pol,
		Builder:           builder,
		Adapter:           adp,
		Collector:         collector,
		Logger:            logger,
		FlushTimeout:      resolveDuration(c, "flush-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Ingest.FlushTimeout.Duration })),
		PublishTimeout:    resolveDuration(c, "publish-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Ingest.PublishTimeout.Duration })),
		FailOnDecodeError: resolveBool(c, "fail-on-decode-error", configVal(cfg, func(c *config.Config) bool { return c.Ingest.FailOnDecodeError })),
	}
	if sink != nil {
		sessionCfg.Metrics = sink
	}

	result, err := ingest.RunSession(ctx, sessionCfg)
	if err != nil {
		return cli.Exit(err.Error(), exitRuntime)
	}

	if !c.Bool("quiet") {
		out := c.App.ErrWriter
		if out == nil {
			out = os.Stderr
		}
		printSessionResult(out, result, pc)
	}

	if code := result.Outcome.ExitCode(); code != exitSuccess {
		return cli.Exit("", code)
	}
	return nil
}

func validatePolicyConfig(choice policyChoice) error {
	switch choice.name {
	case "strict", "noop":
		if choice.maxEvents > 0 || choice.maxBytes > 0 {
			fmt.Fprintf(os.Stderr, "Warning: buffer flags ignored for %s policy\n", choice.name)
		}
		return nil

	case "buffered":
		if choice.maxEvents < 0 || choice.maxBytes < 0 {
			return errors.New("--buffer-events and --buffer-bytes must be >= 0")
		}
		if choice.maxEvents == 0 && choice.maxBytes == 0 {
			return errors.New("buffered policy requires buffer limits: set --buffer-events > 0 or --buffer-bytes > 0")
		}
		return nil

	default:
		return fmt.Errorf("invalid --policy %q (must be strict, buffered, or noop)", choice.name)
	}
}

// buildPolicy creates the ingestion policy. sink is nil only for noop.
func buildPolicy(choice policyChoice, sink policy.Sink, logger *log.Logger) (policy.Policy, error) {
	switch choice.name {
	case "noop":
		return policy.NewNoopPolicy(), nil

	case "strict":
		return policy.NewStrictPolicy(sink), nil

	case "buffered":
		return policy.NewBufferedPolicy(sink, policy.BufferedConfig{
			MaxBufferEvents: choice.maxEvents,
			MaxBufferBytes:  choice.maxBytes,
			Logger:          logger,
		})

	default:
		return nil, fmt.Errorf("unknown policy: %s", choice.name)
	}
}

// parseAdapterConfig merges adapter flags over the config file.
// An empty kind means no adapter.
func parseAdapterConfig(c *cli.Context, cfg *config.Config) (adapterChoice, error) {
	ac := adapterChoice{
		kind:     resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type })),
		url:      resolveString(c, "adapter-url", configVal(cfg, func(c *config.Config) string { return c.Adapter.URL })),
		channel:  resolveString(c, "adapter-channel", configVal(cfg, func(c *config.Config) string { return c.Adapter.Channel })),
		stream:   resolveString(c, "adapter-stream", configVal(cfg, func(c *config.Config) string { return c.Adapter.Stream })),
		subject:  resolveString(c, "adapter-subject", configVal(cfg, func(c *config.Config) string { return c.Adapter.Subject })),
		perLevel: resolveBool(c, "adapter-per-level", configVal(cfg, func(c *config.Config) bool { return c.Adapter.PerLevel })),
		secret:   resolveString(c, "adapter-secret", configVal(cfg, func(c *config.Config) string { return c.Adapter.Secret })),
		timeout:  resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.Timeout.Duration })),
		retries:  c.Int("adapter-retries"),
	}
	if !c.IsSet("adapter-retries") {
		if r := configVal(cfg, func(c *config.Config) *int { return c.Adapter.Retries }); r != nil {
			ac.retries = *r
		}
	}

	headers, err := parseHeaders(c.StringSlice("adapter-header"))
	if err != nil {
		return ac, err
	}
	if len(headers) == 0 {
		headers = configVal(cfg, func(c *config.Config) map[string]string { return c.Adapter.Headers })
	}
	ac.headers = headers

	if ac.kind == "" {
		if ac.url != "" {
			return ac, errors.New("--adapter-url requires --adapter (webhook, redis, or nats)")
		}
		return ac, nil
	}
	switch ac.kind {
	case "webhook", "redis", "nats":
	default:
		return ac, fmt.Errorf("invalid --adapter %q (must be webhook, redis, or nats)", ac.kind)
	}
	if ac.url == "" {
		return ac, fmt.Errorf("--adapter-url is required for %s adapter", ac.kind)
	}
	if ac.retries < 0 {
		return ac, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}
	if ac.kind != "webhook" && (len(ac.headers) > 0 || ac.secret != "") {
		return ac, fmt.Errorf("--adapter-header and --adapter-secret apply to webhook only, not %s", ac.kind)
	}
	if ac.kind != "redis" && (ac.channel != "" || ac.stream != "") {
		return ac, fmt.Errorf("--adapter-channel and --adapter-stream apply to redis only, not %s", ac.kind)
	}
	if ac.kind != "nats" && ac.subject != "" {
		return ac, fmt.Errorf("--adapter-subject applies to nats only, not %s", ac.kind)
	}
	return ac, nil
}

// parseHeaders parses repeated key=value header flags.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, v := range values {
		k, val, ok := strings.Cut(v, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (want key=value)", v)
		}
		headers[k] = strings.TrimSpace(val)
	}
	return headers, nil
}

// buildAdapter creates the configured adapter, or nil when none is set.
func buildAdapter(ac adapterChoice, logger *log.Logger) (adapter.Adapter, error) {
	switch ac.kind {
	case "":
		return nil, nil
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Secret:  ac.secret,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		a, err := redisadapter.New(redisadapter.Config{
			URL:             ac.url,
			Channel:         ac.channel,
			ChannelPerLevel: ac.perLevel,
			Stream:          ac.stream,
			Timeout:         ac.timeout,
			Retries:         ac.retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "nats":
		a, err := natsadapter.New(natsConfig(ac, logger))
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", ac.kind)
	}
}

// natsConfig layers adapter settings over the NATS defaults.
func natsConfig(ac adapterChoice, logger *log.Logger) natsadapter.Config {
	nc := natsadapter.DefaultConfig(ac.url)
	if ac.subject != "" {
		nc.Subject = ac.subject
	}
	if ac.timeout > 0 {
		nc.Timeout = ac.timeout
	}
	nc.SubjectPerLevel = ac.perLevel
	nc.Retries = ac.retries
	nc.Logger = logger
	return nc
}

func printSessionResult(w io.Writer, result *ingest.SessionResult, choice policyChoice) {
	fmt.Fprintf(w, "\ningest_id=%s, source=%s, outcome=%s, duration=%s\n",
		result.Meta.IngestID,
		result.Meta.Source,
		result.Outcome.Status,
		result.Duration.Round(time.Millisecond),
	)
	if choice.name == "buffered" {
		fmt.Fprintf(w, "policy=%s, drops=%d, buffer_bytes=%d\n",
			choice.name, result.PolicyStats.EventsDropped, result.PolicyStats.BufferSize)
	} else {
		fmt.Fprintf(w, "policy=%s\n", choice.name)
	}

	eng := result.Engine
	fmt.Fprintf(w, "\n=== Ingest Result ===\n")
	fmt.Fprintf(w, "Outcome:          %s\n", result.Outcome.Status)
	fmt.Fprintf(w, "Message:          %s\n", result.Outcome.Message)
	fmt.Fprintf(w, "Captures:         %d\n", eng.Captures)
	fmt.Fprintf(w, "Exceptions:       %d\n", eng.Exceptions)
	fmt.Fprintf(w, "Messages:         %d\n", eng.Messages)
	fmt.Fprintf(w, "Frames Parsed:    %d\n", eng.FramesParsed)
	fmt.Fprintf(w, "Decode Errors:    %d\n", eng.DecodeErrors)
	if eng.PublishErrors > 0 {
		fmt.Fprintf(w, "Publish Errors:   %d\n", eng.PublishErrors)
	}
	if eng.LastEventID != "" {
		fmt.Fprintf(w, "Last Event:       %s\n", eng.LastEventID)
	}

	fmt.Fprintf(w, "\n=== Policy Stats ===\n")
	fmt.Fprintf(w, "Events Total:     %d\n", result.PolicyStats.TotalEvents)
	fmt.Fprintf(w, "Events Persisted: %d\n", result.PolicyStats.EventsPersisted)
	fmt.Fprintf(w, "Events Dropped:   %d\n", result.PolicyStats.EventsDropped)
	fmt.Fprintf(w, "Flushes:          %d\n", result.PolicyStats.FlushCount)
}
