package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"assistant-inbox/internal/backend"
	"assistant-inbox/internal/config"
	"assistant-inbox/internal/emailprocessor"
	imapclient "assistant-inbox/internal/imap"
	"assistant-inbox/internal/logging"
	"assistant-inbox/internal/mailparse"
	"assistant-inbox/internal/metrics"
	"assistant-inbox/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

var fetchFailureCount atomic.Int32

const failureSleepDuration = 30 * time.Minute

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logging.Log.Fatalf("%v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "assistant-inbox",
		Usage: "fetch, normalize and browse the assistant email inbox",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the YAML configuration",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "refresh the inbox every refreshTime",
				Flags:  searchFlags(),
				Action: watchAction,
			},
			{
				Name:   "fetch",
				Usage:  "run one fetch cycle and print the inbox as JSON",
				Flags:  searchFlags(),
				Action: fetchAction,
			},
			{
				Name:      "show",
				Usage:     "fetch, mark one email as read and print it with its raw content",
				ArgsUsage: "<email-id>",
				Flags:     searchFlags(),
				Action:    showAction,
			},
			{
				Name:      "parse",
				Usage:     "normalize a raw email read from a file or stdin",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "recipient-fallback", Usage: "value used when no recipient is found"},
				},
				Action: parseAction,
			},
		},
		DefaultCommand: "watch",
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "query", Usage: "free-text search"},
		&cli.IntFlag{Name: "days", Usage: "only emails from the last N days, 0 for all time"},
		&cli.IntFlag{Name: "limit", Usage: "maximum number of emails"},
		&cli.BoolFlag{Name: "unread", Usage: "unread emails only"},
		&cli.StringFlag{Name: "from", Usage: "filter by sender"},
		&cli.StringFlag{Name: "to", Usage: "filter by recipient"},
	}
}

// searchQuery starts from the configured filters and applies the flags that were set
func searchQuery(c *cli.Context, cfg *models.Config) models.SearchQuery {
	q := cfg.Search.ToQuery()
	if c.IsSet("query") {
		q.Text = c.String("query")
	}
	if c.IsSet("days") {
		q.Days = c.Int("days")
	}
	if c.IsSet("limit") {
		q.Limit = c.Int("limit")
	}
	if c.IsSet("unread") {
		q.UnreadOnly = c.Bool("unread")
	}
	if c.IsSet("from") {
		q.From = c.String("from")
	}
	if c.IsSet("to") {
		q.To = c.String("to")
	}
	return q
}

// setup loads the configuration and builds the processor for the configured source
func setup(c *cli.Context) (*models.Config, *emailprocessor.Processor, *metrics.Metrics, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error reading configuration file: %w", err)
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Format)

	var source emailprocessor.Source
	switch cfg.Source {
	case models.SourceIMAP:
		source = imapclient.NewSource(cfg.Email)
	default:
		source = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	}

	m := metrics.New(prometheus.NewRegistry())
	normalizer := mailparse.NewNormalizer(mailparse.WithRecipientFallback(cfg.Normalizer.RecipientFallback))

	return cfg, emailprocessor.NewProcessor(source, cfg.Source, normalizer, m), m, nil
}

func watchAction(c *cli.Context) error {
	cfg, processor, m, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Listen != "" {
		go serveMetrics(cfg.Metrics.Listen, m)
	}

	q := searchQuery(c, cfg)
	logging.Log.Infof("Starting inbox refresh from %s, refresh every %s", cfg.Source, cfg.RefreshTime)

	for {
		wait := cfg.RefreshTime
		if err := processor.Refresh(ctx, q); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait += handleFetchFailure(err)
		} else {
			fetchFailureCount.Store(0)
		}

		select {
		case <-ctx.Done():
			logging.Log.Info("Stopping inbox refresh")
			return nil
		case <-time.After(wait):
		}
	}
}

// emailDetail is the output of show: the email plus the links found in its raw content
type emailDetail struct {
	models.NormalizedEmail
	Links []string `json:"links,omitempty"`
}

func fetchAction(c *cli.Context) error {
	cfg, processor, _, err := setup(c)
	if err != nil {
		return err
	}
	// stdout carries the JSON output
	logging.Log.SetOutput(os.Stderr)

	if err := processor.Refresh(c.Context, searchQuery(c, cfg)); err != nil {
		return err
	}
	return printJSON(c.App.Writer, processor.Emails())
}

func showAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("show requires an email id")
	}

	cfg, processor, _, err := setup(c)
	if err != nil {
		return err
	}
	logging.Log.SetOutput(os.Stderr)

	if err := processor.Refresh(c.Context, searchQuery(c, cfg)); err != nil {
		return err
	}

	email, err := processor.Select(c.Context, id)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, emailDetail{
		NormalizedEmail: email,
		Links:           mailparse.ExtractLinks(email.RawContent),
	})
}

func parseAction(c *cli.Context) error {
	var r io.Reader = os.Stdin
	if path := c.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func(f *os.File) {
			_ = f.Close()
		}(f)
		r = f
	}

	logging.Log.SetOutput(os.Stderr)

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading raw email: %w", err)
	}

	normalizer := mailparse.NewNormalizer(mailparse.WithRecipientFallback(c.String("recipient-fallback")))
	return printJSON(c.App.Writer, normalizer.Normalize(models.RawEmail{Content: string(data)}))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	logging.Log.Infof("Serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.Log.Errorf("Metrics server stopped: %v", err)
	}
}

// handleFetchFailure increments the failure count and returns the extra wait of an exponential backoff
func handleFetchFailure(err error) time.Duration {
	failures := fetchFailureCount.Add(1)
	logging.Log.Errorf("Fetch error: %v", err)

	if failures < 5 {
		return 0
	}

	base := 5 * time.Minute
	maxSteps := int32(10)

	n := failures - 5
	if n > maxSteps {
		n = maxSteps
	}

	backoff := base * time.Duration(1<<n)
	if backoff > failureSleepDuration {
		backoff = failureSleepDuration
	}

	logging.Log.Warnf("Fetch failed %d times, waiting %s before next attempt", failures, backoff)
	return backoff
}
