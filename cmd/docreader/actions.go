package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"docreader/internal/api"
	"docreader/internal/app"
	"docreader/internal/config"
	"docreader/internal/extract"
	"docreader/internal/logging"
	"docreader/internal/models"
	"docreader/internal/relevance"
	"docreader/internal/summary"
	"docreader/internal/util"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// loadConfig reads configuration and builds a logger. Logs use the console
// encoder when consoleFormat is set, unless --log-format says otherwise.
func loadConfig(c *cli.Context, consoleFormat bool) (config.Config, *zap.Logger, error) {
	if path := c.String("config"); path != "" {
		if err := os.Setenv("DOCREADER_CONFIG", path); err != nil {
			return config.Config{}, nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	format := cfg.LogFormat
	switch {
	case c.IsSet("log-format"):
		format = c.String("log-format")
	case consoleFormat:
		format = "console"
	}
	logger, err := logging.New(cfg.LogLevel, format)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func readDocument(c *cli.Context) (models.Document, error) {
	path := c.Args().First()
	if path == "" {
		return models.Document{}, fmt.Errorf("missing FILE argument")
	}
	format, err := documentFormat(path, c.String("format"))
	if err != nil {
		return models.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, err
	}
	return extract.Extract(data, format)
}

func documentFormat(path, flag string) (models.Format, error) {
	if flag != "" {
		return extract.ParseFormat(flag)
	}
	return extract.DetectFormat(filepath.Base(path))
}

func ExtractAction(c *cli.Context) error {
	doc, err := readDocument(c)
	if err != nil {
		return err
	}
	if out := c.String("out"); out != "" {
		return util.WriteJSONAtomic(out, doc)
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

type rankOutput struct {
	DocumentID string                `json:"document_id"`
	Interest   string                `json:"interest"`
	Threshold  float64               `json:"threshold"`
	Rankings   []relevance.PageScore `json:"rankings"`
	Ranges     []rankedRange         `json:"ranges"`
}

type rankedRange struct {
	relevance.RelevantRange
	Label string `json:"label"`
}

func RankAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if mode := c.String("mode"); mode != "" {
		cfg.Relevance.Mode = mode
	}
	doc, err := readDocument(c)
	if err != nil {
		return err
	}
	a, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	interest := c.String("interest")
	res, err := a.Relevance.Rank(c.Context, interest, doc.Pages)
	if err != nil {
		return err
	}
	out := rankOutput{
		DocumentID: doc.ID,
		Interest:   interest,
		Threshold:  a.Relevance.Threshold(),
		Rankings:   a.Relevance.Relevant(res.Scores),
		Ranges:     make([]rankedRange, 0, len(res.Ranges)),
	}
	for _, rg := range res.Ranges {
		out.Ranges = append(out.Ranges, rankedRange{RelevantRange: rg, Label: rg.Label(doc.Chapters)})
	}
	if path := c.String("out"); path != "" {
		return util.WriteJSONAtomic(path, out)
	}
	return printRanges(c.App.Writer, out)
}

func printRanges(w io.Writer, out rankOutput) error {
	if len(out.Ranges) == 0 {
		_, err := fmt.Fprintf(w, "No sections scored %.0f or higher for %q.\n", out.Threshold, out.Interest)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tSCORE\tWHY")
	for _, rg := range out.Ranges {
		fmt.Fprintf(tw, "%s\t%.0f\t%s\n", rg.Label, rg.TopScore, util.DisplaySnippet(rg.TopReason, 100))
	}
	return tw.Flush()
}

func SummarizeAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	doc, err := readDocument(c)
	if err != nil {
		return err
	}
	a, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	pages := doc.Pages
	if c.IsSet("from") || c.IsSet("to") {
		from, to := c.Int("from"), c.Int("to")
		if !c.IsSet("to") {
			to = len(pages)
		}
		pages = summary.SelectRange(pages, from, to)
	}
	text, err := a.Summarizer.Summarize(c.Context, pages)
	if err != nil {
		return err
	}
	if path := c.String("out"); path != "" {
		return util.WriteTextAtomic(path, text+"\n")
	}
	_, err = fmt.Fprintln(c.App.Writer, strings.TrimSpace(text))
	return err
}

func ServeAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if addr := c.String("addr"); addr != "" {
		cfg.APIAddr = addr
	}
	ctx, stop := signalContext(c.Context)
	defer stop()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return api.NewServer(a).ListenAndServe(ctx, cfg.APIAddr)
}

func CallsAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if strings.TrimSpace(cfg.PostgresURL) == "" {
		return fmt.Errorf("audit log disabled: set DOCREADER_POSTGRES_URL")
	}
	a, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	calls, err := a.Audit.Recent(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOPERATION\tSTAGE\tPROVIDER\tMODEL\tSTATUS\tLATENCY")
	for _, call := range calls {
		status := call.Status
		if call.ErrorType != "" {
			status += " (" + call.ErrorType + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", call.CreatedAt.Local().Format(time.DateTime),
			call.Operation, call.Stage, call.ProviderName, call.Model, status, call.Latency)
	}
	return tw.Flush()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
