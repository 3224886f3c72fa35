// FILENAME: cmd/mutafuzz/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/config"
	"github.com/xkilldash9x/mutafuzz/internal/engine"
	"github.com/xkilldash9x/mutafuzz/internal/models"
	"github.com/xkilldash9x/mutafuzz/internal/payload"
	"github.com/xkilldash9x/mutafuzz/internal/report"
	"github.com/xkilldash9x/mutafuzz/internal/script"
	"github.com/xkilldash9x/mutafuzz/internal/script/builtin"
	"github.com/xkilldash9x/mutafuzz/internal/table"
)

type runFlags struct {
	script       string
	target       string
	templateFile string
	threads      int
	protocol     string
	wordlists    []string
	params       map[string]string
	outputDir    string
	formats      []string
	quiet        bool
}

func newRunCmd(g *globalFlags, output io.Writer) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [campaign.yaml]",
		Short: "Run a fuzzing campaign",
		Long: `Runs a built-in script against a target. Settings come from the optional
campaign file; flags override it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Default()
			if len(args) == 1 {
				var err error
				if c, err = config.Load(args[0]); err != nil {
					return err
				}
			}
			f.apply(cmd, c)
			if err := c.Validate(); err != nil {
				return err
			}

			logFile := c.Output.LogFile
			if g.logFile != "" {
				logFile = g.logFile
			}
			logger, err := newLogger(logFile, g.debug)
			if err != nil {
				return fmt.Errorf("logger init error: %w", err)
			}
			defer logger.Sync()

			return execute(cmd.Context(), c, &engine.RealClientFactory{}, logger, output)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.script, "script", "s", "", "Built-in script to run")
	fl.StringVarP(&f.target, "target", "u", "", "Target URL for templates without one")
	fl.StringVarP(&f.templateFile, "template", "r", "", "File holding the raw request template")
	fl.IntVarP(&f.threads, "threads", "t", 0, "Concurrent workers")
	fl.StringVar(&f.protocol, "protocol", "", "Protocol: h1, h2 or h3")
	fl.StringArrayVarP(&f.wordlists, "wordlist", "w", nil, "Wordlist file, repeatable")
	fl.StringToStringVarP(&f.params, "param", "p", nil, "Script parameter key=value, repeatable")
	fl.StringVarP(&f.outputDir, "output", "o", "", "Report directory")
	fl.StringSliceVar(&f.formats, "format", nil, "Report formats: json, csv, sqlite")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print rows as they are recorded")
	return cmd
}

// apply overlays the flags that were set onto the campaign.
func (f *runFlags) apply(cmd *cobra.Command, c *config.Campaign) {
	fl := cmd.Flags()
	if fl.Changed("script") {
		c.Script = f.script
	}
	if fl.Changed("target") {
		c.Target = f.target
	}
	if fl.Changed("template") {
		c.Template = ""
		c.TemplateFile = f.templateFile
	}
	if fl.Changed("threads") {
		c.Engine.Threads = f.threads
	}
	if fl.Changed("protocol") {
		c.Engine.Protocol = f.protocol
	}
	if fl.Changed("wordlist") {
		c.Wordlists = f.wordlists
	}
	for k, v := range f.params {
		c.Params[k] = v
	}
	if fl.Changed("output") {
		c.Output.Dir = f.outputDir
	}
	if fl.Changed("format") {
		c.Output.Formats = f.formats
	}
	if f.quiet {
		c.Output.Console = false
	}
}

func engineOptions(c *config.Campaign, template string) engine.Options {
	e := c.Engine
	return engine.Options{
		Threads:              e.Threads,
		Retries:              e.Retries,
		Timeout:              e.Timeout,
		Delay:                e.Delay,
		Protocol:             e.Protocol,
		FollowRedirects:      e.FollowRedirects,
		KeepHostHeader:       e.KeepHostHeader,
		ForceCloseConnection: e.ForceCloseConnection,
		InsecureSkipVerify:   e.Insecure,
		MaxConnsPerHost:      e.MaxConnsPerHost,
		QuarantineThreshold:  e.QuarantineThreshold,
		QuarantineCooldown:   e.QuarantineCooldown,
		Target:               c.Target,
		Template:             template,
	}
}

// execute runs one campaign end to end and writes its reports.
func execute(ctx context.Context, c *config.Campaign, factory engine.ClientFactory, logger *zap.Logger, output io.Writer) error {
	s, err := builtin.Registry().Get(c.Script)
	if err != nil {
		return err
	}
	template, err := c.ResolveTemplate()
	if err != nil {
		return err
	}
	filters, err := c.Filters.Build()
	if err != nil {
		return fmt.Errorf("filters: %w", err)
	}

	lists := make([][]string, 0, len(c.Wordlists))
	for _, path := range c.Wordlists {
		words, err := payload.LoadWordlist(path)
		if err != nil {
			return err
		}
		lists = append(lists, words)
	}
	exchanges, err := loadTemplates(c.Templates, c.Target)
	if err != nil {
		return err
	}

	eng, err := engine.New(factory, engineOptions(c, template), logger)
	if err != nil {
		return fmt.Errorf("engine init error: %w", err)
	}
	defer eng.Close()

	run := script.NewRun(eng, logger)
	run.Params = c.Params
	run.Case = c.Case
	run.Filters = filters
	run.Payloads = payload.NewSource(lists...)
	run.Templates = payload.NewTemplates(exchanges...)
	var sinks []table.Sink
	if c.Output.Console {
		sinks = append(sinks, report.NewConsoleSink(output))
	}
	run.Table = table.New(sinks...)

	run.Logger.Info("Starting run",
		zap.String("script", s.Name()),
		zap.String("target", c.Target),
		zap.Int("wordlists", len(lists)),
		zap.Int("templates", len(exchanges)),
		zap.Int("threads", c.Engine.Threads),
	)
	start := time.Now()
	runErr := script.Execute(ctx, s, eng, run)
	elapsed := time.Since(start)

	records := run.Table.Records()
	p := eng.Progress()
	run.Logger.Info("Run finished",
		zap.Stringer("state", p.State),
		zap.Int64("total", p.Total),
		zap.Int64("errors", p.Errors),
		zap.Int("rows", len(records)),
		zap.Duration("elapsed", elapsed),
	)
	if run.Session.Len() > 0 {
		run.Logger.Debug("Session at end of run", zap.Any("session", run.Session.Snapshot()))
	}

	if len(c.Output.Formats) > 0 {
		w := report.NewWriter(c.Output.Dir, run.ID)
		paths, err := w.WriteArtifacts(records, s.Name(), c.Output.Formats)
		if err != nil {
			runErr = errors.Join(runErr, err)
		}
		for _, path := range paths {
			fmt.Fprintf(output, "wrote %s\n", path)
		}
	}
	fmt.Fprintln(output, report.RenderSummary(s.Name(), records, elapsed))

	if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		run.Logger.Warn("Run interrupted")
		return nil
	}
	return runErr
}

// loadTemplates parses each file as one raw request. Files may use LF line
// endings.
func loadTemplates(paths []string, target string) ([]models.Exchange, error) {
	out := make([]models.Exchange, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
		req, err := engine.ParseRawRequest(engine.RenderTemplate(string(raw), nil), target)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, models.Exchange{Request: req})
	}
	return out, nil
}
