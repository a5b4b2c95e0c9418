// Command xmlinput ingests annotated source sentences: it parses inline
// XML markup into tokens, reordering walls and zones, placeholder
// substitutions and forced translations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/xmlinput/core/annotation"
	"github.com/FocuswithJustin/xmlinput/core/config"
	"github.com/FocuswithJustin/xmlinput/core/markup"
	"github.com/FocuswithJustin/xmlinput/core/sentence"
	"github.com/FocuswithJustin/xmlinput/core/sqlite"
	"github.com/FocuswithJustin/xmlinput/core/vocab"
	"github.com/FocuswithJustin/xmlinput/internal/api"
	"github.com/FocuswithJustin/xmlinput/internal/corpus"
	"github.com/FocuswithJustin/xmlinput/internal/logging"
	"github.com/FocuswithJustin/xmlinput/internal/metrics"
	"github.com/FocuswithJustin/xmlinput/internal/store"
	"github.com/FocuswithJustin/xmlinput/internal/validation"
)

const version = "0.1.0"

// Globals are the flags shared by every command. Option flags override
// the configuration file and the environment only when given.
type Globals struct {
	Config    string `help:"Configuration file (YAML)" type:"path" env:"XMLINPUT_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (json, text, auto)"`

	Markup            *bool `help:"Parse inline XML markup"`
	PlaceholderFactor *int  `name:"placeholder-factor" help:"Factor slot that receives ne entities (negative disables)"`
	MaxDistortion     *int  `name:"max-distortion" help:"Maximum reordering distance (-1 = unlimited)"`
	MonotoneAtPunct   *bool `name:"monotone-at-punct" help:"Put walls around punctuation"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Parse   ParseCmd   `cmd:"" help:"Parse a corpus into JSON lines"`
	Export  ExportCmd  `cmd:"" help:"Parse a corpus into a SQLite database"`
	Inspect InspectCmd `cmd:"" help:"Show how one sentence is parsed"`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP/WebSocket API server"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// load resolves the configuration (file, environment, flags) and sets
// up logging from it.
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.LoadWithEnvOverrides(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Markup != nil {
		cfg.Input.MarkupEnabled = *g.Markup
	}
	if g.PlaceholderFactor != nil {
		cfg.Input.SetPlaceholderSlot(*g.PlaceholderFactor)
	}
	if g.MaxDistortion != nil {
		cfg.Reordering.MaxReorderDistance = *g.MaxDistortion
	}
	if g.MonotoneAtPunct != nil {
		cfg.Reordering.MonotoneAtPunctuation = *g.MonotoneAtPunct
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format := logging.FormatFor(g.Stderr)
	if !strings.EqualFold(cfg.Logging.Format, "auto") {
		if format, err = logging.ParseFormat(cfg.Logging.Format); err != nil {
			return nil, err
		}
	}
	logging.InitLoggerWithWriter(g.Stderr, level, format)
	return cfg, nil
}

// ParseCmd writes one JSON result per corpus line.
type ParseCmd struct {
	Input   string `arg:"" optional:"" default:"-" help:"Corpus file (.gz and .xz are decompressed; - reads stdin)"`
	Output  string `short:"o" default:"-" help:"Output file (- writes stdout)"`
	Workers int    `short:"w" help:"Worker goroutines (0 = number of CPUs)"`
	Strict  bool   `help:"Exit with an error if any line is rejected"`
}

func (c *ParseCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	in, err := corpus.Open(c.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	out := g.Stdout
	if c.Output != "-" {
		if err := validation.ValidatePath(c.Output); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(out)
	p := corpus.NewProcessor(cfg, nil)
	sum, err := p.Run(ctx, in, workers(c.Workers), func(r corpus.Result) error {
		return enc.Encode(r)
	})
	if err != nil {
		return err
	}
	if c.Strict && sum.Rejected > 0 {
		return fmt.Errorf("%d of %d lines rejected", sum.Rejected, sum.Total)
	}
	return nil
}

// ExportCmd stores a parsed corpus in SQLite.
type ExportCmd struct {
	Input   string `arg:"" optional:"" default:"-" help:"Corpus file (.gz and .xz are decompressed; - reads stdin)"`
	DB      string `name:"db" required:"" help:"SQLite database to create or extend" type:"path"`
	Workers int    `short:"w" help:"Worker goroutines (0 = number of CPUs)"`
}

func (c *ExportCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	in, err := corpus.Open(c.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := store.Open(c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	batch, err := st.Begin(ctx, runID, cfg.Fingerprint(), time.Now())
	if err != nil {
		return err
	}
	p := corpus.NewProcessor(cfg, nil)
	sum, err := p.RunWithID(ctx, runID, in, workers(c.Workers), batch.Emit(ctx))
	if err != nil {
		batch.Rollback()
		return err
	}
	if err := batch.Commit(ctx, sum); err != nil {
		return err
	}
	fmt.Fprintf(g.Stdout, "run %s: %d sentences, %d rejected -> %s\n", runID, sum.Total, sum.Rejected, st.Path())
	return nil
}

// InspectCmd shows the markup tree, annotations and constraints of one
// sentence. Markup parsing is always on.
type InspectCmd struct {
	Sentence string `arg:"" help:"Sentence with inline markup"`
	XPath    string `name:"xpath" help:"XPath expression evaluated against the markup"`
	Count    string `help:"Count elements with this tag"`
}

func (c *InspectCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	cfg.Input.MarkupEnabled = true
	out := g.Stdout

	doc, err := markup.Parse(c.Sentence)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "markup:")
	if err := doc.Dump(out); err != nil {
		return err
	}

	tokens, anns, err := annotation.Walk(doc.Root(), annotation.Config{MaxDepth: cfg.Input.MaxMarkupDepth})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tokens: %s\n", strings.Join(tokens, " "))
	fmt.Fprintf(out, "annotations: %d\n", len(anns))
	for i, a := range anns {
		fmt.Fprintf(out, "  [%d] %s span=[%d,%d) depth=%d", i, a.Tag, a.Start, a.End(), a.Depth)
		if a.Parent != annotation.NoParent {
			fmt.Fprintf(out, " parent=%d", a.Parent)
		}
		if a.HasTranslation {
			fmt.Fprintf(out, " translation=%q", a.Translation)
		}
		if a.HasEntity {
			fmt.Fprintf(out, " entity=%q", a.Entity)
		}
		fmt.Fprintln(out)
	}

	if c.XPath != "" {
		nodes, err := doc.Select(c.XPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "xpath %s: %d match(es)\n", c.XPath, len(nodes))
		for _, n := range nodes {
			fmt.Fprintf(out, "  %s %q\n", n.Name(), n.InnerText())
		}
	}
	if c.Count != "" {
		n, err := doc.CountElements(c.Count)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "count %s: %d\n", c.Count, n)
	}

	s, err := sentence.CreateFromString(vocab.NewCollection(), cfg, c.Sentence)
	if err != nil {
		fmt.Fprintf(out, "rejected: %v\n", err)
		return err
	}
	fmt.Fprintln(out, "sentence:")
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ServeCmd runs the API server until interrupted.
type ServeCmd struct {
	Port           int           `help:"HTTP server port" default:"8080"`
	Workers        int           `short:"w" help:"Batch worker goroutines (0 = number of CPUs)"`
	APIKey         string        `name:"api-key" help:"Require this X-API-Key on non-public endpoints" env:"XMLINPUT_API_KEY"`
	TLSCert        string        `name:"tls-cert" help:"TLS certificate file" type:"path"`
	TLSKey         string        `name:"tls-key" help:"TLS private key file" type:"path"`
	AllowedOrigins []string      `name:"allowed-origin" help:"Allowed CORS/WebSocket origin (repeatable)"`
	RateLimit      int           `name:"rate-limit" help:"Requests per minute per client (0 = disabled)"`
	RateBurst      int           `name:"rate-burst" help:"Rate limit burst size"`
	Reload         bool          `help:"Reload the configuration file when it changes" default:"true" negatable:""`
	ReloadDebounce time.Duration `name:"reload-debounce" help:"Delay before applying a configuration change" default:"100ms"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}

	m := metrics.New(nil)
	p := corpus.NewProcessor(cfg, m)

	acfg := api.Config{
		Version:           version,
		Port:              c.Port,
		Workers:           workers(c.Workers),
		RateLimitRequests: c.RateLimit,
		RateLimitBurst:    c.RateBurst,
		Auth:              api.AuthConfig{Enabled: c.APIKey != "", APIKey: c.APIKey},
		TLS:               api.TLSConfig{Enabled: c.TLSCert != "" || c.TLSKey != "", CertFile: c.TLSCert, KeyFile: c.TLSKey},
		AllowedOrigins:    c.AllowedOrigins,
		ReloadDebounce:    c.ReloadDebounce,
	}
	if c.Reload {
		acfg.ConfigPath = g.Config
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return api.Start(ctx, acfg, p, m)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(g.Stdout, "xmlinput version %s (%s, sqlite %s/%s)\n",
		version, runtime.Version(), info.DriverName, info.DriverType)
	return nil
}

func workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// newParser builds the kong parser writing to stdout and stderr.
func newParser(cli *CLI, stdout, stderr io.Writer, exit func(int)) (*kong.Kong, error) {
	cli.Stdout = stdout
	cli.Stderr = stderr
	return kong.New(cli,
		kong.Name("xmlinput"),
		kong.Description("Annotated source-sentence ingestion"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
		kong.Exit(exit),
		kong.Bind(&cli.Globals),
	)
}

func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := newParser(&cli, stdout, stderr, os.Exit)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return ctx.Run()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "xmlinput: error: %v\n", err)
		os.Exit(1)
	}
}
