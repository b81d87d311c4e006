package di

import (
	"flag"
	"strings"
	"sync"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/engine"
	"github.com/mikey/meeting-auditor/internal/factory"
	"github.com/mikey/meeting-auditor/internal/judge"
	"github.com/mikey/meeting-auditor/internal/logging"
	"github.com/mikey/meeting-auditor/internal/metrics"
	"github.com/mikey/meeting-auditor/internal/ports"
	"github.com/mikey/meeting-auditor/internal/utils"
)

// AuditFlags contains the command line flags of the auditor
type AuditFlags struct {
	ConfigFile   string
	MessagesPath string
	CalendarPath string
	CalendarURL  string
	OutputFormat string
	OutputPath   string
	MetricsFile  string
	Verbose      bool
}

// ParseAuditFlags parses the auditor's command line
func ParseAuditFlags(args []string) (*AuditFlags, error) {
	flags := &AuditFlags{}
	fs := flag.NewFlagSet("meeting-auditor", flag.ContinueOnError)

	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (default: search standard locations)")
	fs.StringVar(&flags.MessagesPath, "messages", "", "Chat export to audit, JSON array or JSON lines (- for stdin)")
	fs.StringVar(&flags.CalendarPath, "calendar", "", "Calendar file (.ics or .json)")
	fs.StringVar(&flags.CalendarURL, "calendar-url", "", "iCalendar feed URL")
	fs.StringVar(&flags.OutputFormat, "format", "", "Report format (text, json)")
	fs.StringVar(&flags.OutputPath, "output", "", "Write the JSON report to this file")
	fs.StringVar(&flags.MetricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable debug logging and list every record")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// Cleanup collects shutdown hooks of the components built by a container
type Cleanup struct {
	mu  sync.Mutex
	fns []func()
}

// Add registers fn to run on Run
func (c *Cleanup) Add(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

// Run calls the hooks in reverse registration order
func (c *Cleanup) Run() {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer(flags *AuditFlags) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() *AuditFlags { return flags }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *Cleanup { return &Cleanup{} }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(loadConfig); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := container.Provide(metrics.New); err != nil {
		return nil, err
	}
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	for _, ctor := range []interface{}{
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewSourceFactory,
		factory.NewReportFactory,
		factory.NewEngineFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return nil, err
		}
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register verdict cache
	if err := container.Provide(func(f *factory.CacheFactory, cleanup *Cleanup) (core.VerdictCache, error) {
		c, stop, err := f.CreateVerdictCache()
		if err != nil {
			return nil, err
		}
		cleanup.Add(stop)
		return c, nil
	}); err != nil {
		return nil, err
	}

	// Register sources
	if err := container.Provide(func(f *factory.SourceFactory) ports.MessageSource {
		return f.CreateMessageSource()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.SourceFactory, cfg *config.Config) (core.CalendarSource, error) {
		loc, err := cfg.GetLocation()
		if err != nil {
			return nil, err
		}
		return f.CreateCalendarSource(loc)
	}); err != nil {
		return nil, err
	}

	// Register report sink
	if err := container.Provide(func(f *factory.ReportFactory, flags *AuditFlags, cleanup *Cleanup, logger *zap.Logger) (ports.ReportSink, error) {
		sink, closeFn, err := f.CreateReportSink(flags.Verbose)
		if err != nil {
			return nil, err
		}
		cleanup.Add(func() {
			if err := closeFn(); err != nil {
				logger.Warn("Failed to close report sink", zap.Error(err))
			}
		})
		return sink, nil
	}); err != nil {
		return nil, err
	}

	// Register judge and audit service
	if err := container.Provide(func(
		f *factory.EngineFactory,
		client core.LLMClient,
		cache core.VerdictCache,
		tp *utils.TextProcessor,
		m *metrics.Metrics,
	) (judge.Judge, error) {
		return f.CreateJudge(client, cache, tp, m)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		f *factory.EngineFactory,
		j judge.Judge,
		cal core.CalendarSource,
		m *metrics.Metrics,
	) (*engine.AuditService, error) {
		return f.CreateAuditService(j, cal, m)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// loadConfig reads the configuration and applies command line overrides
func loadConfig(flags *AuditFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigFile != "" {
		cfg, err = config.NewFromFile(flags.ConfigFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	applyAuditFlags(cfg, flags)
	return cfg, nil
}

func applyAuditFlags(cfg *config.Config, flags *AuditFlags) {
	if flags.MessagesPath != "" {
		cfg.Set("messages.path", flags.MessagesPath)
	}
	if flags.CalendarURL != "" {
		cfg.Set("calendar.type", "ics")
		cfg.Set("calendar.url", flags.CalendarURL)
	} else if flags.CalendarPath != "" {
		cfg.Set("calendar.type", calendarType(flags.CalendarPath))
		cfg.Set("calendar.path", flags.CalendarPath)
	}
	if flags.OutputFormat != "" {
		cfg.Set("output.format", flags.OutputFormat)
	}
	if flags.OutputPath != "" {
		cfg.Set("output.path", flags.OutputPath)
		if flags.OutputFormat == "" {
			cfg.Set("output.format", "json")
		}
	}
	if flags.MetricsFile != "" {
		cfg.Set("metrics.textfile", flags.MetricsFile)
	}
	if flags.Verbose {
		cfg.Set("logging.level", "debug")
	}
}

func calendarType(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return "json"
	}
	return "ics"
}
