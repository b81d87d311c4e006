package factory

import (
	"fmt"
	"time"

	"github.com/mikey/meeting-auditor/internal/adapters/calendar"
	"github.com/mikey/meeting-auditor/internal/adapters/messages"
	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/ports"
	"go.uber.org/zap"
)

// SourceFactory creates the message and calendar sources
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMessageSource creates the JSON message source for messages.path
func (f *SourceFactory) CreateMessageSource() ports.MessageSource {
	return messages.NewJSONSource(f.cfg.GetString("messages.path"), f.logger)
}

// CreateCalendarSource creates the configured calendar source. Type "none"
// returns nil; runs that need the calendar then fail.
func (f *SourceFactory) CreateCalendarSource(loc *time.Location) (core.CalendarSource, error) {
	calCfg, err := f.cfg.GetCalendar()
	if err != nil {
		return nil, fmt.Errorf("invalid calendar configuration: %w", err)
	}

	switch calCfg.Type {
	case "", "none":
		return nil, nil
	case "ics":
		if calCfg.URL != "" {
			return calendar.NewICSURLSource(calCfg.URL, calCfg.Timeout, loc, f.logger), nil
		}
		if calCfg.Path == "" {
			return nil, fmt.Errorf("calendar.path or calendar.url is required for ics calendars")
		}
		return calendar.NewICSFileSource(calCfg.Path, loc, f.logger), nil
	case "json":
		if calCfg.Path == "" {
			return nil, fmt.Errorf("calendar.path is required for json calendars")
		}
		return calendar.NewJSONFileSource(calCfg.Path, loc), nil
	default:
		return nil, fmt.Errorf("unsupported calendar type: %s", calCfg.Type)
	}
}
