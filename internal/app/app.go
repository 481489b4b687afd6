package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/bastionmc/bastion/internal/bridge"
	"github.com/bastionmc/bastion/internal/bus"
	"github.com/bastionmc/bastion/internal/config"
	"github.com/bastionmc/bastion/internal/prefs"
	"github.com/bastionmc/bastion/internal/session"
	"github.com/bastionmc/bastion/internal/ui"
)

// Options configure the Bastion application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/bastion/prefs.toml
	InstanceID string // overrides the remembered last instance
	Headless   bool   // run the core without the terminal UI
}

const initialRefreshTimeout = 5 * time.Second

// Run boots the Bastion client until the context is cancelled or the user
// quits the UI.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logger, closeLog, err := newLogger(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closeLog()

	client, err := bridge.NewClient(cfg.APIBind)
	if err != nil {
		return fmt.Errorf("init daemon client: %w", err)
	}

	feed := bus.New()
	sess := session.New(client, logger, nil)
	sess.Attach(feed)
	defer sess.Detach()

	bridge.StartEventStream(ctx, client, feed, logger)

	// Populate the config snapshot before the UI starts. The daemon may
	// not be up yet; the event pump keeps retrying either way.
	refreshCtx, cancelRefresh := context.WithTimeout(ctx, initialRefreshTimeout)
	if err := sess.RefreshConfig(refreshCtx); err != nil {
		logger.Warn().Err(err).Msg("initial config refresh failed")
	}
	cancelRefresh()

	instanceID := ""
	if inst, ok := pickInstance(sess, opts.InstanceID, userPrefs.LastInstance); ok {
		instanceID = inst.ID
		sess.WatchInstance(ctx, inst)
		defer sess.Unwatch()
		logger.Info().Str("instance", inst.ID).Msg("watching instance")
	}

	if opts.Headless {
		<-ctx.Done()
		return nil
	}

	return ui.Run(ui.Options{
		Context:    ctx,
		Session:    sess,
		InstanceID: instanceID,
		ThemeName:  userPrefs.Theme,
		PrefsPath:  opts.PrefsPath,
		LogFile:    cfg.LogFile,
		Tick:       time.Duration(cfg.PollEveryMS) * time.Millisecond,
	})
}

// pickInstance resolves the instance to watch: an explicit override wins,
// then the remembered instance, then the first configured one.
func pickInstance(sess *session.Session, override, remembered string) (bridge.Instance, bool) {
	cfg := sess.Config()
	if cfg == nil || len(cfg.Instances) == 0 {
		return bridge.Instance{}, false
	}

	for _, want := range []string{override, remembered} {
		if want == "" {
			continue
		}
		for _, inst := range cfg.Instances {
			if inst.ID == want {
				return inst, true
			}
		}
	}
	return cfg.Instances[0], true
}

// newLogger opens the diagnostic log file and builds the root logger. The
// returned closer flushes and closes the file.
func newLogger(path string) (zerolog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Logger{}, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	logger := zerolog.New(file).With().Timestamp().Logger()
	return logger, func() { _ = file.Close() }, nil
}
