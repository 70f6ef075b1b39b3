package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwbotters/botkit/internal/comms"
	"github.com/mwbotters/botkit/internal/config"
	"github.com/mwbotters/botkit/internal/input"
	"github.com/mwbotters/botkit/internal/logging"
	"github.com/mwbotters/botkit/internal/site"
	"github.com/mwbotters/botkit/internal/storage"
	"github.com/mwbotters/botkit/internal/throttle"
	"github.com/mwbotters/botkit/internal/useragent"
)

// Version is stamped into the user-agent and the version subcommand.
const Version = "0.4.0"

var (
	configPath string
	family     string
	lang       string
	verbose    int
	always     bool
	simulate   bool
	noColor    bool
)

// env holds the wired-up collaborators every script command shares. It
// is constructed explicitly per invocation, never at import time.
type env struct {
	cfg     config.Config
	ui      *logging.ConsoleUI
	engine  *input.Engine
	session *comms.Session
	disp    *comms.Dispatcher
	site    *site.Site
	history *storage.RunHistory
}

var rootCmd = &cobra.Command{
	Use:           "botkit",
	Short:         "A MediaWiki bot toolkit",
	Long:          `botkit - a reusable core for MediaWiki maintenance bots: throttled API access, interactive confirmation, and a generic page-processing loop`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the CLI; ctx cancellation (e.g. SIGINT) reaches
// the run-loop, which translates it into orderly teardown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to botkit.yaml (default: $HOME/.botkit/botkit.yaml)")
	rootCmd.PersistentFlags().StringVar(&family, "family", "", "Wiki family, e.g. wikipedia")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "Language code, e.g. en")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&always, "always", false, "Answer prompts with their default; never ask")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Log intended saves instead of performing them")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colorized output")

	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(versionCmd)
}

// newEnv loads configuration and constructs the shared session,
// dispatcher and site. The caller must invoke the returned closer.
func newEnv(script string) (*env, func(), error) {
	path := configPath
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if family != "" {
		cfg.Family = family
	}
	if lang != "" {
		cfg.Lang = lang
	}
	if verbose > cfg.VerboseOutput {
		cfg.VerboseOutput = verbose
	}
	if noColor {
		cfg.ColorizedOutput = false
	}

	ui := logging.NewConsoleUI(cfg.VerboseOutput, cfg.ColorizedOutput)
	log := ui.Logger()

	// The invocation log is best-effort; a failure must not stop the
	// run.
	if cmdlog, err := storage.OpenCommandLog(cfg.CommandLogFile()); err == nil {
		if err := cmdlog.Record(time.Now(), os.Args[1:]); err != nil {
			log.Warn().Err(err).Msg("could not write command log")
		}
		cmdlog.Close()
	} else {
		log.Warn().Err(err).Msg("could not open command log")
	}

	target, err := site.New(cfg.Family, cfg.Lang)
	if err != nil {
		return nil, nil, err
	}
	if cfg.IgnoreSSLErrors {
		target.SetVerifyTLS(false)
		log.Warn().Str("site", target.String()).Msg("TLS certificate verification disabled")
	}

	session, err := comms.NewSession(cfg.CookieFile(), cfg.ConnectTimeout(), cfg.ReadTimeout(), log)
	if err != nil {
		return nil, nil, err
	}

	ua := useragent.NewBuilder(cfg.UserAgentFormat, useragent.Info{
		Script:   script,
		Family:   cfg.Family,
		Code:     cfg.Lang,
		Username: cfg.Username,
		Version:  func() string { return Version },
	})

	auth := &comms.CredentialTable{}
	for pattern, fields := range cfg.Authenticate {
		switch len(fields) {
		case 2:
			auth.Add(pattern, comms.Credential{Username: fields[0], Password: fields[1]})
		case 4:
			auth.Add(pattern, comms.Credential{
				ConsumerKey: fields[0], ConsumerSecret: fields[1],
				AccessToken: fields[2], AccessSecret: fields[3],
				OAuth: true,
			})
		}
	}

	thr := throttle.New(cfg.MinThrottle(), cfg.MaxThrottle())
	disp := comms.NewDispatcher(session, ua, auth, thr, cfg.ExtraHeaders, log)

	e := &env{
		cfg:     cfg,
		ui:      ui,
		engine:  &input.Engine{UI: ui, Force: always},
		session: session,
		disp:    disp,
		site:    target,
	}

	if history, err := storage.OpenRunHistory(cfg.HistoryFile()); err == nil {
		e.history = history
	} else {
		log.Warn().Err(err).Msg("run history unavailable")
	}

	closer := func() {
		if e.history != nil {
			e.history.Close()
		}
		if err := e.session.Close(); err != nil {
			log.Warn().Err(err).Msg("could not persist cookies")
		}
		ui.Close()
	}
	return e, closer, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "botkit.yaml"
	}
	return fmt.Sprintf("%s/.botkit/botkit.yaml", home)
}
