package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwbotters/botkit/internal/bot"
	"github.com/mwbotters/botkit/internal/pagegen"
	"github.com/mwbotters/botkit/internal/site"
)

var (
	touchFile     string
	touchCategory string
	touchLinks    string
	touchMainOnly bool
)

// touchAvailableOptions are the options the touch bot understands.
var touchAvailableOptions = bot.Options{
	"always":               false,
	"ignore_save_related":  true,
	"ignore_server_errors": false,
}

var touchCmd = &cobra.Command{
	Use:   "touch [titles...]",
	Short: "Null-edit pages to refresh them",
	Long:  `Load each page and save it back unchanged, forcing the wiki to re-render and update link tables`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeEnv, err := newEnv("touch")
		if err != nil {
			return err
		}
		defer closeEnv()

		gen, err := buildGenerator(cmd.Context(), e, args)
		if err != nil {
			return err
		}

		log := e.ui.Logger()
		opts, unknown := bot.Resolve(touchAvailableOptions, bot.Options{"always": always})
		for _, name := range unknown {
			log.Warn().Str("option", name).Msg("ignoring unknown option")
		}

		client := site.NewClient(e.disp)

		runner := &bot.Runner{
			Script:    "touch",
			Site:      e.site.String(),
			Generator: gen,
			UI:        e.ui,
			Engine:    e.engine,
			Options:   opts,
			History:   e.history,
			Simulate:  simulate,
			Verbose:   verbose > 0,
			Hooks: bot.Hooks{
				SkipPage: func(page *site.Page) bool {
					// Touching a missing page would create it.
					return page.Loaded() && !page.Exists()
				},
			},
		}

		runner.Hooks.Treat = func(ctx context.Context, page *site.Page) (bot.Verdict, error) {
			if err := client.LoadPage(ctx, page); err != nil {
				return bot.VerdictSkip, err
			}
			if !page.Exists() {
				log.Info().Str("page", page.Title()).Msg("page does not exist, skipping")
				return bot.VerdictSkip, nil
			}

			_, err := runner.SavePage(ctx, page, func(ctx context.Context) error {
				return client.SavePage(ctx, page, page.Text(), "null edit")
			}, bot.SaveOptions{
				Summary:            "null edit",
				IgnoreSaveRelated:  opts.Bool("ignore_save_related"),
				IgnoreServerErrors: opts.Bool("ignore_server_errors"),
			})
			if err != nil {
				return bot.VerdictSkip, err
			}
			// A declined or suppressed save was already counted as a skip
			// by the wrapper; the page itself was still read.
			return bot.VerdictContinue, nil
		}

		err = runner.Run(cmd.Context())
		if runner.Quit() {
			log.Info().Msg("terminated on user request")
		}
		return err
	},
}

func init() {
	touchCmd.Flags().StringVar(&touchFile, "file", "", "Read page titles from a file, one per line")
	touchCmd.Flags().StringVar(&touchCategory, "cat", "", "Work on all members of a category")
	touchCmd.Flags().StringVar(&touchLinks, "links", "", "Work on pages linked from a rendered HTML page URL")
	touchCmd.Flags().BoolVar(&touchMainOnly, "main-only", false, "Restrict to main-namespace pages")
}

// buildGenerator assembles the page source from the mutually exclusive
// source flags, with dedup applied on top.
func buildGenerator(ctx context.Context, e *env, titles []string) (<-chan any, error) {
	var gen <-chan any
	var err error

	switch {
	case touchFile != "":
		gen, err = pagegen.FromFile(e.site, touchFile)
		if err != nil {
			return nil, err
		}
	case touchCategory != "":
		gen = pagegen.FromCategory(ctx, e.disp, e.site, touchCategory)
	case touchLinks != "":
		gen, err = pagegen.HarvestLinks(ctx, e.disp, e.site, touchLinks)
		if err != nil {
			return nil, err
		}
	case len(titles) > 0:
		gen = pagegen.FromTitles(e.site, titles)
	default:
		return nil, errors.New("no pages given: pass titles or one of --file, --cat, --links")
	}

	if touchMainOnly {
		gen = pagegen.NamespaceFilter(gen)
	}
	return pagegen.Deduplicate(gen), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the botkit version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("botkit %s\n", Version)
	},
}
