package main

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"course-localization-service/internal/app"
	"course-localization-service/internal/config"
)

type commandContext struct {
	languagesFlag *string
	verboseFlag   *bool

	configOnce sync.Once
	config     *config.Configuration
	configErr  error
}

func newCommandContext(languagesFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		languagesFlag: languagesFlag,
		verboseFlag:   verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Configuration, error) {
	c.configOnce.Do(func() {
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if path := strings.TrimSpace(*c.languagesFlag); path != "" {
			langs, err := config.LoadLanguagesFile(path)
			if err != nil {
				c.configErr = err
				return
			}
			if langs.Source != "" {
				cfg.Languages.Source = langs.Source
			}
			if len(langs.Supported) > 0 {
				cfg.Languages.Supported = langs.Supported
			}
		}

		cfg.Observability.LogOutput = os.Stderr
		if !*c.verboseFlag {
			cfg.Observability.LogLevel = "warn"
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withApp builds the application for one command and shuts it down after.
func (c *commandContext) withApp(ctx context.Context, fn func(*app.Application) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)
	return fn(a)
}

func newRootCommand() *cobra.Command {
	var languagesFlag string
	var verboseFlag bool

	ctx := newCommandContext(&languagesFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:           "localizectl",
		Short:         "Course localization CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&languagesFlag, "languages", "l", "", "TOML language file overriding the configured languages")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log at the configured level instead of warn")

	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newPathsCommand(ctx))
	rootCmd.AddCommand(newLanguagesCommand(ctx))
	rootCmd.AddCommand(newCaptionCommand(ctx))

	return rootCmd
}
