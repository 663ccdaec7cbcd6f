package main

import (
	"context"

	"github.com/muhammadolammi/polypopcareers/internal/config"
	"github.com/spf13/cobra"
)

// newRootCommand returns the polypop command. The environment is read when
// the command runs, and flags that were set override it.
func newRootCommand(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "polypop",
		Short: "Polypop company site with a careers page.",
		Long: `Serves the Polypop marketing site and its careers page. Applications are
validated and the attached resume is stored on local disk or in an
S3-compatible bucket.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return run(ctx, env)
		},
	}
	flags := rootCmd.Flags()
	flags.String("host", "", "listen host (default $HOST or 0.0.0.0)")
	flags.IntP("port", "p", 0, "listen port (default $PORT or 8000)")
	flags.String("backend", "", `resume storage backend, "local" or "s3" (default $STORAGE_BACKEND or local)`)
	flags.Bool("debug", false, "enable debug logging")

	return rootCmd
}

// loadEnv reads the environment and applies the flags cmd was given.
func loadEnv(cmd *cobra.Command) (*config.Env, error) {
	env, err := config.Read()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		if env.Host, err = flags.GetString("host"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("port") {
		if env.Port, err = flags.GetInt("port"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("backend") {
		if env.StorageBackend, err = flags.GetString("backend"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("debug") {
		if env.Debug, err = flags.GetBool("debug"); err != nil {
			return nil, err
		}
	}
	env.Normalize()
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}
