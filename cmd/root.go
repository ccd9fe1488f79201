package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/selfassess/internal/config"
	"github.com/abhisek/selfassess/internal/logging"
	"github.com/abhisek/selfassess/internal/store"
)

var (
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "selfassess",
	Short: "Self-assessed questions with star ratings",
	Long: "selfassess runs free-response questions where students submit an answer and\n" +
		"then rate their own work from 0 to 5 stars, optionally with a comment.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		applyFlags(cmd, &loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		l, _, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to YAML config file (overrides SELFASSESS_CONFIG env var)")
	pf.String("db", "", "Database file or DSN (overrides SELFASSESS_DB env var)")
	pf.String("db-driver", "", "Database driver: sqlite or postgres (overrides SELFASSESS_DB_DRIVER env var)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (overrides SELFASSESS_LOG_LEVEL env var)")
	pf.String("user", os.Getenv("USER"), "User acting on attempts")
	pf.Bool("no-color", os.Getenv("NO_COLOR") != "", "Disable styled output")

	rootCmd.AddCommand(questionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(finishCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(attemptsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// applyFlags lets explicit flags win over file and environment settings.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		c.Database.DSN = v
	}
	if v, _ := cmd.Flags().GetString("db-driver"); v != "" {
		c.Database.Driver = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		c.Log.Level = v
	}
}

// resolveDSN returns the configured DSN or, for SQLite, the default XDG
// database path.
func resolveDSN(driver store.Driver, dsn string) (string, error) {
	if dsn != "" {
		if driver == store.DriverSQLite {
			return dsn, store.EnsureDir(dsn)
		}
		return dsn, nil
	}
	if driver != store.DriverSQLite {
		return "", fmt.Errorf("%s requires --db", driver)
	}
	return store.DefaultDBPath()
}
