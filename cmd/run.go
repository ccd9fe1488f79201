package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/selfassess/internal/attempt"
	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/lang"
	"github.com/abhisek/selfassess/internal/logging"
	"github.com/abhisek/selfassess/internal/render"
	"github.com/abhisek/selfassess/internal/store"
)

// app bundles the dependencies a command needs.
type app struct {
	store    *store.Store
	svc      *attempt.Service
	renderer *render.Renderer
	user     string
}

func (a *app) Close() error { return a.store.Close() }

// openApp opens the store and builds the attempt service.
func openApp(cmd *cobra.Command) (*app, error) {
	driver, err := store.ParseDriver(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := resolveDSN(driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(cmd.Context(), driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	catalog := lang.English()
	if cfg.Strings != "" {
		catalog, err = lang.Load(cfg.Strings)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	svc := attempt.NewService(
		st.QuestionRepo(),
		logging.WithAttemptLogging(st.AttemptRepo(), logger),
		catalog,
		attempt.WithServiceLogger(logger),
	)

	noColor, _ := cmd.Flags().GetBool("no-color")
	user, _ := cmd.Flags().GetString("user")
	return &app{
		store:    st,
		svc:      svc,
		renderer: render.New(catalog, !noColor),
		user:     strings.TrimSpace(user),
	}, nil
}

// show prints an attempt as its owner or another viewer sees it.
func (a *app) show(cmd *cobra.Command, at *attempt.Attempt) error {
	q, err := a.svc.Question(cmd.Context(), at.QuestionID)
	if err != nil {
		return err
	}
	opts := behaviour.AdjustDisplayOptions(behaviour.DisplayOptions{}, a.user, at)
	fmt.Fprintln(cmd.OutOrStdout(), a.renderer.Attempt(at, q.Name, opts))
	return nil
}
