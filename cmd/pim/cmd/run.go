package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ClausMunch/PIMMeUpScotty/internal/config"
	"github.com/ClausMunch/PIMMeUpScotty/internal/logging"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/azure"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/engine"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/orchestrator"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/reporter"
)

var listOnly bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Activate all configured eligible roles",
	Long: `Perform one activation pass: directory roles first, then resource
roles. Roles that are still active, filtered out, or tripping the failure
circuit breaker are skipped. With --list-only nothing is activated; roles are
only discovered and classified.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&listOnly, "list-only", false, "Discover and classify roles without activating anything")
	runCmd.Flags().Int("directory-hours", 8, "Default directory role activation duration in hours")
	runCmd.Flags().Int("resource-hours", 8, "Default resource role activation duration in hours")
	runCmd.Flags().String("justification", "", "Justification text submitted with each activation")
	runCmd.Flags().String("state-file", "", "Path of the activation history state file")

	viper.BindPFlag("directory.durationHours", runCmd.Flags().Lookup("directory-hours"))
	viper.BindPFlag("resource.durationHours", runCmd.Flags().Lookup("resource-hours"))
	viper.BindPFlag("activation.justification", runCmd.Flags().Lookup("justification"))
	viper.BindPFlag("state.path", runCmd.Flags().Lookup("state-file"))
}

func runRun(cmd *cobra.Command, args []string) error {
	return executeRun(cmd.Context(), listOnly)
}

func executeRun(ctx context.Context, dryRun bool) error {
	cfg, err := config.LoadFromViper()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	session, err := azure.NewSession(ctx, cfg.Azure.TenantID)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	logger.Info("authenticated", zap.String("user", session.UserName()))

	opts := orchestrator.Options{
		StatePath: cfg.State.Path,
		UserID:    session.PrincipalID(),
		Preferences: models.Preferences{
			DefaultJustification:   cfg.Activation.Justification,
			DirectoryDurationHours: cfg.Directory.DurationHours,
			ResourceDurationHours:  cfg.Resource.DurationHours,
		},
		Reporter: reporter.NewZapReporter(logger),
		Logger:   logger,
	}

	if cfg.Directory.Enabled {
		opts.Directory = &orchestrator.KindConfig{
			Provider:     azure.NewDirectoryProvider(session, cfg.Activation.Justification),
			DefaultHours: cfg.Directory.DurationHours,
			Filter:       engine.NewFilter(cfg.DirectoryFilterNames()),
		}
	}

	// Resource roles without configured scopes mean there is nothing to list
	// for that kind, not a misconfiguration.
	if cfg.Resource.Enabled && len(cfg.Resource.Scopes) > 0 {
		scopes := make([]azure.Scope, 0, len(cfg.Resource.Scopes))
		for _, scope := range cfg.Resource.Scopes {
			scopes = append(scopes, azure.Scope{
				Scope:            scope.Scope,
				ScopeType:        models.ScopeType(scope.ScopeType),
				MaxDurationHours: scope.MaxDurationHours,
			})
		}
		provider, err := azure.NewResourceProvider(session, scopes, cfg.Activation.Justification)
		if err != nil {
			return err
		}
		opts.Resource = &orchestrator.KindConfig{
			Provider:     provider,
			DefaultHours: cfg.Resource.DurationHours,
			Filter:       engine.NewFilter(cfg.ResourceFilterNames()),
		}
	}

	summary, err := orchestrator.New(opts).Run(ctx, dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("Would activate: %d  Skipped: %d  (%s)\n",
			summary.WouldActivate, summary.Skipped, summary.Elapsed.Round(time.Millisecond))
		return nil
	}
	fmt.Printf("Activated: %d  Skipped: %d  Failed: %d  (%s)\n",
		summary.Activated, summary.Skipped, summary.Failed, summary.Elapsed.Round(time.Millisecond))
	return nil
}
