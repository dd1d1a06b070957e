// cmd/tools/hrisctl/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hris-cloud/internal/common/config"
	"hris-cloud/internal/common/database"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/store"
)

var (
	cfgFile string
	dryRun  bool

	rootCmd = &cobra.Command{
		Use:           "hrisctl",
		Short:         "hrisctl runs maintenance tasks against the HRIS database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				applied, err := st.Migrate(ctx)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema already up to date")
					return nil
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
				}
				return nil
			})
		},
	}

	statusesCmd = &cobra.Command{
		Use:   "migrate-statuses",
		Short: "Move applicants in legacy statuses back to processing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				result, err := st.MigrateLegacyStatuses(ctx, store.LegacyStatuses, dryRun)
				if err != nil {
					return err
				}
				printMigration(cmd.OutOrStdout(), result, dryRun)
				return nil
			})
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")
	statusesCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")

	rootCmd.AddCommand(migrateCmd, statusesCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

// withStore opens the database named by the config and hands fn a store.
func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	zapLog.Debug("connected", zap.String("database", cfg.Database.Postgres.Database))

	return fn(ctx, store.New(pg.DB, logger.NewZapAdapter(zapLog)))
}

func printMigration(w io.Writer, m *store.StatusMigration, dryRun bool) {
	fmt.Fprintln(w, "before:")
	printCounts(w, m.Before)
	if dryRun {
		fmt.Fprintf(w, "dry run: %d applicant(s) would move to processing\n", m.Migrated)
		return
	}
	fmt.Fprintln(w, "after:")
	printCounts(w, m.After)
	fmt.Fprintf(w, "migrated %d applicant(s)\n", m.Migrated)
}

func printCounts(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "  (no applicants)")
		return
	}
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(w, "  %-12s %d\n", s, counts[s])
	}
}
