package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/KAMLESH7939/backend-inclusight/internal/bootstrap"
	"github.com/KAMLESH7939/backend-inclusight/internal/config"
	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
	"github.com/KAMLESH7939/backend-inclusight/internal/logging"
)

// NewRootCommand creates and returns the root cobra command
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inclusight",
		Short: "Accessibility analysis from the command line",
		Long: `inclusight runs the Lighthouse and axe-core engines against a page,
stores the merged result and exports it as CSV.
It shares configuration and storage with the HTTP API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "config.yaml", "Path to configuration file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newAnalyzeCommand(), newExportCommand(), newListCommand(), newFailuresCommand())
	return cmd
}

func newAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a page and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Analyses.Analyze(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <analysis-id>",
		Short: "Write the CSV report of a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				rep, err := app.Analyses.ExportCSV(ctx, domain.ID(args[0]))
				if err != nil {
					return err
				}
				if out == "" {
					_, err = cmd.OutOrStdout().Write(rep.Body)
					return err
				}
				if out == "." {
					out = rep.Filename
				}
				if err := os.WriteFile(out, rep.Body, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", `Output file ("." uses report-<id>.csv, empty writes to stdout)`)
	return cmd
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				list, err := app.Analyses.Latest(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED\tSCORE\tVIOLATIONS\tURL")
				for _, a := range list {
					fmt.Fprintf(tw, "%s\t%s\t%g\t%d\t%s\n",
						a.ID, a.Timestamp.Format(time.RFC3339), a.Summary.Score, a.Summary.TotalViolations, a.URL)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of analyses to show")
	return cmd
}

func newFailuresCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Show the failure journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				list, err := app.Analyses.RecentFailures(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CREATED\tPHASE\tKIND\tURL\tMESSAGE")
				for _, f := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						f.CreatedAt.Format(time.RFC3339), f.Phase, f.Kind, f.URL, f.Message)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of entries to show")
	return cmd
}

// withApp loads configuration, wires the application and closes it after fn.
func withApp(cmd *cobra.Command, fn func(context.Context, *bootstrap.App) error) error {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), "text", level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
