package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Networkcaretaker/real-estate-backend/internal/app"
	"github.com/Networkcaretaker/real-estate-backend/internal/batch"
	"github.com/Networkcaretaker/real-estate-backend/internal/config"
	"github.com/Networkcaretaker/real-estate-backend/internal/derive"
	"github.com/Networkcaretaker/real-estate-backend/internal/logging"
	"github.com/Networkcaretaker/real-estate-backend/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "realestate: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realestate",
		Short: "Real estate content backend CLI",
		Long: `realestate imports CRM exports, checks CSV files, renders image variants locally
and launches the service binaries during development.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newImportCmd(),
		newValidateCmd(),
		newScheduleCmd(),
		newDeriveCmd(),
		newRunCmd(),
	)
	return cmd
}

// newImporter wires an importer to the configured backends. The returned
// func releases them.
func newImporter(ctx context.Context, workers int) (*batch.Importer, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.Environment)
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if workers <= 0 {
		workers = cfg.ImportWorkers
	}
	pipe := pipeline.New(a.Properties, log, a.PipelineOptions()...)
	return batch.NewImporter(pipe, workers, log), a.Close, nil
}

func newImportCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CRM CSV export and print the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer, closeFn, err := newImporter(cmd.Context(), workers)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := requireColumns(importer, args[0]); err != nil {
				return err
			}
			summary, err := importer.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d rows failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent rows (defaults to the configured import workers)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-csv <file.csv>",
		Short: "Check that a CSV export has the required columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer := batch.NewImporter(nil, 1, logging.New("error", ""))
			if err := requireColumns(importer, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

func requireColumns(importer *batch.Importer, path string) error {
	missing, err := importer.ValidateFile(path)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s is missing required columns: %s", path, strings.Join(missing, ", "))
	}
	return nil
}

func newScheduleCmd() *cobra.Command {
	var spec string
	var workers int
	cmd := &cobra.Command{
		Use:   "schedule <file.csv>",
		Short: "Re-import a CSV export on a cron schedule until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer, closeFn, err := newImporter(cmd.Context(), workers)
			if err != nil {
				return err
			}
			defer closeFn()
			sched := batch.NewScheduler(importer, args[0], logging.New("info", ""))
			if err := sched.Start(spec); err != nil {
				return err
			}
			<-cmd.Context().Done()
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "0 3 * * *", "Cron schedule (five fields)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent rows (defaults to the configured import workers)")
	return cmd
}

func newDeriveCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "derive <image>",
		Short: "Render the thumbnail, medium and large variants of an image into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if err := derive.Accept(filepath.Base(args[0]), info.Size()); err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rendered, err := derive.New().Derive(raw)
			if err != nil {
				return err
			}
			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			for _, spec := range derive.Specs {
				dir := filepath.Join(outDir, spec.Folder)
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
				path := filepath.Join(dir, base+".jpg")
				if err := os.WriteFile(path, rendered[spec.Variant], 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run individual Go binaries directly",
	}
	cmd.AddCommand(
		newServiceRunner("server", "./cmd/server"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := []string{"run", path}
			goArgs = append(goArgs, args...)
			return runCommand(cmd.Context(), "go", goArgs...)
		},
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
