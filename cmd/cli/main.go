package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gosurv/adapters/excel"
	"gosurv/domain/core"
	"gosurv/domain/survival"
	"gosurv/internal"
	"gosurv/internal/config"
	"gosurv/internal/container"
	"gosurv/ports"
)

// errStatisticsFailed marks a batch failure whose JSON body was already written
var errStatisticsFailed = stderrors.New("statistics calculation failed")

func main() {
	_ = godotenv.Load()

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !stderrors.Is(err, errStatisticsFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gosurv",
		Short:         "Per-record Cox proportional hazards statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newFitCmd())
	return rootCmd
}

type fitOptions struct {
	input         string
	requestID     string
	workers       int
	maxIterations int
	tolerance     float64
	verbose       bool
}

func newFitCmd() *cobra.Command {
	var opts fitOptions

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit one Cox model per record and print hazard ratios and p-values",
		Long: `Fit a univariate Cox proportional hazards model for every record of a request
and print {"statistics_list": [...]} to stdout. On failure the StatisticsError
JSON is printed to stderr and the exit status is 1.

The input may be a JSON request, an .xlsx workbook with "design" and "values"
sheets, or a CSV file with columns time,event,<record>...

Example: gosurv fit --input request.xlsx --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Request file (.json, .xlsx or .csv)")
	cmd.Flags().StringVar(&opts.requestID, "request-id", "", "Request identifier used in logs and errors (generated when empty)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Records fitted concurrently (overrides FIT_WORKERS)")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "Newton-Raphson iteration budget (overrides COX_MAX_ITERATIONS)")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", 0, "Convergence tolerance (overrides COX_TOLERANCE)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log per-record fit diagnostics to stderr")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runFit(ctx context.Context, opts fitOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level))
	defer func() { _ = logger.Sync() }()

	c, err := container.New(cfg, logger)
	if err != nil {
		return err
	}

	requestID := core.RequestIDOrNew(opts.requestID)

	var reader ports.RequestReader = excel.NewRequestReader(opts.input)
	req, err := reader.ReadRequest(ctx)
	if err != nil {
		return writeStatisticsError(stderr, c.Translator.Translate(requestID, nil, inputFailure(err)))
	}

	result, err := c.Service.Calculate(ctx, requestID, req)
	if err != nil {
		var statErr *survival.StatisticsError
		if !stderrors.As(err, &statErr) {
			statErr = c.Translator.Translate(requestID, req, err)
		}
		return writeStatisticsError(stderr, statErr)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// inputFailure reports an unreadable input file the way an undecodable HTTP
// body is reported: as invalid input on the "input" field
func inputFailure(err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return core.NewInvalidInputError("input", err.Error())
}

func writeStatisticsError(w io.Writer, statErr *survival.StatisticsError) error {
	fmt.Fprintln(w, statErr.Error())
	return errStatisticsFailed
}

func applyOverrides(cfg *config.Config, opts fitOptions) {
	if opts.workers > 0 {
		cfg.Batch.Workers = opts.workers
	}
	if opts.maxIterations > 0 {
		cfg.Fitter.MaxIterations = opts.maxIterations
	}
	if opts.tolerance > 0 {
		cfg.Fitter.Tolerance = opts.tolerance
	}
	if opts.verbose {
		cfg.Logging.Level = "TRACE"
	}
}
