// Command hotspot fits crime-risk surfaces (ProMap and STKDE), builds
// neighbor-ring feature layers and backtests the estimators over a
// rolling schedule of prediction groups.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/banshee-data/hotspot.report/internal/version"
)

var errUsage = errors.New("usage")

func main() {
	// .env is optional; it only seeds HOTSPOT_* defaults.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("hotspot: %v", err)
	}
}

// run dispatches a subcommand. It is main without the process exits.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage(stdout)
		return errUsage
	}
	command, rest := args[0], args[1:]

	switch command {
	case "ingest":
		return runIngest(ctx, rest, stdout)
	case "promap":
		return runPromap(ctx, rest, stdout)
	case "stkde":
		return runSTKDE(ctx, rest, stdout)
	case "layers":
		return runLayers(ctx, rest, stdout)
	case "classify":
		return runClassify(ctx, rest, stdout)
	case "backtest":
		return runBacktest(ctx, rest, stdout)
	case "runs":
		return runRuns(ctx, rest, stdout)
	case "migrate":
		return runMigrate(rest, stdout)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n\n", command)
		printUsage(stdout)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `hotspot - crime-risk hotspot estimation and backtesting

Usage: hotspot <command> [options]

Commands:
  ingest     Load an incident CSV into the database
  promap     Fit a ProMap surface and score it on the following week
  stkde      Fit a space-time KDE (bandwidth by cross validation if unset)
  layers     Count one month on the grid and persist its ring layers
  classify   Build the monthly layer features and score a baseline classifier
  backtest   Run the expanding-window evaluation and write reports
  runs       List stored backtest runs
  migrate    Manage the database schema (up, down, version)
  version    Show version information
  help       Show this help message

Common Flags:
  -config <file>      Run configuration JSON (default $HOTSPOT_CONFIG)
  -incidents <file>   Incident CSV with x, y, date[, category] columns;
                      when empty, incidents are read from the database
  -db <file>          sqlite database (default $HOTSPOT_DB or config db_path)
  -out <dir>          Artifact directory (default $HOTSPOT_OUT or config output_dir)
  -workers <n>        Worker goroutines (0 = one per CPU)

Examples:
  hotspot ingest -incidents dallas.csv
  hotspot backtest -model promap -config config/hotspot.defaults.json
  hotspot stkde -resample 5000 -save
`)
}
