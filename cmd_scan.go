package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jordanstarrk/mcp-preflight/internal/engine"
	"github.com/jordanstarrk/mcp-preflight/internal/mcpclient"
)

type scanFlags struct {
	asJSON      bool
	savePath    string
	timeoutSec  float64
	noSignals   bool
	envVars     []string
	cwd         string
	home        string
	isolateHome bool
	quiet       bool
	verbose     bool
	configPath  string
	timeoutSet  bool
}

func newScanCmd() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan [flags] -- <command...>",
		Short: "Inspect an MCP server's exposed capabilities before trusting it",
		Long: `Launch an MCP server process, enumerate its declared tools, resources
and prompts, classify risk, and scan declared text for suspicious content.

The command accepts either a single quoted command line or split arguments:

  mcp-preflight scan "uv run server.py"
  mcp-preflight scan -- npx my-mcp-server

Note: this runs the server process locally; it does not sandbox the server.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.timeoutSet = cmd.Flags().Changed("timeout")
			return runScan(cmd.Context(), flags, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.asJSON, "json", false, "print machine-readable JSON")
	f.StringVar(&flags.savePath, "save", "", "save JSON report to a file")
	f.Float64Var(&flags.timeoutSec, "timeout", 10, "timeout (seconds) for each MCP call")
	f.BoolVar(&flags.noSignals, "no-signals", false, "disable heuristic signal scanning")
	f.StringArrayVar(&flags.envVars, "env", nil, "add/override an environment variable for the server (repeatable, KEY=VALUE)")
	f.StringVar(&flags.cwd, "cwd", "", "working directory for the server process")
	f.StringVar(&flags.home, "home", "", "set HOME for the server (also sets XDG_* dirs)")
	f.BoolVar(&flags.isolateHome, "isolate-home", false, "run server with HOME (and XDG_* dirs) set to a temporary directory")
	f.BoolVar(&flags.quiet, "quiet", false, "suppress server stderr (even on failure)")
	f.BoolVar(&flags.verbose, "verbose", false, "print server stderr (even on success)")
	f.StringVar(&flags.configPath, "config", "", "yaml file with probe defaults")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")

	return cmd
}

func runScan(ctx context.Context, flags scanFlags, args []string) error {
	var fileCfg fileConfig
	if flags.configPath != "" {
		var err error
		fileCfg, err = loadFileConfig(flags.configPath)
		if err != nil {
			return err
		}
	}

	parts, err := splitCommand(args)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("no server command given")
	}

	timeoutSec := resolveTimeout(flags.timeoutSec, flags.timeoutSet, fileCfg.TimeoutSeconds)

	home := flags.home
	if home == "" {
		home = fileCfg.Home
	}
	cwd := flags.cwd
	if cwd == "" {
		cwd = fileCfg.Cwd
	}

	env, cleanup, err := buildServerEnv(serverEnvSpec{
		fileEnv:     fileCfg.Env,
		overrides:   flags.envVars,
		home:        home,
		isolateHome: flags.isolateHome || fileCfg.IsolateHome,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := engine.LaunchConfig{
		Command:       parts[0],
		Args:          parts[1:],
		Env:           env,
		Dir:           cwd,
		CallTimeout:   time.Duration(timeoutSec * float64(time.Second)),
		DiscardStderr: flags.quiet,
	}

	sigCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	outcome := engine.Probe(sigCtx, &mcpclient.Launcher{Logger: logger}, cfg, engine.ProbeOptions{
		IncludeSignals: !flags.noSignals,
		Logger:         logger,
	})
	report := outcome.Report

	if outcome.Fatal != nil {
		writeFailureStderr(outcome, flags)
		emitReport(report, flags)
		fmt.Fprintln(os.Stderr, failureMessage(report, cfg))
		osExit(1)
		return nil
	}

	if flags.verbose && outcome.Stderr != "" {
		fmt.Fprintf(os.Stderr, "\n[server stderr]\n%s\n", outcome.Stderr)
	}
	if !flags.asJSON {
		fmt.Print(engine.FormatReport(report))
	}
	emitReport(report, flags)
	return nil
}

// resolveTimeout applies the config-file timeout only when the flag was
// left unset. An explicit --timeout always wins, even at the default value.
func resolveTimeout(flagSec float64, flagSet bool, fileSec float64) float64 {
	if !flagSet && fileSec > 0 {
		return fileSec
	}
	return flagSec
}

// emitReport saves and/or prints the JSON form, depending on flags.
func emitReport(report *engine.Report, flags scanFlags) {
	if flags.savePath != "" {
		if err := report.Save(flags.savePath); err != nil {
			fmt.Fprintf(os.Stderr, "mcp-preflight: %v\n", err)
		}
	}
	if flags.asJSON {
		data, err := report.JSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcp-preflight: %v\n", err)
			return
		}
		os.Stdout.Write(data)
	}
}

// writeFailureStderr decides how much captured server stderr to surface on
// a fatal probe. Auth failures stay clean by default (full stderr behind
// --verbose); other failures dump stderr to aid debugging.
func writeFailureStderr(outcome engine.ProbeOutcome, flags scanFlags) {
	if outcome.Stderr == "" {
		fmt.Fprintln(os.Stderr, "Hint: if the server writes logs to stdout, it can break MCP stdio. Ensure server logs go to stderr.")
		return
	}
	if flags.verbose || outcome.Report.Status != engine.StatusAuthRequired {
		fmt.Fprintf(os.Stderr, "\n[server stderr]\n%s\n", outcome.Stderr)
	}
}

// failureMessage builds the short, human-actionable line distinguishing
// "needs credentials" from "crashed" from "unreachable".
func failureMessage(report *engine.Report, cfg engine.LaunchConfig) string {
	switch report.Status {
	case engine.StatusTimeout:
		return fmt.Sprintf("mcp-preflight: timed out after %s", cfg.CallTimeout)
	case engine.StatusAuthRequired:
		return "mcp-preflight: authentication required (the MCP server did not start without credentials)\n" +
			"Hint: re-run with --verbose to see server stderr, or pass credentials via --env/--home."
	default:
		for _, n := range report.Notes {
			if n.Rule == "startup_stacktrace" {
				return "mcp-preflight: server crashed during startup (see stderr above)"
			}
		}
		snippet := ""
		if len(report.Errors) > 0 {
			snippet = report.Errors[0].Snippet
		}
		return fmt.Sprintf("mcp-preflight: error: %s", snippet)
	}
}
