// Command procrun runs external programs and reports their output and
// exit status, from the command line or as an MCP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/deixis/procrun"
	"github.com/deixis/procrun/internal/config"
	"github.com/deixis/procrun/internal/logging"
	prmcp "github.com/deixis/procrun/internal/mcp"
	"github.com/deixis/procrun/internal/metrics"
	"github.com/deixis/procrun/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("procrun: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		var code int
		code, err = runMain(args, os.Stdout, os.Stderr)
		if err == nil {
			os.Exit(code)
		}
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(procrun.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "procrun: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: procrun <command> [flags]

Commands:
  run         Run a program and print its captured output
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "procrun <command> -h" for command-specific flags.`)
}

// loadConfig loads .procrun from the current directory upward and builds
// the logger it configures.
func loadConfig() (*config.LoadResult, zerolog.Logger, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("loading config: %w", err)
	}
	return loaded, logging.New("procrun", os.Stderr, loaded.Config.LogLevel), nil
}

// --- run ---

// envFlags collects repeated -env KEY=VALUE flags.
type envFlags []string

func (e *envFlags) String() string { return strings.Join(*e, ",") }

func (e *envFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected KEY=VALUE, got %q", v)
	}
	*e = append(*e, v)
	return nil
}

// buildEnv returns the child environment. nil means inherit.
func buildEnv(base map[string]string, pairs []string, empty bool) map[string]string {
	if len(pairs) == 0 && !empty {
		return base
	}

	env := make(map[string]string)
	switch {
	case empty:
	case base != nil:
		for k, v := range base {
			env[k] = v
		}
	default:
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				env[k] = v
			}
		}
	}
	for _, kv := range pairs {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}

// runMain runs one command and writes its captures to stdout and stderr.
// It returns the exit code procrun should exit with.
func runMain(args []string, stdout, stderr io.Writer) (int, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dirFlag := fs.String("C", "", "working directory for the command")
	joinFlag := fs.Bool("join", false, "merge stderr into stdout")
	clearEnvFlag := fs.Bool("clear-env", false, "start from an empty environment")
	jsonFlag := fs.Bool("json", false, "output the result as JSON")
	var envFlag envFlags
	fs.Var(&envFlag, "env", "set an environment variable (KEY=VALUE, repeatable)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 2, err
	}

	if fs.NArg() == 0 {
		return 2, errors.New("run: missing command")
	}

	loaded, logger, err := loadConfig()
	if err != nil {
		return 1, err
	}
	cfg := loaded.Config

	req := cfg.Request(loaded.Root, fs.Arg(0), fs.Args()[1:])
	req.Env = buildEnv(req.Env, envFlag, *clearEnvFlag)
	if *dirFlag != "" {
		req.Dir = *dirFlag
	}
	if *joinFlag {
		req.JoinPipes = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := cfg.Runner().Run(logger.WithContext(ctx), req)
	if err != nil {
		return 1, fmt.Errorf("run: %w", err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return 1, err
		}
	} else {
		fmt.Fprint(stdout, res.Stdout)
		fmt.Fprint(stderr, res.Stderr)
	}

	return exitCode(res.Status.Code()), nil
}

// exitCode maps a child exit code to procrun's own. A signal death
// reports the signal number, which passes through. Codes the OS cannot
// carry become 1.
func exitCode(code int) int {
	if code < 0 || code > 255 {
		return 1
	}
	return code
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	historyDir := fs.String("history-dir", "", "directory for stored runs (default: a temp directory)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(prmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return serve(ctx, *httpAddr, *historyDir)
}

func serve(ctx context.Context, httpAddr, historyDir string) error {
	loaded, logger, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := loaded.Config

	store := report.NewLRUStore(cfg.HistorySize(), report.NewDiskStore(historyDir))
	server := prmcp.NewServer(cfg, loaded.Root, cfg.Runner(), store, prmcp.WithLogger(logger))

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr, logger)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger zerolog.Logger) error {
	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
