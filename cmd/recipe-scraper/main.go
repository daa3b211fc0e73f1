// Command recipe-scraper performs one search run: it reads the search
// arguments, scrapes the matching recipes and writes them as JSON.
//
// Usage:
//
//	recipe-scraper -argument '{"name":"pasta","page":2,"minRating":4}'
//	recipe-scraper -argument-file args.yaml -result-file result.json
//
// Every setting can also come from the environment or a .env file; see
// internal/config. The exit status is 1 when the arguments are invalid or
// the search fails, 0 otherwise, even when the result could not be stored.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/recipe-scraper/internal/app"
	"github.com/Sternrassler/recipe-scraper/internal/config"
	"github.com/Sternrassler/recipe-scraper/pkg/platform"
	"github.com/Sternrassler/recipe-scraper/pkg/service"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("recipe-scraper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	argument := fs.String("argument", "", "search arguments as a JSON object (overrides ARGUMENT)")
	argumentFile := fs.String("argument-file", "", "JSON or YAML file holding the search arguments (overrides ARGUMENT_FILE)")
	resultFile := fs.String("result-file", "", "write the result to this file instead of stdout (overrides RESULT_FILE)")
	envFile := fs.String("env-file", ".env", "optional .env file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}
	if *argument != "" {
		cfg.Argument = *argument
	}
	if *argumentFile != "" {
		cfg.ArgumentFile = *argumentFile
	}
	if *resultFile != "" {
		cfg.ResultFile = *resultFile
	}

	app.SetupLogging(cfg)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build the scraper")
		return 1
	}
	defer a.Close()

	runner := service.NewRunner(a.Service, argumentSource(cfg), resultSink(cfg, a, stdout))
	if err := runner.Run(ctx); err != nil {
		return 1
	}
	return 0
}

func argumentSource(cfg config.Config) service.ArgumentSource {
	if cfg.ArgumentFile != "" {
		return platform.FileArgument{Path: cfg.ArgumentFile}
	}
	return platform.JSONArgument(cfg.Argument)
}

func resultSink(cfg config.Config, a *app.App, stdout io.Writer) service.ResultSink {
	var sinks platform.MultiSink
	if cfg.ResultFile != "" {
		sinks = append(sinks, platform.FileSink{Path: cfg.ResultFile})
	} else {
		sinks = append(sinks, platform.WriterSink{W: stdout})
	}
	if cfg.ResultRedisKey != "" && a.Redis != nil {
		sinks = append(sinks, platform.RedisSink{
			Client: a.Redis,
			Key:    cfg.ResultRedisKey,
			TTL:    cfg.ResultTTL(),
		})
	}
	return sinks
}
