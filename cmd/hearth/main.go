package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	_ "go.uber.org/automaxprocs"

	"github.com/hearth-faas/hearth/internal/api"
	"github.com/hearth-faas/hearth/internal/config"
	"github.com/hearth-faas/hearth/internal/container"
	"github.com/hearth-faas/hearth/internal/metrics"
	"github.com/hearth-faas/hearth/internal/node"
	"github.com/hearth-faas/hearth/internal/scheduling"
	"github.com/hearth-faas/hearth/internal/telemetry"
)

func main() {
	configFileName := ""
	if len(os.Args) > 1 {
		configFileName = os.Args[1]
	}
	config.ReadConfiguration(configFileName)

	factory, err := container.NewDockerFactory()
	if err != nil {
		log.Fatal(err)
	}
	runtime := container.NewRuntime(factory)

	node.Local = node.NewRegistry(runtime)
	scheduling.Init(node.Local, runtime)

	metrics.Init()

	if config.GetBool(config.TRACING_ENABLED, false) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		tracesOutfile := config.GetString(config.TRACING_OUTFILE, "")
		if len(tracesOutfile) < 1 {
			tracesOutfile = fmt.Sprintf("traces-%s.json", time.Now().Format("20060102-150405"))
		}
		otelShutdown, err := telemetry.SetupOTelSDK(ctx, tracesOutfile)
		if err != nil {
			log.Fatal(err)
		}
		// Handle shutdown properly so nothing leaks.
		defer func() {
			err = errors.Join(err, otelShutdown(context.Background()))
		}()
	}

	//janitor periodically removes expired warm containers
	janitor := node.StartJanitor(node.Local)

	e := echo.New()

	// Register a signal handler to cleanup things on termination
	api.RegisterTerminationHandler(janitor, e)

	log.Printf("Scheduler started (strategy: %s).\n", node.Local.ReuseStrategy())

	api.StartAPIServer(e)
}
