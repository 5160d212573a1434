package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/hearth-faas/hearth/internal/config"
	"github.com/hearth-faas/hearth/internal/metrics"
	"github.com/hearth-faas/hearth/internal/node"
)

func StartAPIServer(e *echo.Echo) {
	e.Use(middleware.Recover())
	e.Logger.SetLevel(log.INFO)

	// Routes
	e.GET("/invoke/:fun", InvokeFunction)
	e.POST("/set_strategy", SetStrategy)
	e.GET("/stats", GetStats)
	e.POST("/stats/reset", ResetStats)
	e.GET("/status", GetServerStatus)
	e.POST("/prewarm", PrewarmFunction)

	if metrics.Enabled {
		e.GET("/metrics", func(c echo.Context) error {
			metrics.ScrapingHandler.ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}

	// Start server
	portNumber := config.GetInt(config.API_PORT, 1323)
	e.HideBanner = true

	if err := e.Start(fmt.Sprintf(":%d", portNumber)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.Logger.Fatal("shutting down the server")
	}
}

// RegisterTerminationHandler shuts the node down on SIGINT: the janitor
// stops first, then every pool is drained (queued waiters fail, containers
// are destroyed), then the HTTP server goes down.
func RegisterTerminationHandler(j *node.Janitor, e *echo.Echo) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		sig := <-c
		fmt.Printf("Got %s signal. Terminating...\n", sig)

		//stop container janitor
		j.Stop()

		node.Local.Drain()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}

		os.Exit(0)
	}()
}
