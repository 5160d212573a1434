package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/buger/jsonparser"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid"

	"github.com/hearth-faas/hearth/internal/client"
	"github.com/hearth-faas/hearth/internal/node"
	"github.com/hearth-faas/hearth/internal/scheduling"
)

// InvokeFunction handles a function invocation request. An unknown function
// is not an error: its pool is created on the fly with the default
// concurrency cap.
func InvokeFunction(c echo.Context) error {
	funcName := c.Param("fun")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, client.ErrorResponse{Error: "could not read request body"})
	}

	r := &scheduling.Request{
		Id:       shortuuid.New(),
		Function: funcName,
		Payload:  payload,
		Arrival:  time.Now(),
		Ctx:      c.Request().Context(),
	}

	res, err := scheduling.Dispatch(r)
	if errors.Is(err, node.ErrShuttingDown) {
		return c.JSON(http.StatusServiceUnavailable, client.ErrorResponse{Error: err.Error()})
	} else if err != nil {
		log.Printf("Invocation failed: %v", err)
		return c.JSON(http.StatusBadGateway, client.ErrorResponse{Error: err.Error()})
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		// the function failed; surface the upstream status
		return c.JSON(res.StatusCode, client.ErrorResponse{Error: string(res.Body)})
	}

	return c.JSON(http.StatusOK, client.InvocationResponse{
		Result:          string(res.Body),
		ContainerId:     res.ContainerId,
		ExecutionTimeMs: float64(res.ExecutionTime.Microseconds()) / 1000.0,
		WarmStart:       res.WarmStart,
		RequestId:       res.RequestId,
	})
}

// SetStrategy swaps the container reuse strategy at runtime. Future reuse
// decisions observe the new strategy; in-flight ones are unaffected.
func SetStrategy(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, client.ErrorResponse{Error: "could not read request body"})
	}

	name, err := jsonparser.GetString(body, "strategy")
	if err != nil {
		return c.JSON(http.StatusBadRequest, client.ErrorResponse{Error: "missing 'strategy' field"})
	}

	s, err := node.ParseStrategy(name)
	if err != nil {
		return c.JSON(http.StatusBadRequest, client.ErrorResponse{Error: err.Error()})
	}

	node.Local.SetReuseStrategy(s)
	log.Printf("Reuse strategy set to %s\n", s)
	return c.JSON(http.StatusOK, client.StrategyRequest{Strategy: s.String()})
}

// GetStats serves a JSON snapshot of the scheduling counters and the
// current pool occupancy.
func GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, node.Local.SnapshotStats())
}

// ResetStats zeroes all counters.
func ResetStats(c echo.Context) error {
	node.Local.ResetStats()
	return c.NoContent(http.StatusOK)
}

// GetServerStatus simple api to check the current server status
func GetServerStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, client.StatusInformation{
		Strategy:                node.Local.ReuseStrategy().String(),
		UptimeSeconds:           node.Local.Uptime().Seconds(),
		AvailableWarmContainers: node.Local.WarmStatus(),
	})
}

// PrewarmFunction spawns idle containers for a function, bounded by its
// concurrency cap.
func PrewarmFunction(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, client.ErrorResponse{Error: "could not read request body"})
	}

	funcName, err := jsonparser.GetString(body, "function")
	if err != nil {
		return c.JSON(http.StatusBadRequest, client.ErrorResponse{Error: "missing 'function' field"})
	}
	instances, err := jsonparser.GetInt(body, "instances")
	if err != nil || instances < 1 {
		return c.JSON(http.StatusBadRequest, client.ErrorResponse{Error: "missing or invalid 'instances' field"})
	}

	pool := node.Local.PoolFor(funcName)
	spawned, err := pool.Prewarm(int(instances))
	if err != nil {
		log.Printf("Prewarming failed: %v\n", err)
		return c.JSON(http.StatusServiceUnavailable, client.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, client.PrewarmResponse{Function: funcName, Spawned: spawned})
}
