package scheduling

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hearth-faas/hearth/internal/container"
	"github.com/hearth-faas/hearth/internal/metrics"
	"github.com/hearth-faas/hearth/internal/node"
	"github.com/hearth-faas/hearth/internal/telemetry"
)

// Invoker abstracts the runtime invocation capability, so tests can drive
// Dispatch without real containers.
type Invoker interface {
	Invoke(c *container.Container, payload []byte) (*container.InvocationResult, error)
}

var registry *node.Registry
var invoker Invoker

// Init wires the scheduler to the node registry and the container runtime.
func Init(reg *node.Registry, inv Invoker) {
	registry = reg
	invoker = inv
}

// Request represents a single function invocation.
type Request struct {
	Id       string
	Function string
	Payload  []byte
	Arrival  time.Time
	Ctx      context.Context
}

func (r *Request) String() string {
	return "[" + r.Function + "] Rq-" + r.Id
}

// Result carries a completed invocation back to the transport. StatusCode
// is whatever the function returned; a non-2xx code means the function
// failed while the container stayed healthy.
type Result struct {
	RequestId     string
	ContainerId   container.ContainerID
	StatusCode    int
	Body          []byte
	ExecutionTime time.Duration
	WarmStart     bool
}

// Dispatch acquires a container for the request (reuse, launch, or wait in
// the queue), drives the invocation, and releases the container on every
// exit path. A transport-level invocation failure discards the container as
// dead.
func Dispatch(r *Request) (*Result, error) {
	pool := registry.PoolFor(r.Function)

	if r.Ctx == nil {
		r.Ctx = context.Background()
	}

	if telemetry.DefaultTracer != nil {
		trace.SpanFromContext(r.Ctx).AddEvent("Scheduling start")
	}

	cont, kind, err := pool.Acquire(r.Ctx)
	if err != nil {
		registry.RecordFailed(r.Function)
		metrics.AddFailed(r.Function)
		return nil, err
	}

	if kind == node.WarmStart {
		registry.RecordWarmStart(r.Function)
		metrics.AddWarmStart(r.Function)
	} else {
		registry.RecordColdStart(r.Function)
		metrics.AddColdStart(r.Function)
	}

	if telemetry.DefaultTracer != nil {
		trace.SpanFromContext(r.Ctx).AddEvent("Scheduling complete")
	}

	outcome := node.OutcomeCompleted
	defer func() { pool.Release(cont, outcome) }()

	res, err := invoker.Invoke(cont, r.Payload)
	if err != nil {
		outcome = node.OutcomeContainerDead
		log.Printf("[%s] Execution failed on container %s: %v\n", r, cont.ShortID(), err)
		return nil, err
	}

	metrics.AddFunctionDurationValue(r.Function, res.Duration.Seconds())

	return &Result{
		RequestId:     r.Id,
		ContainerId:   cont.ID,
		StatusCode:    res.StatusCode,
		Body:          res.Body,
		ExecutionTime: res.Duration,
		WarmStart:     kind == node.WarmStart,
	}, nil
}
