package container

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hearth-faas/hearth/internal/config"
	"github.com/hearth-faas/hearth/internal/function"
)

// InvocationResult carries the response of a single function invocation.
// A non-2xx StatusCode means the function itself failed; the container is
// still healthy.
type InvocationResult struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

func (r *InvocationResult) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Runtime drives function containers through a Factory. It carries no
// scheduling state and is safe for concurrent use.
type Runtime struct {
	factory       Factory
	client        *http.Client
	port          int
	launchTimeout time.Duration
}

func NewRuntime(f Factory) *Runtime {
	return &Runtime{
		factory:       f,
		client:        &http.Client{},
		port:          config.GetInt(config.CONTAINER_PORT, 5000),
		launchTimeout: time.Duration(config.GetInt(config.CONTAINER_LAUNCH_TIMEOUT, 30)) * time.Second,
	}
}

// Launch creates and starts a container for the given function and blocks
// until its endpoint answers HTTP requests.
func (r *Runtime) Launch(f *function.Function) (*Container, error) {
	contID, err := r.factory.Create(f.Image, &ContainerOptions{})
	if err != nil {
		return nil, fmt.Errorf("container creation failed: %v", err)
	}

	if err := r.factory.Start(contID); err != nil {
		if errDestroy := r.factory.Destroy(contID); errDestroy != nil {
			log.Printf("Could not destroy container %s: %v\n", contID, errDestroy)
		}
		return nil, fmt.Errorf("container start failed: %v", err)
	}

	ipAddr, err := r.factory.GetIPAddress(contID)
	if err != nil {
		if errDestroy := r.factory.Destroy(contID); errDestroy != nil {
			log.Printf("Could not destroy container %s: %v\n", contID, errDestroy)
		}
		return nil, fmt.Errorf("failed to retrieve IP address for container: %v", err)
	}

	c := &Container{
		ID:       contID,
		Function: f.Name,
		IPAddr:   ipAddr,
		Port:     r.port,
		State:    StateStarting,
		LastUsed: time.Now(),
	}

	if ipAddr == "" {
		r.Destroy(c)
		return nil, fmt.Errorf("container %s has no IP address", c.ShortID())
	}
	if err := r.waitReachable(c.Endpoint()); err != nil {
		r.Destroy(c)
		return nil, err
	}

	return c, nil
}

// waitReachable probes the endpoint until it answers any HTTP response.
// The server inside the container needs some time to boot, so connection
// errors are retried with backoff until the launch timeout.
func (r *Runtime) waitReachable(endpoint string) error {
	const maxBackoffMillis = 500
	backoffMillis := 25
	deadline := time.Now().Add(r.launchTimeout)

	var err error
	for time.Now().Before(deadline) {
		var resp *http.Response
		resp, err = r.client.Get(endpoint)
		if err == nil {
			// any status code proves the server is up
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil
		}

		time.Sleep(time.Duration(backoffMillis) * time.Millisecond)
		if backoffMillis < maxBackoffMillis {
			backoffMillis = min(backoffMillis*2, maxBackoffMillis)
		}
	}

	return fmt.Errorf("container did not become reachable within %v: %v", r.launchTimeout, err)
}

// Invoke posts the payload to the container and returns the function
// response. A transport-level error means the container is presumed dead;
// a non-2xx status is reported through the result instead.
func (r *Runtime) Invoke(c *Container, payload []byte) (*InvocationResult, error) {
	t0 := time.Now()

	resp, err := r.client.Post(c.Endpoint(), "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("request to container %s failed: %v", c.ShortID(), err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			log.Printf("Error while closing response body\n")
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from container %s failed: %v", c.ShortID(), err)
	}

	return &InvocationResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		Duration:   time.Since(t0),
	}, nil
}

// Destroy is best-effort and idempotent; errors are only logged.
func (r *Runtime) Destroy(c *Container) {
	if err := r.factory.Destroy(c.ID); err != nil {
		log.Printf("Error while destroying container %s: %s\n", c.ShortID(), err)
	}
}
