package container

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-faas/hearth/internal/function"
)

type fakeFactory struct {
	created   int
	destroyed []ContainerID
	ip        string

	createErr error
	startErr  error
}

func (f *fakeFactory) Create(image string, opts *ContainerOptions) (ContainerID, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	return fmt.Sprintf("cont-%d", f.created), nil
}

func (f *fakeFactory) Start(id ContainerID) error { return f.startErr }

func (f *fakeFactory) Destroy(id ContainerID) error {
	f.destroyed = append(f.destroyed, id)
	return nil
}

func (f *fakeFactory) GetIPAddress(id ContainerID) (string, error) { return f.ip, nil }

// testServer starts a local HTTP function stub and returns its address.
func testServer(t *testing.T, handler http.HandlerFunc) (string, int) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "busy", StateBusy.String())
	assert.Equal(t, "reclaiming", StateReclaiming.String())
	assert.Equal(t, "destroyed", StateDestroyed.String())
}

func TestLaunchProbesTheEndpoint(t *testing.T) {
	host, port := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed) // any response proves liveness
	})

	viper.Set("container.port", port)
	defer viper.Set("container.port", 5000)

	rt := NewRuntime(&fakeFactory{ip: host})
	c, err := rt.Launch(function.New("f", "faas-function:latest", 1))
	require.NoError(t, err)
	assert.Equal(t, "cont-1", c.ID)
	assert.Equal(t, host, c.IPAddr)
	assert.False(t, c.LastUsed.IsZero())
}

func TestLaunchCleansUpOnStartFailure(t *testing.T) {
	factory := &fakeFactory{ip: "127.0.0.1", startErr: fmt.Errorf("no such image")}
	rt := NewRuntime(factory)

	_, err := rt.Launch(function.New("f", "faas-function:latest", 1))
	require.Error(t, err)
	assert.Equal(t, []ContainerID{"cont-1"}, factory.destroyed)
}

func TestInvokeReturnsFunctionResponse(t *testing.T) {
	host, port := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"message": "Function executed successfully!"}`)
	})

	rt := NewRuntime(&fakeFactory{})
	c := &Container{ID: "c1", Function: "f", IPAddr: host, Port: port}

	res, err := rt.Invoke(c, nil)
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Contains(t, string(res.Body), "Function executed successfully")
	assert.Greater(t, res.Duration.Nanoseconds(), int64(0))
}

func TestInvokeSurfacesFunctionErrors(t *testing.T) {
	host, port := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	rt := NewRuntime(&fakeFactory{})
	c := &Container{ID: "c1", Function: "f", IPAddr: host, Port: port}

	// a non-2xx status is not a transport error
	res, err := rt.Invoke(c, nil)
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestInvokeReportsTransportErrors(t *testing.T) {
	rt := NewRuntime(&fakeFactory{})
	// nothing listens here
	c := &Container{ID: "c1", Function: "f", IPAddr: "127.0.0.1", Port: 1}

	_, err := rt.Invoke(c, nil)
	require.Error(t, err)
}
