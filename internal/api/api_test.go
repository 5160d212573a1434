package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-faas/hearth/internal/client"
	"github.com/hearth-faas/hearth/internal/container"
	"github.com/hearth-faas/hearth/internal/function"
	"github.com/hearth-faas/hearth/internal/node"
	"github.com/hearth-faas/hearth/internal/scheduling"
)

type fakeRuntime struct {
	mu        sync.Mutex
	launches  int
	invokeErr error
}

func (f *fakeRuntime) Launch(fn *function.Function) (*container.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches++
	return &container.Container{
		ID:       fmt.Sprintf("%s-%d", fn.Name, f.launches),
		Function: fn.Name,
		IPAddr:   "172.17.0.2",
		Port:     5000,
		LastUsed: time.Now(),
	}, nil
}

func (f *fakeRuntime) Destroy(c *container.Container) {}

func (f *fakeRuntime) Invoke(c *container.Container, payload []byte) (*container.InvocationResult, error) {
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return &container.InvocationResult{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"message": "Function executed successfully!"}`),
		Duration:   2 * time.Millisecond,
	}, nil
}

func setupAPI(t *testing.T, rt *fakeRuntime) *echo.Echo {
	t.Helper()
	viper.Set("pool.concurrency.default", 3)
	node.Local = node.NewRegistry(rt)
	scheduling.Init(node.Local, rt)
	return echo.New()
}

func TestInvokeEndpoint(t *testing.T) {
	rt := &fakeRuntime{}
	e := setupAPI(t, rt)

	req := httptest.NewRequest(http.MethodGet, "/invoke/hello", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("fun")
	c.SetParamValues("hello")

	require.NoError(t, InvokeFunction(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp client.InvocationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello-1", resp.ContainerId)
	assert.False(t, resp.WarmStart)
	assert.Contains(t, resp.Result, "Function executed successfully")

	// a pool for the unknown function was created on the fly
	snap := node.Local.SnapshotStats()
	require.Contains(t, snap.PerFunction, "hello")
	assert.EqualValues(t, 1, snap.PerFunction["hello"].ColdStarts)
}

func TestInvokeEndpointTransportFailure(t *testing.T) {
	rt := &fakeRuntime{invokeErr: fmt.Errorf("connection refused")}
	e := setupAPI(t, rt)

	req := httptest.NewRequest(http.MethodGet, "/invoke/hello", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("fun")
	c.SetParamValues("hello")

	require.NoError(t, InvokeFunction(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInvokeEndpointWhileDraining(t *testing.T) {
	rt := &fakeRuntime{}
	e := setupAPI(t, rt)
	node.Local.Drain()

	req := httptest.NewRequest(http.MethodGet, "/invoke/hello", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("fun")
	c.SetParamValues("hello")

	require.NoError(t, InvokeFunction(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSetStrategyEndpoint(t *testing.T) {
	rt := &fakeRuntime{}
	e := setupAPI(t, rt)

	cases := []struct {
		body     string
		code     int
		expected node.Strategy
	}{
		{`{"strategy": "mru"}`, http.StatusOK, node.StrategyMRU},
		{`{"strategy": "LRU"}`, http.StatusOK, node.StrategyLRU},
		{`{"strategy": "lcs"}`, http.StatusOK, node.StrategyLRU},
		{`{"strategy": "random"}`, http.StatusBadRequest, node.StrategyLRU},
		{`{}`, http.StatusBadRequest, node.StrategyLRU},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/set_strategy", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		require.NoError(t, SetStrategy(e.NewContext(req, rec)))
		assert.Equal(t, tc.code, rec.Code, tc.body)
		assert.Equal(t, tc.expected, node.Local.ReuseStrategy(), tc.body)
	}
}

func TestStatsEndpoints(t *testing.T) {
	rt := &fakeRuntime{}
	e := setupAPI(t, rt)
	node.Local.RecordColdStart("f")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, GetStats(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var snap node.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.EqualValues(t, 1, snap.TotalColdStarts)
	assert.Equal(t, "lru", snap.Strategy)

	req = httptest.NewRequest(http.MethodPost, "/stats/reset", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, ResetStats(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.EqualValues(t, 0, node.Local.SnapshotStats().TotalColdStarts)
}

func TestPrewarmEndpoint(t *testing.T) {
	rt := &fakeRuntime{}
	e := setupAPI(t, rt)

	body := `{"function": "hot", "instances": 2}`
	req := httptest.NewRequest(http.MethodPost, "/prewarm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	require.NoError(t, PrewarmFunction(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp client.PrewarmResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Spawned)
	assert.Equal(t, 2, node.Local.WarmStatus()["hot"])

	// missing fields are rejected
	req = httptest.NewRequest(http.MethodPost, "/prewarm", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	require.NoError(t, PrewarmFunction(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	rt := &fakeRuntime{}
	e := setupAPI(t, rt)
	node.Local.PoolFor("idlefn").Prewarm(1)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, GetServerStatus(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var status client.StatusInformation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "lru", status.Strategy)
	assert.Equal(t, 1, status.AvailableWarmContainers["idlefn"])
}
