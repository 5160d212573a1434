package client

// InvocationResponse is returned for a successfully executed invocation.
type InvocationResponse struct {
	Result          string  `json:"result"`
	ContainerId     string  `json:"container_id"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	WarmStart       bool    `json:"warm_start"`
	RequestId       string  `json:"request_id"`
}

// ErrorResponse wraps any failure reported by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StrategyRequest selects the container reuse strategy.
type StrategyRequest struct {
	Strategy string `json:"strategy"`
}

// PrewarmRequest asks the node to spawn idle containers for a function.
type PrewarmRequest struct {
	Function  string `json:"function"`
	Instances int    `json:"instances"`
}

type PrewarmResponse struct {
	Function string `json:"function"`
	Spawned  int    `json:"spawned"`
}

// StatusInformation is the lightweight server status view.
type StatusInformation struct {
	Strategy                string         `json:"strategy"`
	UptimeSeconds           float64        `json:"uptime_seconds"`
	AvailableWarmContainers map[string]int `json:"available_warm_containers"`
}
