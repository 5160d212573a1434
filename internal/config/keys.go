package config

// exposed port for hearth APIs
const API_PORT = "api.port"

// runtime container image used to launch function instances
const CONTAINER_IMAGE = "container.image"

// port the function server listens on inside the container
const CONTAINER_PORT = "container.port"

// seconds an idle container may live before the janitor reclaims it
const CONTAINER_WARM_TIME = "container.warm.time"

// seconds the janitor sleeps between reclamation passes
const JANITOR_INTERVAL = "janitor.interval"

// concurrency cap assigned to pools created on demand
const POOL_DEFAULT_CONCURRENCY = "pool.concurrency.default"

// per-function concurrency caps applied at startup (map: function -> cap)
const POOL_FUNCTION_CONCURRENCY = "pool.concurrency.functions"

// container reuse strategy at startup ("lru" or "mru")
const SCHEDULER_STRATEGY = "scheduler.strategy"

// seconds to wait for a launched container to become reachable
const CONTAINER_LAUNCH_TIMEOUT = "container.launch.timeout"

// Forces runtime container images to be pulled the first time they are used,
// even if they are locally available (true/false).
const FACTORY_REFRESH_IMAGES = "factory.images.refresh"

// enable metrics system
const METRICS_ENABLED = "metrics.enabled"

// Enables tracing
const TRACING_ENABLED = "tracing.enabled"

// Custom output file for traces
const TRACING_OUTFILE = "tracing.outfile"
