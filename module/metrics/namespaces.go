package metrics

// Prometheus metric namespaces
const (
	namespaceNetwork  = "network"
	namespaceFinality = "finality"
	namespaceStorage  = "storage"
	namespaceState    = "state"
)

// Network subsystems
const (
	subsystemGossip = "gossip"
	subsystemDirect = "direct"
)

// Finality subsystems
const (
	subsystemBridge    = "bridge"
	subsystemValidator = "validator"
)

// Storage subsystems
const (
	subsystemCache = "cache"
)

// State subsystems
const (
	subsystemProof = "proof"
)
