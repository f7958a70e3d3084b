// Package config provides layered configuration for the tracing agent.
//
// Configuration is built from three layers in increasing precedence:
// compiled-in defaults, an optional YAML file, and SW_-prefixed environment
// variables. Out-of-range values are clamped rather than rejected, so a bad
// setting never stops the host application from starting.
//
// Configuration Sections:
//   - Agent: service identity and collector endpoint
//   - Carrier: lanes, capacity, overflow policy, consumer pool
//   - Dictionary: operation-name cache bounds and sync cadence
//   - Reporter: collector HTTP timeouts, retries, compression
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg, err := config.LoadFile("agent.yaml")
//	if err != nil {
//		cfg = config.Default()
//	}
//
// Environment Variables:
//   - SW_AGENT_SERVICE, SW_AGENT_INSTANCE_ID, SW_COLLECTOR_URL
//   - SW_CARRIER_LANES, SW_CARRIER_LANE_CAPACITY, SW_CARRIER_POLICY
//   - SW_CARRIER_PARTITIONER, SW_CARRIER_CONSUMERS, SW_CARRIER_BATCH_SIZE
//   - SW_DICTIONARY_CAPACITY, SW_DICTIONARY_SYNC_INTERVAL
//   - SW_REPORTER_TIMEOUT, SW_REPORTER_MAX_RETRIES, SW_REPORTER_COMPRESS
//   - SW_LOG_LEVEL, SW_LOG_DEV
package config
