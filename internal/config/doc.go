// Package config loads the YAML configuration shared by the connector
// and interceptor binaries. Values support ${VAR} environment expansion,
// durations are given as Go duration strings, and defaults match a local
// single-instance deployment (localhost Redis, skip auth check).
package config
