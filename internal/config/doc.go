// Package config defines the assetpack build configuration: the built-in
// defaults derived from NODE_ENV and SERVE, YAML and TOML loading, validation
// and the fingerprint used to tell builds apart.
package config
