// Package config loads and validates verifyd configuration.
//
// Configuration is read from a TOML file (default
// ~/.config/verifyd/config.toml) seeded from Default(), then overlaid with
// environment variables for the settings that deployments commonly inject
// (API keys, bind address, log settings). Paths are expanded and normalized
// before validation so the rest of the codebase never sees a "~" path.
package config
