// Package config loads, normalizes, and validates ocrcache configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OCRCACHE_API_TOKEN. Cache settings are read once at construction time;
// changing them requires a restart.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
