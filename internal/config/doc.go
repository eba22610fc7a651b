// Package config loads and validates the gridcal application configuration.
//
// Configuration is assembled from three sources, later sources overriding
// earlier ones:
//
//  1. Built-in defaults
//  2. A TOML file (an explicit --config path, ./gridcal.toml, or
//     ~/.config/gridcal/gridcal.toml)
//  3. GRIDCAL_* environment variables (a .env file in the working
//     directory is honored when present)
//
// Credentials for the remote calendar provider (client id, client secret,
// API key) have no defaults. Load fails fast with an error wrapping
// ErrMissing when any of them is absent, so a misconfigured process never
// reaches a broken auth call.
package config
