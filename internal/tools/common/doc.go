// Package common provides shared utilities for MCP tool implementations.
// It contains argument parsing helpers and the instrumentation wrappers
// used across all tool packages to avoid code duplication and ensure
// consistent behavior.
package common
