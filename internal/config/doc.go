// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > YAML config >
// Environment variables > Defaults. A .env file in the working directory is
// read into the environment before variables are resolved.
package config
