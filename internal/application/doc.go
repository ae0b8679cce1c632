// Package application provides application initialization and dependency wiring.
// It builds the result cache, metrics recorder, vision analyzer, calculator
// service, frontend handler, router and HTTP server, keeping the main package
// focused on CLI parsing and orchestration.
package application
