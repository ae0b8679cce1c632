// Package calculator reads hand-drawn math from a canvas snapshot and returns
// the expressions it found together with their evaluated results.
//
// The image arrives as a data URL, is flattened onto the canvas background and
// downscaled, then handed to an Analyzer. VisionAnalyzer talks to any
// OpenAI-compatible chat completion endpoint that accepts image parts.
package calculator
