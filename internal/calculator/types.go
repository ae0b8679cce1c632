package calculator

import "context"

// Request is the payload posted by the drawing frontend.
type Request struct {
	// Image is a data URL such as "data:image/png;base64,iVBOR...".
	Image string `json:"image"`
	// DictOfVars holds variables assigned by earlier runs, keyed by name.
	DictOfVars map[string]any `json:"dict_of_vars"`
}

// Result is one expression recognised on the canvas.
type Result struct {
	Expr   string `json:"expr"`
	Result string `json:"result"`
	// Assign marks a variable assignment such as "x = 4"; the frontend keeps
	// it in DictOfVars for subsequent requests.
	Assign bool `json:"assign"`
}

// Calculator describes the behaviour required from a canvas calculator.
type Calculator interface {
	Calculate(ctx context.Context, req Request) ([]Result, error)
}

// Analyzer turns a normalised PNG into results, given known variables.
type Analyzer interface {
	Analyze(ctx context.Context, png []byte, vars map[string]string) ([]Result, error)
}

// Cache stores results for previously analysed canvases.
type Cache interface {
	Get(key string) ([]Result, bool)
	Put(key string, results []Result)
}

// Observer receives analysis telemetry.
type Observer interface {
	ObserveAnalysis(outcome string, seconds float64)
	ObserveCacheHit()
}
