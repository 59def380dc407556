package models

// BlurAnalysisRequest is the body of POST /analyze. ChannelAxis accepts an
// integer or a numeric string. Null or omitted auto-detects, so colour
// images use axis 2; "none" analyzes them as 3-D arrays with no channel
// axis. Anything else is rejected.
type BlurAnalysisRequest struct {
	URL         string   `json:"url"`
	WindowSize  int      `json:"window_size,omitempty"`
	ChannelAxis any      `json:"channel_axis,omitempty"`
	Aggregate   string   `json:"aggregate,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
	Persist     *bool    `json:"persist,omitempty"`
}

// BlurAnalysisResponse is an analysis result plus whether it was stored
type BlurAnalysisResponse struct {
	AnalysisResult
	Image     ImageMetadata `json:"image"`
	Persisted bool          `json:"persisted"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HistoryResponse lists stored analyses for one image URL
type HistoryResponse struct {
	ImageURL string           `json:"image_url"`
	Count    int              `json:"count"`
	Results  []AnalysisResult `json:"results"`
}
