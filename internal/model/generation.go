package model

import "time"

// GenerationResult reports one materialization run. Failed > 0 means a
// degraded run: the other candidates were still written.
type GenerationResult struct {
	Created   int  `json:"created"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	Truncated bool `json:"truncated"`
	// Inactive is set when the series was inactive and nothing was attempted.
	Inactive bool `json:"inactive"`

	WindowEnd *time.Time `json:"window_end,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Degraded reports whether some candidates could not be written.
func (r GenerationResult) Degraded() bool {
	return r.Failed > 0
}
