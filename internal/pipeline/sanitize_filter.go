package pipeline

import "github.com/microcosm-cc/bluemonday"

// SanitizationFilter whitelists HTML using a bluemonday policy. It must be
// the last HTML-producing stage of a pipeline.
type SanitizationFilter struct {
	policy *bluemonday.Policy
}

// NewSanitizationFilter returns a filter enforcing policy. A nil policy
// selects DefaultPolicy.
func NewSanitizationFilter(policy *bluemonday.Policy) *SanitizationFilter {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &SanitizationFilter{policy: policy}
}

// DefaultPolicy is the user-generated-content policy used for forum posts:
// bluemonday's UGC set (which already adds rel="nofollow" to links).
func DefaultPolicy() *bluemonday.Policy {
	return bluemonday.UGCPolicy()
}

// Call implements Filter.
func (f *SanitizationFilter) Call(text string, _ Context, _ Result) (string, error) {
	return f.policy.Sanitize(text), nil
}

// Sanitizes marks the filter for pipeline ordering checks.
func (*SanitizationFilter) Sanitizes() bool { return true }
