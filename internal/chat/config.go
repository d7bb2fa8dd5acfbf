package chat

import (
	"strings"

	"github.com/xyenon/company-lens/internal/debug"
)

// normalizeBaseURL adds a missing scheme and ends the URL with a slash so
// relative endpoint paths resolve under it.
func normalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	normalized := strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}
	return normalized + "/"
}

func logRequest(model string, messages []Message) {
	debug.Log("Sending chat completion request", map[string]any{
		"model":    model,
		"messages": messages,
	})
}
