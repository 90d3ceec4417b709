package filter

import "regexp"

// Credential shapes. False positives are acceptable, misses on obvious
// patterns are not.
var credentialPatterns = []string{
	// Provider prefixes: OpenAI/Anthropic/Stripe style, GitHub, AWS, Slack.
	`\b(?:sk|pk|rk)-(?:ant-|proj-|live-|test-)?[A-Za-z0-9_-]{16,}`,
	`\bgh[pousr]_[A-Za-z0-9]{36}`,
	`\bAKIA[A-Z0-9]{16}\b`,
	`\bxox[abprs]-[A-Za-z0-9-]{10,}`,
	// api_key=value, token: value
	`(?i)\b(?:api[_-]?key|access[_-]?key|token|secret|authorization)\s*[:=]\s*["']?\S{8,}`,
	// password: value, secret=value
	`(?i)\b(?:password|passwd|pwd|secret)[^\n:=]{0,16}[:=]\s*\S+`,
	// JWT and other dotted base64url tokens.
	`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`,
	`\b[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`,
	`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]{16,}=*`,
}

// keyIndicatorPattern captures a long token shortly after a key-like word.
const keyIndicatorPattern = `(?i)\b(?:api[\s_-]?key|apikey|access[\s_-]?key|token|secret|key|auth)\b[^\n]{0,20}?\b([A-Za-z0-9_-]{20,})`

const minKeyTokenLength = 20

type sensitiveDetector struct {
	credentials  []*regexp.Regexp
	keyIndicator *regexp.Regexp
}

func newSensitiveDetector() *sensitiveDetector {
	compiled := make([]*regexp.Regexp, 0, len(credentialPatterns))
	for _, pattern := range credentialPatterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}

	return &sensitiveDetector{
		credentials:  compiled,
		keyIndicator: regexp.MustCompile(keyIndicatorPattern),
	}
}

func (d *sensitiveDetector) detect(text string) bool {
	for _, pattern := range d.credentials {
		if pattern.MatchString(text) {
			return true
		}
	}

	return d.hasKeyToken(text)
}

// hasKeyToken looks for "<key word> ... <token>" with a long token.
func (d *sensitiveDetector) hasKeyToken(text string) bool {
	for _, match := range d.keyIndicator.FindAllStringSubmatch(text, -1) {
		if len(match[1]) >= minKeyTokenLength {
			return true
		}
	}

	return false
}
