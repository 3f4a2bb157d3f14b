// Package token validates and extracts Telegram bot tokens.
// A token is the credential that binds a relay agent to the Bot API:
// numeric bot ID, a colon, and a 35-character secret.
package token

import "regexp"

// pattern matches a full bot token: 9-10 digit bot ID, colon, 35-char secret.
var (
	pattern       = regexp.MustCompile(`^\d{9,10}:[A-Za-z0-9_-]{35}$`)
	searchPattern = regexp.MustCompile(`\d{9,10}:[A-Za-z0-9_-]{35}`)
)

// Validate reports whether s is a structurally valid bot token.
func Validate(s string) bool {
	return pattern.MatchString(s)
}

// Extract searches text for an embedded bot token and returns the first
// match. Used when a creator forwards the full BotFather message instead of
// sending the bare token.
func Extract(text string) (string, bool) {
	m := searchPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return m, true
}
