package cache

import (
	"fmt"
	"strings"
)

// SessionKey holds the cookie jar of a logged-in portal account.
func SessionKey(portal, username string) string {
	return fmt.Sprintf("session:%s:%s", portal, strings.ToLower(username))
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
