package services

import "strings"

// IsOwner is the only authorization rule: the session identity must equal
// the resource owner's id.
func IsOwner(sessionID, ownerID string) bool {
	return sessionID != "" && sessionID == ownerID
}

func requireOwner(sessionID, ownerID, msg string) error {
	if !IsOwner(sessionID, ownerID) {
		return Unauthorized(msg)
	}
	return nil
}

// URLResolver maps a public object URL back to its storage key.
type URLResolver interface {
	KeyFromURL(url string) (string, bool)
}

func ownerPrefix(ownerID string) string {
	return "listings/" + ownerID + "/"
}

func ownsURL(keys URLResolver, ownerID, url string) bool {
	if keys == nil || ownerID == "" {
		return false
	}
	key, ok := keys.KeyFromURL(url)
	return ok && strings.HasPrefix(key, ownerPrefix(ownerID))
}

// ownedBy keeps the urls stored under ownerID's prefix. Only these may be
// purged on the owner's behalf.
func ownedBy(keys URLResolver, ownerID string, urls []string) []string {
	var own []string
	for _, url := range urls {
		if ownsURL(keys, ownerID, url) {
			own = append(own, url)
		}
	}
	return own
}

// foreignStored reports whether any url is hosted in our storage outside
// ownerID's prefix. External URLs are not checked.
func foreignStored(keys URLResolver, ownerID string, urls []string) bool {
	if keys == nil {
		return false
	}
	for _, url := range urls {
		if _, hosted := keys.KeyFromURL(url); hosted && !ownsURL(keys, ownerID, url) {
			return true
		}
	}
	return false
}
