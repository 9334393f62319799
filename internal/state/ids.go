package state

import "github.com/google/uuid"

const (
	prefixPage   = "pg"
	prefixStroke = "st"
	prefixObject = "ob"
)

var siteID = uuid.NewString()

// NewID returns a unique identifier of the form "<prefix>_<uuid>".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// SiteID identifies this process, e.g. in mDNS TXT records.
func SiteID() string { return siteID }
