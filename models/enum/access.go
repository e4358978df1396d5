package enum

// Access classifies a navigation target for the route guard.
type Access string

const (
	AccessPublic Access = "public"
	AccessTrader Access = "trader" // authenticated, non-elevated identities only
	AccessAdmin  Access = "admin"  // authenticated, elevated identities only
)
