package transit

// FeedScopedID identifies an entity within a single upstream feed. The
// feed id namespaces all identifiers so multiple feeds may coexist in
// one model without colliding.
type FeedScopedID struct {
	FeedID string
	ID     string
}

// NewFeedScopedID creates a feed-scoped identifier.
func NewFeedScopedID(feedID, id string) FeedScopedID {
	return FeedScopedID{FeedID: feedID, ID: id}
}

func (f FeedScopedID) String() string {
	return f.FeedID + ":" + f.ID
}

// IsZero reports whether the identifier is unset.
func (f FeedScopedID) IsZero() bool {
	return f.FeedID == "" && f.ID == ""
}

// TripIDAndServiceDate is the compound key pairing a feed-scoped trip
// id with the service date the trip runs on. Two keys are equal iff
// both fields are equal, which makes the type usable as a map key.
type TripIDAndServiceDate struct {
	TripID      FeedScopedID
	ServiceDate ServiceDate
}
