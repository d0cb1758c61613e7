package domain

// EventKind classifies a write event emitted by the primary store layer.
type EventKind string

const (
	EventSpiritPublished EventKind = "spirit_published"
	EventSpiritUpdated   EventKind = "spirit_updated"
	EventSpiritDeleted   EventKind = "spirit_deleted"
	EventReviewCreated   EventKind = "review_created"
	EventReviewDeleted   EventKind = "review_deleted"
)

// WriteEvent is emitted after a qualifying primary write. Derived caches
// (freshness cache, recent-reviews buffer) are rebuilt from these events
// asynchronously; a rebuild failure never fails the triggering write.
type WriteEvent struct {
	Kind     EventKind
	SpiritID string
	Review   *Review
	// SpiritName accompanies review events so the feed does not need a
	// second read of the spirit document.
	SpiritName string
}
