package domain

import "time"

// Review is a user review of a spirit.
type Review struct {
	ID        string
	SpiritID  string
	UserID    string
	UserName  string
	Rating    int // 1-5
	Title     string
	Content   string
	Nose      string
	Palate    string
	Finish    string
	IsPublic  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecentEntry is one slot of the recent-reviews ring buffer.
type RecentEntry struct {
	ReviewID   string
	SpiritID   string
	SpiritName string
	UserID     string
	UserName   string
	Rating     int
	Title      string
	CreatedAt  time.Time
}

// DedupKey identifies a logical feed entry: one slot per (spirit, author).
func (e RecentEntry) DedupKey() string {
	return e.SpiritID + "|" + e.UserID
}

// EntryOf projects a review onto its feed representation.
func EntryOf(r Review, spiritName string) RecentEntry {
	return RecentEntry{
		ReviewID:   r.ID,
		SpiritID:   r.SpiritID,
		SpiritName: spiritName,
		UserID:     r.UserID,
		UserName:   r.UserName,
		Rating:     r.Rating,
		Title:      r.Title,
		CreatedAt:  r.CreatedAt,
	}
}
