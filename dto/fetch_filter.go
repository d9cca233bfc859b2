package dto

import "time"

const DefaultFetchLimit = 50

type FetchFilter struct {
	Since           *time.Time
	Limit           int
	FromContains    string
	SubjectContains string
	Mailbox         string
	// OnlyUnseen: nil falls back to the configured default search.
	OnlyUnseen *bool
}

// EffectiveLimit clamps the limit to at least 1, 0 meaning the default.
func (f FetchFilter) EffectiveLimit() int {
	if f.Limit == 0 {
		return DefaultFetchLimit
	}
	if f.Limit < 1 {
		return 1
	}
	return f.Limit
}

// EffectiveSince defaults to seven days before now.
func (f FetchFilter) EffectiveSince(now time.Time) time.Time {
	if f.Since != nil {
		return *f.Since
	}
	return now.AddDate(0, 0, -7)
}
