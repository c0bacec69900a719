package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FeedSort selects the ordering of a feed page.
type FeedSort string

const (
	FeedSortHot FeedSort = "hot"
	FeedSortNew FeedSort = "new"
	FeedSortTop FeedSort = "top"
)

// ParseFeedSort accepts hot, new or top; an empty value means hot.
func ParseFeedSort(raw string) (FeedSort, error) {
	switch FeedSort(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FeedSortHot:
		return FeedSortHot, nil
	case FeedSortNew:
		return FeedSortNew, nil
	case FeedSortTop:
		return FeedSortTop, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown sort %q", raw))
	}
}

// pinnedCursorPrefix marks a cursor taken from a pinned row, so the next
// page continues through the pinned head before the regular posts.
const pinnedCursorPrefix = "pinned:"

// FeedCursor is the decoded sort key of the last row of the previous page.
// Only the field matching Sort is meaningful.
type FeedCursor struct {
	Sort      FeedSort
	Pinned    bool
	HotScore  float64
	CreatedAt time.Time
	NetScore  int
}

// ParseFeedCursor decodes an opaque cursor for the given sort.
func ParseFeedCursor(sort FeedSort, raw string) (*FeedCursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	cursor := &FeedCursor{Sort: sort}
	if rest, ok := strings.CutPrefix(raw, pinnedCursorPrefix); ok {
		cursor.Pinned = true
		raw = rest
	}
	switch sort {
	case FeedSortHot:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, NewValidationError("invalid cursor")
		}
		cursor.HotScore = v
	case FeedSortNew:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, NewValidationError("invalid cursor")
		}
		cursor.CreatedAt = t.UTC()
	case FeedSortTop:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, NewValidationError("invalid cursor")
		}
		cursor.NetScore = v
	default:
		return nil, NewValidationError("invalid cursor")
	}
	return cursor, nil
}

// CursorFor encodes the sort key of p as an opaque cursor.
func CursorFor(sort FeedSort, p *Post) string {
	var key string
	switch sort {
	case FeedSortNew:
		key = p.CreatedAt.UTC().Format(time.RFC3339Nano)
	case FeedSortTop:
		key = strconv.Itoa(p.NetScore())
	default:
		key = strconv.FormatFloat(p.HotScore, 'f', -1, 64)
	}
	if p.IsPinned {
		return pinnedCursorPrefix + key
	}
	return key
}
