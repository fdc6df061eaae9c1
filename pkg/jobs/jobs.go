// Package jobs contains the core domain types for the Wise jobs widget.
package jobs

import "slices"

// StorageKey is the key the viewed-id record is persisted under.
const StorageKey = "viewedJobIds"

// Job represents a single posting in the feed.
type Job struct {
	Title     string `json:"title"`
	Permalink string `json:"permalink"` // Opened in a new browsing context
	Office    string `json:"office"`
	Team      string `json:"team"`
	ID        int64  `json:"id"` // Unique within one feed snapshot
}

// Payload is the data section of a feed response.
type Payload struct {
	Message    string `json:"message"`
	Posts      []Job  `json:"posts"`
	MaxPages   int    `json:"max_pages"`
	TotalCount int    `json:"total_count"`
}

// Response is the transport envelope returned by the job search endpoint.
// Only Data.Posts is consumed.
type Response struct {
	Data Payload `json:"data"`
	Code int     `json:"code"`
}

// ViewedIDs is the set of job ids the user has already seen, stored as an
// ordered list.
type ViewedIDs []int64

// Contains reports whether id was previously seen.
func (v ViewedIDs) Contains(id int64) bool {
	return slices.Contains(v, id)
}

// IDs returns the ids of jobs in feed order.
func IDs(list []Job) []int64 {
	ids := make([]int64, 0, len(list))
	for _, j := range list {
		ids = append(ids, j.ID)
	}
	return ids
}
