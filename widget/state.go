package widget

import "wisejobs-widget/pkg/jobs"

// State is everything the widget renders from.
type State struct {
	Jobs   []jobs.Job // Current feed snapshot, in feed order
	Open   bool       // Panel visibility
	Notify bool       // "New jobs" banner visibility
}

// Unread reports whether the banner should show for a freshly fetched list.
// With no prior viewed-set every fetch is unread, even an empty one.
func Unread(fetched []jobs.Job, viewed jobs.ViewedIDs, havePrior bool) bool {
	if !havePrior {
		return true
	}
	for _, j := range fetched {
		if !viewed.Contains(j.ID) {
			return true
		}
	}
	return false
}

// Loaded replaces the job list with a new feed snapshot and recomputes the
// unread flag. The previous list is discarded, not merged.
func (s State) Loaded(fetched []jobs.Job, viewed jobs.ViewedIDs, havePrior bool) State {
	s.Jobs = fetched
	s.Notify = Unread(fetched, viewed, havePrior)
	return s
}

// Toggle flips panel visibility.
func (s State) Toggle() State {
	s.Open = !s.Open
	return s
}

// Close hides the panel.
func (s State) Close() State {
	s.Open = false
	return s
}

// Dismiss hides the banner.
func (s State) Dismiss() State {
	s.Notify = false
	return s
}
