package intelligence

import "errors"

var (
	// ErrSuggestionStale means the suggestion's target event was modified by
	// the user after the suggestion was created, so approving it would clobber
	// the user's edit.
	ErrSuggestionStale = errors.New("suggestion target was modified after the suggestion was created")
	// ErrSuggestionNotPending means the suggestion was already reviewed.
	ErrSuggestionNotPending = errors.New("suggestion is not pending review")
)
