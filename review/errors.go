package review

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state
	ErrInvalidTransition = errors.New("review: invalid transition")
	// ErrSubmissionInFlight is returned while a submission for the document is running
	ErrSubmissionInFlight = errors.New("review: submission in flight")
	// ErrNoAnalysis is returned when editing is requested before an analysis result exists
	ErrNoAnalysis = errors.New("review: document has no analysis result")
	// ErrAlreadySubmitted is returned once feedback has been recorded
	ErrAlreadySubmitted = errors.New("review: feedback already submitted")
	// ErrUnknownField is returned for edits to a field the document does not have
	ErrUnknownField = errors.New("review: unknown field")
	// ErrInvalidRating is returned for ratings outside the internal vocabulary
	ErrInvalidRating = errors.New("review: invalid rating")
	// ErrCorrectWithCorrections is returned when CORRECT is chosen while corrections are pending
	ErrCorrectWithCorrections = errors.New("review: CORRECT rating cannot carry corrections")
)
