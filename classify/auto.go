package classify

// AutoClassifier delegates to a specific classifier based on the error type,
// or falls back to a generic default.
//
// Behavior:
// - If the error chain carries an HTTPError: uses HTTPClassifier.
// - Otherwise: uses AlwaysRetryOnError.
type AutoClassifier struct{}

func (AutoClassifier) Classify(err error) Outcome {
	if _, ok := asHTTPError(err); ok {
		return HTTPClassifier{}.Classify(err)
	}
	return AlwaysRetryOnError{}.Classify(err)
}
