package classify

// OutcomeKind describes how a failure should be treated by the policy adapter.
type OutcomeKind int

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeSuccess
	OutcomeRetryable
	OutcomeNonRetryable
	OutcomeAbort
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeNonRetryable:
		return "non_retryable"
	case OutcomeAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Outcome describes the classification of a failure.
type Outcome struct {
	Kind   OutcomeKind
	Reason string

	Attributes map[string]string
}

// Classifier maps a failure to an Outcome.
type Classifier interface {
	Classify(err error) Outcome
}

// Func adapts a plain function to Classifier.
type Func func(err error) Outcome

func (f Func) Classify(err error) Outcome { return f(err) }

// Match runs err through classifiers in order and returns the first retryable
// outcome. When none matches it returns the first classifier's verdict (or a
// non-retryable "no_classifier" outcome) and false.
func Match(classifiers []Classifier, err error) (Outcome, bool) {
	var first *Outcome
	for _, c := range classifiers {
		if c == nil {
			continue
		}
		out := c.Classify(err)
		if out.Kind == OutcomeRetryable {
			return out, true
		}
		if first == nil {
			first = &out
		}
	}
	if first != nil {
		return *first, false
	}
	return Outcome{Kind: OutcomeNonRetryable, Reason: "no_classifier"}, false
}
