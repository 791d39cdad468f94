package model

// Kind is the label the classifier assigns to nmap output.
type Kind int

const (
	KindEmpty Kind = iota
	KindExactMatch
	KindGuessedMatch
	KindNoExactMatch
	KindTooManyMatches
	KindInconclusiveDetection
	KindUnparseable
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "Empty"
	case KindExactMatch:
		return "ExactMatch"
	case KindGuessedMatch:
		return "GuessedMatch"
	case KindNoExactMatch:
		return "NoExactMatch"
	case KindTooManyMatches:
		return "TooManyMatches"
	case KindInconclusiveDetection:
		return "InconclusiveDetection"
	case KindUnparseable:
		return "Unparseable"
	default:
		return "Unknown"
	}
}

// Identified reports whether the kind carries an OS name in its detail.
func (k Kind) Identified() bool {
	return k == KindExactMatch || k == KindGuessedMatch
}

// Fingerprint is the classified OS detection result for one target.
type Fingerprint struct {
	Target Target
	Kind   Kind
	Detail string
}
