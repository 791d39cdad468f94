package model

// Target is a resolved network address selected for scanning.
type Target string

func (t Target) String() string {
	return string(t)
}
