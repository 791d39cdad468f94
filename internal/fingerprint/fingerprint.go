// Package fingerprint turns the textual output of nmap OS detection into
// a coarse classification. It never fails: output which can't be
// understood is classified as Unparseable.
package fingerprint

import (
	"regexp"
	"strings"

	"github.com/CZERTAINLY/osfp/internal/model"
)

const (
	DetailEmpty        = "no output received"
	DetailNoExact      = "No exact OS match found"
	DetailTooMany      = "Too many fingerprints matched"
	DetailInconclusive = "OS detection performed, but inconclusive"
	DetailUnparseable  = "could not parse OS fingerprint"
)

var (
	reOSDetails = regexp.MustCompile(`OS details: ([^\r\n]+)`)
	reRunning   = regexp.MustCompile(`Running: ([^\r\n]+)`)
)

// markers are checked in order, the first one contained in the output wins
var markers = []struct {
	text   string
	kind   model.Kind
	detail string
}{
	{text: "No exact OS matches", kind: model.KindNoExactMatch, detail: DetailNoExact},
	{text: "Too many fingerprints match", kind: model.KindTooManyMatches, detail: DetailTooMany},
	{text: "OS detection performed", kind: model.KindInconclusiveDetection, detail: DetailInconclusive},
}

// Classify classifies the raw output of a scan. An "OS details:" line
// always wins over a "Running:" line, only the first matching line of
// each is considered.
func Classify(outcome model.ScanOutcome) model.Fingerprint {
	kind, detail := ClassifyText(outcome.Raw)
	return model.Fingerprint{
		Target: outcome.Target,
		Kind:   kind,
		Detail: detail,
	}
}

// ClassifyText is Classify over a bare string.
func ClassifyText(raw string) (model.Kind, string) {
	if raw == "" {
		return model.KindEmpty, DetailEmpty
	}

	if m := reOSDetails.FindStringSubmatch(raw); m != nil {
		return model.KindExactMatch, m[1]
	}
	if m := reRunning.FindStringSubmatch(raw); m != nil {
		return model.KindGuessedMatch, m[1]
	}

	for _, m := range markers {
		if strings.Contains(raw, m.text) {
			return m.kind, m.detail
		}
	}

	return model.KindUnparseable, DetailUnparseable
}
