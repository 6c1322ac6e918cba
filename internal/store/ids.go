package store

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ObjectIDPattern is the shape of a canonical object id: a three-letter
// object type, a three-character region, and ten alphanumerics.
var ObjectIDPattern = regexp.MustCompile(`^[A-Za-z]{3}[A-Za-z0-9]{3}[A-Za-z0-9]{10}$`)

// ValidObjectID reports whether id has the canonical object id shape.
func ValidObjectID(id string) bool {
	return ObjectIDPattern.MatchString(id)
}

const objectIDSuffixLen = 10

// NewObjectID generates an id like "RESRUN0A1B2C3D4E". objectType and
// region are padded or truncated to three characters.
func NewObjectID(objectType, region string) string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	suffix := strings.ToUpper(n.Text(36))
	if len(suffix) < objectIDSuffixLen {
		suffix = strings.Repeat("0", objectIDSuffixLen-len(suffix)) + suffix
	}
	return fixed3(objectType, "ORG", false) + fixed3(region, "RUN", true) + suffix[len(suffix)-objectIDSuffixLen:]
}

func fixed3(s, fallback string, digits bool) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (digits && r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = fallback
	}
	for len(out) < 3 {
		out += "X"
	}
	return out[:3]
}

// scheduleNamespace scopes deterministic schedule ids.
var scheduleNamespace = uuid.MustParse("4f6a1f0e-8c1b-5b7e-9d3a-2a6c0e1b7f45")

// ScheduleID derives a stable id for one opening period so re-ingesting
// the same establishment updates rows instead of duplicating them.
func ScheduleID(objectID string, days []string, amStart, amFinish, pmStart, pmFinish, legacyID string) string {
	key := strings.Join([]string{
		objectID, strings.Join(days, ","), amStart, amFinish, pmStart, pmFinish, legacyID,
	}, "|")
	return uuid.NewSHA1(scheduleNamespace, []byte(key)).String()
}
