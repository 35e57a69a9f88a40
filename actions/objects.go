package actions

import (
	"fmt"
	"strings"
)

// ChallengeObject is a part the recognizer can classify. Its value is the
// column of that part in the classifier output.
type ChallengeObject int

const (
	GearboxTop ChallengeObject = iota
	GearboxBottom
	LargeGear
	SmallGear
	Bolt
	NoObject
)

// numChallengeObjects is the width of one classifier row.
const numChallengeObjects = int(NoObject) + 1

var challengeObjectNames = [...]string{
	GearboxTop:    "GEARBOX_TOP",
	GearboxBottom: "GEARBOX_BOTTOM",
	LargeGear:     "LARGE_GEAR",
	SmallGear:     "SMALL_GEAR",
	Bolt:          "BOLT",
	NoObject:      "NONE",
}

func (o ChallengeObject) String() string {
	if !o.Valid() {
		return fmt.Sprintf("ChallengeObject(%d)", int(o))
	}
	return challengeObjectNames[o]
}

// Valid reports whether o names a known part.
func (o ChallengeObject) Valid() bool { return o >= GearboxTop && o <= NoObject }

// Column returns the classifier column of o.
func (o ChallengeObject) Column() int { return int(o) }

// ParseChallengeObject accepts a case-insensitive name such as "small_gear".
func ParseChallengeObject(name string) (ChallengeObject, error) {
	up := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range challengeObjectNames {
		if n == up {
			return ChallengeObject(i), nil
		}
	}
	return 0, fmt.Errorf("unknown challenge object %q", name)
}

// challengeObjectFrom converts a run argument. Only names and typed
// ChallengeObject values are accepted; bare numbers are ambiguous between
// message constants and classifier columns.
func challengeObjectFrom(v any) (ChallengeObject, error) {
	switch t := v.(type) {
	case ChallengeObject:
		if t.Valid() {
			return t, nil
		}
	case string:
		return ParseChallengeObject(t)
	}
	return 0, fmt.Errorf("expected a challenge object name, got %v (%T)", v, v)
}

// argmaxColumn returns the row whose value in column col is largest. The flat
// classifications are read as rows of numChallengeObjects values.
func argmaxColumn(classes []float64, col int) (int, error) {
	if len(classes) == 0 || len(classes)%numChallengeObjects != 0 {
		return 0, fmt.Errorf("classification of length %d is not a multiple of %d", len(classes), numChallengeObjects)
	}
	best := 0
	for row := 1; row < len(classes)/numChallengeObjects; row++ {
		if classes[row*numChallengeObjects+col] > classes[best*numChallengeObjects+col] {
			best = row
		}
	}
	return best, nil
}
