package kind

import "fmt"

// Kind is a recommendation domain.
type Kind string

// Domain constants.
const (
	Books   Kind = "books"
	Courses Kind = "courses"
	// Movies uses a 0-10 rating scale, the others 0-5.
	Movies Kind = "movies"
)

// All lists the supported domains in display order.
var All = []Kind{Books, Courses, Movies}

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == Books || k == Courses || k == Movies
}

// Parse converts a raw path segment into a Kind.
func Parse(raw string) (Kind, error) {
	k := Kind(raw)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown domain %q", raw)
	}
	return k, nil
}
