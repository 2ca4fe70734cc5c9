package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
)

const noMatches = "No items match the current filters."

// renderCards prints v as numbered text cards.
func renderCards(w io.Writer, v view) {
	if len(v.cards) == 0 {
		fmt.Fprintln(w, noMatches)
		return
	}

	d, err := descriptor.For(v.kind)
	if err != nil {
		return
	}
	for _, c := range v.cards {
		title := c.fields[d.TitleFields[0]]
		fmt.Fprintf(w, "%2d. %s\n", c.rank, title)
		for _, line := range detailLines(d, c) {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

func detailLines(d descriptor.Descriptor, c card) []string {
	f := c.fields
	rating := "rating " + formatRating(f[d.RatingField], d.RatingScale)

	switch d.Kind {
	case kind.Books:
		byline := "by " + f[descriptor.BookAuthors]
		if y := f[descriptor.BookYear]; y != "" && y != "0" {
			byline += " (" + y + ")"
		}
		if orig := f[descriptor.BookOriginalTitle]; orig != "" && orig != f[descriptor.BookTitle] {
			return []string{byline, "original title: " + orig, rating}
		}
		return []string{byline, rating}
	case kind.Courses:
		return []string{
			joinNonEmpty(" | ", f[descriptor.CourseOrganization], f[descriptor.CourseDifficulty],
				f[descriptor.CourseCertificate]),
			rating + " | " + formatEnrollment(f[descriptor.CourseEnrolled]) + " enrolled",
		}
	case kind.Movies:
		lines := []string{f[descriptor.MovieGenre], rating}
		if link := f[descriptor.MovieLink]; link != "" {
			lines = append(lines, link)
		}
		return lines
	default:
		return []string{rating}
	}
}

func formatRating(raw string, scale float64) string {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v = 0
	}
	return fmt.Sprintf("%.2f/%g", v, scale)
}

// formatEnrollment prints an enrollment count the way datasets abbreviate it.
func formatEnrollment(raw string) string {
	n := catalog.ParseEnrollment(raw)
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1e6, 'f', -1, 64) + "m"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1e3, 'f', -1, 64) + "k"
	default:
		return strconv.FormatInt(n, 10)
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
