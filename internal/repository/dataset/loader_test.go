package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
)

func parse(t *testing.T, k kind.Kind, data string) error {
	t.Helper()
	_, err := NewLoader(0).Parse(context.Background(), k, strings.NewReader(data))
	return err
}

func TestParse_BooksFillsMissingValues(t *testing.T) {
	data := "book_id,title,authors,average_rating,original_publication_year,original_title,language_code,image_url\n" +
		"1,Dune,Frank Herbert,4.25,1965,,eng,https://img/dune.jpg\n" +
		"2,,,,NaN,,,\n"

	cat, err := NewLoader(0).Parse(context.Background(), kind.Books, strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cat.Len())
	}

	dune := cat.At(0)
	if dune.Number(descriptor.BookRating) != 4.25 {
		t.Errorf("rating = %v, want 4.25", dune.Number(descriptor.BookRating))
	}
	if dune.Text(descriptor.BookOriginalTitle) != "Dune" {
		t.Errorf("original_title = %q, want fallback to title", dune.Text(descriptor.BookOriginalTitle))
	}
	if dune.Text("book_id") != "1" {
		t.Errorf("extra column book_id = %q, want 1", dune.Text("book_id"))
	}
	if dune.Lower(descriptor.BookTitle) != "dune" {
		t.Errorf("lowercase title = %q", dune.Lower(descriptor.BookTitle))
	}

	blank := cat.At(1)
	checks := map[string]string{
		descriptor.BookTitle:         "Unknown Title",
		descriptor.BookAuthors:       "Unknown Author",
		descriptor.BookOriginalTitle: "Unknown Title",
		descriptor.BookLanguage:      "en",
		descriptor.BookImage:         "",
	}
	for field, want := range checks {
		if got := blank.Text(field); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
	if blank.Number(descriptor.BookRating) != 0 || blank.Number(descriptor.BookYear) != 0 {
		t.Error("missing numbers must fill with 0")
	}
}

func TestParse_OptionalColumns(t *testing.T) {
	without := "title,authors,average_rating,image_url\nDune,Herbert,4.2,\n"
	cat, err := NewLoader(0).Parse(context.Background(), kind.Books, strings.NewReader(without))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slices.Contains(cat.Columns(), "ratings_5") {
		t.Error("absent optional column must not be added")
	}
	if !slices.Contains(cat.Columns(), descriptor.BookLanguage) {
		t.Error("absent non-optional column must be added with its fill")
	}

	with := "title,authors,average_rating,image_url,ratings_5\nDune,Herbert,4.2,,1200\n"
	cat, err = NewLoader(0).Parse(context.Background(), kind.Books, strings.NewReader(with))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cat.At(0).Number("ratings_5"); got != 1200 {
		t.Errorf("ratings_5 = %v, want 1200", got)
	}
}

func TestParse_CoursesNormalization(t *testing.T) {
	data := "course_title,course_organization,course_Certificate_type,course_rating,course_difficulty,course_students_enrolled\n" +
		"Python,UMich,COURSE,4.8,Beginner,5.3k\n" +
		"Rust,,,bad,,2m\n" +
		"Go,Google,,4.5,Mixed,\n"

	cat, err := NewLoader(0).Parse(context.Background(), kind.Courses, strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		row        int
		enrolled   float64
		rating     float64
		org        string
		difficulty string
		cert       string
	}{
		{0, 5300, 4.8, "UMich", "Beginner", "COURSE"},
		{1, 2_000_000, 0, "Unknown", "Unknown", "N/A"},
		{2, 0, 4.5, "Google", "Mixed", "N/A"},
	}
	for _, tc := range tests {
		it := cat.At(tc.row)
		if got := it.Number(descriptor.CourseEnrolled); got != tc.enrolled {
			t.Errorf("row %d enrolled = %v, want %v", tc.row, got, tc.enrolled)
		}
		if got := it.Number(descriptor.CourseRating); got != tc.rating {
			t.Errorf("row %d rating = %v, want %v", tc.row, got, tc.rating)
		}
		if got := it.Text(descriptor.CourseOrganization); got != tc.org {
			t.Errorf("row %d org = %q, want %q", tc.row, got, tc.org)
		}
		if got := it.Text(descriptor.CourseDifficulty); got != tc.difficulty {
			t.Errorf("row %d difficulty = %q, want %q", tc.row, got, tc.difficulty)
		}
		if got := it.Text(descriptor.CourseCertificate); got != tc.cert {
			t.Errorf("row %d certificate = %q, want %q", tc.row, got, tc.cert)
		}
	}
}

func TestParse_MoviesMissingLinkColumn(t *testing.T) {
	data := "Title,IMDB Score,Genre,Poster\nUp,8.2,Animation|Adventure,https://p/up.jpg\n"

	cat, err := NewLoader(0).Parse(context.Background(), kind.Movies, strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Contains(cat.Columns(), descriptor.MovieLink) {
		t.Errorf("columns %v must include %q", cat.Columns(), descriptor.MovieLink)
	}
	if got := cat.At(0).Text(descriptor.MovieLink); got != "" {
		t.Errorf("Imdb Link = %q, want empty", got)
	}
}

func TestParse_Latin1Fallback(t *testing.T) {
	// "Les Misérables" with é encoded as a single latin-1 byte.
	data := []byte("title,authors,average_rating,image_url\nLes Mis\xe9rables,Victor Hugo,4.1,\n")

	cat, err := NewLoader(0).Parse(context.Background(), kind.Books, strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cat.At(0).Text(descriptor.BookTitle); got != "Les Misérables" {
		t.Errorf("title = %q, want Les Misérables", got)
	}
}

func TestParse_StripsBOM(t *testing.T) {
	data := "\xef\xbb\xbfTitle,IMDB Score,Genre,Poster\nUp,8.2,Animation,\n"

	cat, err := NewLoader(0).Parse(context.Background(), kind.Movies, strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cat.At(0).Text(descriptor.MovieTitle); got != "Up" {
		t.Errorf("Title = %q, want Up", got)
	}
}

func TestParse_ShortRowsPadded(t *testing.T) {
	data := "Title,IMDB Score,Genre,Poster\nUp,8.2\n"

	cat, err := NewLoader(0).Parse(context.Background(), kind.Movies, strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cat.At(0).Text(descriptor.MovieGenre); got != "Unknown" {
		t.Errorf("Genre = %q, want Unknown", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		kind kind.Kind
		data string
	}{
		{"empty file", kind.Movies, ""},
		{"missing columns", kind.Books, "title,authors\nDune,Herbert\n"},
		{"too many fields", kind.Movies, "Title,IMDB Score,Genre,Poster\nUp,8.2,Animation,,extra\n"},
		{"bare quote", kind.Movies, "Title,IMDB Score,Genre,Poster\n\"Up,8.2,Animation,\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := parse(t, tc.kind, tc.data); !errors.Is(err, domain.ErrDatasetInvalid) {
				t.Fatalf("expected ErrDatasetInvalid, got %v", err)
			}
		})
	}
}

func TestParse_MissingColumnsNamed(t *testing.T) {
	err := parse(t, kind.Courses, "course_title\nGo\n")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, col := range []string{descriptor.CourseRating, descriptor.CourseDifficulty} {
		if !strings.Contains(err.Error(), col) {
			t.Errorf("error %q should name column %q", err, col)
		}
	}
}

func TestParse_UnknownDomain(t *testing.T) {
	if err := parse(t, kind.Kind("music"), "a\n1\n"); !errors.Is(err, domain.ErrUnknownDomain) {
		t.Fatalf("expected ErrUnknownDomain, got %v", err)
	}
}

func TestParse_SizeLimit(t *testing.T) {
	_, err := NewLoader(10).Parse(context.Background(), kind.Movies,
		strings.NewReader("Title,IMDB Score,Genre,Poster\n"))
	if !errors.Is(err, domain.ErrDatasetInvalid) {
		t.Fatalf("expected ErrDatasetInvalid, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.csv")
	if err := os.WriteFile(path, []byte("Title,IMDB Score,Genre,Poster\nUp,8.2,Animation,\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cat, err := NewLoader(0).Load(context.Background(), kind.Movies, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Kind() != kind.Movies || cat.Len() != 1 {
		t.Errorf("got kind=%s len=%d", cat.Kind(), cat.Len())
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := NewLoader(0).Load(context.Background(), kind.Books, filepath.Join(t.TempDir(), "books.csv"))
	if !errors.Is(err, domain.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}
