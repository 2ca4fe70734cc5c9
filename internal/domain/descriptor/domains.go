package descriptor

import "github.com/kailas-cloud/shelfrec/internal/domain/kind"

// Book columns.
const (
	BookTitle         = "title"
	BookOriginalTitle = "original_title"
	BookAuthors       = "authors"
	BookRating        = "average_rating"
	BookYear          = "original_publication_year"
	BookLanguage      = "language_code"
	BookImage         = "image_url"
)

// Course columns.
const (
	CourseTitle        = "course_title"
	CourseOrganization = "course_organization"
	CourseRating       = "course_rating"
	CourseDifficulty   = "course_difficulty"
	CourseEnrolled     = "course_students_enrolled"
	CourseCertificate  = "course_Certificate_type"
)

// Movie columns.
const (
	MovieTitle  = "Title"
	MovieScore  = "IMDB Score"
	MovieGenre  = "Genre"
	MoviePoster = "Poster"
	MovieLink   = "Imdb Link"
)

// RatingBuckets are the optional per-star rating counts of a book.
var RatingBuckets = []string{"ratings_1", "ratings_2", "ratings_3", "ratings_4", "ratings_5"}

var coverSize = Size{Width: 300, Height: 450}

// Books has no genre column, so the category criterion searches the title
// text for genre keywords. Known limitation, kept on purpose.
func Books() Descriptor {
	fields := []Field{
		{Name: BookTitle, Type: Text, Default: "Unknown Title", Required: true},
		{Name: BookAuthors, Type: Text, Default: "Unknown Author", Required: true},
		{Name: BookRating, Type: Number, Required: true},
		{Name: BookImage, Type: Text, Required: true},
		{Name: BookOriginalTitle, Type: Text, FallbackFrom: BookTitle},
		{Name: BookYear, Type: Number},
		{Name: BookLanguage, Type: Text, Default: "en"},
	}
	for _, b := range RatingBuckets {
		fields = append(fields, Field{Name: b, Type: Number, Optional: true})
	}
	return Descriptor{
		Kind:            kind.Books,
		TitleFields:     []string{BookTitle, BookOriginalTitle},
		CategoryFields:  []string{BookTitle, BookOriginalTitle},
		SecondaryFields: []string{BookAuthors},
		RatingField:     BookRating,
		ImageField:      BookImage,
		ImageCaption:    "No Cover",
		ImageSize:       coverSize,
		RatingScale:     5,
		Fields:          fields,
		DisplayColumns:  []string{BookTitle, BookAuthors, BookRating, BookYear, BookLanguage, BookImage},
		DefaultTopN:     5,
	}
}

// Courses rank by rating, then by enrollment.
func Courses() Descriptor {
	return Descriptor{
		Kind:           kind.Courses,
		TitleFields:    []string{CourseTitle},
		CategoryFields: []string{CourseDifficulty},
		RatingField:    CourseRating,
		TieBreakField:  CourseEnrolled,
		RatingScale:    5,
		Fields: []Field{
			{Name: CourseTitle, Type: Text, Default: "Unknown Course", Required: true},
			{Name: CourseRating, Type: Number, Required: true},
			{Name: CourseDifficulty, Type: Text, Default: "Unknown", Required: true},
			{Name: CourseOrganization, Type: Text, Default: "Unknown"},
			{Name: CourseEnrolled, Type: Enrollment},
			{Name: CourseCertificate, Type: Text, Default: "N/A"},
		},
		DisplayColumns: []string{
			CourseTitle, CourseOrganization, CourseRating,
			CourseDifficulty, CourseEnrolled, CourseCertificate,
		},
		DefaultTopN: 5,
	}
}

// Movies use the IMDB score (0-10).
func Movies() Descriptor {
	return Descriptor{
		Kind:           kind.Movies,
		TitleFields:    []string{MovieTitle},
		CategoryFields: []string{MovieGenre},
		RatingField:    MovieScore,
		ImageField:     MoviePoster,
		ImageCaption:   "No Poster",
		ImageSize:      coverSize,
		RatingScale:    10,
		Fields: []Field{
			{Name: MovieTitle, Type: Text, Default: "Unknown Movie", Required: true},
			{Name: MovieScore, Type: Number, Required: true},
			{Name: MovieGenre, Type: Text, Default: "Unknown", Required: true},
			{Name: MoviePoster, Type: Text, Required: true},
			{Name: MovieLink, Type: Text},
		},
		DisplayColumns: []string{MovieTitle, MovieScore, MovieGenre, MoviePoster, MovieLink},
		DefaultTopN:    8,
	}
}
