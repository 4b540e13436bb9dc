package domain

import "time"

// Genres lists the catalog's supported genre values.
var Genres = []string{
	"Fiction",
	"Children",
	"Biography",
	"Science",
	"Science Fiction",
	"Fantasy",
	"Other",
}

// ValidGenre reports whether genre is one of the supported values.
func ValidGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Book represents the canonical book entity in the database/service.
// Authors, Publisher, and PublishedDate come from the lookup service and
// hold the literal "missing" when the upstream record lacks them.
type Book struct {
	ID            string
	Title         string
	ISBN          string
	Genre         string
	Authors       string
	Publisher     string
	PublishedDate string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
