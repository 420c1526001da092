// Package band defines the music band aggregate and its owned sub-entities.
// This package has no transport or persistence dependencies and is shared by
// the import pipeline and the storage layer.
package band

import (
	"fmt"
	"time"
)

// MusicGenre classifies a band. Values match the wire format of import files.
type MusicGenre string

const (
	GenreProgressiveRock MusicGenre = "PROGRESSIVE_ROCK"
	GenreSoul            MusicGenre = "SOUL"
	GenreRock            MusicGenre = "ROCK"
	GenrePostRock        MusicGenre = "POST_ROCK"
	GenrePunkRock        MusicGenre = "PUNK_ROCK"
	GenrePostPunk        MusicGenre = "POST_PUNK"
)

// ParseMusicGenre converts a wire value to a MusicGenre.
func ParseMusicGenre(s string) (MusicGenre, error) {
	switch MusicGenre(s) {
	case GenreProgressiveRock, GenreSoul, GenreRock, GenrePostRock, GenrePunkRock, GenrePostPunk:
		return MusicGenre(s), nil
	}
	return "", fmt.Errorf("unknown music genre %q", s)
}

// Color is used for a person's eye and hair color.
type Color string

const (
	ColorBlack  Color = "BLACK"
	ColorOrange Color = "ORANGE"
	ColorBrown  Color = "BROWN"
	ColorGreen  Color = "GREEN"
	ColorBlue   Color = "BLUE"
)

// ParseColor converts a wire value to a Color.
func ParseColor(s string) (Color, error) {
	switch Color(s) {
	case ColorBlack, ColorOrange, ColorBrown, ColorGreen, ColorBlue:
		return Color(s), nil
	}
	return "", fmt.Errorf("unknown color %q", s)
}

// Country is a person's nationality.
type Country string

const (
	CountryFrance   Country = "FRANCE"
	CountryIndia    Country = "INDIA"
	CountryThailand Country = "THAILAND"
	CountryUSA      Country = "USA"
	CountryUK       Country = "UK"
)

// ParseCountry converts a wire value to a Country.
func ParseCountry(s string) (Country, error) {
	switch Country(s) {
	case CountryFrance, CountryIndia, CountryThailand, CountryUSA, CountryUK:
		return Country(s), nil
	}
	return "", fmt.Errorf("unknown country %q", s)
}

// Location is where a person lives. X is optional.
type Location struct {
	ID int64
	X  *int64
	Y  int64
	Z  int64
}

// Person is a band's front man. References its location by id.
type Person struct {
	ID          int64
	Name        string
	EyeColor    Color
	HairColor   Color
	LocationID  int64
	Weight      float64
	Nationality Country
}

// Coordinates positions a band on the map. Y is optional.
type Coordinates struct {
	ID int64
	X  int64
	Y  *float64
}

// Album is a band's best album. Sales is optional.
type Album struct {
	ID     int64
	Name   string
	Tracks int64
	Sales  *int64
}

// MusicBand is the top-level aggregate. Sub-entities are referenced by id;
// there are no cascading writes.
type MusicBand struct {
	ID                   int64
	Name                 string
	CoordinatesID        int64
	Genre                MusicGenre
	NumberOfParticipants int64
	SinglesCount         int64
	Description          string
	BestAlbumID          int64
	AlbumsCount          int64
	EstablishmentDate    time.Time
	FrontManID           int64
	CreatedBy            string
}
