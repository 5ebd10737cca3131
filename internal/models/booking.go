package models

import (
	"time"

	"github.com/lib/pq"
)

// ShowTimeLayout is how show start times are rendered.
const ShowTimeLayout = "2006-01-02T15:04:05.000000Z"

type Venue struct {
	ID                 int            `gorm:"primaryKey" json:"id"`
	Name               string         `gorm:"not null" json:"name"`
	City               string         `gorm:"not null" json:"city"`
	State              string         `gorm:"not null" json:"state"`
	Address            string         `json:"address"`
	Phone              string         `json:"phone"`
	ImageLink          string         `json:"image_link"`
	FacebookLink       string         `json:"facebook_link"`
	Website            string         `json:"website"`
	SeekingTalent      bool           `json:"seeking_talent"`
	SeekingDescription string         `json:"seeking_description"`
	Genres             pq.StringArray `gorm:"type:text[]" json:"genres"`
	Shows              []Show         `gorm:"foreignKey:VenueID" json:"-"`
}

type Artist struct {
	ID                 int            `gorm:"primaryKey" json:"id"`
	Name               string         `gorm:"not null" json:"name"`
	City               string         `gorm:"not null" json:"city"`
	State              string         `gorm:"not null" json:"state"`
	Phone              string         `json:"phone"`
	ImageLink          string         `json:"image_link"`
	FacebookLink       string         `json:"facebook_link"`
	Website            string         `json:"website"`
	SeekingVenue       bool           `json:"seeking_venue"`
	SeekingDescription string         `json:"seeking_description"`
	Genres             pq.StringArray `gorm:"type:text[]" json:"genres"`
	Shows              []Show         `gorm:"foreignKey:ArtistID" json:"-"`
}

// Show books an artist at a venue. The triple is the primary key.
type Show struct {
	VenueID   int       `gorm:"primaryKey;autoIncrement:false" json:"venue_id"`
	ArtistID  int       `gorm:"primaryKey;autoIncrement:false" json:"artist_id"`
	StartTime time.Time `gorm:"primaryKey" json:"start_time"`
	Venue     Venue     `gorm:"foreignKey:VenueID" json:"-"`
	Artist    Artist    `gorm:"foreignKey:ArtistID" json:"-"`
}

// FormatShowTime renders t in UTC with microsecond precision.
func FormatShowTime(t time.Time) string {
	return t.UTC().Format(ShowTimeLayout)
}

// VenueRequest is the body of the venue create and edit forms.
type VenueRequest struct {
	Name               string   `form:"name" json:"name" binding:"required"`
	City               string   `form:"city" json:"city" binding:"required"`
	State              string   `form:"state" json:"state" binding:"required,len=2"`
	Address            string   `form:"address" json:"address" binding:"required"`
	Phone              string   `form:"phone" json:"phone"`
	Genres             []string `form:"genres" json:"genres"`
	ImageLink          string   `form:"image_link" json:"image_link"`
	FacebookLink       string   `form:"facebook_link" json:"facebook_link"`
	Website            string   `form:"website_link" json:"website_link"`
	SeekingTalent      bool     `form:"seeking_talent" json:"seeking_talent"`
	SeekingDescription string   `form:"seeking_description" json:"seeking_description"`
}

// Apply copies the form onto v. ID and shows are untouched.
func (r VenueRequest) Apply(v *Venue) {
	v.Name = r.Name
	v.City = r.City
	v.State = r.State
	v.Address = r.Address
	v.Phone = r.Phone
	v.Genres = pq.StringArray(r.Genres)
	v.ImageLink = r.ImageLink
	v.FacebookLink = r.FacebookLink
	v.Website = r.Website
	v.SeekingTalent = r.SeekingTalent
	v.SeekingDescription = r.SeekingDescription
}

// ArtistRequest is the body of the artist create and edit forms.
type ArtistRequest struct {
	Name               string   `form:"name" json:"name" binding:"required"`
	City               string   `form:"city" json:"city" binding:"required"`
	State              string   `form:"state" json:"state" binding:"required,len=2"`
	Phone              string   `form:"phone" json:"phone"`
	Genres             []string `form:"genres" json:"genres"`
	ImageLink          string   `form:"image_link" json:"image_link"`
	FacebookLink       string   `form:"facebook_link" json:"facebook_link"`
	Website            string   `form:"website_link" json:"website_link"`
	SeekingVenue       bool     `form:"seeking_venue" json:"seeking_venue"`
	SeekingDescription string   `form:"seeking_description" json:"seeking_description"`
}

func (r ArtistRequest) Apply(a *Artist) {
	a.Name = r.Name
	a.City = r.City
	a.State = r.State
	a.Phone = r.Phone
	a.Genres = pq.StringArray(r.Genres)
	a.ImageLink = r.ImageLink
	a.FacebookLink = r.FacebookLink
	a.Website = r.Website
	a.SeekingVenue = r.SeekingVenue
	a.SeekingDescription = r.SeekingDescription
}

// ShowRequest is the body of the show create form. Form posts use the
// "2006-01-02 15:04:05" layout, JSON bodies RFC 3339.
type ShowRequest struct {
	ArtistID  int       `form:"artist_id" json:"artist_id" binding:"required"`
	VenueID   int       `form:"venue_id" json:"venue_id" binding:"required"`
	StartTime time.Time `form:"start_time" json:"start_time" time_format:"2006-01-02 15:04:05" time_utc:"1" binding:"required"`
}

// SearchRequest carries the search box value.
type SearchRequest struct {
	SearchTerm string `form:"search_term" json:"search_term"`
}

// AreaVenue is a venue line in the venues listing.
type AreaVenue struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	NumUpcomingShows int    `json:"num_upcoming_shows"`
}

// Area groups venues sharing a city and state.
type Area struct {
	City   string      `json:"city"`
	State  string      `json:"state"`
	Venues []AreaVenue `json:"venues"`
}

// SearchResult is one hit of a venue or artist search.
type SearchResult struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	NumUpcomingShows int    `json:"num_upcoming_shows"`
}

// VenueShow is a show as seen from a venue page.
type VenueShow struct {
	ArtistID        int    `json:"artist_id"`
	ArtistName      string `json:"artist_name"`
	ArtistImageLink string `json:"artist_image_link"`
	StartTime       string `json:"start_time"`
}

// ArtistShow is a show as seen from an artist page.
type ArtistShow struct {
	VenueID        int    `json:"venue_id"`
	VenueName      string `json:"venue_name"`
	VenueImageLink string `json:"venue_image_link"`
	StartTime      string `json:"start_time"`
}

// VenueDetail is the venue page.
type VenueDetail struct {
	Venue
	PastShows          []VenueShow `json:"past_shows"`
	UpcomingShows      []VenueShow `json:"upcoming_shows"`
	PastShowsCount     int         `json:"past_shows_count"`
	UpcomingShowsCount int         `json:"upcoming_shows_count"`
}

// ArtistDetail is the artist page.
type ArtistDetail struct {
	Artist
	PastShows          []ArtistShow `json:"past_shows"`
	UpcomingShows      []ArtistShow `json:"upcoming_shows"`
	PastShowsCount     int          `json:"past_shows_count"`
	UpcomingShowsCount int          `json:"upcoming_shows_count"`
}

// ShowListing is a line of the shows page.
type ShowListing struct {
	VenueID         int    `json:"venue_id"`
	VenueName       string `json:"venue_name"`
	ArtistID        int    `json:"artist_id"`
	ArtistName      string `json:"artist_name"`
	ArtistImageLink string `json:"artist_image_link"`
	StartTime       string `json:"start_time"`
}

// IsPast reports whether a show starting at start has already begun at now.
func IsPast(start, now time.Time) bool {
	return !start.After(now)
}

// NewVenueDetail splits the venue's shows into past and upcoming. Each show
// must have its Artist loaded.
func NewVenueDetail(v Venue, now time.Time) VenueDetail {
	d := VenueDetail{Venue: v, PastShows: []VenueShow{}, UpcomingShows: []VenueShow{}}
	for _, s := range v.Shows {
		vs := VenueShow{
			ArtistID:        s.ArtistID,
			ArtistName:      s.Artist.Name,
			ArtistImageLink: s.Artist.ImageLink,
			StartTime:       FormatShowTime(s.StartTime),
		}
		if IsPast(s.StartTime, now) {
			d.PastShows = append(d.PastShows, vs)
		} else {
			d.UpcomingShows = append(d.UpcomingShows, vs)
		}
	}
	d.PastShowsCount = len(d.PastShows)
	d.UpcomingShowsCount = len(d.UpcomingShows)
	return d
}

// NewArtistDetail splits the artist's shows into past and upcoming. Each
// show must have its Venue loaded.
func NewArtistDetail(a Artist, now time.Time) ArtistDetail {
	d := ArtistDetail{Artist: a, PastShows: []ArtistShow{}, UpcomingShows: []ArtistShow{}}
	for _, s := range a.Shows {
		as := ArtistShow{
			VenueID:        s.VenueID,
			VenueName:      s.Venue.Name,
			VenueImageLink: s.Venue.ImageLink,
			StartTime:      FormatShowTime(s.StartTime),
		}
		if IsPast(s.StartTime, now) {
			d.PastShows = append(d.PastShows, as)
		} else {
			d.UpcomingShows = append(d.UpcomingShows, as)
		}
	}
	d.PastShowsCount = len(d.PastShows)
	d.UpcomingShowsCount = len(d.UpcomingShows)
	return d
}

// GroupAreas groups venues by (city, state) in order of first appearance.
// upcoming maps venue id to its number of upcoming shows.
func GroupAreas(venues []Venue, upcoming map[int]int) []Area {
	areas := make([]Area, 0)
	index := make(map[[2]string]int)
	for _, v := range venues {
		key := [2]string{v.City, v.State}
		i, ok := index[key]
		if !ok {
			i = len(areas)
			index[key] = i
			areas = append(areas, Area{City: v.City, State: v.State, Venues: []AreaVenue{}})
		}
		areas[i].Venues = append(areas[i].Venues, AreaVenue{
			ID:               v.ID,
			Name:             v.Name,
			NumUpcomingShows: upcoming[v.ID],
		})
	}
	return areas
}

// ArtistSummary is a line of the artists listing.
type ArtistSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
