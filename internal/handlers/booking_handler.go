package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shakthivel10/FSND/internal/middleware"
	"github.com/shakthivel10/FSND/internal/models"
)

type VenueStore interface {
	Areas(ctx context.Context, now time.Time) ([]models.Area, error)
	Search(ctx context.Context, term string, now time.Time) ([]models.SearchResult, error)
	GetWithShows(ctx context.Context, id int) (*models.Venue, error)
	Create(ctx context.Context, venue *models.Venue) error
	Update(ctx context.Context, id int, req models.VenueRequest) (*models.Venue, error)
	Delete(ctx context.Context, id int) error
}

type ArtistStore interface {
	List(ctx context.Context) ([]models.ArtistSummary, error)
	Search(ctx context.Context, term string, now time.Time) ([]models.SearchResult, error)
	GetWithShows(ctx context.Context, id int) (*models.Artist, error)
	Create(ctx context.Context, artist *models.Artist) error
	Update(ctx context.Context, id int, req models.ArtistRequest) (*models.Artist, error)
}

type ShowStore interface {
	List(ctx context.Context) ([]models.ShowListing, error)
	Create(ctx context.Context, req models.ShowRequest) (*models.Show, error)
}

// BookingHandler serves the venue, artist and show pages as JSON.
type BookingHandler struct {
	venues  VenueStore
	artists ArtistStore
	shows   ShowStore
	now     func() time.Time
}

func NewBookingHandler(venues VenueStore, artists ArtistStore, shows ShowStore) *BookingHandler {
	return &BookingHandler{venues: venues, artists: artists, shows: shows, now: time.Now}
}

func (h *BookingHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Welcome to Fyyur"})
}

func (h *BookingHandler) ListVenues(c *gin.Context) {
	areas, err := h.venues.Areas(c.Request.Context(), h.now())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "areas": areas})
}

func (h *BookingHandler) SearchVenues(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	results, err := h.venues.Search(c.Request.Context(), req.SearchTerm, h.now())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(results), "data": results})
}

func (h *BookingHandler) GetVenue(c *gin.Context) {
	id, ok := pathID(c, models.ErrVenueNotFound)
	if !ok {
		return
	}
	venue, err := h.venues.GetWithShows(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "venue": models.NewVenueDetail(*venue, h.now())})
}

func (h *BookingHandler) CreateVenue(c *gin.Context) {
	var req models.VenueRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	var venue models.Venue
	req.Apply(&venue)
	if err := h.venues.Create(c.Request.Context(), &venue); err != nil {
		c.Error(&middleware.UnprocessableError{
			Message: fmt.Sprintf("An error occurred. Venue %s could not be listed.", req.Name),
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": fmt.Sprintf("Venue %s was successfully listed!", venue.Name),
		"venue":   venue,
	})
}

func (h *BookingHandler) UpdateVenue(c *gin.Context) {
	id, ok := pathID(c, models.ErrVenueNotFound)
	if !ok {
		return
	}
	var req models.VenueRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	venue, err := h.venues.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(orUnprocessable(err, models.ErrVenueNotFound,
			fmt.Sprintf("An error occurred. Venue %s could not be updated.", req.Name)))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Venue %s was successfully updated!", venue.Name),
		"venue":   venue,
	})
}

func (h *BookingHandler) DeleteVenue(c *gin.Context) {
	id, ok := pathID(c, models.ErrVenueNotFound)
	if !ok {
		return
	}
	if err := h.venues.Delete(c.Request.Context(), id); err != nil {
		c.Error(orUnprocessable(err, models.ErrVenueNotFound, "An error occurred. Venue could not be deleted."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Venue was successfully deleted!"})
}

func (h *BookingHandler) ListArtists(c *gin.Context) {
	artists, err := h.artists.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "artists": artists})
}

func (h *BookingHandler) SearchArtists(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	results, err := h.artists.Search(c.Request.Context(), req.SearchTerm, h.now())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(results), "data": results})
}

func (h *BookingHandler) GetArtist(c *gin.Context) {
	id, ok := pathID(c, models.ErrArtistNotFound)
	if !ok {
		return
	}
	artist, err := h.artists.GetWithShows(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "artist": models.NewArtistDetail(*artist, h.now())})
}

func (h *BookingHandler) CreateArtist(c *gin.Context) {
	var req models.ArtistRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	var artist models.Artist
	req.Apply(&artist)
	if err := h.artists.Create(c.Request.Context(), &artist); err != nil {
		c.Error(&middleware.UnprocessableError{
			Message: fmt.Sprintf("An error occurred. Artist %s could not be listed.", req.Name),
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": fmt.Sprintf("Artist %s was successfully listed!", artist.Name),
		"artist":  artist,
	})
}

func (h *BookingHandler) UpdateArtist(c *gin.Context) {
	id, ok := pathID(c, models.ErrArtistNotFound)
	if !ok {
		return
	}
	var req models.ArtistRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	artist, err := h.artists.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(orUnprocessable(err, models.ErrArtistNotFound,
			fmt.Sprintf("An error occurred. Artist %s could not be updated.", req.Name)))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Artist %s was successfully updated!", artist.Name),
		"artist":  artist,
	})
}

func (h *BookingHandler) ListShows(c *gin.Context) {
	shows, err := h.shows.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shows": shows})
}

func (h *BookingHandler) CreateShow(c *gin.Context) {
	var req models.ShowRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	if _, err := h.shows.Create(c.Request.Context(), req); err != nil {
		if errors.Is(err, models.ErrVenueNotFound) || errors.Is(err, models.ErrArtistNotFound) {
			c.Error(err)
			return
		}
		c.Error(&middleware.UnprocessableError{Message: "An error occurred. Show could not be listed.", Err: err})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Show was successfully listed!"})
}

// pathID parses the :id parameter, reporting notFound when it is not an
// integer.
func pathID(c *gin.Context, notFound error) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.Error(notFound)
		return 0, false
	}
	return id, true
}

// orUnprocessable passes notFound through and wraps any other failure with
// a client facing message.
func orUnprocessable(err, notFound error, message string) error {
	if errors.Is(err, notFound) {
		return err
	}
	return &middleware.UnprocessableError{Message: message, Err: err}
}
