package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shakthivel10/FSND/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShowRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewShowRepository(db *gorm.DB, logger *zap.Logger) *ShowRepository {
	return &ShowRepository{db: db, logger: logger}
}

// List returns every show ordered by start time.
func (r *ShowRepository) List(ctx context.Context) ([]models.ShowListing, error) {
	var shows []models.Show
	err := r.db.WithContext(ctx).
		Preload("Venue").
		Preload("Artist").
		Order("start_time").
		Find(&shows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}

	listings := make([]models.ShowListing, 0, len(shows))
	for _, s := range shows {
		listings = append(listings, models.ShowListing{
			VenueID:         s.VenueID,
			VenueName:       s.Venue.Name,
			ArtistID:        s.ArtistID,
			ArtistName:      s.Artist.Name,
			ArtistImageLink: s.Artist.ImageLink,
			StartTime:       models.FormatShowTime(s.StartTime),
		})
	}
	return listings, nil
}

// Create books a show. The venue and the artist must exist.
func (r *ShowRepository) Create(ctx context.Context, req models.ShowRequest) (*models.Show, error) {
	show := models.Show{VenueID: req.VenueID, ArtistID: req.ArtistID, StartTime: req.StartTime.UTC()}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Venue{}, req.VenueID, models.ErrVenueNotFound); err != nil {
			return err
		}
		if err := exists(tx, &models.Artist{}, req.ArtistID, models.ErrArtistNotFound); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&show).Error; err != nil {
			return fmt.Errorf("failed to create show: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("Show created",
		zap.Int("venue_id", show.VenueID),
		zap.Int("artist_id", show.ArtistID),
		zap.Time("start_time", show.StartTime))
	return &show, nil
}

func exists(tx *gorm.DB, model interface{}, id int, notFound error) error {
	err := tx.Model(model).Select("id").First(model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up %d: %w", id, err)
	}
	return nil
}
