package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shakthivel10/FSND/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VenueRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewVenueRepository(db *gorm.DB, logger *zap.Logger) *VenueRepository {
	return &VenueRepository{db: db, logger: logger}
}

// Areas lists every venue grouped by city and state, with the number of
// shows starting after now.
func (r *VenueRepository) Areas(ctx context.Context, now time.Time) ([]models.Area, error) {
	var venues []models.Venue
	if err := r.db.WithContext(ctx).Order("id").Find(&venues).Error; err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	counts, err := upcomingCounts(ctx, r.db, "venue_id", now)
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming shows: %w", err)
	}
	return models.GroupAreas(venues, counts), nil
}

// Search returns venues whose name contains term, ignoring case.
func (r *VenueRepository) Search(ctx context.Context, term string, now time.Time) ([]models.SearchResult, error) {
	var venues []models.Venue
	err := r.db.WithContext(ctx).
		Where("name ILIKE ?", containsPattern(term)).
		Order("id").
		Find(&venues).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search venues: %w", err)
	}
	counts, err := upcomingCounts(ctx, r.db, "venue_id", now)
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming shows: %w", err)
	}

	results := make([]models.SearchResult, 0, len(venues))
	for _, v := range venues {
		results = append(results, models.SearchResult{ID: v.ID, Name: v.Name, NumUpcomingShows: counts[v.ID]})
	}
	return results, nil
}

// GetWithShows loads a venue with its shows and their artists.
func (r *VenueRepository) GetWithShows(ctx context.Context, id int) (*models.Venue, error) {
	var venue models.Venue
	err := r.db.WithContext(ctx).
		Preload("Shows", orderShows).
		Preload("Shows.Artist").
		First(&venue, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return &venue, nil
}

func (r *VenueRepository) Create(ctx context.Context, venue *models.Venue) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(venue).Error; err != nil {
		return fmt.Errorf("failed to create venue: %w", err)
	}
	r.logger.Info("Venue created", zap.Int("venue_id", venue.ID), zap.String("name", venue.Name))
	return nil
}

// Update replaces the editable fields of a venue with req.
func (r *VenueRepository) Update(ctx context.Context, id int, req models.VenueRequest) (*models.Venue, error) {
	var venue models.Venue
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&venue, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrVenueNotFound
			}
			return fmt.Errorf("failed to load venue: %w", err)
		}
		req.Apply(&venue)
		if err := tx.Omit(clause.Associations).Save(&venue).Error; err != nil {
			return fmt.Errorf("failed to update venue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("Venue updated", zap.Int("venue_id", venue.ID))
	return &venue, nil
}

// Delete removes a venue together with its shows.
func (r *VenueRepository) Delete(ctx context.Context, id int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("venue_id = ?", id).Delete(&models.Show{}).Error; err != nil {
			return fmt.Errorf("failed to delete venue shows: %w", err)
		}
		result := tx.Delete(&models.Venue{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete venue: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return models.ErrVenueNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("Venue deleted", zap.Int("venue_id", id))
	return nil
}
