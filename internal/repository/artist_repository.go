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

type ArtistRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewArtistRepository(db *gorm.DB, logger *zap.Logger) *ArtistRepository {
	return &ArtistRepository{db: db, logger: logger}
}

func (r *ArtistRepository) List(ctx context.Context) ([]models.ArtistSummary, error) {
	artists := []models.ArtistSummary{}
	err := r.db.WithContext(ctx).
		Model(&models.Artist{}).
		Select("id, name").
		Order("id").
		Scan(&artists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return artists, nil
}

// Search returns artists whose name contains term, ignoring case.
func (r *ArtistRepository) Search(ctx context.Context, term string, now time.Time) ([]models.SearchResult, error) {
	var artists []models.Artist
	err := r.db.WithContext(ctx).
		Where("name ILIKE ?", containsPattern(term)).
		Order("id").
		Find(&artists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search artists: %w", err)
	}
	counts, err := upcomingCounts(ctx, r.db, "artist_id", now)
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming shows: %w", err)
	}

	results := make([]models.SearchResult, 0, len(artists))
	for _, a := range artists {
		results = append(results, models.SearchResult{ID: a.ID, Name: a.Name, NumUpcomingShows: counts[a.ID]})
	}
	return results, nil
}

// GetWithShows loads an artist with its shows and their venues.
func (r *ArtistRepository) GetWithShows(ctx context.Context, id int) (*models.Artist, error) {
	var artist models.Artist
	err := r.db.WithContext(ctx).
		Preload("Shows", orderShows).
		Preload("Shows.Venue").
		First(&artist, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrArtistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	return &artist, nil
}

func (r *ArtistRepository) Create(ctx context.Context, artist *models.Artist) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(artist).Error; err != nil {
		return fmt.Errorf("failed to create artist: %w", err)
	}
	r.logger.Info("Artist created", zap.Int("artist_id", artist.ID), zap.String("name", artist.Name))
	return nil
}

// Update replaces the editable fields of an artist with req.
func (r *ArtistRepository) Update(ctx context.Context, id int, req models.ArtistRequest) (*models.Artist, error) {
	var artist models.Artist
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&artist, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrArtistNotFound
			}
			return fmt.Errorf("failed to load artist: %w", err)
		}
		req.Apply(&artist)
		if err := tx.Omit(clause.Associations).Save(&artist).Error; err != nil {
			return fmt.Errorf("failed to update artist: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("Artist updated", zap.Int("artist_id", artist.ID))
	return &artist, nil
}
