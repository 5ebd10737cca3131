package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shakthivel10/FSND/internal/models"
	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching term anywhere, with LIKE
// metacharacters in term matched literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

type showCount struct {
	ID    int
	Count int
}

// upcomingCounts counts shows starting after now, grouped by column
// (venue_id or artist_id).
func upcomingCounts(ctx context.Context, db *gorm.DB, column string, now time.Time) (map[int]int, error) {
	var rows []showCount
	err := db.WithContext(ctx).
		Model(&models.Show{}).
		Select(column+" AS id, COUNT(*) AS count").
		Where("start_time > ?", now).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

func orderShows(db *gorm.DB) *gorm.DB {
	return db.Order("start_time")
}
