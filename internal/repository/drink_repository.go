package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shakthivel10/FSND/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const uniqueViolation = "23505"

// SeedDrinkTitle is the drink inserted by Seed.
const SeedDrinkTitle = "Water"

type DrinkRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDrinkRepository(db *sqlx.DB, logger *zap.Logger) *DrinkRepository {
	return &DrinkRepository{db: db, logger: logger}
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (r *DrinkRepository) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *DrinkRepository) List(ctx context.Context) ([]models.Drink, error) {
	drinks := []models.Drink{}
	if err := r.db.SelectContext(ctx, &drinks, `SELECT id, title, recipe FROM drinks ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	return drinks, nil
}

func (r *DrinkRepository) Create(ctx context.Context, title string, recipe datatypes.JSON) (*models.Drink, error) {
	var drink models.Drink
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		taken, err := titleTaken(ctx, tx, title, 0)
		if err != nil {
			return err
		}
		if taken {
			return models.ErrDrinkTitleTaken
		}
		err = tx.GetContext(ctx, &drink,
			`INSERT INTO drinks (title, recipe) VALUES ($1, $2) RETURNING id, title, recipe`,
			title, string(recipe))
		if err != nil {
			return mapDrinkError("insert drink", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("Drink created", zap.Int("drink_id", drink.ID), zap.String("title", drink.Title))
	return &drink, nil
}

// Update changes the supplied fields of a drink. A nil title or recipe keeps
// the stored value.
func (r *DrinkRepository) Update(ctx context.Context, id int, title *string, recipe datatypes.JSON) (*models.Drink, error) {
	var drink models.Drink
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &drink, `SELECT id, title, recipe FROM drinks WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrDrinkNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load drink: %w", err)
		}

		if title != nil && *title != drink.Title {
			taken, err := titleTaken(ctx, tx, *title, id)
			if err != nil {
				return err
			}
			if taken {
				return models.ErrDrinkTitleTaken
			}
			drink.Title = *title
		}
		if recipe != nil {
			drink.Recipe = recipe
		}

		_, err = tx.ExecContext(ctx, `UPDATE drinks SET title = $1, recipe = $2 WHERE id = $3`,
			drink.Title, string(drink.Recipe), id)
		if err != nil {
			return mapDrinkError("update drink", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("Drink updated", zap.Int("drink_id", drink.ID))
	return &drink, nil
}

// Delete removes a drink and returns its id.
func (r *DrinkRepository) Delete(ctx context.Context, id int) (int, error) {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM drinks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete drink: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return models.ErrDrinkNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("Drink deleted", zap.Int("drink_id", id))
	return id, nil
}

// Seed inserts the Water drink unless a drink with that title exists. It
// reports whether a row was inserted.
func (r *DrinkRepository) Seed(ctx context.Context) (bool, error) {
	recipe, err := json.Marshal([]models.Ingredient{{Color: "blue", Name: "water", Parts: 1}})
	if err != nil {
		return false, fmt.Errorf("failed to marshal seed recipe: %w", err)
	}

	var inserted bool
	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO drinks (title, recipe) VALUES ($1, $2) ON CONFLICT (title) DO NOTHING`,
			SeedDrinkTitle, string(recipe))
		if err != nil {
			return fmt.Errorf("failed to seed drinks: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted = rows > 0
		return nil
	})
	return inserted, err
}

func titleTaken(ctx context.Context, tx *sqlx.Tx, title string, exceptID int) (bool, error) {
	var taken bool
	err := tx.GetContext(ctx, &taken,
		`SELECT EXISTS(SELECT 1 FROM drinks WHERE title = $1 AND id <> $2)`, title, exceptID)
	if err != nil {
		return false, fmt.Errorf("failed to check drink title: %w", err)
	}
	return taken, nil
}

// mapDrinkError reports unique violations on the title as ErrDrinkTitleTaken.
func mapDrinkError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrDrinkTitleTaken
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
