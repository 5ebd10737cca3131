package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shakthivel10/FSND/internal/middleware"
	"github.com/shakthivel10/FSND/internal/models"
	"gorm.io/datatypes"
)

// DrinkStore persists drinks.
type DrinkStore interface {
	List(ctx context.Context) ([]models.Drink, error)
	Create(ctx context.Context, title string, recipe datatypes.JSON) (*models.Drink, error)
	Update(ctx context.Context, id int, title *string, recipe datatypes.JSON) (*models.Drink, error)
	Delete(ctx context.Context, id int) (int, error)
}

type DrinkHandler struct {
	store DrinkStore
}

func NewDrinkHandler(store DrinkStore) *DrinkHandler {
	return &DrinkHandler{store: store}
}

// ListDrinks returns every drink in short form. It needs no token.
func (h *DrinkHandler) ListDrinks(c *gin.Context) {
	drinks, err := h.store.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": models.ShortList(drinks)})
}

// ListDrinkDetails returns every drink in long form.
func (h *DrinkHandler) ListDrinkDetails(c *gin.Context) {
	drinks, err := h.store.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": models.LongList(drinks)})
}

func (h *DrinkHandler) CreateDrink(c *gin.Context) {
	var req models.CreateDrinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" || len(req.Recipe) == 0 {
		c.Error(&middleware.ValidationError{})
		return
	}
	recipe, err := models.NormalizeRecipe(req.Recipe)
	if err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}

	drink, err := h.store.Create(c.Request.Context(), *req.Title, recipe)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []models.DrinkView{drink.Long()}})
}

// UpdateDrink changes the title and/or recipe of a drink. Fields missing
// from the body keep their value.
func (h *DrinkHandler) UpdateDrink(c *gin.Context) {
	id, ok := pathID(c, models.ErrDrinkNotFound)
	if !ok {
		return
	}

	var req models.UpdateDrinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(&middleware.ValidationError{Err: err})
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		c.Error(&middleware.ValidationError{})
		return
	}
	var recipe datatypes.JSON
	if len(req.Recipe) > 0 {
		var err error
		if recipe, err = models.NormalizeRecipe(req.Recipe); err != nil {
			c.Error(&middleware.ValidationError{Err: err})
			return
		}
	}

	drink, err := h.store.Update(c.Request.Context(), id, req.Title, recipe)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []models.DrinkView{drink.Long()}})
}

func (h *DrinkHandler) DeleteDrink(c *gin.Context) {
	id, ok := pathID(c, models.ErrDrinkNotFound)
	if !ok {
		return
	}
	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "delete": deleted})
}
