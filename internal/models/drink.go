package models

import (
	"bytes"
	"encoding/json"

	"gorm.io/datatypes"
)

// Drink is a menu item. Recipe holds the ingredient list exactly as it was
// submitted, always as a JSON array.
type Drink struct {
	ID     int            `db:"id" json:"id"`
	Title  string         `db:"title" json:"title"`
	Recipe datatypes.JSON `db:"recipe" json:"recipe"`
}

// Ingredient is one entry of a recipe.
type Ingredient struct {
	Color string  `json:"color"`
	Name  string  `json:"name"`
	Parts float64 `json:"parts"`
}

// DrinkView is the wire representation of a drink.
type DrinkView struct {
	ID     int             `json:"id"`
	Title  string          `json:"title"`
	Recipe json.RawMessage `json:"recipe"`
}

// Short exposes only the color and parts of each ingredient.
func (d Drink) Short() DrinkView {
	var entries []map[string]json.RawMessage
	short := make([]map[string]json.RawMessage, 0)
	if err := json.Unmarshal(d.Recipe, &entries); err == nil {
		for _, e := range entries {
			short = append(short, map[string]json.RawMessage{
				"color": rawOrNull(e["color"]),
				"parts": rawOrNull(e["parts"]),
			})
		}
	}
	recipe, _ := json.Marshal(short)
	return DrinkView{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// Long exposes the stored recipe verbatim.
func (d Drink) Long() DrinkView {
	recipe := json.RawMessage(d.Recipe)
	if len(bytes.TrimSpace(recipe)) == 0 {
		recipe = json.RawMessage("[]")
	}
	return DrinkView{ID: d.ID, Title: d.Title, Recipe: recipe}
}

func rawOrNull(v json.RawMessage) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	return v
}

// ShortList projects drinks with Short.
func ShortList(drinks []Drink) []DrinkView {
	views := make([]DrinkView, 0, len(drinks))
	for _, d := range drinks {
		views = append(views, d.Short())
	}
	return views
}

// LongList projects drinks with Long.
func LongList(drinks []Drink) []DrinkView {
	views := make([]DrinkView, 0, len(drinks))
	for _, d := range drinks {
		views = append(views, d.Long())
	}
	return views
}

// NormalizeRecipe accepts a single ingredient object or an array of
// ingredient objects and returns the array form. Ingredient contents are
// kept byte for byte.
func NormalizeRecipe(raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrInvalidRecipe
	}
	switch trimmed[0] {
	case '{':
		if !json.Valid(trimmed) {
			return nil, ErrInvalidRecipe
		}
		out := make([]byte, 0, len(trimmed)+2)
		out = append(out, '[')
		out = append(out, trimmed...)
		out = append(out, ']')
		return datatypes.JSON(out), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, ErrInvalidRecipe
		}
		for _, item := range items {
			if t := bytes.TrimSpace(item); len(t) == 0 || t[0] != '{' {
				return nil, ErrInvalidRecipe
			}
		}
		return datatypes.JSON(append([]byte(nil), trimmed...)), nil
	default:
		return nil, ErrInvalidRecipe
	}
}

// CreateDrinkRequest is the body of POST /drinks.
type CreateDrinkRequest struct {
	Title  *string         `json:"title"`
	Recipe json.RawMessage `json:"recipe"`
}

// UpdateDrinkRequest is the body of PATCH /drinks/:id. Absent fields are
// left unchanged.
type UpdateDrinkRequest struct {
	Title  *string         `json:"title"`
	Recipe json.RawMessage `json:"recipe"`
}
