package models

import "errors"

var (
	ErrDrinkNotFound   = errors.New("drink not found")
	ErrDrinkTitleTaken = errors.New("a drink with the same title already exists")
	ErrVenueNotFound   = errors.New("venue not found")
	ErrArtistNotFound  = errors.New("artist not found")
	ErrInvalidRecipe   = errors.New("recipe must be an ingredient object or a list of ingredient objects")
)
