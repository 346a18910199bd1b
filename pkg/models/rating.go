package models

// Rating is one observed user/item interaction.
type Rating struct {
	UserID string  `json:"user_id" db:"user_id" validate:"required"`
	ItemID string  `json:"item_id" db:"item_id" validate:"required"`
	Rating float64 `json:"rating" db:"rating"`
}

// CatalogItem is a recommendable item with its descriptive text fields.
type CatalogItem struct {
	ItemID      string `json:"item_id" db:"item_id" validate:"required"`
	Title       string `json:"title" db:"title"`
	Author      string `json:"author" db:"author"`
	Genre       string `json:"genre" db:"genre"`
	Description string `json:"description" db:"description"`
}
