package comment

import "time"

// Comment is feedback on a dish, or on the restaurant when MenuItemID is nil.
type Comment struct {
	ID         string    `json:"id" db:"comment_id"`
	UserID     string    `json:"userId" db:"user_id"`
	MenuItemID *string   `json:"menuItemId,omitempty" db:"menu_item_id"`
	Rating     *int      `json:"rating,omitempty" db:"rating"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type CommentNew struct {
	MenuItemID *string `json:"menuItemId" validate:"omitempty,uuid"`
	Rating     *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Body       string  `json:"body" validate:"required,max=1000"`
}

const (
	defaultLimit = 20
	maxLimit     = 100
)
