package models

import "time"

type Review struct {
	ID         string    `json:"id" bson:"id"`
	PropertyID string    `json:"property_id" bson:"property_id"`
	UserID     string    `json:"user_id" bson:"user_id"`
	BookingID  *string   `json:"booking_id" bson:"booking_id"`
	Rating     int       `json:"rating" bson:"rating"`
	Title      string    `json:"title" bson:"title"`
	Content    string    `json:"content" bson:"content"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// NewReview is the input for reviewing a stay.
type NewReview struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// ReviewPatch carries a partial review update.
type ReviewPatch struct {
	Rating  Field[int]    `json:"rating"`
	Title   Field[string] `json:"title"`
	Content Field[string] `json:"content"`
}

// Empty reports whether the patch changes nothing.
func (p ReviewPatch) Empty() bool {
	return !p.Rating.IsSet() && !p.Title.IsSet() && !p.Content.IsSet()
}
