package models

import "time"

type Location struct {
	Address    string `json:"address" bson:"address" yaml:"address" validate:"required"`
	City       string `json:"city" bson:"city" yaml:"city" validate:"required"`
	Region     string `json:"region" bson:"region" yaml:"region" validate:"required"`
	PostalCode string `json:"postal_code" bson:"postal_code" yaml:"postal_code" validate:"required"`
	Country    string `json:"country" bson:"country" yaml:"country"`
}

type Property struct {
	ID            string       `json:"id" bson:"id"`
	OwnerID       string       `json:"owner_id" bson:"owner_id"`
	Name          string       `json:"name" bson:"name"`
	Description   string       `json:"description" bson:"description"`
	PropertyType  PropertyType `json:"property_type" bson:"property_type"`
	Location      Location     `json:"location" bson:"location"`
	Bedrooms      int          `json:"bedrooms" bson:"bedrooms"`
	Bathrooms     int          `json:"bathrooms" bson:"bathrooms"`
	MaxGuests     int          `json:"max_guests" bson:"max_guests"`
	PricePerNight float64      `json:"price_per_night" bson:"price_per_night"`
	Amenities     []string     `json:"amenities" bson:"amenities"`
	Images        []string     `json:"images" bson:"images"`
	IsActive      bool         `json:"is_active" bson:"is_active"`
	AverageRating *float64     `json:"average_rating" bson:"average_rating"`
	ReviewCount   int          `json:"review_count" bson:"review_count"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" bson:"updated_at"`
}

// NewProperty is the input for listing a property.
type NewProperty struct {
	Name          string       `json:"name" yaml:"name" validate:"required,max=200"`
	Description   string       `json:"description" yaml:"description" validate:"required"`
	PropertyType  PropertyType `json:"property_type" yaml:"property_type" validate:"required,oneof=villa chateau cottage apartment farmhouse"`
	Location      Location     `json:"location" yaml:"location" validate:"required"`
	Bedrooms      int          `json:"bedrooms" yaml:"bedrooms" validate:"gte=0"`
	Bathrooms     int          `json:"bathrooms" yaml:"bathrooms" validate:"gte=0"`
	MaxGuests     int          `json:"max_guests" yaml:"max_guests" validate:"gte=1"`
	PricePerNight float64      `json:"price_per_night" yaml:"price_per_night" validate:"gt=0"`
	Amenities     []string     `json:"amenities" yaml:"amenities"`
	Images        []string     `json:"images" yaml:"images"`
}

// PropertyPatch carries a partial property update.
type PropertyPatch struct {
	Name          Field[string]       `json:"name"`
	Description   Field[string]       `json:"description"`
	PropertyType  Field[PropertyType] `json:"property_type"`
	Location      Field[Location]     `json:"location"`
	Bedrooms      Field[int]          `json:"bedrooms"`
	Bathrooms     Field[int]          `json:"bathrooms"`
	MaxGuests     Field[int]          `json:"max_guests"`
	PricePerNight Field[float64]      `json:"price_per_night"`
	Amenities     Field[[]string]     `json:"amenities"`
	Images        Field[[]string]     `json:"images"`
}

// Empty reports whether the patch changes nothing.
func (p PropertyPatch) Empty() bool {
	return !p.Name.IsSet() && !p.Description.IsSet() && !p.PropertyType.IsSet() &&
		!p.Location.IsSet() && !p.Bedrooms.IsSet() && !p.Bathrooms.IsSet() &&
		!p.MaxGuests.IsSet() && !p.PricePerNight.IsSet() && !p.Amenities.IsSet() &&
		!p.Images.IsSet()
}

// Apply writes the supplied fields onto prop.
func (p PropertyPatch) Apply(prop *Property) {
	prop.Name = p.Name.OrElse(prop.Name)
	prop.Description = p.Description.OrElse(prop.Description)
	prop.PropertyType = p.PropertyType.OrElse(prop.PropertyType)
	prop.Location = p.Location.OrElse(prop.Location)
	prop.Bedrooms = p.Bedrooms.OrElse(prop.Bedrooms)
	prop.Bathrooms = p.Bathrooms.OrElse(prop.Bathrooms)
	prop.MaxGuests = p.MaxGuests.OrElse(prop.MaxGuests)
	prop.PricePerNight = p.PricePerNight.OrElse(prop.PricePerNight)
	prop.Amenities = p.Amenities.OrElse(prop.Amenities)
	prop.Images = p.Images.OrElse(prop.Images)
}

// PropertyFilter narrows property listings and searches.
type PropertyFilter struct {
	Region       string
	PropertyType PropertyType
	MinPrice     *float64
	MaxPrice     *float64
	MinGuests    int
	MinBedrooms  int
	Amenities    []string
	ExcludeIDs   []string
	Skip         int
	Limit        int
}

// Normalize clamps paging to the allowed window.
func (f *PropertyFilter) Normalize() {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

// RatingAggregate is the derived rating summary of a property.
type RatingAggregate struct {
	Average *float64 `json:"average_rating"`
	Count   int      `json:"review_count"`
}
