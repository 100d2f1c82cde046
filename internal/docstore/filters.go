package docstore

import (
	"regexp"
	"strings"
	"time"

	"holidayrent/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var activeStatuses = bson.A{string(models.BookingPending), string(models.BookingConfirmed)}

// overlapFilter matches stays touching [checkIn, checkOut]. Bounds are
// inclusive, so back-to-back stays overlap.
func overlapFilter(checkIn, checkOut time.Time) bson.M {
	return bson.M{
		"check_in":  bson.M{"$lte": models.Day(checkOut)},
		"check_out": bson.M{"$gte": models.Day(checkIn)},
	}
}

// conflictFilter matches active bookings of propertyID overlapping the stay.
func conflictFilter(propertyID string, checkIn, checkOut time.Time, excludeID string) bson.M {
	f := overlapFilter(checkIn, checkOut)
	f["property_id"] = propertyID
	f["status"] = bson.M{"$in": activeStatuses}
	if excludeID != "" {
		f["id"] = bson.M{"$ne": excludeID}
	}
	return f
}

func propertyFilter(filter models.PropertyFilter) bson.M {
	f := bson.M{"is_active": true}

	if filter.Region != "" {
		f["location.region"] = primitive.Regex{
			Pattern: regexp.QuoteMeta(strings.ToLower(filter.Region)),
			Options: "i",
		}
	}
	if filter.PropertyType != "" {
		f["property_type"] = string(filter.PropertyType)
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		f["price_per_night"] = price
	}
	if filter.MinGuests > 0 {
		f["max_guests"] = bson.M{"$gte": filter.MinGuests}
	}
	if filter.MinBedrooms > 0 {
		f["bedrooms"] = bson.M{"$gte": filter.MinBedrooms}
	}
	if len(filter.Amenities) > 0 {
		f["amenities"] = bson.M{"$in": filter.Amenities}
	}
	if len(filter.ExcludeIDs) > 0 {
		f["id"] = bson.M{"$nin": filter.ExcludeIDs}
	}
	return f
}

// ratingPipeline groups a property's reviews into their mean and count.
func ratingPipeline(propertyID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"property_id": propertyID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.M{"$avg": "$rating"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
	}
}

func propertySet(patch models.PropertyPatch) bson.M {
	set := bson.M{}
	if v, ok := patch.Name.Get(); ok {
		set["name"] = v
	}
	if v, ok := patch.Description.Get(); ok {
		set["description"] = v
	}
	if v, ok := patch.PropertyType.Get(); ok {
		set["property_type"] = string(v)
	}
	if v, ok := patch.Location.Get(); ok {
		if v.Country == "" {
			v.Country = models.DefaultCountry
		}
		set["location"] = v
	}
	if v, ok := patch.Bedrooms.Get(); ok {
		set["bedrooms"] = v
	}
	if v, ok := patch.Bathrooms.Get(); ok {
		set["bathrooms"] = v
	}
	if v, ok := patch.MaxGuests.Get(); ok {
		set["max_guests"] = v
	}
	if v, ok := patch.PricePerNight.Get(); ok {
		set["price_per_night"] = v
	}
	if v, ok := patch.Amenities.Get(); ok {
		set["amenities"] = nonNil(v)
	}
	if v, ok := patch.Images.Get(); ok {
		set["images"] = nonNil(v)
	}
	return set
}

func bookingSet(patch models.BookingPatch) bson.M {
	set := bson.M{}
	if v, ok := patch.CheckIn.Get(); ok {
		set["check_in"] = models.Day(v)
	}
	if v, ok := patch.CheckOut.Get(); ok {
		set["check_out"] = models.Day(v)
	}
	if v, ok := patch.Guests.Get(); ok {
		set["guests"] = v
	}
	if v, ok := patch.SpecialRequests.Get(); ok {
		set["special_requests"] = v
	}
	if v, ok := patch.TotalPrice.Get(); ok {
		set["total_price"] = v
	}
	return set
}

func reviewSet(patch models.ReviewPatch) bson.M {
	set := bson.M{}
	if v, ok := patch.Rating.Get(); ok {
		set["rating"] = v
	}
	if v, ok := patch.Title.Get(); ok {
		set["title"] = v
	}
	if v, ok := patch.Content.Get(); ok {
		set["content"] = v
	}
	return set
}

func profileSet(patch models.ProfilePatch) bson.M {
	set := bson.M{}
	if v, ok := patch.FirstName.Get(); ok {
		set["first_name"] = v
	}
	if v, ok := patch.LastName.Get(); ok {
		set["last_name"] = v
	}
	if v, ok := patch.Phone.Get(); ok {
		set["phone"] = v
	}
	return set
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
