package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/google/uuid"
)

const propertyColumns = `id, owner_id, name, description, property_type,
    address, city, region, postal_code, country,
    bedrooms, bathrooms, max_guests, price_per_night, amenities, images,
    is_active, average_rating, review_count, created_at, updated_at`

func scanProperty(row scanner) (*models.Property, error) {
	var (
		p         models.Property
		ptype     string
		amenities string
		images    string
		rating    sql.NullFloat64
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Description, &ptype,
		&p.Location.Address, &p.Location.City, &p.Location.Region, &p.Location.PostalCode, &p.Location.Country,
		&p.Bedrooms, &p.Bathrooms, &p.MaxGuests, &p.PricePerNight, &amenities, &images,
		&p.IsActive, &rating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PropertyType = models.PropertyType(ptype)
	if rating.Valid {
		r := rating.Float64
		p.AverageRating = &r
	}
	if err := json.Unmarshal([]byte(amenities), &p.Amenities); err != nil {
		return nil, fmt.Errorf("decode amenities of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decode images of %s: %w", p.ID, err)
	}
	return &p, nil
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	raw, err := json.Marshal(v)
	return string(raw), err
}

func (db *DB) CreateProperty(ctx context.Context, p *models.Property) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Location.Country == "" {
		p.Location.Country = models.DefaultCountry
	}
	amenities, err := encodeList(p.Amenities)
	if err != nil {
		return fmt.Errorf("failed to encode amenities: %w", err)
	}
	images, err := encodeList(p.Images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}

	now := db.now()
	query := `INSERT INTO properties (` + propertyColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var rating sql.NullFloat64
	if p.AverageRating != nil {
		rating = sql.NullFloat64{Float64: *p.AverageRating, Valid: true}
	}
	_, err = db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Description, string(p.PropertyType),
		p.Location.Address, p.Location.City, p.Location.Region, p.Location.PostalCode, p.Location.Country,
		p.Bedrooms, p.Bathrooms, p.MaxGuests, p.PricePerNight, amenities, images,
		p.IsActive, rating, p.ReviewCount, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (db *DB) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	row := db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "property not found")
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// propertyWhere builds the WHERE clause shared by listing and counting.
func propertyWhere(filter models.PropertyFilter) (string, []any) {
	where := []string{"is_active = 1"}
	var args []any

	if filter.Region != "" {
		where = append(where, `LOWER(region) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Region))+"%")
	}
	if filter.PropertyType != "" {
		where = append(where, "property_type = ?")
		args = append(args, string(filter.PropertyType))
	}
	if filter.MinPrice != nil {
		where = append(where, "price_per_night >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "price_per_night <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if filter.MinGuests > 0 {
		where = append(where, "max_guests >= ?")
		args = append(args, filter.MinGuests)
	}
	if filter.MinBedrooms > 0 {
		where = append(where, "bedrooms >= ?")
		args = append(args, filter.MinBedrooms)
	}
	if len(filter.Amenities) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(properties.amenities) WHERE json_each.value IN (`+placeholders(len(filter.Amenities))+`))`)
		for _, a := range filter.Amenities {
			args = append(args, a)
		}
	}
	if len(filter.ExcludeIDs) > 0 {
		where = append(where, "id NOT IN ("+placeholders(len(filter.ExcludeIDs))+")")
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}
	return strings.Join(where, " AND "), args
}

// ListProperties returns active properties matching filter, newest first.
func (db *DB) ListProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	filter.Normalize()
	where, args := propertyWhere(filter)

	query := `SELECT ` + propertyColumns + ` FROM properties WHERE ` + where +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Skip)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var out []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountProperties counts active properties matching filter, ignoring paging.
func (db *DB) CountProperties(ctx context.Context, filter models.PropertyFilter) (int, error) {
	where, args := propertyWhere(filter)
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (db *DB) UpdateProperty(ctx context.Context, id string, patch models.PropertyPatch) error {
	var set setClause
	if v, ok := patch.Name.Get(); ok {
		set.add("name", v)
	}
	if v, ok := patch.Description.Get(); ok {
		set.add("description", v)
	}
	if v, ok := patch.PropertyType.Get(); ok {
		set.add("property_type", string(v))
	}
	if v, ok := patch.Location.Get(); ok {
		if v.Country == "" {
			v.Country = models.DefaultCountry
		}
		set.add("address", v.Address)
		set.add("city", v.City)
		set.add("region", v.Region)
		set.add("postal_code", v.PostalCode)
		set.add("country", v.Country)
	}
	if v, ok := patch.Bedrooms.Get(); ok {
		set.add("bedrooms", v)
	}
	if v, ok := patch.Bathrooms.Get(); ok {
		set.add("bathrooms", v)
	}
	if v, ok := patch.MaxGuests.Get(); ok {
		set.add("max_guests", v)
	}
	if v, ok := patch.PricePerNight.Get(); ok {
		set.add("price_per_night", v)
	}
	if v, ok := patch.Amenities.Get(); ok {
		raw, err := encodeList(v)
		if err != nil {
			return fmt.Errorf("failed to encode amenities: %w", err)
		}
		set.add("amenities", raw)
	}
	if v, ok := patch.Images.Get(); ok {
		raw, err := encodeList(v)
		if err != nil {
			return fmt.Errorf("failed to encode images: %w", err)
		}
		set.add("images", raw)
	}
	set.add("updated_at", db.now())

	return db.execUpdate(ctx, "properties", id, set, "property")
}

func (db *DB) DeactivateProperty(ctx context.Context, id string) error {
	var set setClause
	set.add("is_active", false)
	set.add("updated_at", db.now())
	return db.execUpdate(ctx, "properties", id, set, "property")
}

func (db *DB) SetPropertyRating(ctx context.Context, id string, rating models.RatingAggregate) error {
	var avg sql.NullFloat64
	if rating.Average != nil {
		avg = sql.NullFloat64{Float64: *rating.Average, Valid: true}
	}
	var set setClause
	set.add("average_rating", avg)
	set.add("review_count", rating.Count)
	set.add("updated_at", db.now())
	return db.execUpdate(ctx, "properties", id, set, "property")
}

func (db *DB) execUpdate(ctx context.Context, table, id string, set setClause, entity string) error {
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, set.sql())
	args := append(set.args, id)
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.Errorf(domain.ErrNotFound, "%s not found", entity)
	}
	return nil
}
