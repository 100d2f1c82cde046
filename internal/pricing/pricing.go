// Package pricing computes stay prices from a property's nightly rate.
package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"holidayrent/internal/config"
	"holidayrent/internal/domain"
	"holidayrent/internal/models"
)

// PropertyGetter loads the property a quote is for.
type PropertyGetter interface {
	GetProperty(ctx context.Context, id string) (*models.Property, error)
}

// NightlyRule adjusts the rate charged for a single night. Rules are applied
// in order, each receiving the rate produced by the previous one.
type NightlyRule interface {
	Apply(night time.Time, property *models.Property, rate float64) float64
}

// Calculator prices stays. With no rules the total is price_per_night times
// the number of nights.
type Calculator struct {
	properties PropertyGetter
	rules      []NightlyRule
}

func NewCalculator(properties PropertyGetter, rules ...NightlyRule) *Calculator {
	return &Calculator{properties: properties, rules: rules}
}

// Price looks up the property and quotes the stay.
func (c *Calculator) Price(ctx context.Context, propertyID string, checkIn, checkOut time.Time) (float64, error) {
	property, err := c.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	return c.Quote(property, checkIn, checkOut)
}

// Quote prices a stay for an already loaded property.
func (c *Calculator) Quote(property *models.Property, checkIn, checkOut time.Time) (float64, error) {
	nights := models.Nights(checkIn, checkOut)
	if nights <= 0 {
		return 0, domain.Errorf(domain.ErrInvalidRange, "check-out must be after check-in")
	}

	if len(c.rules) == 0 {
		return roundCents(property.PricePerNight * float64(nights)), nil
	}

	total := 0.0
	night := models.Day(checkIn)
	for i := 0; i < nights; i++ {
		rate := property.PricePerNight
		for _, rule := range c.rules {
			rate = rule.Apply(night, property, rate)
		}
		total += rate
		night = night.AddDate(0, 0, 1)
	}
	return roundCents(total), nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

type monthDay struct {
	month time.Month
	day   int
}

func (m monthDay) before(o monthDay) bool {
	if m.month != o.month {
		return m.month < o.month
	}
	return m.day < o.day
}

func parseMonthDay(s string) (monthDay, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return monthDay{}, err
	}
	return monthDay{month: t.Month(), day: t.Day()}, nil
}

type season struct {
	name       string
	start, end monthDay
	multiplier float64
}

func (s season) contains(d monthDay) bool {
	if !s.end.before(s.start) {
		return !d.before(s.start) && !s.end.before(d)
	}
	// wraps the new year, e.g. 12-20..01-05
	return !d.before(s.start) || !s.end.before(d)
}

// SeasonalRule multiplies the rate for nights that fall in a configured season.
// The first matching season wins.
type SeasonalRule struct {
	seasons []season
}

func NewSeasonalRule(cfg []config.SeasonConfig) (*SeasonalRule, error) {
	rule := &SeasonalRule{}
	for _, sc := range cfg {
		start, err := parseMonthDay(sc.Start)
		if err != nil {
			return nil, fmt.Errorf("season %q start: %w", sc.Name, err)
		}
		end, err := parseMonthDay(sc.End)
		if err != nil {
			return nil, fmt.Errorf("season %q end: %w", sc.Name, err)
		}
		rule.seasons = append(rule.seasons, season{name: sc.Name, start: start, end: end, multiplier: sc.Multiplier})
	}
	return rule, nil
}

func (r *SeasonalRule) Apply(night time.Time, _ *models.Property, rate float64) float64 {
	d := monthDay{month: night.Month(), day: night.Day()}
	for _, s := range r.seasons {
		if s.contains(d) {
			return rate * s.multiplier
		}
	}
	return rate
}
