package api

import (
	"net/http"
	"strings"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"
	"holidayrent/internal/service"

	"github.com/gin-gonic/gin"
)

type propertyQuery struct {
	Skip         int      `form:"skip" binding:"min=0"`
	Limit        int      `form:"limit" binding:"omitempty,min=1,max=100"`
	Region       string   `form:"region"`
	PropertyType string   `form:"property_type"`
	MinPrice     *float64 `form:"min_price" binding:"omitempty,min=0"`
	MaxPrice     *float64 `form:"max_price" binding:"omitempty,min=0"`
	Guests       int      `form:"guests" binding:"min=0"`
	Bedrooms     int      `form:"bedrooms" binding:"min=0"`
	Amenities    string   `form:"amenities"`
	CheckIn      string   `form:"check_in"`
	CheckOut     string   `form:"check_out"`
}

func (q propertyQuery) filter() (models.PropertyFilter, error) {
	f := models.PropertyFilter{
		Region:      strings.TrimSpace(q.Region),
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
		MinGuests:   q.Guests,
		MinBedrooms: q.Bedrooms,
		Skip:        q.Skip,
		Limit:       q.Limit,
	}
	if q.PropertyType != "" {
		pt, err := models.ParsePropertyType(q.PropertyType)
		if err != nil {
			return f, domain.Errorf(domain.ErrValidation, "%s", err.Error())
		}
		f.PropertyType = pt
	}
	for _, a := range strings.Split(q.Amenities, ",") {
		if a = strings.TrimSpace(a); a != "" {
			f.Amenities = append(f.Amenities, a)
		}
	}
	return f, nil
}

type searchResponse struct {
	Properties     []*models.Property `json:"properties"`
	TotalCount     int                `json:"total_count"`
	FiltersApplied gin.H              `json:"filters_applied"`
}

type propertyResponse struct {
	*models.Property
	Owner *models.User `json:"owner"`
}

func (s *HTTPServer) handleListProperties(c *gin.Context) {
	var q propertyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	filter, err := q.filter()
	if err != nil {
		respondError(c, err)
		return
	}
	props, err := s.deps.Properties.ListProperties(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNilProperties(props))
}

func (s *HTTPServer) handleSearchProperties(c *gin.Context) {
	var q propertyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	filter, err := q.filter()
	if err != nil {
		respondError(c, err)
		return
	}

	query := service.SearchQuery{Filter: filter}
	if q.CheckIn != "" && q.CheckOut != "" {
		checkIn, checkOut, err := parseStay(q.CheckIn, q.CheckOut)
		if err != nil {
			respondError(c, err)
			return
		}
		query.CheckIn, query.CheckOut = &checkIn, &checkOut
	}

	res, err := s.deps.Properties.SearchProperties(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, searchResponse{
		Properties: nonNilProperties(res.Properties),
		TotalCount: res.TotalCount,
		FiltersApplied: gin.H{
			"region":        nilIfEmpty(filter.Region),
			"property_type": nilIfEmpty(string(filter.PropertyType)),
			"check_in":      nilIfEmpty(q.CheckIn),
			"check_out":     nilIfEmpty(q.CheckOut),
			"guests":        nilIfZero(q.Guests),
			"bedrooms":      nilIfZero(q.Bedrooms),
			"min_price":     q.MinPrice,
			"max_price":     q.MaxPrice,
			"amenities":     filter.Amenities,
		},
	})
}

func (s *HTTPServer) handleGetProperty(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := s.deps.Properties.GetProperty(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := propertyResponse{Property: p}
	if s.deps.Accounts != nil {
		if owner, err := s.deps.Accounts.GetUserByID(ctx, p.OwnerID); err == nil {
			resp.Owner = owner
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) handleAvailability(c *gin.Context) {
	var q struct {
		CheckIn  string `form:"check_in" binding:"required"`
		CheckOut string `form:"check_out" binding:"required"`
		Guests   int    `form:"guests" binding:"min=0"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	checkIn, checkOut, err := parseStay(q.CheckIn, q.CheckOut)
	if err != nil {
		respondError(c, err)
		return
	}
	quote, err := s.deps.Bookings.Quote(c.Request.Context(), c.Param("id"), checkIn, checkOut, q.Guests)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property_id": quote.PropertyID,
		"check_in":    models.FormatDate(quote.CheckIn),
		"check_out":   models.FormatDate(quote.CheckOut),
		"nights":      quote.Nights,
		"available":   quote.Available,
		"total_price": quote.TotalPrice,
	})
}

func (s *HTTPServer) handleCreateProperty(c *gin.Context) {
	var in models.NewProperty
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := s.deps.Properties.CreateProperty(c.Request.Context(), caller(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *HTTPServer) handleUpdateProperty(c *gin.Context) {
	var patch models.PropertyPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := s.deps.Properties.UpdateProperty(c.Request.Context(), caller(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *HTTPServer) handleDeleteProperty(c *gin.Context) {
	if err := s.deps.Properties.DeleteProperty(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted successfully"})
}

// parseStay parses a check-in/check-out pair of calendar dates.
func parseStay(in, out string) (time.Time, time.Time, error) {
	checkIn, err := models.ParseDate(in)
	if err != nil {
		return time.Time{}, time.Time{}, domain.Errorf(domain.ErrValidation, "check_in: %s", err.Error())
	}
	checkOut, err := models.ParseDate(out)
	if err != nil {
		return time.Time{}, time.Time{}, domain.Errorf(domain.ErrValidation, "check_out: %s", err.Error())
	}
	return checkIn, checkOut, nil
}

func nonNilProperties(props []*models.Property) []*models.Property {
	if props == nil {
		return []*models.Property{}
	}
	return props
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
