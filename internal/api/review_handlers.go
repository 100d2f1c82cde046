package api

import (
	"net/http"

	"holidayrent/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) handleListReviews(c *gin.Context) {
	var q struct {
		Skip  int `form:"skip" binding:"min=0"`
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	if q.Limit == 0 {
		q.Limit = models.DefaultPageSize
	}
	list, err := s.deps.Reviews.ListPropertyReviews(c.Request.Context(), c.Param("id"), q.Skip, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []*models.Review{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *HTTPServer) handleCreateReview(c *gin.Context) {
	var in models.NewReview
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := s.deps.Reviews.CreateReview(c.Request.Context(), caller(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *HTTPServer) handleGetReview(c *gin.Context) {
	r, err := s.deps.Reviews.GetReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *HTTPServer) handleUpdateReview(c *gin.Context) {
	var patch models.ReviewPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := s.deps.Reviews.UpdateReview(c.Request.Context(), caller(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *HTTPServer) handleDeleteReview(c *gin.Context) {
	if err := s.deps.Reviews.DeleteReview(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}
