package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "postscraper/pkg/errors"
	"postscraper/pkg/logger"
	"postscraper/pkg/models"
	"postscraper/pkg/scraper"
)

const (
	msgFieldsRequired = "All fields are required."
	msgScrapeFailed   = "Failed to scrape posts."
)

func (s *Server) handleScrape(c *gin.Context) {
	var req models.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgFieldsRequired})
		return
	}
	if err := scraper.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validationMessage(err)})
		return
	}

	log := s.log.WithFields(map[string]interface{}{
		"request_id":  c.GetString(requestIDKey),
		"search_term": req.SearchTerm,
		"total_count": req.TotalCount,
	})

	var report *scraper.RunReport
	err := s.queue.Do(c.Request.Context(), func(ctx context.Context) error {
		var runErr error
		report, runErr = s.scraper.RunWithReport(ctx, req)
		return runErr
	})
	if err != nil {
		status := errs.HTTPStatus(err)
		if status == http.StatusBadRequest {
			c.JSON(status, models.ErrorResponse{Error: validationMessage(err)})
			return
		}
		log.WithError(err).Error("Scrape failed")
		c.JSON(status, models.ErrorResponse{Error: msgScrapeFailed})
		return
	}

	posts := report.Posts
	if posts == nil {
		posts = []models.PostRecord{}
	}
	c.Header("X-Run-ID", report.RunID)
	c.JSON(http.StatusOK, models.ScrapeResponse{Posts: posts})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": logger.Version,
		"queue": gin.H{
			"active":      s.queue.Active(),
			"waiting":     s.queue.Waiting(),
			"concurrency": s.queue.Concurrency(),
		},
	})
}

func validationMessage(err error) string {
	var e *errs.Error
	if stderrors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return msgFieldsRequired
}
