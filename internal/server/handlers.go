package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobtrace/jobtrace/internal/feed"
	"github.com/jobtrace/jobtrace/internal/filter"
	"github.com/jobtrace/jobtrace/internal/model"
)

func (s *Server) scrapeJobs(c *gin.Context) {
	jobs, err := s.scraper.Scrape(c.Request.Context())
	if err != nil {
		s.logger.Error("scrape failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": scrapeErrorMessage})
		return
	}
	if jobs == nil {
		jobs = []model.ScrapedJob{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// bindQuery reads an optional feed.Query body. An empty body is the zero
// query.
func bindQuery(c *gin.Context) (feed.Query, error) {
	var q feed.Query
	if err := c.ShouldBindJSON(&q); err != nil && !errors.Is(err, io.EOF) {
		return q, err
	}
	if _, err := filter.ParseSort(string(q.Sort)); err != nil {
		return q, err
	}
	return q, nil
}

func (s *Server) createFeed(c *gin.Context) {
	q, err := bindQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	id, sess := s.feeds.create()
	if err := sess.ctrl.Apply(c.Request.Context(), q); errors.Is(err, feed.ErrUnknownSource) {
		s.feeds.remove(id)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Fetch failures are reported in the snapshot.

	c.Header(HeaderFeedID, id)
	c.JSON(http.StatusCreated, sess.ctrl.Snapshot())
}

func (s *Server) session(c *gin.Context) (*session, bool) {
	sess, ok := s.feeds.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
	}
	return sess, ok
}

func (s *Server) getFeed(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.ctrl.Snapshot())
}

func (s *Server) updateFeed(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	q, err := bindQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	if err := sess.ctrl.Apply(c.Request.Context(), q); errors.Is(err, feed.ErrUnknownSource) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.ctrl.Snapshot())
}

type advanceRequest struct {
	Ratio *float64 `json:"ratio"`
}

func (s *Server) advanceFeed(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	ratio := 1.0
	if req.Ratio != nil {
		ratio = *req.Ratio
	}
	sess.trigger.Observe(c.Request.Context(), ratio)
	c.JSON(http.StatusOK, sess.ctrl.Snapshot())
}

func (s *Server) feedCompanies(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	companies := sess.ctrl.Companies()
	if companies == nil {
		companies = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

func (s *Server) deleteFeed(c *gin.Context) {
	if !s.feeds.remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listSaved(c *gin.Context) {
	jobs, err := s.saved.List(c.Request.Context(), c.GetHeader(HeaderUserID))
	if err != nil {
		s.logger.Error("list saved jobs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load saved jobs"})
		return
	}
	if jobs == nil {
		jobs = []model.SavedJob{}
	}
	c.JSON(http.StatusOK, gin.H{"saved": jobs})
}

func (s *Server) saveJob(c *gin.Context) {
	var job model.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job: " + err.Error()})
		return
	}
	if job.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job id is required"})
		return
	}

	notice, err := s.saved.Save(c.Request.Context(), c.GetHeader(HeaderUserID), job)
	switch {
	case errors.Is(err, model.ErrAlreadySaved):
		c.JSON(http.StatusConflict, gin.H{"notice": notice})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"notice": notice})
	default:
		c.JSON(http.StatusCreated, gin.H{"notice": notice})
	}
}

func (s *Server) unsaveJob(c *gin.Context) {
	notice, err := s.saved.Unsave(c.Request.Context(), c.GetHeader(HeaderUserID), c.Param("jobID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"notice": notice})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notice": notice})
}

func (s *Server) getProfile(c *gin.Context) {
	p, err := s.saved.Profile(c.Request.Context(), c.GetHeader(HeaderUserID), c.GetHeader(HeaderUserEmail))
	if err != nil {
		s.logger.Error("load profile failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	p, err := s.saved.UpdateProfile(c.Request.Context(), c.GetHeader(HeaderUserID), req.DisplayName)
	if err != nil {
		s.logger.Error("update profile failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, p)
}
