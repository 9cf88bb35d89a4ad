package api

import (
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/export"
	"github.com/BlakeDonn/inven/pkg/match"
	"github.com/BlakeDonn/inven/pkg/pipeline"
)

type matchRequest struct {
	Text string `json:"text" binding:"required"`
}

type itemResponse struct {
	Matched    bool              `json:"matched"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Rarity     string            `json:"rarity"`
	Score      float64           `json:"score"`
	Source     string            `json:"source"`
	Candidates []match.Candidate `json:"candidates,omitempty"`
}

type traitResponse struct {
	Matched    bool              `json:"matched"`
	Name       string            `json:"name"`
	Normalized string            `json:"normalized"`
	Score      float64           `json:"score"`
	Source     string            `json:"source"`
	Candidates []match.Candidate `json:"candidates,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) matchItem(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	res := s.pipe.MatchItem(req.Text)
	c.JSON(http.StatusOK, itemResponse{
		Matched:    res.Matched(),
		Name:       res.Value.Name,
		Type:       res.Value.Type,
		Rarity:     string(res.Value.Rarity),
		Score:      res.Score,
		Source:     res.Source.String(),
		Candidates: res.Candidates,
	})
}

func (s *Server) matchTrait(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	normalized, res := s.pipe.MatchTrait(req.Text)
	c.JSON(http.StatusOK, traitResponse{
		Matched:    res.Matched(),
		Name:       res.Value,
		Normalized: normalized,
		Score:      res.Score,
		Source:     res.Source.String(),
		Candidates: res.Candidates,
	})
}

// extract runs the full pipeline over a title and trait crop uploaded as
// multipart fields "title" and "trait".
func (s *Server) extract(c *gin.Context) {
	title, err := s.formImage(c, "title")
	if err != nil {
		s.imageError(c, err)
		return
	}
	trait, err := s.formImage(c, "trait")
	if err != nil {
		s.imageError(c, err)
		return
	}
	id := strings.TrimSpace(c.PostForm("id"))
	if id == "" {
		id = uuid.NewString()
	}
	rec := s.pipe.ProcessImages(c.Request.Context(), id, title, trait)
	c.JSON(http.StatusOK, rec)
}

var (
	errMissingPart = errors.New("missing multipart file")
	errBadImage    = errors.New("cannot decode image")
)

func (s *Server) formImage(c *gin.Context, field string) (image.Image, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w %q", errMissingPart, field)
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w %q: file too large", errBadImage, field)
	}
	return decode(fh, field)
}

func decode(fh *multipart.FileHeader, field string) (image.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", errBadImage, field, err)
	}
	defer f.Close()
	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", errBadImage, field, err)
	}
	return img, nil
}

func (s *Server) imageError(c *gin.Context, err error) {
	status := http.StatusUnprocessableEntity
	if errors.Is(err, errMissingPart) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) runRecords(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no database configured"})
		return
	}
	runID := c.Param("id")
	var run models.Run
	if err := s.db.WithContext(c.Request.Context()).Where("id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		s.logger.Printf("ERROR fetch run %s: %v", runID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run"})
		return
	}
	var rows []models.Record
	if err := s.db.WithContext(c.Request.Context()).Where("run_id = ?", runID).Find(&rows).Error; err != nil {
		s.logger.Printf("ERROR fetch records run=%s: %v", runID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch records"})
		return
	}
	recs := make([]pipeline.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, export.FromModel(r))
	}
	pipeline.SortRecords(recs)
	c.JSON(http.StatusOK, gin.H{"run": run.ID, "started_at": run.StartedAt, "records": recs})
}
