package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	cs "github.com/webtor-io/common-services"
	"github.com/webtor-io/lazymap"

	"github.com/rtvfan-io/backend/models"
)

// Handler exposes the entity store read-only. It never aggregates per-episode
// facts itself: appearance rows are served exactly as the propagator stored
// them, and the denormalized name fields keep joins off the hot paths.
type Handler struct {
	pg          *cs.PG
	shows       *lazymap.LazyMap[*showView]
	appearances *lazymap.LazyMap[[]*models.EpisodeAppearance]
}

type showView struct {
	Show    *models.Show             `json:"show"`
	Seasons []*models.Season         `json:"seasons"`
	Cast    []*models.CastMembership `json:"cast"`
	Images  []*models.ShowImage      `json:"images"`
}

func RegisterHandler(r *gin.Engine, pg *cs.PG) *Handler {
	h := &Handler{
		pg: pg,
		shows: lazymap.New[*showView](&lazymap.Config{
			Expire:      time.Minute,
			ErrorExpire: 10 * time.Second,
		}),
		appearances: lazymap.New[[]*models.EpisodeAppearance](&lazymap.Config{
			Expire:      time.Minute,
			ErrorExpire: 10 * time.Second,
		}),
	}
	gr := r.Group("/api")
	gr.GET("/shows", h.listShows)
	gr.GET("/shows/:id", h.getShow)
	gr.GET("/people/:id", h.getPerson)
	gr.GET("/people/:id/appearances", h.getAppearances)
	gr.GET("/people/:id/photos", h.getPhotos)
	return h
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return 0, false
	}
	return id, true
}

func (s *Handler) db() (*pg.DB, error) {
	db := s.pg.Get()
	if db == nil {
		return nil, errors.New("db not initialized")
	}
	return db, nil
}

func (s *Handler) listShows(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	db, err := s.db()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	shows, err := models.ListShows(c.Request.Context(), db, limit, offset)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shows": shows})
}

func (s *Handler) getShow(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	view, err := s.shows.Get(fmt.Sprintf("show:%d", id), func() (*showView, error) {
		return s.loadShow(c.Request.Context(), id)
	})
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "show not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Handler) loadShow(ctx context.Context, id int64) (*showView, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	show, err := models.GetShowByID(ctx, db, id)
	if err != nil || show == nil {
		return nil, err
	}
	seasons, err := models.GetSeasonsByShowID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	cast, err := models.GetCastByShowID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	images, err := models.GetShowImagesByShowID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return &showView{Show: show, Seasons: seasons, Cast: cast, Images: images}, nil
}

func (s *Handler) getPerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	db, err := s.db()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	person, err := models.GetPersonByID(c.Request.Context(), db, id)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"person": person})
}

func (s *Handler) getAppearances(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	apps, err := s.appearances.Get(fmt.Sprintf("appearances:%d", id), func() ([]*models.EpisodeAppearance, error) {
		db, err := s.db()
		if err != nil {
			return nil, err
		}
		return models.GetAppearancesByPersonID(c.Request.Context(), db, id)
	})
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appearances": apps})
}

func (s *Handler) getPhotos(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	db, err := s.db()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	photos, err := models.GetCastPhotosByPersonID(c.Request.Context(), db, id)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}
