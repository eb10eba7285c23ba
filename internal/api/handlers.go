package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flipradar/server/internal/aggregator"
	"flipradar/server/internal/database"
	"flipradar/server/internal/evaluations"
	"flipradar/server/internal/models"
	"flipradar/server/internal/pricing"
	"flipradar/server/internal/queue"
	"flipradar/server/internal/scheduler"
)

type Handler struct {
	db        *database.Database
	store     *evaluations.Store
	pricer    *pricing.Engine
	queue     *queue.ObjectQueue
	scheduler *scheduler.Scheduler
	logger    *logrus.Logger
}

type EvaluationRequest struct {
	Tag models.EvaluationTag `json:"tag" binding:"required"`
}

func NewHandler(db *database.Database, store *evaluations.Store, pricer *pricing.Engine, queue *queue.ObjectQueue, sched *scheduler.Scheduler, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		store:     store,
		pricer:    pricer,
		queue:     queue,
		scheduler: sched,
		logger:    logger,
	}
}

// asOf reads the optional as_of query parameter; reports default to the
// current time at the API boundary so the engines stay clock-free.
func (h *Handler) asOf(c *gin.Context) (time.Time, bool) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now().UTC(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid as_of timestamp, expected RFC3339"})
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func (h *Handler) GetMapAreas(c *gin.Context) {
	areas, err := h.db.GetMapAreas()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get map areas")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get map areas"})
		return
	}

	c.JSON(http.StatusOK, areas)
}

// GetAreaReports returns the unscoped subsegment reports for one area.
// With cached=1 the scheduler's last recompute result is served instead of
// a fresh pass.
func (h *Handler) GetAreaReports(c *gin.Context) {
	areaID, ok := parseID(c, "area_id")
	if !ok {
		return
	}

	if c.Query("cached") == "1" && h.scheduler != nil {
		if reports, ok := h.scheduler.LastReports(areaID); ok {
			c.JSON(http.StatusOK, reports)
			return
		}
	}

	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	data, err := h.db.LoadDataset(areaID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load area dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load area data"})
		return
	}

	agg := aggregator.New(data, h.store.Snapshot(), h.pricer, h.logger)
	c.JSON(http.StatusOK, agg.Aggregate(asOf))
}

// GetSegmentReports returns the reports for a single segment's subsegments.
func (h *Handler) GetSegmentReports(c *gin.Context) {
	segmentID, ok := parseID(c, "segment_id")
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	segment, err := h.db.GetSegmentByID(segmentID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get segment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get segment"})
		return
	}
	if segment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Segment not found"})
		return
	}

	data, err := h.db.LoadDataset(segment.MapAreaID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load area dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load area data"})
		return
	}

	agg := aggregator.New(data, h.store.Snapshot(), h.pricer, h.logger)
	agg.SetSegmentScope(segmentID)
	c.JSON(http.StatusOK, agg.Aggregate(asOf))
}

// GetSubsegmentObjects returns the drilled working object set of one
// subsegment, as a chart/table consumer would receive it.
func (h *Handler) GetSubsegmentObjects(c *gin.Context) {
	subsegmentID, ok := parseID(c, "subsegment_id")
	if !ok {
		return
	}

	sub, err := h.db.GetSubsegmentByID(subsegmentID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get subsegment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get subsegment"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subsegment not found"})
		return
	}

	segment, err := h.db.GetSegmentByID(sub.SegmentID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get owning segment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get owning segment"})
		return
	}
	if segment == nil {
		// dangling segment reference degrades to an empty set, not a fault
		h.logger.WithFields(logrus.Fields{
			"subsegment_id": sub.ID,
			"segment_id":    sub.SegmentID,
		}).Warn("Subsegment references a missing segment")
		c.JSON(http.StatusOK, []models.RealEstateObject{})
		return
	}

	data, err := h.db.LoadDataset(segment.MapAreaID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load area dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load area data"})
		return
	}

	agg := aggregator.New(data, h.store.Snapshot(), h.pricer, h.logger)
	if err := agg.DrillIn(subsegmentID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subsegment not found in its area"})
		return
	}

	working := agg.WorkingSet()
	if working == nil {
		working = []models.RealEstateObject{}
	}
	c.JSON(http.StatusOK, working)
}

// GetEvaluation returns an object's evaluation tag, if one is assigned.
func (h *Handler) GetEvaluation(c *gin.Context) {
	objectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	tag, ok := h.store.Get(objectID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Object has no evaluation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"object_id": objectID, "tag": tag})
}

// PutEvaluation assigns an evaluation tag to an object and mirrors it to
// the store.
func (h *Handler) PutEvaluation(c *gin.Context) {
	objectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid evaluation request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	obj, err := h.db.GetObjectByID(objectID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get object"})
		return
	}
	if obj == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Object not found"})
		return
	}

	if err := h.store.Set(objectID, req.Tag); err != nil {
		if errors.Is(err, evaluations.ErrUnknownTag) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown evaluation tag"})
			return
		}
		h.logger.WithError(err).Error("Failed to set evaluation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set evaluation"})
		return
	}

	if err := h.db.PutEvaluation(objectID, req.Tag); err != nil {
		h.logger.WithError(err).Error("Failed to persist evaluation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save evaluation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"object_id": objectID, "tag": req.Tag})
}

// DeleteEvaluation removes an object's evaluation.
func (h *Handler) DeleteEvaluation(c *gin.Context) {
	objectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	h.store.Delete(objectID)
	if err := h.db.DeleteEvaluation(objectID); err != nil {
		h.logger.WithError(err).Error("Failed to delete evaluation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete evaluation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// IngestObjects accepts a batch of observed objects from the external
// ingestion pipeline and queues it for upsert.
func (h *Handler) IngestObjects(c *gin.Context) {
	var batch []*models.RealEstateObject
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.logger.WithError(err).Error("Failed to parse object batch")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid object batch"})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty object batch"})
		return
	}

	if err := h.queue.Push(batch); err != nil {
		h.logger.WithError(err).Error("Failed to queue object batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Intake queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "queued",
		"batch_size": len(batch),
	})
}
