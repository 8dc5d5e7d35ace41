package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"homefinder/server/internal/affordability"
	"homefinder/server/internal/amenities"
	"homefinder/server/internal/analytics"
	"homefinder/server/internal/database"
	"homefinder/server/internal/geometry"
	"homefinder/server/internal/models"
	"homefinder/server/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// TownDirectory lists the enrichment records behind the towns endpoint.
type TownDirectory interface {
	All(ctx context.Context, region, maturity string) ([]models.TownMetadata, error)
}

type Handler struct {
	db           *database.Database
	trends       *analytics.TrendAggregator
	ranker       *analytics.ComparisonRanker
	solver       *affordability.Solver
	pipeline     *amenities.Pipeline
	spatialStore *amenities.MongoStore
	townMeta     TownDirectory
	featureQueue *queue.FeatureQueue
	logger       *logrus.Logger
}

func NewHandler(
	db *database.Database,
	ranker *analytics.ComparisonRanker,
	pipeline *amenities.Pipeline,
	spatialStore *amenities.MongoStore,
	townMeta TownDirectory,
	featureQueue *queue.FeatureQueue,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Handler{
		db:           db,
		trends:       analytics.NewTrendAggregator(db),
		ranker:       ranker,
		solver:       affordability.NewSolver(db),
		pipeline:     pipeline,
		spatialStore: spatialStore,
		townMeta:     townMeta,
		featureQueue: featureQueue,
		logger:       logger,
	}
}

// GetMeta returns the reference data for form dropdowns.
func (h *Handler) GetMeta(c *gin.Context) {
	towns, err := h.db.GetTowns()
	if err != nil {
		h.fail(c, err, "Failed to get towns")
		return
	}
	flatTypes, err := h.db.GetFlatTypes()
	if err != nil {
		h.fail(c, err, "Failed to get flat types")
		return
	}
	months, err := h.db.GetMonths()
	if err != nil {
		h.fail(c, err, "Failed to get months")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"towns":         towns,
		"flat_types":    flatTypes,
		"months":        months,
		"amenity_types": []string{"MRT", "SCHOOL_ZONE", "CLINIC", "SUPERMARKET", "PARK"},
	})
}

type trendsRequest struct {
	Town       string `json:"town"`
	FlatType   string `json:"flat_type"`
	StartMonth string `json:"start_month"`
	EndMonth   string `json:"end_month"`
}

// SearchTrends returns per-month price statistics for a town and flat type.
func (h *Handler) SearchTrends(c *gin.Context) {
	var req trendsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid request body"})
		return
	}

	rows, err := h.trends.ComputeTrends(req.Town, req.FlatType, req.StartMonth, req.EndMonth)
	if err != nil {
		var verr *analytics.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": verr.Error()})
			return
		}
		h.fail(c, err, "Failed to compute trends")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"rows": rows,
		"filters": gin.H{
			"town":        req.Town,
			"flat_type":   req.FlatType,
			"start_month": req.StartMonth,
			"end_month":   req.EndMonth,
		},
	})
}

type transactionsRequest struct {
	Town     string `json:"town"`
	FlatType string `json:"flat_type"`
	Limit    int    `json:"limit"`
}

// SearchTransactions returns recent individual transactions.
func (h *Handler) SearchTransactions(c *gin.Context) {
	var req transactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid request body"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	filter := models.TransactionFilter{FlatType: req.FlatType, Limit: req.Limit}
	if req.Town != "" {
		filter.Towns = []string{req.Town}
	}

	transactions, err := h.db.QueryTransactions(filter)
	if err != nil {
		h.fail(c, err, "Failed to query transactions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"transactions": transactions,
		"count":        len(transactions),
	})
}

type compareRequest struct {
	Towns        []string `json:"towns"`
	FlatType     string   `json:"flat_type"`
	IncludeEmpty bool     `json:"include_empty"`
}

// CompareTowns ranks towns over the trailing comparison window.
func (h *Handler) CompareTowns(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid request body"})
		return
	}
	if req.FlatType == "" {
		req.FlatType = "4 ROOM"
	}

	// The window anchor is derived once here so the ranking itself is a
	// deterministic function of its inputs.
	anchor, err := h.db.LatestMonth()
	if err != nil {
		h.fail(c, err, "Failed to derive comparison anchor")
		return
	}

	rows, err := h.ranker.Compare(req.Towns, req.FlatType, anchor, req.IncludeEmpty)
	if err != nil {
		h.fail(c, err, "Failed to compare towns")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "comparison": rows})
}

type affordabilityRequest struct {
	Income         float64     `json:"income"`
	Expenses       float64     `json:"expenses"`
	LoanType       string      `json:"loan_type"`
	Interest       interface{} `json:"interest"`
	TenureYears    interface{} `json:"tenure_years"`
	DownPaymentPct interface{} `json:"down_payment_pct"`
}

// SolveAffordability estimates the maximum affordable loan and property
// value for the supplied income and expenses.
func (h *Handler) SolveAffordability(c *gin.Context) {
	var req affordabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid request body"})
		return
	}

	loanType := models.LoanTypeHDB
	if req.LoanType == string(models.LoanTypeBank) {
		loanType = models.LoanTypeBank
	}

	result, err := h.solver.Solve(req.Income, req.Expenses, loanType, affordability.Overrides{
		InterestRate:   overrideString(req.Interest),
		TenureYears:    overrideString(req.TenureYears),
		DownPaymentPct: overrideString(req.DownPaymentPct),
	})
	if err != nil {
		if errors.Is(err, database.ErrPolicyUnavailable) {
			h.logger.WithError(err).Error("Policy store unavailable")
			c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "Policy data unavailable"})
			return
		}
		h.fail(c, err, "Failed to compute affordability")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

// overrideString renders an optional JSON override (number or string) into
// the solver's raw-string form; malformed values simply fail to parse there.
func overrideString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

type uploadRequest struct {
	Type       string                 `json:"type"`
	Features   []amenities.RawFeature `json:"features"`
	Geometry   *amenities.RawGeometry `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// IngestAmenities accepts a GeoJSON FeatureCollection (or single Feature)
// and upserts it into the spatial store. With ?async=1 the batch is queued
// for the ingestion workers instead and the handler returns immediately.
func (h *Handler) IngestAmenities(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid GeoJSON body"})
		return
	}

	features := req.Features
	if req.Type == "Feature" {
		features = []amenities.RawFeature{{
			Type:       req.Type,
			Geometry:   req.Geometry,
			Properties: req.Properties,
		}}
	}
	if len(features) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "No features provided"})
		return
	}

	source := c.DefaultQuery("source", "upload")
	if t := c.Query("type"); t != "" {
		source = t
	}

	if c.Query("async") != "" {
		err := h.featureQueue.Push(queue.FeatureBatch{SourceLabel: source, Features: features})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"ok": true, "queued": len(features)})
		return
	}

	result, err := h.pipeline.Ingest(c.Request.Context(), features, source)
	if err != nil {
		// Partial failures still report the counts that applied.
		h.logger.WithError(err).Error("Amenity ingestion partially failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok": false, "error": "Some features failed to write", "result": result,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"feature_count": len(features),
		"inserted":      result.Inserted,
		"updated":       result.Updated,
		"dropped":       result.Dropped,
	})
}

// NearbyAmenities returns amenities around a point, nearest first.
func (h *Handler) NearbyAmenities(c *gin.Context) {
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	if errLon != nil || errLat != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "lon and lat are required numbers"})
		return
	}

	radius, _ := strconv.Atoi(c.DefaultQuery("radius", "1000"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	features, err := h.pipeline.Nearby(c.Request.Context(), lon, lat, radius, c.Query("type"), limit)
	if err != nil {
		h.fail(c, err, "Failed to query nearby amenities")
		return
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = features
	c.JSON(http.StatusOK, fc)
}

// AmenityStats returns per-category amenity counts.
func (h *Handler) AmenityStats(c *gin.Context) {
	stats, err := h.pipeline.StatsForTown(c.Request.Context(), c.Query("town"))
	if err != nil {
		h.fail(c, err, "Failed to get amenity stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stats": stats})
}

// AmenityBoundary hulls one category's points into a boundary feature.
func (h *Handler) AmenityBoundary(c *gin.Context) {
	amenityType := c.Query("type")
	if amenityType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "type is required"})
		return
	}

	points, err := h.spatialStore.AllPointsOfType(c.Request.Context(), amenityType)
	if err != nil {
		h.fail(c, err, "Failed to load amenity points")
		return
	}

	boundary := geometry.BoundaryFeature(amenityType, points)
	if boundary == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Not enough points for a boundary"})
		return
	}
	c.JSON(http.StatusOK, boundary)
}

// ListTowns returns the town enrichment records, optionally filtered by
// region or maturity.
func (h *Handler) ListTowns(c *gin.Context) {
	towns, err := h.townMeta.All(c.Request.Context(), c.Query("region"), c.Query("maturity"))
	if err != nil {
		h.fail(c, err, "Failed to list towns")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "towns": towns, "count": len(towns)})
}

// MarketStats returns store-wide transaction statistics.
func (h *Handler) MarketStats(c *gin.Context) {
	stats, err := h.db.MarketStatistics()
	if err != nil {
		h.fail(c, err, "Failed to get market statistics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stats": stats})
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	h.logger.WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msg})
}
