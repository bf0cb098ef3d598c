package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smukkama/health-correlation-server/internal/cache"
	"github.com/smukkama/health-correlation-server/internal/database"
	"github.com/smukkama/health-correlation-server/internal/protocol"
	"github.com/smukkama/health-correlation-server/internal/queue"
)

// CorrelationReader is the read surface of the correlation store.
// *database.DB implements it.
type CorrelationReader interface {
	GetCorrelation(ctx context.Context, userID int64, typeA, typeB string) (*database.CorrelationRecord, error)
	PingContext(ctx context.Context) error
}

// Publisher hands validated calculation requests to the broker.
// *queue.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Handler serves the ingress (calculate) and egress (correlation query)
// endpoints. The cache may be nil; reads then always go to the store.
type Handler struct {
	store    CorrelationReader
	producer Publisher
	cache    *cache.CorrelationCache
}

// NewHandler creates an API handler.
func NewHandler(store CorrelationReader, producer Publisher, corrCache *cache.CorrelationCache) *Handler {
	return &Handler{
		store:    store,
		producer: producer,
		cache:    corrCache,
	}
}

// NewRouter builds the gin router for the API service.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.Default()

	router.GET("/health", h.Health)
	api := router.Group("/api")
	{
		api.POST("/calculate", h.Calculate)
		api.GET("/correlation", h.GetCorrelation)
	}

	return router
}

// Calculate validates a calculation payload and enqueues it for the
// calculator service. Responds 202 with the assigned request id.
func (h *Handler) Calculate(c *gin.Context) {
	var payload protocol.CalculationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid payload: %v", err)})
		return
	}

	if err := payload.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := &protocol.CalculationMessage{
		RequestID:  uuid.New().String(),
		ReceivedAt: time.Now().UTC(),
		Payload:    payload,
	}

	data, err := protocol.EncodeCalculationMessage(msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode calculation"})
		return
	}

	if err := h.producer.Publish(c.Request.Context(), queue.UserKey(payload.UserID), data); err != nil {
		fmt.Printf("Failed to publish calculation %s: %v\n", msg.RequestID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue calculation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"request_id": msg.RequestID})
}

// GetCorrelation serves the latest stored correlation for a user and an
// unordered pair of data types. 404 when none has been computed.
func (h *Handler) GetCorrelation(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a positive integer"})
		return
	}

	xType, err := protocol.ParseDataType(c.Query("x_data_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	yType, err := protocol.ParseDataType(c.Query("y_data_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if xType == yType {
		c.JSON(http.StatusBadRequest, gin.H{"error": protocol.ErrSameDataTypes.Error()})
		return
	}

	ctx := c.Request.Context()

	if h.cache != nil {
		rec, err := h.cache.Get(ctx, userID, string(xType), string(yType))
		if err != nil {
			// Degrade to the database on cache trouble
			fmt.Printf("Cache read failed for user %d: %v\n", userID, err)
		} else if rec != nil {
			c.JSON(http.StatusOK, correlationResponse(rec))
			return
		}
	}

	rec, err := h.store.GetCorrelation(ctx, userID, string(xType), string(yType))
	if err != nil {
		fmt.Printf("Failed to read correlation for user %d: %v\n", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read correlation"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "correlation not found"})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, rec); err != nil {
			fmt.Printf("Cache write failed for user %d: %v\n", userID, err)
		}
	}

	c.JSON(http.StatusOK, correlationResponse(rec))
}

// Health reports liveness, including database reachability.
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func correlationResponse(rec *database.CorrelationRecord) protocol.CorrelationResponse {
	return protocol.CorrelationResponse{
		UserID: rec.UserID,
		DataTypes: []protocol.DataType{
			protocol.DataType(rec.XDataType),
			protocol.DataType(rec.YDataType),
		},
		Correlation: protocol.Correlation{
			Value:  rec.Correlation,
			PValue: rec.PValue,
		},
	}
}
