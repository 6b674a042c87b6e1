package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dayflow/assistant"
	"dayflow/auth"
	"dayflow/common"
	"dayflow/domain"
	"dayflow/gateway"
	"dayflow/intelligence"
	"dayflow/skill"
	"dayflow/srv"
)

// HealthReporter exposes the skill registry's aggregate health report.
type HealthReporter interface {
	SystemHealth() skill.SystemHealth
	Definitions() []skill.Definition
}

// Connection reports gateway transport status.
type Connection interface {
	State() gateway.State
	IsConnected() bool
	PendingCount() int
}

// Intelligence is the slice of the intelligence engine the API exposes.
type Intelligence interface {
	CurrentAnalysis() *domain.TimelineAnalysis
	TriggerAnalysis()
	RecentActions(ctx context.Context, limit int) ([]domain.ProactiveActionRecord, error)
	SetProactiveActionsEnabled(enabled bool)
	ProactiveActionsEnabled() bool
	PendingSuggestions(ctx context.Context, userId string) ([]domain.Suggestion, error)
	ApproveSuggestion(ctx context.Context, userId, suggestionId string) error
	DismissSuggestion(ctx context.Context, userId, suggestionId string) error
}

// Assistant is the request/insights façade the API exposes.
type Assistant interface {
	ProcessRequest(ctx context.Context, text string, requestContext map[string]interface{}) (string, error)
	Insights(ctx context.Context) (domain.Insights, error)
	Recommendations(ctx context.Context) (assistant.Recommendations, error)
}

// Identity resolves the signed-in user for user-scoped routes.
type Identity interface {
	CurrentContext() (*auth.SecurityContext, bool)
}

type Controller struct {
	streamer     srv.Streamer
	health       HealthReporter
	conn         Connection
	intelligence Intelligence
	assistant    Assistant
	identity     Identity
}

func NewController(streamer srv.Streamer, health HealthReporter, conn Connection, intelligence Intelligence, assistant Assistant, identity Identity) Controller {
	return Controller{
		streamer:     streamer,
		health:       health,
		conn:         conn,
		intelligence: intelligence,
		assistant:    assistant,
		identity:     identity,
	}
}

func RunServer(ctrl Controller) (*http.Server, error) {
	gin.SetMode(gin.ReleaseMode)
	router, err := DefineRoutes(ctrl)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", common.GetServerPort()),
		Handler: router.Handler(),
	}

	// Start server in a goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start API server: %v\n", err)
		}
	}()

	return server, nil
}

func DefineRoutes(ctrl Controller) (*gin.Engine, error) {
	r := gin.Default()
	r.ForwardedByClientIP = true
	r.SetTrustedProxies(nil)

	allowedOrigins, err := GetAllowedOrigins()
	if err != nil {
		return nil, fmt.Errorf("failed to configure allowed origins: %w", err)
	}
	r.Use(CORSMiddleware(allowedOrigins))
	upgrader.CheckOrigin = CheckWebSocketOrigin(allowedOrigins)

	apiRoutes := r.Group("/api/v1")
	apiRoutes.GET("/health", ctrl.GetHealthHandler)
	apiRoutes.GET("/skills", ctrl.GetSkillsHandler)

	apiRoutes.GET("/analysis", ctrl.GetAnalysisHandler)
	apiRoutes.POST("/analysis/trigger", ctrl.TriggerAnalysisHandler)
	apiRoutes.GET("/insights", ctrl.GetInsightsHandler)
	apiRoutes.GET("/recommendations", ctrl.GetRecommendationsHandler)

	apiRoutes.GET("/actions", ctrl.GetRecentActionsHandler)
	apiRoutes.GET("/proactive", ctrl.GetProactiveModeHandler)
	apiRoutes.PUT("/proactive", ctrl.SetProactiveModeHandler)

	apiRoutes.GET("/suggestions", ctrl.GetSuggestionsHandler)
	apiRoutes.POST("/suggestions/:id/approve", ctrl.ApproveSuggestionHandler)
	apiRoutes.POST("/suggestions/:id/dismiss", ctrl.DismissSuggestionHandler)

	apiRoutes.POST("/assistant/request", ctrl.AssistantRequestHandler)

	wsRoutes := r.Group("/ws/v1")
	wsRoutes.GET("/action_changes", ctrl.ActionChangesWebsocketHandler)
	wsRoutes.GET("/suggestion_changes", ctrl.SuggestionChangesWebsocketHandler)

	return r, nil
}

func (ctrl *Controller) ErrorHandler(c *gin.Context, status int, err error) {
	log.Println("Error:", err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// currentUserId resolves the signed-in user, writing a 401 response when no
// one is signed in.
func (ctrl *Controller) currentUserId(c *gin.Context) (string, bool) {
	sc, ok := ctrl.identity.CurrentContext()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrNotAuthenticated.Error()})
		return "", false
	}
	return sc.UserId, true
}

func (ctrl *Controller) GetHealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"gateway": gin.H{
			"state":           ctrl.conn.State(),
			"connected":       ctrl.conn.IsConnected(),
			"pendingRequests": ctrl.conn.PendingCount(),
		},
		"skills": ctrl.health.SystemHealth(),
	})
}

func (ctrl *Controller) GetSkillsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"skills": ctrl.health.Definitions()})
}

func (ctrl *Controller) GetAnalysisHandler(c *gin.Context) {
	analysis := ctrl.intelligence.CurrentAnalysis()
	if analysis == nil {
		ctrl.ErrorHandler(c, http.StatusNotFound, errors.New("no analysis available yet"))
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (ctrl *Controller) TriggerAnalysisHandler(c *gin.Context) {
	ctrl.intelligence.TriggerAnalysis()
	c.Status(http.StatusAccepted)
}

func (ctrl *Controller) GetInsightsHandler(c *gin.Context) {
	insights, err := ctrl.assistant.Insights(c.Request.Context())
	if err != nil {
		if errors.Is(err, assistant.ErrGatewayUnavailable) {
			ctrl.ErrorHandler(c, http.StatusServiceUnavailable, err)
			return
		}
		if errors.Is(err, assistant.ErrNoAnalysis) {
			ctrl.ErrorHandler(c, http.StatusNotFound, err)
			return
		}
		ctrl.ErrorHandler(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}

func (ctrl *Controller) GetRecommendationsHandler(c *gin.Context) {
	recommendations, err := ctrl.assistant.Recommendations(c.Request.Context())
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			ctrl.ErrorHandler(c, http.StatusUnauthorized, err)
			return
		}
		if errors.Is(err, assistant.ErrGatewayUnavailable) {
			ctrl.ErrorHandler(c, http.StatusServiceUnavailable, err)
			return
		}
		ctrl.ErrorHandler(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, recommendations)
}

func (ctrl *Controller) GetRecentActionsHandler(c *gin.Context) {
	limit := 20
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			ctrl.ErrorHandler(c, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := ctrl.intelligence.RecentActions(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			ctrl.ErrorHandler(c, http.StatusUnauthorized, err)
			return
		}
		ctrl.ErrorHandler(c, http.StatusInternalServerError, errors.New("failed to fetch action records"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": records})
}

func (ctrl *Controller) GetProactiveModeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": ctrl.intelligence.ProactiveActionsEnabled()})
}

type proactiveModeRequest struct {
	Enabled *bool `json:"enabled"`
}

func (ctrl *Controller) SetProactiveModeHandler(c *gin.Context) {
	var req proactiveModeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		ctrl.ErrorHandler(c, http.StatusBadRequest, errors.New("enabled field is required"))
		return
	}
	ctrl.intelligence.SetProactiveActionsEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

func (ctrl *Controller) GetSuggestionsHandler(c *gin.Context) {
	userId, ok := ctrl.currentUserId(c)
	if !ok {
		return
	}
	suggestions, err := ctrl.intelligence.PendingSuggestions(c.Request.Context(), userId)
	if err != nil {
		ctrl.ErrorHandler(c, http.StatusInternalServerError, errors.New("failed to fetch suggestions"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (ctrl *Controller) ApproveSuggestionHandler(c *gin.Context) {
	userId, ok := ctrl.currentUserId(c)
	if !ok {
		return
	}
	err := ctrl.intelligence.ApproveSuggestion(c.Request.Context(), userId, c.Param("id"))
	ctrl.respondSuggestionReview(c, err, domain.SuggestionStatusApproved)
}

func (ctrl *Controller) DismissSuggestionHandler(c *gin.Context) {
	userId, ok := ctrl.currentUserId(c)
	if !ok {
		return
	}
	err := ctrl.intelligence.DismissSuggestion(c.Request.Context(), userId, c.Param("id"))
	ctrl.respondSuggestionReview(c, err, domain.SuggestionStatusDismissed)
}

func (ctrl *Controller) respondSuggestionReview(c *gin.Context, err error, status domain.SuggestionStatus) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": status})
	case errors.Is(err, srv.ErrNotFound):
		ctrl.ErrorHandler(c, http.StatusNotFound, errors.New("suggestion not found"))
	case errors.Is(err, intelligence.ErrSuggestionStale), errors.Is(err, intelligence.ErrSuggestionNotPending):
		ctrl.ErrorHandler(c, http.StatusConflict, err)
	default:
		ctrl.ErrorHandler(c, http.StatusInternalServerError, err)
	}
}

type assistantRequest struct {
	Text    string                 `json:"text"`
	Context map[string]interface{} `json:"context"`
}

func (ctrl *Controller) AssistantRequestHandler(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		ctrl.ErrorHandler(c, http.StatusBadRequest, errors.New("text field is required"))
		return
	}

	text, err := ctrl.assistant.ProcessRequest(c.Request.Context(), req.Text, req.Context)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrGatewayUnavailable):
			ctrl.ErrorHandler(c, http.StatusServiceUnavailable, err)
		case errors.Is(err, auth.ErrNotAuthenticated), errors.Is(err, auth.ErrNotPermitted):
			ctrl.ErrorHandler(c, http.StatusForbidden, err)
		default:
			ctrl.ErrorHandler(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// websocketStreamBlock bounds each stream read so disconnects are noticed
// promptly.
const websocketStreamBlock = 10 * time.Second

func (ctrl *Controller) ActionChangesWebsocketHandler(c *gin.Context) {
	ctrl.changesWebsocket(c, func(ctx context.Context, userId, startId string) (interface{}, string, error) {
		records, lastId, err := ctrl.streamer.GetActionRecordChanges(ctx, userId, startId, 100, websocketStreamBlock)
		if err != nil {
			return nil, "", err
		}
		if len(records) == 0 {
			return nil, lastId, nil
		}
		return gin.H{"actions": records, "lastStreamId": lastId}, lastId, nil
	})
}

func (ctrl *Controller) SuggestionChangesWebsocketHandler(c *gin.Context) {
	ctrl.changesWebsocket(c, func(ctx context.Context, userId, startId string) (interface{}, string, error) {
		suggestions, lastId, err := ctrl.streamer.GetSuggestionChanges(ctx, userId, startId, 100, websocketStreamBlock)
		if err != nil {
			return nil, "", err
		}
		if len(suggestions) == 0 {
			return nil, lastId, nil
		}
		return gin.H{"suggestions": suggestions, "lastStreamId": lastId}, lastId, nil
	})
}

// changesWebsocket upgrades the connection and pumps change-stream reads to
// the client until it disconnects.
func (ctrl *Controller) changesWebsocket(c *gin.Context, read func(ctx context.Context, userId, startId string) (interface{}, string, error)) {
	userId, ok := ctrl.currentUserId(c)
	if !ok {
		return
	}
	startId := c.Query("lastStreamId")
	if startId == "" {
		startId = "$" // Start from the latest message by default
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		http.Error(c.Writer, "Could not open websocket connection", http.StatusBadRequest)
		return
	}
	defer conn.Close()

	// Create a new context that's canceled when the WebSocket connection is closed
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Handle disconnection detection in a separate goroutine
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, lastId, err := read(ctx, userId, startId)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Blocking reads surface a timeout error when no changes arrive
			// within the block window; keep polling. The short sleep keeps
			// real errors from spinning.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if lastId != "" {
			startId = lastId
		}
		if payload == nil {
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("Error writing change to websocket: %v", err)
			return
		}
	}
}
