package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Resanso/aquaseer-api/internal/processing"
	"github.com/Resanso/aquaseer-api/internal/sensor"
)

const (
	chatTimeout         = 45 * time.Second
	pondAssistantPrompt = "You are an aquaculture assistant for a pond monitoring dashboard. Answer the operator's question using only the sensor snapshot and thresholds provided. Be concise, name ponds explicitly, and say when the data does not answer the question."
)

type chatQueryRequest struct {
	Question string `json:"question"`
}

// HandleChatQuery answers a question about the current pond readings.
func HandleChatQuery(c *gin.Context, deps Dependencies) {
	if deps.LLM == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "LLM client not configured"})
		return
	}
	if deps.Simulator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulator not running"})
		return
	}

	var req chatQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	var active []processing.Alert
	if deps.Alerts != nil {
		active = deps.Alerts.ActiveAlerts()
	}
	snapshot, err := buildPondContext(deps.Simulator.List(), active)
	if err != nil {
		log.Printf("build chat context failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	answer, err := deps.LLM.GenerateText(ctx, pondAssistantPrompt, snapshot, "Question: "+question)
	if err != nil {
		log.Printf("llm pond answer failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate answer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": strings.TrimSpace(answer)})
}

type pondContext struct {
	Thresholds sensor.Bounds      `json:"thresholds"`
	Sensors    []sensorView       `json:"sensors"`
	Alerts     []processing.Alert `json:"activeAlerts,omitempty"`
}

func buildPondContext(records []sensor.Record, alerts []processing.Alert) (string, error) {
	payload := pondContext{
		Thresholds: sensor.DisplayThresholds,
		Sensors:    make([]sensorView, 0, len(records)),
		Alerts:     alerts,
	}
	for _, rec := range records {
		payload.Sensors = append(payload.Sensors, newSensorView(rec))
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Current pond snapshot (JSON):\n%s", raw), nil
}
