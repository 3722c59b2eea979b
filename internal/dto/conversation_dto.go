package dto

import (
	"ai-consultation-be/pkg/consultation"
	"time"
)

type ContinueConversationRequest struct {
	SessionId string `json:"session_id" validate:"omitempty,max=128"`
	Query     string `json:"query" validate:"required,max=4000"`
}

type ContinueConversationResponse struct {
	SessionId             string  `json:"session_id"`
	Response              string  `json:"response"`
	TurnCount             int     `json:"turn_count"`
	FindingsUsed          int     `json:"findings_used"`
	Created               bool    `json:"created"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

type SessionResponse struct {
	SessionId  string              `json:"session_id"`
	Turns      []consultation.Turn `json:"turns"`
	CreatedAt  time.Time           `json:"created_at"`
	LastAccess time.Time           `json:"last_access"`
}
