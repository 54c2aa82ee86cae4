package handler

import "time"

// Response is the standard API response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Reason string `json:"reason,omitempty"`
}

// NeighborResponse is one direct neighbour.
type NeighborResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// ServiceSummary is one service in the status report.
type ServiceSummary struct {
	Service      uint32 `json:"service"`
	Participant  bool   `json:"participant"`
	Participants int    `json:"participants"`
}

// StatusResponse is the body of GET /admin/v1/status.
type StatusResponse struct {
	NodeID    string             `json:"node_id"`
	Address   string             `json:"address"`
	Levels    int                `json:"levels"`
	GroupSize int                `json:"group_size"`
	Version   string             `json:"version"`
	Neighbors []NeighborResponse `json:"neighbors"`
	Services  []ServiceSummary   `json:"services"`
}

// RouteResponse is the best known route to one position.
type RouteResponse struct {
	Level   int    `json:"level"`
	Pos     int    `json:"pos"`
	Gateway string `json:"gateway"`
	Cost    int    `json:"cost"`
}

// LevelParticipants lists the participant positions at one level.
type LevelParticipants struct {
	Level     int   `json:"level"`
	Positions []int `json:"positions"`
}

// ServiceResponse is the body of GET /admin/v1/services/{id}.
type ServiceResponse struct {
	Service     uint32              `json:"service"`
	Me          string              `json:"me"`
	Participant bool                `json:"participant"`
	Levels      []LevelParticipants `json:"levels"`
}
