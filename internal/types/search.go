package types

import (
	"encoding/json"
	"time"
)

// Search statuses
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusExhausted = "exhausted"
	StatusAborted   = "aborted"
)

// SearchRecord represents one brute force search and its outcome
type SearchRecord struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"` // "running", "succeeded", "exhausted", "aborted"
	Plan       json.RawMessage `json:"plan,omitempty"`
	Depth      int             `json:"depth"`
	Volume     uint64          `json:"volume"`
	Explored   uint64          `json:"explored"`
	StartTic   int             `json:"start_tic"`
	Sequence   []string        `json:"sequence,omitempty"`
	Target     string          `json:"target,omitempty"`
	BestValue  string          `json:"best_value,omitempty"`
	ElapsedMs  int64           `json:"elapsed_ms"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Finished reports whether the search has reached an outcome
func (r *SearchRecord) Finished() bool {
	return r.Status != StatusRunning
}

// ActiveSearchResponse represents the live driver status
type ActiveSearchResponse struct {
	ID         string   `json:"id,omitempty"`
	Active     bool     `json:"active"`
	Depth      int      `json:"depth"`
	Explored   uint64   `json:"explored"`
	Volume     uint64   `json:"volume"`
	Progress   float64  `json:"progress"`
	Frames     []string `json:"frames,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
	Target     string   `json:"target"`
	BestValue  string   `json:"best_value,omitempty"`

	KeyFrameBytes    int `json:"key_frame_bytes"`
	KeyFrameCaptures int `json:"key_frame_captures"`
	KeyFrameRestores int `json:"key_frame_restores"`
}

// StopSearchResponse represents the response when stopping a search
type StopSearchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "aborted"
}

// AdvanceRequest represents a frame advance request
type AdvanceRequest struct {
	Tics int `json:"tics"`
}

// CommandRequest edits the live build command. Nil fields are left alone.
// Actions run in order after the explicit amounts, e.g. "forward",
// "fine_strafe_left", "turn_right" or "turbo".
type CommandRequest struct {
	MF       *int     `json:"mf,omitempty"`
	MB       *int     `json:"mb,omitempty"`
	SR       *int     `json:"sr,omitempty"`
	SL       *int     `json:"sl,omitempty"`
	TR       *int     `json:"tr,omitempty"`
	TL       *int     `json:"tl,omitempty"`
	Actions  []string `json:"actions,omitempty"`
	Use      bool     `json:"use,omitempty"`
	Fire     bool     `json:"fire,omitempty"`
	Weapon   *int     `json:"weapon,omitempty"`
	Reset    bool     `json:"reset,omitempty"`
	UseBuild *bool    `json:"use_build,omitempty"`
}

// CommandResponse represents the live build command after an edit
type CommandResponse struct {
	Command  string `json:"command"`
	Turbo    bool   `json:"turbo"`
	UseBuild bool   `json:"use_build"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
