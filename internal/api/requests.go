package api

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// allowedAudioTypes are the accepted upload content types.
var allowedAudioTypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/aac":   true,
	"audio/mp4":   true,
}

// CreateJobRequest holds the form fields of a job submission.
type CreateJobRequest struct {
	Prompt      string `validate:"max=500"`
	Lyrics      string `validate:"max=20000"`
	Mode        string `validate:"oneof=fast high"`
	AspectRatio string `validate:"oneof=16:9 9:16 1:1"`
}

// Validate checks the request fields.
func (r *CreateJobRequest) Validate() error {
	return validate.Struct(r)
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Validate checks the request fields.
func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}

type createJobResponse struct {
	ID string `json:"id"`
}

type jobResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Progress    float64         `json:"progress"`
	Message     string          `json:"message"`
	Report      json.RawMessage `json:"report"`
	Plan        string          `json:"plan"`
	DownloadURL *string         `json:"download_url"`
}

type estimateResponse struct {
	EstimatedCredits int    `json:"estimated_credits"`
	RemainingCredits int    `json:"remaining_credits"`
	Plan             string `json:"plan"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
