package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeRegistrationEmail  = "email:registration"
	TypeVerificationEmail  = "email:verification"
	TypePasswordResetEmail = "email:password_reset"
	TypeCleanupSweep       = "cleanup:sweep"
)

// EmailPayload carries everything the worker needs to build an account mail.
// The token travels only through the queue, never through an API response.
type EmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Token string `json:"token"`
}

func NewRegistrationEmailTask(payload EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRegistrationEmail, data, asynq.Queue("critical")), nil
}

func NewVerificationEmailTask(payload EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeVerificationEmail, data, asynq.Queue("critical")), nil
}

func NewPasswordResetEmailTask(payload EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePasswordResetEmail, data, asynq.Queue("critical")), nil
}

// SweepPayload selects which sweep the worker runs.
type SweepPayload struct {
	Deep bool `json:"deep"`
}

func NewCleanupSweepTask(payload SweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCleanupSweep, data, asynq.Queue("low")), nil
}
