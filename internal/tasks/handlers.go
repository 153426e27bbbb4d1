package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/cleanup"
	"gorm.io/gorm"
)

type Handler struct {
	logger  *slog.Logger
	mailer  Mailer
	sweeper *cleanup.Sweeper
	baseURL string
}

func NewHandler(db *gorm.DB, logger *slog.Logger, mailer Mailer, baseURL string) *Handler {
	return &Handler{
		logger:  logger,
		mailer:  mailer,
		sweeper: cleanup.NewSweeper(db, logger),
		baseURL: baseURL,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRegistrationEmail, h.HandleRegistrationEmail)
	mux.HandleFunc(TypeVerificationEmail, h.HandleVerificationEmail)
	mux.HandleFunc(TypePasswordResetEmail, h.HandlePasswordResetEmail)
	mux.HandleFunc(TypeCleanupSweep, h.HandleCleanupSweep)
}

func (h *Handler) HandleRegistrationEmail(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	link := fmt.Sprintf("%s/register/%s", h.baseURL, payload.Token)
	mail := Mail{
		To:      payload.Email,
		Subject: "Finish creating your account",
		Body:    "Follow this link to finish creating your account: " + link,
	}

	if err := h.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("send registration mail: %w", err)
	}

	h.logger.Info("delivered registration mail", "to", payload.Email)
	return nil
}

func (h *Handler) HandleVerificationEmail(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	link := fmt.Sprintf("%s/verify-email/%s", h.baseURL, payload.Token)
	mail := Mail{
		To:      payload.Email,
		Subject: "Verify your email address",
		Body:    "Follow this link to verify your email address: " + link,
	}

	if err := h.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	h.logger.Info("delivered verification mail", "to", payload.Email)
	return nil
}

func (h *Handler) HandlePasswordResetEmail(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password/%s", h.baseURL, payload.Token)
	mail := Mail{
		To:      payload.Email,
		Subject: "Reset your password",
		Body:    "Follow this link to choose a new password: " + link,
	}

	if err := h.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	h.logger.Info("delivered password reset mail", "to", payload.Email)
	return nil
}

func (h *Handler) HandleCleanupSweep(ctx context.Context, t *asynq.Task) error {
	var payload SweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if payload.Deep {
		report, err := h.sweeper.DeepSweep(ctx)
		if err != nil {
			return err
		}
		h.logger.Info("deep sweep finished",
			"abandoned", report.Abandoned,
			"expired_verifications", report.ExpiredVerifications,
			"expired_resets", report.ExpiredResets,
		)
		return nil
	}

	deleted, err := h.sweeper.SweepAbandoned(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("sweep finished", "abandoned", deleted)
	return nil
}
