package public

import (
	"bufio"
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ncecere/model_router/internal/app"
	"github.com/ncecere/model_router/internal/httpserver/httputil"
	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers"
)

type providerHandler struct {
	container *app.Container
}

func (h *providerHandler) listProviders(c *fiber.Ctx) error {
	engine := h.container.Engine
	statuses := h.container.HealthMon.Statuses()
	out := make([]providerSummary, 0)
	for _, name := range engine.Names() {
		route, ok := engine.Route(name)
		if !ok {
			continue
		}
		summary := providerSummary{
			Provider:    route.Provider,
			DisplayName: route.DisplayName,
			Model:       route.Model(),
			CircuitOpen: engine.Open(name),
		}
		if status, ok := statuses[name]; ok {
			healthy := status.Healthy
			summary.Healthy = &healthy
			summary.HealthError = status.Error
		}
		out = append(out, summary)
	}
	return c.JSON(fiber.Map{"providers": out})
}

func (h *providerHandler) getModel(c *fiber.Ctx) error {
	route, ok := h.route(c)
	if !ok {
		return httputil.WriteError(c, fiber.StatusNotFound, "provider not configured")
	}
	return c.JSON(route.Handler.FetchModel(c.UserContext()))
}

func (h *providerHandler) listModels(c *fiber.Ctx) error {
	route, ok := h.route(c)
	if !ok {
		return httputil.WriteError(c, fiber.StatusNotFound, "provider not configured")
	}
	record := h.container.Catalog.GetModels(c.UserContext(), route.Provider)
	return c.JSON(fiber.Map{"provider": route.Provider, "models": record})
}

func (h *providerHandler) completePrompt(c *fiber.Ctx) error {
	provider := providerParam(c)
	var req completeRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "prompt is required")
	}

	ctx, cancel := h.syncContext(c.UserContext())
	defer cancel()

	idempotencyKey := strings.TrimSpace(c.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		if data, ok := h.container.Idempotency.Get(ctx, provider, idempotencyKey); ok {
			c.Set("Content-Type", "application/json")
			c.Set("Idempotent-Replayed", "true")
			return c.Send(data)
		}
	}

	result, err := h.container.Executor.Complete(ctx, provider, req.Prompt)
	if err != nil {
		return httputil.WriteProviderError(c, err)
	}
	resp := completeResponse{Provider: result.Provider, Text: result.Text}
	if idempotencyKey != "" {
		if payload, err := json.Marshal(resp); err == nil {
			h.container.Idempotency.Set(ctx, provider, idempotencyKey, payload)
		}
	}
	return c.JSON(resp)
}

func (h *providerHandler) createMessage(c *fiber.Ctx) error {
	provider := providerParam(c)
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Messages) == 0 {
		return httputil.WriteError(c, fiber.StatusBadRequest, "messages are required")
	}
	messages, err := req.toMessages()
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = &models.MessageMetadata{}
	}
	if metadata.TaskID == "" {
		metadata.TaskID = uuid.NewString()
	}

	// The body writer runs after this handler returns, so the stream owns
	// its own cancel.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.UserContext()))
	next, stop := iter.Pull2(h.container.Executor.Stream(ctx, provider, req.System, messages, metadata))

	first, err, ok := next()
	if err != nil {
		stop()
		cancel()
		return httputil.WriteProviderError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Task-ID", metadata.TaskID)

	logger := h.container.Logger.With(slog.String("provider", provider), slog.String("task_id", metadata.TaskID))
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stop()

		for chunk := first; ok; {
			if err := writeEvent(w, "", chunk); err != nil {
				logger.Debug("client went away", slog.String("error", err.Error()))
				return
			}
			var streamErr error
			chunk, streamErr, ok = next()
			if streamErr != nil {
				logger.Warn("provider stream failed", slog.String("error", streamErr.Error()))
				_, body := httputil.ProviderError(streamErr)
				_ = writeEvent(w, "error", body)
				return
			}
		}
		if _, err := w.WriteString("data: [DONE]\n\n"); err != nil {
			return
		}
		_ = w.Flush()
	})
	return nil
}

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := w.WriteString("event: " + event + "\n"); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

func (h *providerHandler) route(c *fiber.Ctx) (providers.Route, bool) {
	return h.container.Engine.Route(providerParam(c))
}

func (h *providerHandler) syncContext(parent context.Context) (context.Context, context.CancelFunc) {
	if cfg := h.container.Config; cfg != nil && cfg.Server.SyncTimeout > 0 {
		return context.WithTimeout(parent, cfg.Server.SyncTimeout)
	}
	return context.WithCancel(parent)
}

func providerParam(c *fiber.Ctx) string {
	return strings.ToLower(strings.TrimSpace(c.Params("provider")))
}
