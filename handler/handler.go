package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"artifact-chat/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	contentTypeJSON   = "application/json"
	contentTypeText   = "text/plain; charset=utf-8"
	maxBodyBytes      = 64 << 10

	errorNotFound         = "NOT_FOUND"
	errorMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatRequest struct {
	UserID     string `json:"userId"`
	Message    string `json:"message"`
	ArtifactID string `json:"artifactId"`
}

// chatResponse always carries audio_url, as null when there is no audio.
type chatResponse struct {
	Response string  `json:"response"`
	AudioURL *string `json:"audio_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// result is a transport-neutral response shared by the Lambda and net/http paths.
type result struct {
	status      int
	contentType string
	body        []byte
}

type Handler struct {
	chat      ChatUseCase
	artifacts []string
	log       zerolog.Logger
}

// NewHandler builds a Handler. artifactIDs are listed on the index route.
func NewHandler(uc ChatUseCase, artifactIDs []string, log zerolog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: chat usecase must not be nil")
	}
	return &Handler{chat: uc, artifacts: artifactIDs, log: log}, nil
}

// Handle serves API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	corrID := correlationID(ev.Headers)

	var res result
	switch {
	case ev.HTTPMethod == http.MethodOptions:
		res = result{status: http.StatusNoContent}
	case ev.Path == "/" && ev.HTTPMethod == http.MethodGet:
		res = h.index()
	case ev.Path == "/chat" && ev.HTTPMethod == http.MethodPost:
		body, err := eventBody(ev)
		if err != nil {
			res = jsonError(http.StatusBadRequest, string(usecase.ErrorInvalidInput))
			break
		}
		res = h.handleChat(ctx, body, corrID)
	case ev.Path == "/" || ev.Path == "/chat":
		res = jsonError(http.StatusMethodNotAllowed, errorMethodNotAllowed)
	default:
		res = jsonError(http.StatusNotFound, errorNotFound)
	}

	h.log.Info().
		Str("method", ev.HTTPMethod).
		Str("path", ev.Path).
		Int("status", res.status).
		Dur("duration", time.Since(start)).
		Str("correlation_id", corrID).
		Msg("request completed")

	headers := corsHeaders()
	headers[correlationHeader] = corrID
	if res.contentType != "" {
		headers["Content-Type"] = res.contentType
	}
	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers:    headers,
		Body:       string(res.body),
	}, nil
}

func (h *Handler) index() result {
	paths := make([]string, 0, len(h.artifacts))
	for _, id := range h.artifacts {
		paths = append(paths, "/"+id)
	}
	return result{
		status:      http.StatusOK,
		contentType: contentTypeText,
		body:        []byte("접속 경로: " + strings.Join(paths, " 또는 ")),
	}
}

func (h *Handler) handleChat(ctx context.Context, body []byte, corrID string) result {
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return jsonError(http.StatusBadRequest, string(usecase.ErrorInvalidInput))
	}

	out, err := h.chat.Chat(ctx, usecase.ChatInput{
		UserID:     req.UserID,
		Message:    req.Message,
		ArtifactID: req.ArtifactID,
	})
	if err != nil {
		status, code := mapError(err)
		evt := h.log.Warn()
		if status >= http.StatusInternalServerError {
			evt = h.log.Error()
		}
		evt.Err(err).Str("correlation_id", corrID).Str("code", code).Msg("chat failed")
		return jsonError(status, code)
	}

	return jsonResult(http.StatusOK, chatResponse{Response: out.Response, AudioURL: out.AudioURL})
}

func mapError(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, string(ucErr.Code)
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func jsonResult(status int, v any) result {
	body, err := json.Marshal(v)
	if err != nil {
		return result{
			status:      http.StatusInternalServerError,
			contentType: contentTypeJSON,
			body:        []byte(`{"error":"INTERNAL_ERROR"}`),
		}
	}
	return result{status: status, contentType: contentTypeJSON, body: body}
}

func jsonError(status int, code string) result {
	return jsonResult(status, errorResponse{Error: code})
}

func eventBody(ev events.APIGatewayProxyRequest) ([]byte, error) {
	if !ev.IsBase64Encoded {
		return []byte(ev.Body), nil
	}
	return base64.StdEncoding.DecodeString(ev.Body)
}

// correlationID returns the caller's X-Correlation-Id (any header case) or a
// fresh one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return newCorrelationID()
}

var newCorrelationID = func() string {
	return uuid.NewString()
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "*",
		"Access-Control-Allow-Headers": "*",
	}
}
