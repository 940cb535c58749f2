package handler

import (
	"context"
	"errors"
	"net/http"

	deltabot "github.com/phbpx/delta-agent"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultChunkSize is the number of characters written per streamed chunk.
const DefaultChunkSize = 10

var errAgentUnavailable = errors.New("AI agent temporarily unavailable. Please try again.")

// Agent produces the assistant's reply for a conversation.
type Agent interface {
	Run(ctx context.Context, messages []deltabot.Message) (string, error)
}

type chatRequest struct {
	Messages []deltabot.Message `json:"messages"`
}

type ChatHandler struct {
	agent     Agent
	log       *otelzap.SugaredLogger
	chunkSize int
}

func NewChatHandler(agent Agent, log *otelzap.SugaredLogger) *ChatHandler {
	return &ChatHandler{
		agent:     agent,
		log:       log,
		chunkSize: DefaultChunkSize,
	}
}

func (ch ChatHandler) Chat(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := decode(r, &req); err != nil {
		ch.log.Ctx(ctx).Warnw("Chat", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	if len(req.Messages) == 0 {
		ch.log.Ctx(ctx).Warnw("Chat", "error", deltabot.ErrEmptyConversation.Error())
		respondErr(ctx, rw, http.StatusBadRequest, deltabot.ErrEmptyConversation)
		return
	}

	ch.log.Ctx(ctx).Infow("Chat", "status", "processing", "messages", len(req.Messages))

	reply, err := ch.agent.Run(ctx, req.Messages)
	if err != nil {
		ch.log.Ctx(ctx).Errorw("Chat", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, errAgentUnavailable)
		return
	}

	ch.log.Ctx(ctx).Infow("Chat", "status", "replying", "chars", len(reply))

	if err := stream(ctx, rw, reply, ch.chunkSize); err != nil {
		ch.log.Ctx(ctx).Errorw("Chat", "error", err.Error())
	}
}

// stream writes text as plain text in chunks of size runes, flushing after
// each one when the writer supports it.
func stream(ctx context.Context, rw http.ResponseWriter, text string, size int) error {
	_, span := otel.GetTracerProvider().Tracer("").Start(ctx, "handler.stream")
	span.SetAttributes(attribute.Int("http.status", http.StatusOK))
	defer span.End()

	if size <= 0 {
		size = DefaultChunkSize
	}

	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("X-Content-Type-Options", "nosniff")
	rw.WriteHeader(http.StatusOK)

	flusher, _ := rw.(http.Flusher)
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		if _, err := rw.Write([]byte(string(runes[start:end]))); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}
