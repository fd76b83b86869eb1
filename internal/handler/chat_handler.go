package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askdoc/askdoc/internal/model"
	"github.com/askdoc/askdoc/internal/pkg/errcode"
	"github.com/askdoc/askdoc/internal/pkg/response"
	"github.com/askdoc/askdoc/internal/service"
)

type ChatHandler struct {
	answers *service.AnswerService
}

type ChatRequest struct {
	Question string `json:"question"`
}

type sourceMetadata struct {
	DocumentID    string `json:"documentId"`
	SequenceIndex int    `json:"sequenceIndex"`
	StartOffset   int    `json:"startOffset"`
	EndOffset     int    `json:"endOffset"`
	Page          int    `json:"page,omitempty"`
}

type chatSource struct {
	PageContent string         `json:"pageContent"`
	Metadata    sourceMetadata `json:"metadata"`
	Score       float32        `json:"score"`
}

type ChatResponse struct {
	Answer  string       `json:"answer"`
	Sources []chatSource `json:"sources"`
}

func NewChatHandler(answers *service.AnswerService) *ChatHandler {
	return &ChatHandler{answers: answers}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	exchange, err := h.answers.Answer(c.Request.Context(), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toChatResponse(exchange))
}

func toChatResponse(exchange *model.ChatExchange) ChatResponse {
	sources := make([]chatSource, 0, len(exchange.Sources))
	for _, res := range exchange.Sources {
		sources = append(sources, chatSource{
			PageContent: res.Chunk.Text,
			Metadata: sourceMetadata{
				DocumentID:    res.Chunk.DocumentID,
				SequenceIndex: res.Chunk.SequenceIndex,
				StartOffset:   res.Chunk.StartOffset,
				EndOffset:     res.Chunk.EndOffset,
				Page:          res.Chunk.Page,
			},
			Score: res.Score,
		})
	}
	return ChatResponse{
		Answer:  exchange.Answer,
		Sources: sources,
	}
}
