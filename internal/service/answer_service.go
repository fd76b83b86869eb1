package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/ai"
	"github.com/askdoc/askdoc/internal/model"
	appErr "github.com/askdoc/askdoc/internal/pkg/errors"
	"github.com/askdoc/askdoc/internal/vectorstore"
)

// AnswerFallback is the exact answer returned when the retrieved context
// does not support the question. Callers and tests match on this literal.
const AnswerFallback = "I don't know."

const contextDelimiter = "\n---\n"

const promptTemplate = `You are a precise assistant. Answer the question using ONLY the context below.
If the context does not contain the information needed to answer, reply with exactly: %s

Context:
%s

Question: %s

Answer:`

// AnswerService answers one question from the indexed corpus. Each call is
// stateless: embed the question, fetch the top-k most similar chunks,
// assemble a bounded context block and ask the generation model for a
// grounded answer.
type AnswerService struct {
	embedder        ai.IEmbedder
	generator       ai.IGenerator
	vectors         vectorstore.Store
	topK            int
	maxContextChars int
	embedTimeout    time.Duration
	genTimeout      time.Duration
}

func NewAnswerService(embedder ai.IEmbedder, generator ai.IGenerator, vectors vectorstore.Store,
	topK, maxContextChars int, embedTimeout, genTimeout time.Duration) *AnswerService {
	if topK <= 0 {
		topK = 5
	}
	if maxContextChars <= 0 {
		maxContextChars = 6000
	}
	return &AnswerService{
		embedder:        embedder,
		generator:       generator,
		vectors:         vectors,
		topK:            topK,
		maxContextChars: maxContextChars,
		embedTimeout:    embedTimeout,
		genTimeout:      genTimeout,
	}
}

func (s *AnswerService) Answer(ctx context.Context, question string) (*model.ChatExchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", appErr.ErrInvalidQuery)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("question", question))

	ectx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()
	vector, err := s.embedder.Embed(ectx, question, taskTypeQuery)
	if err != nil {
		logger.Error("failed to embed question", zap.Error(err))
		return nil, fmt.Errorf("%w: embed question: %v", appErr.ErrAnswerGenerationFailed, err)
	}

	results, err := s.vectors.Search(ctx, vector, s.topK)
	if err != nil {
		logger.Error("similarity search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: similarity search: %v", appErr.ErrAnswerGenerationFailed, err)
	}
	rankResults(results)

	// Nothing indexed resembles the question at all. Answering from an
	// empty context can only hallucinate, so skip the generation call.
	if len(results) == 0 {
		return &model.ChatExchange{Question: question, Answer: AnswerFallback}, nil
	}

	prompt := fmt.Sprintf(promptTemplate, AnswerFallback, buildContext(results, s.maxContextChars), question)
	gctx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()
	answer, err := s.generator.Generate(gctx, prompt)
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: generate: %v", appErr.ErrAnswerGenerationFailed, err)
	}

	return &model.ChatExchange{
		Question: question,
		Answer:   strings.TrimSpace(answer),
		Sources:  results,
	}, nil
}

// rankResults orders hits by score descending; equal scores fall back to
// lower sequence index, then lower document id, so result order is stable
// across calls.
func rankResults(results []model.RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.SequenceIndex != results[j].Chunk.SequenceIndex {
			return results[i].Chunk.SequenceIndex < results[j].Chunk.SequenceIndex
		}
		return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
	})
}

// buildContext joins chunk texts highest ranked first, enforcing the
// character budget. A chunk that crosses the budget is truncated to the
// remaining room; everything ranked below it is dropped.
func buildContext(results []model.RetrievalResult, budget int) string {
	var sb strings.Builder
	used := 0
	for i, res := range results {
		text := res.Chunk.Text
		need := 0
		if i > 0 {
			need = len([]rune(contextDelimiter))
		}
		remaining := budget - used - need
		if remaining <= 0 {
			break
		}
		if i > 0 {
			sb.WriteString(contextDelimiter)
			used += need
		}
		runes := []rune(text)
		if len(runes) > remaining {
			runes = runes[:remaining]
		}
		sb.WriteString(string(runes))
		used += len(runes)
	}
	return sb.String()
}
