package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/telemetry"
)

// DefaultFallbackLanguage is used when a question's language is ambiguous.
const DefaultFallbackLanguage = "Traditional Chinese"

// QueryService answers natural-language questions from the ingested corpus:
// embed the question, retrieve the top-k most similar chunks across all
// documents, and condition the chat model on them. The model's response is
// returned verbatim; there is no post-parsing.
type QueryService struct {
	embedder         EmbeddingClient
	chunks           ChunkRepositoryInterface
	chat             ChatModel
	topK             int
	fallbackLanguage string
}

// NewQueryService creates a new QueryService instance
func NewQueryService(embedder EmbeddingClient, chunks ChunkRepositoryInterface, chat ChatModel) *QueryService {
	return NewQueryServiceWithOptions(embedder, chunks, chat, DefaultTopK, DefaultFallbackLanguage)
}

// NewQueryServiceWithOptions creates a QueryService with explicit retrieval
// depth and fallback language.
func NewQueryServiceWithOptions(
	embedder EmbeddingClient,
	chunks ChunkRepositoryInterface,
	chat ChatModel,
	topK int,
	fallbackLanguage string,
) *QueryService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if fallbackLanguage == "" {
		fallbackLanguage = DefaultFallbackLanguage
	}
	return &QueryService{
		embedder:         embedder,
		chunks:           chunks,
		chat:             chat,
		topK:             topK,
		fallbackLanguage: fallbackLanguage,
	}
}

// Answer embeds the question, retrieves context corpus-wide, and returns the
// chat model's markdown answer. An empty corpus still reaches the model with
// an empty context; the prompt instructs it to state the limitation.
func (s *QueryService) Answer(ctx context.Context, question string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Answer", telemetry.SpanAttributes{})
	defer span.End()

	if strings.TrimSpace(question) == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "question is required")
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, []string{question})
	if err != nil {
		span.SetError(err)
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "embedding service failed", err)
	}

	scored, err := s.chunks.Nearest(ctx, embeddings[0], s.topK)
	if err != nil {
		span.SetError(err)
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "chunk retrieval failed", err)
	}

	texts := make([]string, len(scored))
	for i, sc := range scored {
		texts[i] = sc.Chunk.Text
	}
	context := strings.Join(texts, "\n")

	answer, err := s.chat.Complete(ctx, s.buildAnswerPrompt(question, context))
	if err != nil {
		span.SetError(err)
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "completion service failed", err)
	}

	return answer, nil
}

// buildAnswerPrompt instructs the model to answer strictly from the retrieved
// context, in the question's language, as structured markdown.
func (s *QueryService) buildAnswerPrompt(question, context string) string {
	return fmt.Sprintf(
		"You are an intelligent assistant skilled in reading comprehension and information extraction. "+
			"Your task is to analyze the context provided below, extract the most relevant and accurate information to answer the user's question, "+
			"and present your answer in a clear, structured Markdown format.\n\n"+
			"### Instructions:\n"+
			"1. Carefully extract key information from the given context that directly relates to the question.\n"+
			"2. Structure your answer clearly using **Markdown**, including headings, lists, tables, code blocks, or blockquotes where useful.\n"+
			"3. If the context lacks sufficient information to fully answer the question, **clearly state the limitations** and avoid making unsupported assumptions.\n"+
			"4. **Answer in the same language used in the question.** If the language is unclear or mixed, default to **%s**.\n\n"+
			"---\n\n"+
			"**Question:**\n%s\n\n"+
			"**Context:**\n%s\n\n"+
			"---\n\n"+
			"Please output your full answer in **Markdown format**:",
		s.fallbackLanguage, question, context,
	)
}
