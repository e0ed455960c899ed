package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/telemetry"
)

// DefaultTopK is the number of chunks retrieved for both the metadata probe
// and the question-answering path.
const DefaultTopK = 5

// parseOutcome classifies how a model response was turned into metadata.
type parseOutcome string

const (
	// parseOutcomeClean: the whole response decoded as JSON.
	parseOutcomeClean parseOutcome = "clean"
	// parseOutcomeRecovered: a JSON object was recovered from surrounding
	// prose or code fences.
	parseOutcomeRecovered parseOutcome = "recovered"
	// parseOutcomeFallback: no usable JSON; all fields default to empty.
	parseOutcomeFallback parseOutcome = "fallback"
)

// jsonObjectPattern matches from the first '{' to the last '}' across lines,
// tolerating leading or trailing commentary around the object.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// metadata probe texts, one per profile. The probe is never shown to the
// user; it only steers similarity search toward chunks that look like a
// paper's front matter.
const (
	abstractProbe      = "Extract the following fields: Title, Authors, Abstract"
	bibliographicProbe = "Extract the following fields: Title, Authors, Journal Name, Year, DOI"
)

// MetadataExtractor infers bibliographic fields for a document from its own
// ingested chunks: embed a fixed probe, retrieve the top-k most similar
// chunks of that document, and ask the chat model for a strict-JSON answer.
type MetadataExtractor struct {
	embedder EmbeddingClient
	chunks   ChunkRepositoryInterface
	chat     ChatModel
	profile  domain.MetadataProfile
	topK     int
}

// NewMetadataExtractor creates a MetadataExtractor with the default profile
func NewMetadataExtractor(embedder EmbeddingClient, chunks ChunkRepositoryInterface, chat ChatModel) *MetadataExtractor {
	return NewMetadataExtractorWithProfile(embedder, chunks, chat, domain.MetadataProfileBibliographic, DefaultTopK)
}

// NewMetadataExtractorWithProfile creates a MetadataExtractor with an explicit
// field profile and retrieval depth.
func NewMetadataExtractorWithProfile(
	embedder EmbeddingClient,
	chunks ChunkRepositoryInterface,
	chat ChatModel,
	profile domain.MetadataProfile,
	topK int,
) *MetadataExtractor {
	if !domain.IsValidMetadataProfile(profile) {
		profile = domain.MetadataProfileBibliographic
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &MetadataExtractor{
		embedder: embedder,
		chunks:   chunks,
		chat:     chat,
		profile:  profile,
		topK:     topK,
	}
}

// Extract runs the two-pass protocol against the given document's chunks.
// Upstream failures (embedding, retrieval, completion) abort with an error;
// an unparseable model response degrades to all-empty metadata instead.
func (e *MetadataExtractor) Extract(ctx context.Context, documentID string) (domain.Metadata, error) {
	ctx, span := telemetry.StartSpan(ctx, "MetadataExtractor.Extract", telemetry.SpanAttributes{
		DocumentID: documentID,
	})
	defer span.End()

	probeEmbeddings, err := e.embedder.GenerateEmbeddings(ctx, []string{e.probe()})
	if err != nil {
		return domain.Metadata{}, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "embedding service failed", err)
	}

	scored, err := e.chunks.NearestByDocument(ctx, documentID, probeEmbeddings[0], e.topK)
	if err != nil {
		return domain.Metadata{}, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "chunk retrieval failed", err)
	}

	texts := make([]string, len(scored))
	for i, sc := range scored {
		texts[i] = sc.Chunk.Text
	}
	context := strings.Join(texts, "\n")

	response, err := e.chat.Complete(ctx, buildMetadataPrompt(e.profile, context))
	if err != nil {
		return domain.Metadata{}, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "completion service failed", err)
	}

	meta, outcome := parseMetadataResponse(response, e.profile)
	if outcome == parseOutcomeFallback {
		log.Printf("metadata extraction for document %s returned no usable JSON, defaulting to empty fields", documentID)
	}

	return meta, nil
}

func (e *MetadataExtractor) probe() string {
	if e.profile == domain.MetadataProfileAbstract {
		return abstractProbe
	}
	return bibliographicProbe
}

// buildMetadataPrompt embeds the retrieved context into a prompt demanding a
// single JSON object with the profile's key set and no surrounding prose.
func buildMetadataPrompt(profile domain.MetadataProfile, context string) string {
	keys := profile.Keys()

	var b strings.Builder
	b.WriteString("Extract the bibliographic information of the paper from the context below.\n")
	b.WriteString("Respond with a single JSON object and nothing else: no explanations, no headings, no code fences.\n\n")
	b.WriteString("The JSON object must contain exactly these keys:\n")
	for _, key := range keys {
		b.WriteString("- ")
		b.WriteString(key)
		b.WriteString("\n")
	}
	b.WriteString("\nExample format:\n{")
	for i, key := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: \"\"", key)
	}
	b.WriteString("}\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Answer only from the provided context; do not use outside knowledge.\n")
	b.WriteString("- Leave a field as an empty string when the context does not contain it.\n")
	b.WriteString("- Separate multiple authors with commas.\n")
	if profile == domain.MetadataProfileAbstract {
		b.WriteString("- Keep the abstract concise; summarize the key points only.\n")
	}
	b.WriteString("\nContext:\n")
	b.WriteString(context)
	return b.String()
}

// parseMetadataResponse decodes a model response with three outcomes: the
// whole response is JSON (clean), a JSON object is buried in prose or fences
// (recovered), or nothing decodes and every field defaults to empty
// (fallback). Model output is untrusted free text, so there is no fourth
// outcome that raises.
func parseMetadataResponse(response string, profile domain.MetadataProfile) (domain.Metadata, parseOutcome) {
	trimmed := strings.TrimSpace(response)

	if meta, ok := decodeMetadata(trimmed, profile); ok {
		return meta, parseOutcomeClean
	}

	if span := jsonObjectPattern.FindString(trimmed); span != "" {
		if meta, ok := decodeMetadata(span, profile); ok {
			return meta, parseOutcomeRecovered
		}
	}

	return domain.Metadata{}, parseOutcomeFallback
}

func decodeMetadata(text string, profile domain.MetadataProfile) (domain.Metadata, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return domain.Metadata{}, false
	}

	var meta domain.Metadata
	for _, key := range profile.Keys() {
		value := stringField(payload, key)
		switch key {
		case "title":
			meta.Title = value
		case "authors":
			meta.Authors = value
		case "journal_name":
			meta.JournalName = value
		case "year":
			meta.Year = domain.CoerceYear(value)
		case "doi":
			meta.DOI = value
		case "abstract":
			meta.Abstract = value
		}
	}
	return meta, true
}

// stringField reads a key from the decoded payload, tolerating numeric values
// (models occasionally emit the year as a JSON number).
func stringField(payload map[string]interface{}, key string) string {
	raw, ok := payload[key]
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}
