package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"drive-rag-chatbot/internal/ai"
	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/models"
)

const (
	// DefaultTopK is how many candidate chunks retrieval returns.
	DefaultTopK = 5
	// DefaultRelevanceThreshold gates which candidates may enter the prompt.
	DefaultRelevanceThreshold = 0.5
	// urlScanThreshold is the looser bar for scanning chunks for linked URLs.
	urlScanThreshold = 0.3
	// contextChunkLimit caps how many chunks go into the prompt.
	contextChunkLimit = 3
	// maxAttributedURLs caps the URL list appended to an answer.
	maxAttributedURLs = 3
)

// NotFoundMessage is returned when nothing relevant exists and general
// knowledge fallback is disabled.
const NotFoundMessage = "No relevant information found in your documents. " +
	"Try rephrasing your question or check if the documents contain the information you're looking for."

const emptyResponseMessage = "Unable to generate response at this time. Please try again."

const generalKnowledgeNote = "Note: This answer is based on general knowledge, not your documents."

// insufficientMarkers are phrases the model emits when the supplied context
// did not contain the answer. Matching any of them, case-insensitively,
// triggers the general knowledge fallback.
var insufficientMarkers = []string{
	"no relevant information",
	"insufficient information",
	"not enough information",
	"does not contain",
	"cannot answer",
}

// WebFetcher resolves URLs into readable pages. Failed fetches are simply
// omitted from the result.
type WebFetcher interface {
	FetchAll(ctx context.Context, urls []string) []models.WebPage
}

// URLDetector extracts fetchable URLs from free text.
type URLDetector func(text string) []string

// Pipeline answers questions over a document corpus: retrieve, filter,
// assemble a cited context, generate, and fall back to general knowledge
// when the corpus has nothing to say.
type Pipeline struct {
	retriever Retriever
	generator ai.Generator
	fetcher   WebFetcher
	detectURL URLDetector

	topK                 int
	relevanceThreshold   float64
	useExtendedKnowledge bool
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithTopK overrides how many candidates retrieval returns.
func WithTopK(topK int) Option {
	return func(p *Pipeline) {
		if topK > 0 {
			p.topK = topK
		}
	}
}

// WithRelevanceThreshold overrides the grounding gate.
func WithRelevanceThreshold(threshold float64) Option {
	return func(p *Pipeline) { p.relevanceThreshold = threshold }
}

// WithExtendedKnowledge enables the general knowledge fallback when the
// documents cannot answer.
func WithExtendedKnowledge(enabled bool) Option {
	return func(p *Pipeline) { p.useExtendedKnowledge = enabled }
}

// WithWebFetcher enables following URLs found inside relevant document
// chunks. Without it, document-linked web content is skipped entirely.
func WithWebFetcher(fetcher WebFetcher, detect URLDetector) Option {
	return func(p *Pipeline) {
		p.fetcher = fetcher
		p.detectURL = detect
	}
}

func NewPipeline(retriever Retriever, generator ai.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever:          retriever,
		generator:          generator,
		topK:               DefaultTopK,
		relevanceThreshold: DefaultRelevanceThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateResponse answers a query. externalWeb holds pages already fetched
// from URLs the user put in their message; pass nil when there were none.
//
// At most two generation calls happen per query: the primary one and, when
// the model reports the context was insufficient, one general knowledge
// fallback.
func (p *Pipeline) GenerateResponse(ctx context.Context, query string, externalWeb []models.WebPage) (string, error) {
	candidates, err := p.retriever.Retrieve(ctx, query, p.topK)
	if err != nil {
		return "", err
	}

	docWeb := p.fetchLinkedPages(ctx, candidates)

	var grounded []models.ScoredChunk
	for _, c := range candidates {
		if c.Score > p.relevanceThreshold {
			grounded = append(grounded, c)
		}
	}

	logger.Debug("retrieval complete",
		"candidates", len(candidates),
		"grounded", len(grounded),
		"doc_web_pages", len(docWeb),
		"external_web_pages", len(externalWeb))

	if len(grounded) == 0 && len(docWeb) == 0 && len(externalWeb) == 0 {
		return p.answerWithoutContext(ctx, query)
	}
	return p.answerWithContext(ctx, query, grounded, docWeb, externalWeb)
}

// fetchLinkedPages scans loosely relevant chunks for URLs and fetches them.
// The scan uses a lower bar than the grounding gate so a chunk that merely
// mentions a link can still contribute its target.
func (p *Pipeline) fetchLinkedPages(ctx context.Context, candidates []models.ScoredChunk) []models.WebPage {
	if p.fetcher == nil || p.detectURL == nil {
		return nil
	}

	var texts []string
	for _, c := range candidates {
		if c.Score > urlScanThreshold {
			texts = append(texts, c.Content)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	urls := p.detectURL(strings.Join(texts, "\n"))
	if len(urls) == 0 {
		return nil
	}
	return p.fetcher.FetchAll(ctx, urls)
}

func (p *Pipeline) answerWithContext(ctx context.Context, query string, grounded []models.ScoredChunk, docWeb, externalWeb []models.WebPage) (string, error) {
	var sections []string
	sourceCount := 0

	if len(grounded) > 0 {
		top := grounded
		if len(top) > contextChunkLimit {
			top = top[:contextChunkLimit]
		}
		var b strings.Builder
		b.WriteString("=== Information from Google Drive Documents ===\n")
		for _, c := range top {
			b.WriteString(c.Content)
			b.WriteString("\n\n")
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
		sourceCount++
	}

	if len(docWeb) > 0 {
		sections = append(sections, formatWebSection("Information from URLs mentioned in Documents", docWeb))
		sourceCount++
	}
	if len(externalWeb) > 0 {
		sections = append(sections, formatWebSection("Information from URLs in Your Question", externalWeb))
		sourceCount++
	}

	prompt := fmt.Sprintf(`%s

%s

User question: %s

Please provide a helpful and accurate answer based on the information provided. If you use specific information from the context, be precise and factual.`,
		instructionFor(sourceCount), strings.Join(sections, "\n\n"), query)

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return emptyResponseMessage, nil
	}

	if containsInsufficientMarker(answer) && p.useExtendedKnowledge {
		logger.Debug("context insufficient, falling back to general knowledge")
		return p.answerFromGeneralKnowledge(ctx, query)
	}

	return answer + p.attribution(grounded, docWeb, externalWeb), nil
}

func (p *Pipeline) answerWithoutContext(ctx context.Context, query string) (string, error) {
	if !p.useExtendedKnowledge {
		return NotFoundMessage, nil
	}
	return p.answerFromGeneralKnowledge(ctx, query)
}

func (p *Pipeline) answerFromGeneralKnowledge(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(`The user has asked a question, but no relevant information was found in their Google Drive documents or provided web sources.

User question: %s

Please provide a helpful answer using your general knowledge. Be clear, accurate, and concise.`, query)

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return emptyResponseMessage, nil
	}
	return answer + "\n\n" + generalKnowledgeNote, nil
}

// instructionFor adapts the system instruction to how many kinds of source
// material are in the context.
func instructionFor(sourceCount int) string {
	if sourceCount > 1 {
		return "You are a helpful assistant. Answer the user's question using the information from the multiple sources below. Synthesize across sources where they complement each other, and note disagreements if they conflict."
	}
	return "You are a helpful assistant. Answer the user's question using the information below."
}

func formatWebSection(label string, pages []models.WebPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", label)
	for _, page := range pages {
		fmt.Fprintf(&b, "URL: %s\nTitle: %s\nContent: %s\n\n", page.URL, page.Title, page.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// attribution lists the sources actually placed in the context, so every
// grounded answer tells the user where it came from.
func (p *Pipeline) attribution(grounded []models.ScoredChunk, docWeb, externalWeb []models.WebPage) string {
	var b strings.Builder

	if len(grounded) > 0 {
		top := grounded
		if len(top) > contextChunkLimit {
			top = top[:contextChunkLimit]
		}
		seen := make(map[string]struct{})
		var names []string
		for _, c := range top {
			if _, dup := seen[c.DocumentName]; dup {
				continue
			}
			seen[c.DocumentName] = struct{}{}
			names = append(names, c.DocumentName)
		}
		sort.Strings(names)
		b.WriteString("\n\nSources: " + strings.Join(names, ", "))
	}

	if urls := attributedURLs(docWeb); len(urls) > 0 {
		b.WriteString("\nRelated URLs from documents: " + strings.Join(urls, ", "))
	}
	if urls := attributedURLs(externalWeb); len(urls) > 0 {
		b.WriteString("\nWeb sources: " + strings.Join(urls, ", "))
	}
	return b.String()
}

func attributedURLs(pages []models.WebPage) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, page := range pages {
		if _, dup := seen[page.URL]; dup {
			continue
		}
		seen[page.URL] = struct{}{}
		urls = append(urls, page.URL)
		if len(urls) == maxAttributedURLs {
			break
		}
	}
	return urls
}

// containsInsufficientMarker reports whether the model declared it could not
// answer from the supplied context.
func containsInsufficientMarker(answer string) bool {
	lower := strings.ToLower(answer)
	for _, marker := range insufficientMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
