package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"drive-rag-chatbot/models"
)

type fakeRetriever struct {
	results []models.ScoredChunk
	err     error
}

func (f *fakeRetriever) Retrieve(context.Context, string, int) ([]models.ScoredChunk, error) {
	return f.results, f.err
}

// fakeGenerator replays canned answers and records every prompt it saw.
type fakeGenerator struct {
	answers []string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.prompts) > len(f.answers) {
		return "", nil
	}
	return f.answers[len(f.prompts)-1], nil
}

func scored(id, name, content string, score float64) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk: models.Chunk{ChunkID: id, DocumentID: id, DocumentName: name, Content: content},
		Score: score,
	}
}

func TestPipelineNoContextNoFallback(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(&fakeRetriever{}, gen, WithExtendedKnowledge(false))

	answer, err := p.GenerateResponse(context.Background(), "what is the refund policy", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != NotFoundMessage {
		t.Errorf("expected not-found message, got %q", answer)
	}
	if len(gen.prompts) != 0 {
		t.Errorf("generator should not be called, got %d calls", len(gen.prompts))
	}
}

func TestPipelineNoContextWithFallback(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"General knowledge answer."}}
	p := NewPipeline(&fakeRetriever{}, gen, WithExtendedKnowledge(true))

	answer, err := p.GenerateResponse(context.Background(), "what is photosynthesis", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(answer, "General knowledge answer.") {
		t.Errorf("unexpected answer: %q", answer)
	}
	if !strings.Contains(answer, "general knowledge") {
		t.Errorf("fallback answer missing its annotation: %q", answer)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("expected exactly 1 generation call, got %d", len(gen.prompts))
	}
}

func TestPipelineGroundedAnswerWithAttribution(t *testing.T) {
	retriever := &fakeRetriever{results: []models.ScoredChunk{
		scored("a_chunk_0", "handbook.txt", "Refunds are processed within 14 days.", 0.9),
		scored("b_chunk_0", "faq.txt", "Contact support for refund requests.", 0.7),
	}}
	gen := &fakeGenerator{answers: []string{"Refunds take 14 days."}}
	p := NewPipeline(retriever, gen, WithExtendedKnowledge(true))

	answer, err := p.GenerateResponse(context.Background(), "how long do refunds take", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(answer, "Refunds take 14 days.") {
		t.Errorf("unexpected answer: %q", answer)
	}
	if !strings.Contains(answer, "Sources: faq.txt, handbook.txt") {
		t.Errorf("missing sorted source attribution: %q", answer)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected exactly 1 generation call, got %d", len(gen.prompts))
	}

	prompt := gen.prompts[0]
	if prompt == "" {
		t.Fatal("prompt must never be empty")
	}
	if !strings.Contains(prompt, "Refunds are processed within 14 days.") {
		t.Errorf("prompt missing chunk content")
	}
	if !strings.Contains(prompt, "how long do refunds take") {
		t.Errorf("prompt missing user question")
	}
}

func TestPipelineContextChunkLimit(t *testing.T) {
	retriever := &fakeRetriever{results: []models.ScoredChunk{
		scored("a_chunk_0", "a.txt", "first chunk", 0.9),
		scored("a_chunk_1", "a.txt", "second chunk", 0.8),
		scored("a_chunk_2", "a.txt", "third chunk", 0.7),
		scored("a_chunk_3", "a.txt", "fourth chunk", 0.6),
	}}
	gen := &fakeGenerator{answers: []string{"answer"}}
	p := NewPipeline(retriever, gen)

	if _, err := p.GenerateResponse(context.Background(), "question", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "third chunk") {
		t.Error("prompt should include the third chunk")
	}
	if strings.Contains(prompt, "fourth chunk") {
		t.Error("prompt should cap at three chunks")
	}
}

func TestPipelineInsufficientContextFallsBack(t *testing.T) {
	retriever := &fakeRetriever{results: []models.ScoredChunk{
		scored("a_chunk_0", "handbook.txt", "Vacation days accrue monthly.", 0.8),
	}}
	gen := &fakeGenerator{answers: []string{
		"The provided context does not contain information about that.",
		"Here is what I know generally.",
	}}
	p := NewPipeline(retriever, gen, WithExtendedKnowledge(true))

	answer, err := p.GenerateResponse(context.Background(), "what is the capital of France", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(answer, "Here is what I know generally.") {
		t.Errorf("expected general knowledge answer, got %q", answer)
	}
	if !strings.Contains(answer, "general knowledge") {
		t.Errorf("fallback answer missing its annotation: %q", answer)
	}
	if len(gen.prompts) != 2 {
		t.Errorf("expected exactly 2 generation calls, got %d", len(gen.prompts))
	}
}

func TestPipelineInsufficientContextWithoutFallbackKeepsAnswer(t *testing.T) {
	retriever := &fakeRetriever{results: []models.ScoredChunk{
		scored("a_chunk_0", "handbook.txt", "Vacation days accrue monthly.", 0.8),
	}}
	gen := &fakeGenerator{answers: []string{"The context does not contain that information."}}
	p := NewPipeline(retriever, gen, WithExtendedKnowledge(false))

	answer, err := p.GenerateResponse(context.Background(), "unrelated question", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(answer, "The context does not contain that information.") {
		t.Errorf("answer should be returned as-is: %q", answer)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("expected exactly 1 generation call, got %d", len(gen.prompts))
	}
}

func TestPipelineExternalWebOnly(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Summary of the page."}}
	p := NewPipeline(&fakeRetriever{}, gen, WithExtendedKnowledge(true))

	pages := []models.WebPage{{URL: "https://example.com/doc", Title: "Doc", Content: "page text"}}
	answer, err := p.GenerateResponse(context.Background(), "summarize this page", pages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(answer, "Summary of the page.") {
		t.Errorf("unexpected answer: %q", answer)
	}
	if !strings.Contains(answer, "Web sources: https://example.com/doc") {
		t.Errorf("missing web attribution: %q", answer)
	}
	if !strings.Contains(gen.prompts[0], "page text") {
		t.Error("prompt missing web page content")
	}
}

func TestPipelinePropagatesRetrieverError(t *testing.T) {
	wantErr := errors.New("store unreachable")
	p := NewPipeline(&fakeRetriever{err: wantErr}, &fakeGenerator{})

	if _, err := p.GenerateResponse(context.Background(), "question", nil); !errors.Is(err, wantErr) {
		t.Fatalf("expected retriever error, got %v", err)
	}
}

func TestPipelinePropagatesGeneratorError(t *testing.T) {
	retriever := &fakeRetriever{results: []models.ScoredChunk{
		scored("a_chunk_0", "a.txt", "content", 0.9),
	}}
	wantErr := errors.New("backend down")
	p := NewPipeline(retriever, &fakeGenerator{err: wantErr})

	if _, err := p.GenerateResponse(context.Background(), "question", nil); !errors.Is(err, wantErr) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestPipelineEmptyGenerationIsNotAnError(t *testing.T) {
	retriever := &fakeRetriever{results: []models.ScoredChunk{
		scored("a_chunk_0", "a.txt", "content", 0.9),
	}}
	gen := &fakeGenerator{answers: []string{""}}
	p := NewPipeline(retriever, gen)

	answer, err := p.GenerateResponse(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != emptyResponseMessage {
		t.Errorf("expected the empty-response message, got %q", answer)
	}
}

func TestContainsInsufficientMarker(t *testing.T) {
	cases := map[string]bool{
		"The document DOES NOT CONTAIN that detail.":      true,
		"There is insufficient information to say.":       true,
		"I cannot answer that from the context.":          true,
		"Refunds take 14 days according to the handbook.": false,
		"": false,
	}
	for answer, want := range cases {
		if got := containsInsufficientMarker(answer); got != want {
			t.Errorf("containsInsufficientMarker(%q) = %v, want %v", answer, got, want)
		}
	}
}

// End to end over the real lexical retriever: a single-document corpus, a
// question its text answers, and a lowered relevance gate.
func TestPipelineLexicalEndToEnd(t *testing.T) {
	doc := models.Document{ID: "acme", Name: "acme.txt", Content: "Acme Corp was founded in 1990 in Seattle."}
	corpus := BuildCorpus([]models.Document{doc}, NewChunker(DefaultChunkSize, DefaultChunkOverlap))
	retriever := NewLexicalRetriever(corpus)

	gen := &fakeGenerator{answers: []string{"Acme Corp was founded in 1990."}}
	p := NewPipeline(retriever, gen, WithRelevanceThreshold(0.4), WithExtendedKnowledge(true))

	answer, err := p.GenerateResponse(context.Background(), "When was Acme Corp founded?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gen.prompts[0], "Acme Corp was founded in 1990 in Seattle.") {
		t.Error("prompt should carry the document sentence")
	}
	if !strings.Contains(answer, "Sources: acme.txt") {
		t.Errorf("answer should attribute the document: %q", answer)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("expected exactly 1 generation call, got %d", len(gen.prompts))
	}
}

type fakeFetcher struct {
	pages   []models.WebPage
	gotURLs []string
}

func (f *fakeFetcher) FetchAll(_ context.Context, urls []string) []models.WebPage {
	f.gotURLs = urls
	return f.pages
}

func TestPipelineFetchesURLsFromRelevantChunks(t *testing.T) {
	retriever := &fakeRetriever{results: []models.ScoredChunk{
		scored("a_chunk_0", "a.txt", "See https://example.com/policy for details.", 0.9),
		scored("b_chunk_0", "b.txt", "Low scoring chunk with https://ignored.example.com link.", 0.1),
	}}
	fetcher := &fakeFetcher{pages: []models.WebPage{
		{URL: "https://example.com/policy", Title: "Policy", Content: "linked page text"},
	}}
	detect := func(text string) []string {
		if strings.Contains(text, "https://example.com/policy") {
			return []string{"https://example.com/policy"}
		}
		return nil
	}
	gen := &fakeGenerator{answers: []string{"Answer using the linked page."}}
	p := NewPipeline(retriever, gen, WithWebFetcher(fetcher, detect))

	answer, err := p.GenerateResponse(context.Background(), "what does the policy say", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gen.prompts[0], "linked page text") {
		t.Error("prompt missing linked page content")
	}
	if !strings.Contains(answer, "Related URLs from documents: https://example.com/policy") {
		t.Errorf("missing linked URL attribution: %q", answer)
	}
}
