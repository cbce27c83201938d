package webcontent

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/models"
)

const (
	// MaxURLsPerQuery caps how many URLs are extracted from one text blob.
	MaxURLsPerQuery = 2
	// MaxContentBytes bounds how much of a response body is read.
	MaxContentBytes = 1_000_000
	// MaxTextChars bounds the extracted text kept per page.
	MaxTextChars = 10_000

	fetchTimeout = 10 * time.Second
	userAgent    = "Mozilla/5.0 (compatible; RAG-Chatbot/1.0)"
)

var urlRegex = regexp.MustCompile(`https?://(?:[a-zA-Z0-9$\-_@.&+!*(),/:?=#;~]|%[0-9a-fA-F]{2})+`)

// blockedHosts denies loopback/local targets.
var blockedHosts = []string{"localhost", "127.0.0.1", "0.0.0.0"}

// DetectURLs extracts up to MaxURLsPerQuery unique URLs from text,
// preserving first-appearance order.
func DetectURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(matches))
	var unique []string
	for _, u := range matches {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
		if len(unique) == MaxURLsPerQuery {
			break
		}
	}
	return unique
}

// IsURLAllowed rejects malformed URLs and loopback/local addresses. Blocked
// names match exactly or as a domain suffix, so "notlocalhost.com" stays
// reachable while "sub.localhost" does not.
func IsURLAllowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, blocked := range blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return false
		}
	}
	return true
}

// Service fetches pages and strips them down to readable text.
type Service struct {
	client *http.Client
}

func NewService() *Service {
	return &Service{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch downloads a URL and extracts its title and readable text. Returns
// nil when the content type is unsupported or the fetch fails: a bad page
// is skipped, never fatal. Callers must filter through IsURLAllowed first.
func (s *Service) Fetch(ctx context.Context, pageURL string) *models.WebPage {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		logger.Warn("invalid url", "url", pageURL, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn("failed to fetch url", "url", pageURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		logger.Warn("unsupported content type", "url", pageURL, "content_type", contentType)
		return nil
	}

	limited := io.LimitReader(resp.Body, MaxContentBytes)
	reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		logger.Warn("failed to decode response", "url", pageURL, "error", err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		logger.Warn("failed to parse page", "url", pageURL, "error", err)
		return nil
	}

	// Boilerplate carries no answerable content.
	doc.Find("script, style, nav, footer, header").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = pageURL
	}

	text := collapseWhitespace(doc.Text())
	if len(text) > MaxTextChars {
		text = text[:MaxTextChars] + "..."
	}

	logger.Debug("fetched web content", "url", pageURL, "chars", len(text))
	return &models.WebPage{URL: pageURL, Title: title, Content: text}
}

// FetchAll fetches each allowed URL sequentially, keeping only successes.
func (s *Service) FetchAll(ctx context.Context, urls []string) []models.WebPage {
	var pages []models.WebPage
	for _, u := range urls {
		if !IsURLAllowed(u) {
			logger.Warn("blocked url", "url", u)
			continue
		}
		if page := s.Fetch(ctx, u); page != nil {
			pages = append(pages, *page)
		}
	}
	return pages
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
