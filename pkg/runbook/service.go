// Package runbook resolves maintenance-procedure documents for the
// Planner Specialist's get_runbook tool (spec.md §4.3 Planner tool
// roster, supplemented beyond spec.md's own listing). Content is
// cached in-memory to avoid refetching the same document on every
// query.
//
// Resolution has three tiers, in order: an explicit URL the caller
// already knows about; a topic (e.g. "battery", "inverter",
// "generator") matched by keyword against the filenames in the
// installation's configured runbook repository; and, failing both, a
// per-topic fallback string baked into configuration for installations
// that don't maintain a runbook repo at all.
package runbook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/commandcenter/commandcenter/pkg/config"
)

// topicSynonyms maps the vocabulary a field technician actually uses
// ("soc", "balancing", "genset") onto the canonical topic names that
// key both TopicDefaults and runbook-repo filename matching.
var topicSynonyms = map[string]string{
	"soc":             "battery",
	"state of charge": "battery",
	"balancing":       "battery",
	"cell":            "battery",
	"pv":              "solar",
	"panel":           "solar",
	"panels":          "solar",
	"fault":           "inverter",
	"genset":          "generator",
	"generac":         "generator",
	"transfer switch": "generator",
}

// Service orchestrates maintenance-runbook resolution and delivery.
type Service struct {
	github   *GitHubClient
	cache    *Cache
	cfg      *config.RunbookConfig
	defaults map[string]string // topic -> fallback content; "" is the generic fallback
}

// NewService creates a new Service. githubToken is the resolved token
// value (empty string = no auth, public repos only). defaultRunbook is
// the generic fallback content used when no URL, topic match, or
// topic-specific default is available.
func NewService(cfg *config.RunbookConfig, githubToken string, defaultRunbook string) *Service {
	cacheTTL := 1 * time.Minute
	if cfg != nil && cfg.CacheTTL > 0 {
		cacheTTL = cfg.CacheTTL
	}

	defaults := map[string]string{"": defaultRunbook}
	if cfg != nil {
		for topic, content := range cfg.TopicDefaults {
			defaults[normalizeTopic(topic)] = content
		}
	}

	return &Service{
		github:   NewGitHubClient(githubToken),
		cache:    NewCache(cacheTTL),
		cfg:      cfg,
		defaults: defaults,
	}
}

// normalizeTopic lowercases, trims, and canonicalizes a maintenance
// topic through topicSynonyms (e.g. "SOC" and "cell balancing" both
// resolve to "battery").
func normalizeTopic(topic string) string {
	t := strings.ToLower(strings.TrimSpace(topic))
	if canon, ok := topicSynonyms[t]; ok {
		return canon
	}
	return t
}

// Resolve returns runbook content for a maintenance procedure, using
// this resolution hierarchy:
//  1. runbookURL, if given (e.g. "check the battery balancing procedure")
//  2. topic, matched by keyword against the filenames in the
//     installation's configured runbook repository
//  3. installation-specific default content configured for that topic
//  4. the generic installation default
//
// URL-based and topic-matched runbooks are fetched via GitHubClient
// with caching, including negative caching of not-found results so a
// broken link isn't refetched on every call within the cache TTL. A
// repo-match fetch failure falls through to the topic/generic default
// rather than failing the tool call outright — only an explicit,
// caller-supplied URL failure is surfaced as an error.
func (s *Service) Resolve(ctx context.Context, runbookURL, topic string) (string, error) {
	if runbookURL != "" {
		content, err := s.fetchWithCache(ctx, runbookURL)
		if err != nil {
			return "", fmt.Errorf("fetch runbook %s: %w", runbookURL, err)
		}
		return content, nil
	}

	norm := normalizeTopic(topic)

	if matchURL, err := s.matchTopicURL(ctx, norm); err == nil && matchURL != "" {
		if content, err := s.fetchWithCache(ctx, matchURL); err == nil {
			return content, nil
		}
	}

	if content, ok := s.defaults[norm]; ok && content != "" {
		return content, nil
	}
	return s.defaults[""], nil
}

// matchTopicURL finds the runbook-repo file whose name best matches
// topic (e.g. topic "battery" matches "battery-balancing.md"). Returns
// "" with no error when no repo is configured or nothing matches.
func (s *Service) matchTopicURL(ctx context.Context, topic string) (string, error) {
	if topic == "" || s.cfg == nil || s.cfg.RepoURL == "" {
		return "", nil
	}
	files, err := s.ListRunbooks(ctx)
	if err != nil {
		return "", err
	}
	return bestFilenameMatch(files, topic), nil
}

// bestFilenameMatch returns the first file whose base name contains
// topic, case-insensitively.
func bestFilenameMatch(files []string, topic string) string {
	for _, f := range files {
		name := strings.ToLower(path.Base(f))
		if strings.Contains(name, topic) {
			return f
		}
	}
	return ""
}

// ListRunbooks returns available runbook URLs from the configured repository.
// Returns empty slice if repo_url is not configured.
func (s *Service) ListRunbooks(ctx context.Context) ([]string, error) {
	if s.cfg == nil || s.cfg.RepoURL == "" {
		return []string{}, nil
	}

	// Check cache (using repo URL as key)
	if cached, ok := s.cache.Get(s.cfg.RepoURL); ok {
		return splitCachedList(cached), nil
	}

	files, err := s.github.ListMarkdownFiles(ctx, s.cfg.RepoURL)
	if err != nil {
		return nil, fmt.Errorf("list runbooks from %s: %w", s.cfg.RepoURL, err)
	}

	if files == nil {
		files = []string{}
	}

	// Cache the result as a joined string
	s.cache.Set(s.cfg.RepoURL, joinForCache(files))
	return files, nil
}

// OverrideHTTPClientForTest replaces the internal GitHub client's HTTP client.
// For testing only.
func (s *Service) OverrideHTTPClientForTest(httpClient *http.Client) {
	s.github.httpClient = httpClient
}

func (s *Service) fetchWithCache(ctx context.Context, rawURL string) (string, error) {
	// Validate URL
	var allowedDomains []string
	if s.cfg != nil {
		allowedDomains = s.cfg.AllowedDomains
	}
	if err := ValidateRunbookURL(rawURL, allowedDomains); err != nil {
		return "", err
	}

	// Check cache (key: normalized URL)
	normalizedURL := ConvertToRawURL(rawURL)
	if content, found, isMiss := s.cache.GetOrMiss(normalizedURL); found {
		if isMiss {
			return "", fmt.Errorf("%w (cached): %s", ErrNotFound, rawURL)
		}
		return content, nil
	}

	// Fetch from GitHub
	content, err := s.github.DownloadContent(ctx, rawURL)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.cache.SetMiss(normalizedURL)
		}
		return "", err
	}

	// Cache the result
	s.cache.Set(normalizedURL, content)
	return content, nil
}

func joinForCache(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(items[0])
	for _, item := range items[1:] {
		sb.WriteByte('\x00')
		sb.WriteString(item)
	}
	return sb.String()
}

func splitCachedList(cached string) []string {
	if cached == "" {
		return []string{}
	}
	var result []string
	start := 0
	for i := 0; i < len(cached); i++ {
		if cached[i] == '\x00' {
			result = append(result, cached[start:i])
			start = i + 1
		}
	}
	result = append(result, cached[start:])
	return result
}
