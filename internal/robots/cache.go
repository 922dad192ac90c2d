// Package robots fetches, parses and caches robots.txt rulesets per domain.
//
// Every domain moves from Unfetched to exactly one of Fetched or Failed on its
// first lookup and stays there for the life of the Cache. A Failed domain has
// no rules and therefore never blocks a fetch.
package robots

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/crawlgate/internal/metrics"
)

// State is the lookup state of a domain.
type State int

// Lookup states.
const (
	StateUnfetched State = iota
	StateFetched
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetched:
		return "fetched"
	case StateFailed:
		return "failed"
	default:
		return "unfetched"
	}
}

const disallowAllBody = "User-agent: *\nDisallow: /"

// Ruleset is the cached outcome of a robots.txt lookup.
type Ruleset struct {
	state State
	data  *robotstxt.RobotsData
}

// State reports how the ruleset was obtained.
func (r Ruleset) State() State {
	return r.state
}

// Available reports whether enforceable rules exist.
func (r Ruleset) Available() bool {
	return r.state == StateFetched && r.data != nil
}

// Allowed reports whether userAgent may fetch target. Without rules every
// target is allowed.
func (r Ruleset) Allowed(userAgent string, target *url.URL) bool {
	if !r.Available() || target == nil {
		return true
	}
	return r.data.TestAgent(requestPath(target), userAgent)
}

func requestPath(target *url.URL) string {
	p := target.EscapedPath()
	if p == "" {
		p = "/"
	}
	if target.RawQuery != "" {
		p += "?" + target.RawQuery
	}
	return p
}

// Cache holds one Ruleset per domain key.
type Cache struct {
	fetcher Fetcher
	logger  *zap.Logger
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]Ruleset
}

// NewCache builds an empty Cache backed by fetcher.
func NewCache(fetcher Fetcher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		entries: make(map[string]Ruleset),
	}
}

// Lookup returns the ruleset for domain, fetching it on first use.
// Concurrent first lookups for the same domain share one fetch. The fetch is
// detached from ctx cancellation so an abandoned caller cannot turn a domain
// into a permanent failure; the fetcher's own timeout still applies.
func (c *Cache) Lookup(ctx context.Context, domain string) Ruleset {
	if rs, ok := c.cached(domain); ok {
		return rs
	}
	if ctx == nil {
		ctx = context.Background()
	}
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(domain, func() (any, error) {
		if rs, ok := c.cached(domain); ok {
			return rs, nil
		}
		rs := c.fetch(fetchCtx, domain)
		c.mu.Lock()
		c.entries[domain] = rs
		c.mu.Unlock()
		return rs, nil
	})
	rs, _ := v.(Ruleset)
	return rs
}

// Status returns the lookup state for domain without fetching.
func (c *Cache) Status(domain string) State {
	rs, ok := c.cached(domain)
	if !ok {
		return StateUnfetched
	}
	return rs.state
}

func (c *Cache) cached(domain string) (Ruleset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rs, ok := c.entries[domain]
	return rs, ok
}

func (c *Cache) fetch(ctx context.Context, domain string) Ruleset {
	start := time.Now()
	data, err := c.load(ctx, domain)
	if err != nil {
		metrics.ObserveRobotsFetch(StateFailed.String(), time.Since(start))
		c.logger.Warn("robots fetch failed; treating domain as unrestricted",
			zap.String("domain", domain), zap.Error(err))
		return Ruleset{state: StateFailed}
	}
	metrics.ObserveRobotsFetch(StateFetched.String(), time.Since(start))
	c.logger.Debug("robots rules cached", zap.String("domain", domain))
	return Ruleset{state: StateFetched, data: data}
}

func (c *Cache) load(ctx context.Context, domain string) (*robotstxt.RobotsData, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("no robots fetcher configured")
	}
	resp, err := c.fetcher.Fetch(ctx, domain)
	if err != nil {
		return nil, err
	}
	data, err := parse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

// parse maps a response onto rules: 401 and 403 forbid everything, other 4xx
// allow everything, 5xx forbid everything, 2xx is parsed.
func parse(resp Response) (*robotstxt.RobotsData, error) {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		data, err := robotstxt.FromString(disallowAllBody)
		if err != nil {
			return nil, fmt.Errorf("build disallow-all rules: %w", err)
		}
		return data, nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, escapeRulePaths(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}
	return data, nil
}

// escapeRulePaths percent-encodes non-ASCII bytes in Allow and Disallow values
// so rules compare against URL.EscapedPath in the same encoding.
func escapeRulePaths(body []byte) []byte {
	if !hasNonASCII(body) {
		return body
	}
	lines := bytes.Split(body, []byte("\n"))
	for i, line := range lines {
		colon := bytes.IndexByte(line, ':')
		if colon < 0 || !hasNonASCII(line[colon+1:]) {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(string(line[:colon])))
		if field != "allow" && field != "disallow" {
			continue
		}
		var b bytes.Buffer
		b.Write(line[:colon+1])
		for _, c := range line[colon+1:] {
			if c >= 0x80 {
				fmt.Fprintf(&b, "%%%02X", c)
				continue
			}
			b.WriteByte(c)
		}
		lines[i] = b.Bytes()
	}
	return bytes.Join(lines, []byte("\n"))
}

func hasNonASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return true
		}
	}
	return false
}
