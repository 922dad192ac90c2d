package gate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/crawlgate/internal/metrics"
	"github.com/JakeFAU/crawlgate/internal/policy/ratelimit"
	"github.com/JakeFAU/crawlgate/internal/robots"
)

// ErrInvalidURL is returned when a URL cannot be reduced to a domain key.
var ErrInvalidURL = errors.New("invalid url")

// Defaults applied by DefaultConfig.
const (
	DefaultUserAgent = "job-search-agent/1.0"
	DefaultPerMinute = 30
)

// ReasonOK is the reason attached to an admitted URL.
const ReasonOK = "OK"

// Rate limit denials can arrive in bursts; log the first few, then one per interval.
const (
	rateLimitLogFirst    = 5
	rateLimitLogInterval = 10 * time.Second
)

// Check names the step that produced a decision.
type Check string

// Checks in evaluation order. CheckPassed marks an admitted URL.
const (
	CheckDenyList  Check = "deny_list"
	CheckAllowList Check = "allow_list"
	CheckRobots    Check = "robots"
	CheckRateLimit Check = "rate_limit"
	CheckPassed    Check = "passed"
)

// Decision is the outcome of CheckURL.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Check   Check  `json:"check"`
	Domain  string `json:"domain"`
}

// Config is the immutable gate configuration.
type Config struct {
	UserAgent  string
	ObeyRobots bool
	// AllowDomains restricts admission to these domains when non-empty.
	AllowDomains []string
	DenyDomains  []string
	// DefaultPerMinute applies to every domain without an override.
	DefaultPerMinute int
	Overrides        map[string]int
	// RobotsTimeout bounds a robots.txt fetch.
	RobotsTimeout time.Duration
	// RobotsMaxBytes caps a robots.txt body.
	RobotsMaxBytes int64
}

// DefaultConfig returns the configuration used when no source is supplied:
// robots obeyed, no allow or deny restriction and the default quota.
func DefaultConfig() Config {
	return Config{
		UserAgent:        DefaultUserAgent,
		ObeyRobots:       true,
		DefaultPerMinute: DefaultPerMinute,
		Overrides:        map[string]int{},
		RobotsTimeout:    robots.DefaultTimeout,
		RobotsMaxBytes:   robots.DefaultMaxBytes,
	}
}

// Validate enforces required values.
func (c Config) Validate() error {
	if c.DefaultPerMinute <= 0 {
		return fmt.Errorf("default per-minute quota must be > 0, got %d", c.DefaultPerMinute)
	}
	for domain, quota := range c.Overrides {
		if quota <= 0 {
			return fmt.Errorf("per-minute quota for %q must be > 0, got %d", domain, quota)
		}
	}
	if c.ObeyRobots && strings.TrimSpace(c.UserAgent) == "" {
		return errors.New("user agent must be set when robots.txt is obeyed")
	}
	if c.RobotsTimeout < 0 {
		return fmt.Errorf("robots timeout must be >= 0, got %s", c.RobotsTimeout)
	}
	return nil
}

// Option customizes a Gate.
type Option func(*options)

type options struct {
	logger        *zap.Logger
	clock         ratelimit.Clock
	robotsFetcher robots.Fetcher
}

// WithLogger sets the logger used for decisions and robots failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock driving rate limit windows.
func WithClock(clock ratelimit.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRobotsFetcher replaces the HTTPS robots.txt fetcher.
func WithRobotsFetcher(fetcher robots.Fetcher) Option {
	return func(o *options) {
		o.robotsFetcher = fetcher
	}
}

// Gate composes allow/deny lists, robots.txt and rate limiting into one
// admission decision. It is safe for concurrent use.
type Gate struct {
	userAgent  string
	obeyRobots bool
	allow      *domainSet
	deny       *domainSet
	perMinute  int
	overrides  map[string]int

	limiter *ratelimit.Limiter
	robots  *robots.Cache
	logger  *zap.Logger
	rateLog *rate.Sometimes
}

// New validates cfg and builds a Gate that owns its limiter and robots cache.
func New(cfg Config, opts ...Option) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gate config: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.robotsFetcher == nil {
		o.robotsFetcher = robots.NewHTTPFetcher(robots.FetcherConfig{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.RobotsTimeout,
			MaxBytes:  cfg.RobotsMaxBytes,
		}, o.logger)
	}

	overrides := make(map[string]int, len(cfg.Overrides))
	for domain, quota := range cfg.Overrides {
		overrides[strings.ToLower(strings.TrimSpace(domain))] = quota
	}

	return &Gate{
		userAgent:  cfg.UserAgent,
		obeyRobots: cfg.ObeyRobots,
		allow:      newDomainSet(cfg.AllowDomains),
		deny:       newDomainSet(cfg.DenyDomains),
		perMinute:  cfg.DefaultPerMinute,
		overrides:  overrides,
		limiter:    ratelimit.New(ratelimit.Config{Clock: o.clock}),
		robots:     robots.NewCache(o.robotsFetcher, o.logger.Named("robots")),
		logger:     o.logger,
		rateLog:    &rate.Sometimes{First: rateLimitLogFirst, Interval: rateLimitLogInterval},
	}, nil
}

// DomainKey returns the lowercase host[:port] of rawURL.
func DomainKey(rawURL string) (string, error) {
	_, domain, err := parseTarget(rawURL)
	return domain, err
}

func parseTarget(rawURL string) (*url.URL, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	domain := strings.ToLower(u.Host)
	if domain == "" {
		return nil, "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
	}
	return u, domain, nil
}

// CheckURL decides whether rawURL may be fetched now. A denial is reported
// through the Decision; the error is non-nil only for a URL without a host.
// Reaching the rate limit step consumes a token even when the URL passes.
func (g *Gate) CheckURL(ctx context.Context, rawURL string) (Decision, error) {
	target, domain, err := parseTarget(rawURL)
	if err != nil {
		metrics.ObserveInvalidURL()
		return Decision{}, err
	}
	decision := g.evaluate(ctx, target, domain)
	metrics.ObserveDecision(string(decision.Check), decision.Allowed)
	g.log(rawURL, decision)
	return decision, nil
}

func (g *Gate) evaluate(ctx context.Context, target *url.URL, domain string) Decision {
	if g.deny.Contains(domain) {
		return deny(CheckDenyList, domain, "denied by configuration deny list: %s", domain)
	}
	if !g.allow.Empty() && !g.allow.Contains(domain) {
		return deny(CheckAllowList, domain, "not in allow list: %s", domain)
	}
	if g.obeyRobots {
		rules := g.robots.Lookup(ctx, domain)
		if !rules.Allowed(g.userAgent, target) {
			return deny(CheckRobots, domain, "blocked by robots.txt for %s", domain)
		}
	}
	quota := g.Quota(domain)
	if !g.limiter.Allow(domain, quota) {
		return deny(CheckRateLimit, domain, "rate limit exceeded for %s (%d/min)", domain, quota)
	}
	return Decision{Allowed: true, Reason: ReasonOK, Check: CheckPassed, Domain: domain}
}

// Quota returns the per-minute budget that applies to domain.
func (g *Gate) Quota(domain string) int {
	if quota, ok := g.overrides[domain]; ok {
		return quota
	}
	return g.perMinute
}

// RobotsState reports the robots.txt lookup state for domain.
func (g *Gate) RobotsState(domain string) robots.State {
	return g.robots.Status(domain)
}

// Bucket returns the rate limit bucket tracked for domain.
func (g *Gate) Bucket(domain string) (ratelimit.Bucket, bool) {
	return g.limiter.Snapshot(domain)
}

// DomainStatus summarizes the gate's state for one domain.
type DomainStatus struct {
	Domain    string `json:"domain"`
	PerMinute int    `json:"per_minute"`
	// Tokens and WindowStart are zero until the domain reaches the rate limit step.
	// Tokens may exceed PerMinute after a quota drop until the window refills.
	Tokens      int       `json:"tokens"`
	WindowStart time.Time `json:"window_start"`
	Tracked     bool      `json:"tracked"`
	Robots      string    `json:"robots"`
	Denied      bool      `json:"denied"`
	NotAllowed  bool      `json:"not_allowed"`
}

// Status reports quota, bucket and robots state for domain without consuming
// a token or fetching robots.txt.
func (g *Gate) Status(domain string) DomainStatus {
	domain = strings.ToLower(strings.TrimSpace(domain))
	st := DomainStatus{
		Domain:     domain,
		PerMinute:  g.Quota(domain),
		Robots:     g.RobotsState(domain).String(),
		Denied:     g.deny.Contains(domain),
		NotAllowed: !g.allow.Empty() && !g.allow.Contains(domain),
	}
	if b, ok := g.Bucket(domain); ok {
		st.Tracked = true
		st.Tokens = b.Tokens
		st.WindowStart = b.LastRefill
	}
	return st
}

func (g *Gate) log(rawURL string, d Decision) {
	fields := []zap.Field{
		zap.String("url", rawURL),
		zap.String("domain", d.Domain),
		zap.String("check", string(d.Check)),
		zap.String("reason", d.Reason),
	}
	switch d.Check {
	case CheckPassed:
		g.logger.Debug("fetch admitted", fields...)
	case CheckRateLimit:
		g.rateLog.Do(func() {
			g.logger.Info("fetch denied", fields...)
		})
	default:
		g.logger.Info("fetch denied", fields...)
	}
}

func deny(check Check, domain, format string, args ...any) Decision {
	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf(format, args...),
		Check:   check,
		Domain:  domain,
	}
}
