// Package gate implements the crawl-compliance gate: the admission check every
// outbound fetch passes before a request is issued.
//
// A check runs, in order and stopping at the first denial:
//   - the configured deny list,
//   - the configured allow list (only when it is non-empty),
//   - robots.txt rules for the configured user agent (fetched once per domain),
//   - the per-domain requests-per-minute budget.
//
// Static list checks come first so a denied domain never triggers network I/O.
// Policy denials are reported as a Decision; only a URL without a usable host
// produces an error.
package gate
