package gate

import "strings"

// domainSet stores exact domain keys and suffix wildcards derived from configuration.
type domainSet struct {
	exact    map[string]struct{}
	suffixes []string
}

// newDomainSet builds a set from configured entries. "*.example.com" and
// ".example.com" match example.com and every subdomain; anything else must
// match the domain key exactly. Returns nil when no usable entries remain.
func newDomainSet(patterns []string) *domainSet {
	set := &domainSet{
		exact: make(map[string]struct{}),
	}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			set.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			set.addSuffix(strings.TrimPrefix(value, "."))
		default:
			set.exact[value] = struct{}{}
		}
	}
	if len(set.exact) == 0 && len(set.suffixes) == 0 {
		return nil
	}
	return set
}

func (s *domainSet) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range s.suffixes {
		if existing == suffix {
			return
		}
	}
	s.suffixes = append(s.suffixes, suffix)
}

// Empty reports whether the set imposes no entries.
func (s *domainSet) Empty() bool {
	return s == nil
}

// Contains reports whether domain matches an entry.
func (s *domainSet) Contains(domain string) bool {
	if s == nil || domain == "" {
		return false
	}
	if _, ok := s.exact[domain]; ok {
		return true
	}
	host := hostOnly(domain)
	for _, suffix := range s.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// hostOnly strips a port from a domain key so wildcards match any port.
func hostOnly(domain string) string {
	if strings.HasPrefix(domain, "[") {
		if end := strings.Index(domain, "]"); end > 0 {
			return domain[1:end]
		}
		return domain
	}
	if i := strings.LastIndex(domain, ":"); i >= 0 {
		return domain[:i]
	}
	return domain
}
