package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/crawlgate/internal/gate"
)

// ErrInvalidURLs is returned when at least one argument could not be checked.
var ErrInvalidURLs = errors.New("one or more URLs were invalid")

type checkLine struct {
	URL string `json:"url"`
	gate.Decision
}

// Run executes the check command. URLs are checked in argument order so that
// rate limit budgets are consumed the way a crawler would consume them.
func (c *CheckCmd) Run(deps *Dependencies) error {
	enc := json.NewEncoder(deps.Stdout)
	invalid := 0
	for _, raw := range c.URLs {
		decision, err := deps.Gate.CheckURL(deps.Ctx, raw)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %v\n", err)
			invalid++
			continue
		}
		if c.JSON {
			if err := enc.Encode(checkLine{URL: raw, Decision: decision}); err != nil {
				return fmt.Errorf("write decision: %w", err)
			}
			continue
		}
		verdict := "DENY"
		if decision.Allowed {
			verdict = "ALLOW"
		}
		fmt.Fprintf(deps.Stdout, "%s\t%s\t%s\n", verdict, raw, decision.Reason)
	}
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidURLs, invalid, len(c.URLs))
	}
	return nil
}
