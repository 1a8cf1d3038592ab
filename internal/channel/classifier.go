// Package channel contains the routing and authorization core of the
// gateway: channel name classification, private channel authorization,
// client event gating and the router orchestrating them.
package channel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

const presencePrefix = "presence-"

// Patterns hold channel and event name patterns with * wildcard.
type Patterns struct {
	// Private channel patterns, "private-*" and "presence-*" by default.
	Private []string
	// ClientEvents patterns, "client-*" by default.
	ClientEvents []string
	// App is an application channel pattern, "app-*" by default.
	App string
}

// DefaultPatterns returns patterns used when none configured.
func DefaultPatterns() Patterns {
	return Patterns{
		Private:      []string{"private-*", "presence-*"},
		ClientEvents: []string{"client-*"},
		App:          "app-*",
	}
}

// Classifier labels channel and event names. It's immutable after
// construction and safe for concurrent use.
type Classifier struct {
	private      []*regexp.Regexp
	clientEvents []*regexp.Regexp
	app          glob.Glob
	appPrefix    string
}

// NewClassifier compiles patterns into a Classifier.
//
// Private and client event patterns intentionally keep loose semantics for
// compatibility with existing deployments: * expands to .* and the match is
// not anchored, so "not-private-x" matches "private-*". Presence and
// application channel checks are anchored at the start of the name. Do not
// "fix" one to behave like the other.
func NewClassifier(p Patterns) (*Classifier, error) {
	private, err := compileLoosePatterns(p.Private)
	if err != nil {
		return nil, fmt.Errorf("malformed private channel pattern: %w", err)
	}
	clientEvents, err := compileLoosePatterns(p.ClientEvents)
	if err != nil {
		return nil, fmt.Errorf("malformed client event pattern: %w", err)
	}
	app, err := glob.Compile(p.App)
	if err != nil {
		return nil, fmt.Errorf("malformed application channel pattern: %w", err)
	}
	return &Classifier{
		private:      private,
		clientEvents: clientEvents,
		app:          app,
		appPrefix:    strings.TrimSuffix(p.App, "*"),
	}, nil
}

func compileLoosePatterns(patterns []string) ([]*regexp.Regexp, error) {
	var regexps []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile(strings.ReplaceAll(pattern, "*", ".*"))
		if err != nil {
			return nil, err
		}
		regexps = append(regexps, re)
	}
	return regexps, nil
}

// IsPrivate reports whether a channel requires authentication before join.
func (c *Classifier) IsPrivate(name string) bool {
	for _, re := range c.private {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// IsPresence reports whether a channel tracks member presence. Presence
// channels are always private.
func (c *Classifier) IsPresence(name string) bool {
	return strings.HasPrefix(name, presencePrefix)
}

// IsClientEvent reports whether an event name is eligible for
// client-to-client relay.
func (c *Classifier) IsClientEvent(event string) bool {
	for _, re := range c.clientEvents {
		if re.MatchString(event) {
			return true
		}
	}
	return false
}

// IsAppChannel reports whether a channel name targets the backend
// application.
func (c *Classifier) IsAppChannel(name string) bool {
	return c.app.Match(name)
}

// AppPrefix returns the application channel pattern with its wildcard
// suffix stripped.
func (c *Classifier) AppPrefix() string {
	return c.appPrefix
}
