package access

import (
	"fmt"
	"sort"
)

// Rule binds a path pattern to the class it requires.
type Rule struct {
	Pattern Pattern
	Class   Class
}

// RuleSet lists the patterns for each non-public class, in the pattern syntax
// accepted by ParsePattern.
type RuleSet struct {
	Admin         []string
	Instructor    []string
	Authenticated []string
	GuestOnly     []string
}

// DefaultRuleSet returns the LMS route table.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Admin:         []string{"/admin/:path*"},
		Instructor:    []string{"/instructor/:path*"},
		Authenticated: []string{"/", "/subject/:path*", "/profile/:path*"},
		GuestOnly:     []string{"/login", "/register"},
	}
}

// Classifier maps request paths to classes. The most specific matching rule
// wins; exact rules beat prefix rules of the same length.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier from a rule set.
func NewClassifier(rs RuleSet) (*Classifier, error) {
	groups := []struct {
		class    Class
		patterns []string
	}{
		{ClassAdmin, rs.Admin},
		{ClassInstructor, rs.Instructor},
		{ClassAuthenticated, rs.Authenticated},
		{ClassGuestOnly, rs.GuestOnly},
	}

	var rules []Rule
	for _, g := range groups {
		patterns, err := ParsePatterns(g.patterns)
		if err != nil {
			return nil, fmt.Errorf("%s rules: %w", g.class, err)
		}
		for _, p := range patterns {
			rules = append(rules, Rule{Pattern: p, Class: g.class})
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i].Pattern, rules[j].Pattern
		if len(a.Path) != len(b.Path) {
			return len(a.Path) > len(b.Path)
		}
		return !a.Prefix && b.Prefix
	})
	return &Classifier{rules: rules}, nil
}

// MustNewClassifier is NewClassifier for static rule sets.
func MustNewClassifier(rs RuleSet) *Classifier {
	c, err := NewClassifier(rs)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the class for path. Unmatched paths are public.
func (c *Classifier) Classify(path string) Class {
	if c == nil {
		return ClassPublic
	}
	for _, r := range c.rules {
		if r.Pattern.Match(path) {
			return r.Class
		}
	}
	return ClassPublic
}

// Rules returns the rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	if c == nil {
		return nil
	}
	return append([]Rule(nil), c.rules...)
}
