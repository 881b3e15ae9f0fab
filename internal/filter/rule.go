// Package filter evaluates user-supplied boolean expressions against
// posts, deciding which novel posts are worth dispatching.
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
)

// Rule is a compiled post predicate. Expressions see the environment
// built by ruleEnv, e.g.:
//
//	!nsfw && text.length > 0
//	author.username != "bridge-bot" && !reuse
type Rule struct {
	name    string
	program *vm.Program
}

// Compile parses and compiles the expression once, up front, so a typo
// fails at startup rather than mid-watch.
func Compile(name, rule string) (*Rule, error) {
	if rule == "" {
		return nil, fmt.Errorf("filter rule expression is required")
	}
	program, err := expr.Compile(rule, expr.Env(map[string]interface{}{}))
	if err != nil {
		return nil, fmt.Errorf("compile filter rule %q: %w", name, err)
	}
	return &Rule{name: name, program: program}, nil
}

// Name returns the rule's configured name.
func (r *Rule) Name() string {
	return r.name
}

// Match reports whether the post passes the rule.
func (r *Rule) Match(post uwuzu.Post) (bool, error) {
	result, err := expr.Run(r.program, ruleEnv(post))
	if err != nil {
		return false, fmt.Errorf("run filter rule %q: %w", r.name, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter rule %q did not return bool", r.name)
	}
	return matched, nil
}

func ruleEnv(post uwuzu.Post) map[string]interface{} {
	return map[string]interface{}{
		"text": map[string]interface{}{
			"value":  post.Text,
			"length": len(post.Text),
		},
		"nsfw": post.NSFW,
		"author": map[string]interface{}{
			"id":       post.Account.ID,
			"username": post.Account.Username,
		},
		"reply": post.ReplyID != "",
		"reuse": post.ReuseID != "",
	}
}
