// Package policy evaluates the chat message policy with OPA.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/studyclub/internal/domain"
)

// Input is the document the policy is evaluated against.
type Input struct {
	SessionID    string `json:"session_id"`
	Text         string `json:"text"`
	Length       int    `json:"length"`
	HistoryCount int    `json:"history_count"`
}

// Result is the policy outcome.
type Result struct {
	Decision domain.PolicyDecision
	Reason   string
}

// Allowed reports whether the message may be sent.
func (r Result) Allowed() bool {
	return r.Decision != domain.PolicyBlock
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.result"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy module from path, or the default policy
// when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks a message against the policy. A policy that yields no
// result allows the message.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Result, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Result{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Result{Decision: domain.PolicyAllow, Reason: "default"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Result{Decision: domain.PolicyAllow, Reason: "unexpected return type"}, nil
	}

	res := Result{Decision: domain.PolicyAllow}
	if d, ok := obj["decision"].(string); ok && d == string(domain.PolicyBlock) {
		res.Decision = domain.PolicyBlock
	}
	if reason, ok := obj["reason"].(string); ok {
		res.Reason = reason
	}
	return res, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package chat_policy

max_length := 4000

banned_terms := ["ignore previous instructions", "reveal the answer key"]

default decision = "allow"

default reason = ""

decision = "block" {
	input.length > max_length
}

decision = "block" {
	banned
}

reason = "message too long" {
	input.length > max_length
}

reason = "message contains a banned phrase" {
	input.length <= max_length
	banned
}

banned {
	term := banned_terms[_]
	contains(lower(input.text), term)
}

result := {"decision": decision, "reason": reason}
`
