// Package privacy provides sets of types and helpers for writing access
// policies over query chains, and deals with their evaluation at runtime.
//
// A Policy is evaluated against a finished query.Spec before it is
// compiled: read rules guard pattern-only chains, write rules guard chains
// carrying creates, updates or deletes.
package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/cypher/query"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from policy rules to indicate
// how the policy evaluation should proceed. Use errors.Is() to check
// for these values:
//
//	if errors.Is(err, privacy.Allow) { ... }
//	if errors.Is(err, privacy.Deny) { ... }
//	if errors.Is(err, privacy.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	// When returned from a policy, the operation is permitted.
	Allow = errors.New("cypher/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	// When returned from a policy, the operation is rejected.
	Deny = errors.New("cypher/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	// This allows rules to abstain from making a decision.
	Skip = errors.New("cypher/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
// The returned error wraps Allow and can be checked with errors.Is(err, Allow).
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
// The returned error wraps Deny and can be checked with errors.Is(err, Deny).
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
// The returned error wraps Skip and can be checked with errors.Is(err, Skip).
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
// This rule unconditionally permits both reads and writes.
func AlwaysAllowRule() ReadWriteRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
// This rule unconditionally rejects both reads and writes.
func AlwaysDenyRule() ReadWriteRule {
	return fixedDecision{Deny}
}

// ContextRule creates a read/write rule from a context evaluation function.
// The provided function receives the context and should return Allow, Deny,
// Skip, or nil. Returning nil is equivalent to returning Skip.
func ContextRule(eval func(context.Context) error) ReadWriteRule {
	return contextDecision{eval}
}

type (
	// ReadRule defines the interface deciding whether a pattern-only
	// chain is allowed to execute.
	ReadRule interface {
		EvalRead(context.Context, *query.Spec) error
	}

	// ReadPolicy combines multiple read rules into a single policy.
	ReadPolicy []ReadRule

	// WriteRule defines the interface deciding whether a chain carrying
	// creates, updates or deletes is allowed to execute.
	WriteRule interface {
		EvalWrite(context.Context, *query.Spec) error
	}

	// WritePolicy combines multiple write rules into a single policy.
	WritePolicy []WriteRule

	// ReadWriteRule is an interface which groups read and write rules.
	ReadWriteRule interface {
		ReadRule
		WriteRule
	}
)

// WriteRuleFunc type is an adapter which allows the use of
// ordinary functions as write rules.
type WriteRuleFunc func(context.Context, *query.Spec) error

// EvalWrite returns f(ctx, s).
func (f WriteRuleFunc) EvalWrite(ctx context.Context, s *query.Spec) error {
	return f(ctx, s)
}

// OnWriteOperation evaluates the given rule only on chains carrying the
// given write operation.
func OnWriteOperation(rule WriteRule, op query.WriteOp) WriteRule {
	return WriteRuleFunc(func(ctx context.Context, s *query.Spec) error {
		if hasWriteOp(s, op) {
			return rule.EvalWrite(ctx, s)
		}
		return Skip
	})
}

// DenyWriteOperationRule returns a rule denying the specified write
// operation.
func DenyWriteOperationRule(op query.WriteOp) WriteRule {
	rule := WriteRuleFunc(func(context.Context, *query.Spec) error {
		return Denyf("cypher/privacy: operation %s is not allowed", op)
	})
	return OnWriteOperation(rule, op)
}

// AllowWriteOperationRule returns a rule allowing the specified write
// operation.
func AllowWriteOperationRule(op query.WriteOp) WriteRule {
	rule := WriteRuleFunc(func(context.Context, *query.Spec) error {
		return Allow
	})
	return OnWriteOperation(rule, op)
}

// Policy groups read and write policies.
type Policy struct {
	Read  ReadPolicy
	Write WritePolicy
}

// Eval evaluates the chain against the matching policy: chains carrying
// writes or deletes go through the write policy, everything else through
// the read policy. A decision attached to the context short-circuits the
// evaluation.
func (p Policy) Eval(ctx context.Context, s *query.Spec) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	if writes(s) {
		return p.Write.EvalWrite(ctx, s)
	}
	return p.Read.EvalRead(ctx, s)
}

// EvalRead evaluates a chain against the read policy.
func (policies ReadPolicy) EvalRead(ctx context.Context, s *query.Spec) error {
	for _, policy := range policies {
		switch decision := policy.EvalRead(ctx, s); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// EvalWrite evaluates a chain against the write policy.
func (policies WritePolicy) EvalWrite(ctx context.Context, s *query.Spec) error {
	for _, policy := range policies {
		switch decision := policy.EvalWrite(ctx, s); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attach to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalRead(context.Context, *query.Spec) error {
	return f.decision
}

func (f fixedDecision) EvalWrite(context.Context, *query.Spec) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalRead(ctx context.Context, _ *query.Spec) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalWrite(ctx context.Context, _ *query.Spec) error {
	return c.eval(ctx)
}

func writes(s *query.Spec) bool {
	return len(s.Writes) > 0 || len(s.Deletes) > 0 || len(s.DeleteEnts) > 0
}

func hasWriteOp(s *query.Spec, op query.WriteOp) bool {
	if op == query.WriteDelete && (len(s.Deletes) > 0 || len(s.DeleteEnts) > 0) {
		return true
	}
	for i := range s.Writes {
		if s.Writes[i].Op == op {
			return true
		}
	}
	return false
}
