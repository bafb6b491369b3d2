package orders

import (
	"errors"
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/enums"
)

// TransitionPolicy decides whether an order may move between two states.
// Both states are already known to be valid when Allow is called.
type TransitionPolicy interface {
	Name() string
	Allow(from, to enums.OrderState) error
}

// ErrTransitionNotAllowed is returned (wrapped) by every policy rejection.
var ErrTransitionNotAllowed = errors.New("transition not allowed")

// ErrStaleState means another transition landed between the read and the write.
var ErrStaleState = errors.New("order state changed concurrently")

// PermissivePolicy accepts any transition, including leaving CANCELADA or
// ENTREGADA. This is the default and matches how operators use the panel.
type PermissivePolicy struct{}

func (PermissivePolicy) Name() string { return config.TransitionPolicyPermissive }

func (PermissivePolicy) Allow(enums.OrderState, enums.OrderState) error { return nil }

// GraphPolicy enforces an explicit adjacency map.
type GraphPolicy struct {
	edges map[enums.OrderState]map[enums.OrderState]struct{}
}

// DefaultTransitionGraph treats ENTREGADA and CANCELADA as terminal.
func DefaultTransitionGraph() map[enums.OrderState][]enums.OrderState {
	return map[enums.OrderState][]enums.OrderState{
		enums.OrderStateRecibida:    {enums.OrderStatePreparacion, enums.OrderStatePagada, enums.OrderStateCancelada},
		enums.OrderStatePreparacion: {enums.OrderStatePagada, enums.OrderStateEntregada, enums.OrderStateCancelada},
		enums.OrderStatePagada:      {enums.OrderStatePreparacion, enums.OrderStateEntregada, enums.OrderStateCancelada},
		enums.OrderStateEntregada:   {},
		enums.OrderStateCancelada:   {},
	}
}

func NewGraphPolicy(graph map[enums.OrderState][]enums.OrderState) *GraphPolicy {
	edges := make(map[enums.OrderState]map[enums.OrderState]struct{}, len(graph))
	for from, targets := range graph {
		set := make(map[enums.OrderState]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		edges[from] = set
	}
	return &GraphPolicy{edges: edges}
}

func (*GraphPolicy) Name() string { return config.TransitionPolicyGraph }

func (p *GraphPolicy) Allow(from, to enums.OrderState) error {
	if _, ok := p.edges[from][to]; ok {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
}

// ExprPolicy evaluates an operator-supplied boolean rule over the variables
// from and to, e.g. `from != "CANCELADA" && from != "ENTREGADA"`.
type ExprPolicy struct {
	rule    string
	program *exprvm.Program
}

func NewExprPolicy(rule string) (*ExprPolicy, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil, fmt.Errorf("transition rule must not be empty")
	}
	program, err := exprlang.Compile(rule, exprlang.Env(transitionEnv("", "")), exprlang.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile transition rule: %w", err)
	}
	return &ExprPolicy{rule: rule, program: program}, nil
}

func (*ExprPolicy) Name() string { return config.TransitionPolicyExpr }

func (p *ExprPolicy) Allow(from, to enums.OrderState) error {
	out, err := exprlang.Run(p.program, transitionEnv(from, to))
	if err != nil {
		return fmt.Errorf("evaluate transition rule: %w", err)
	}
	if allowed, ok := out.(bool); ok && allowed {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s by rule %q", ErrTransitionNotAllowed, from, to, p.rule)
}

func transitionEnv(from, to enums.OrderState) map[string]any {
	return map[string]any{
		"from":   string(from),
		"to":     string(to),
		"states": stateNames(),
	}
}

func stateNames() []string {
	states := enums.OrderStates()
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

// NewPolicy builds the policy selected by configuration.
func NewPolicy(cfg config.OrdersConfig) (TransitionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.TransitionPolicy)) {
	case "", config.TransitionPolicyPermissive:
		return PermissivePolicy{}, nil
	case config.TransitionPolicyGraph:
		return NewGraphPolicy(DefaultTransitionGraph()), nil
	case config.TransitionPolicyExpr:
		return NewExprPolicy(cfg.TransitionRule)
	default:
		return nil, fmt.Errorf("unknown transition policy %q", cfg.TransitionPolicy)
	}
}
