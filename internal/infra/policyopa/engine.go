package policyopa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"veraauth/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.veraauth.issuance.result"

// Engine evaluates an issuance policy bundle. Deployments that want to
// restrict which issuers or audiences an org may be bound to express that in
// rego; a deployment without a bundle runs without a gate.
type Engine struct {
	query rego.PreparedEvalQuery
}

type policyResult struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

func NewEngineFromBundlePath(ctx context.Context, bundlePath string) (*Engine, error) {
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare issuance policy: %w", err)
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) Authorize(ctx context.Context, input domain.IssuanceInput) error {
	if e == nil {
		return errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return errors.New("empty policy result")
	}
	payload, err := json.Marshal(results[0].Expressions[0].Value)
	if err != nil {
		return err
	}
	var result policyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return err
	}
	if !result.Allow {
		reason := result.Reason
		if reason == "" {
			reason = "request does not satisfy the issuance policy"
		}
		return fmt.Errorf("%w: %s", domain.ErrPolicyDenied, reason)
	}
	return nil
}
