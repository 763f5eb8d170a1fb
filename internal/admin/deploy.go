package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/salafibot/salafibot/internal/loader"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/syncer"
)

// DeployResult is the outcome of a deploy.
type DeployResult struct {
	Sync   *syncer.Result   `json:"sync"`
	Failed []loader.Failure `json:"failed,omitempty"`
}

// Message renders the result the way the deploy command prints it.
func (r *DeployResult) Message() string {
	var lines []string
	for _, f := range r.Failed {
		lines = append(lines, "Skipped "+f.String())
	}

	res := r.Sync
	switch {
	case res.NoOp:
		lines = append(lines, "All commands already deployed. No changes made.")
	case res.Target != "":
		lines = append(lines, fmt.Sprintf("Successfully deployed command %q.", res.Target))
	default:
		lines = append(lines, fmt.Sprintf("Successfully deployed %d application (/) commands.", res.Count))
	}

	if res.Scope.Global() {
		lines = append(lines, "Deployment target: Global")
	} else {
		lines = append(lines, fmt.Sprintf("Deployment target: Guild (%s)", res.Scope.GuildID))
	}
	if !res.NoOp && res.Count > 0 {
		if res.Scope.Global() {
			lines = append(lines, "Global commands may take up to 1 hour to update across all servers.")
		} else {
			lines = append(lines, "Guild commands are available immediately.")
		}
	}
	return strings.Join(lines, "\n")
}

// Deploy pushes the current implementation of one registered command,
// replacing any deployed entry of the same name.
func (s *Service) Deploy(ctx context.Context, name string, global bool) (*DeployResult, error) {
	if !s.registry.Has(name) {
		return nil, opErr(OpDeploy, name, fmt.Errorf("%w: %s", registry.ErrNotFound, name))
	}
	res, err := s.deploy(ctx, name, global, false)
	return res, opErr(OpDeploy, name, err)
}

// DeployAll pushes every loaded command. Without dedup the deployed set is
// replaced; with dedup only names not yet deployed are added.
func (s *Service) DeployAll(ctx context.Context, global, dedup bool) (*DeployResult, error) {
	res, err := s.deploy(ctx, "", global, dedup)
	return res, opErr(OpDeployAll, "", err)
}

func (s *Service) deploy(ctx context.Context, target string, global, dedup bool) (*DeployResult, error) {
	if s.engine == nil {
		return nil, ErrRemoteUnavailable
	}
	scope, err := s.Scope(global)
	if err != nil {
		return nil, err
	}

	loaded, err := s.loader.Load(ctx, target)
	if err != nil {
		return nil, err
	}
	if target != "" && len(loaded.Loaded) == 0 {
		return nil, fmt.Errorf("%w: command %q not found in %s", registry.ErrNotFound, target, s.loader.Root())
	}

	if target != "" {
		logging.Infof("[admin] Deploying command %q to %s", target, scope)
	} else {
		logging.Infof("[admin] Refreshing %d application (/) commands in %s", len(loaded.Loaded), scope)
	}

	res, err := s.engine.Sync(ctx, syncer.Request{
		Definitions: loaded.Loaded,
		Target:      target,
		Scope:       scope,
		Dedup:       dedup,
	})
	if err != nil {
		return nil, err
	}
	return &DeployResult{Sync: res, Failed: loaded.Failed}, nil
}
