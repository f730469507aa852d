package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	solana "github.com/gagliardetto/solana-go"
)

// DeployRequest names the compiled program and, optionally, its program-id keypair.
type DeployRequest struct {
	ProgramPath   string
	ProgramIDPath string
}

// DeployResult reports the utility invocation.
type DeployResult struct {
	ProgramPath string
	Args        []string
}

// Deploy checks the artifact and hands off to the deploy utility. The utility's exit
// status decides success; there is no retry.
func (s *Service) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	if err := checkArtifact(req.ProgramPath); err != nil {
		return nil, err
	}
	args := []string{"program", "deploy", req.ProgramPath}
	if s.opts.RPCURL != "" {
		args = append(args, "--url", s.opts.RPCURL)
	}
	args = append(args, "--commitment", string(s.commitment()))
	if kp := s.opts.KeypairPath; kp != "" {
		if _, err := os.Stat(kp); err == nil {
			args = append(args, "--keypair", kp)
		}
	}
	if req.ProgramIDPath != "" {
		if err := checkArtifact(req.ProgramIDPath); err != nil {
			return nil, fmt.Errorf("program id keypair: %w", err)
		}
		args = append(args, "--program-id", req.ProgramIDPath)
	}

	s.summary("Deploying %s to %s via %s", req.ProgramPath, s.opts.Cluster, s.opts.DeployTool)
	s.opts.Log.Debug().Str("tool", s.opts.DeployTool).Strs("args", args).Msg("running deploy utility")
	cmd := exec.CommandContext(ctx, s.opts.DeployTool, args...)
	cmd.Stdout = s.opts.Out
	cmd.Stderr = s.opts.ErrOut
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &DeployError{Tool: s.opts.DeployTool, ExitCode: exitErr.ExitCode()}
		}
		return nil, fmt.Errorf("run %s: %w", s.opts.DeployTool, err)
	}
	s.record("deploy", solana.Signature{}, map[string]string{"program": req.ProgramPath})
	return &DeployResult{ProgramPath: req.ProgramPath, Args: args}, nil
}

func checkArtifact(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: no path given", ErrArtifactMissing)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return fmt.Errorf("%w: %s is not a non-empty regular file", ErrArtifactMissing, path)
	}
	return nil
}
