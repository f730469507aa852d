package actions

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrNotFound           = errors.New("not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrNotAMint           = errors.New("account is not an SPL token mint")
	ErrArtifactMissing    = errors.New("program artifact missing")
	ErrNoSigner           = errors.New("no signing identity")
)

// DeployError carries the non-zero exit status of the deploy utility.
type DeployError struct {
	Tool     string
	ExitCode int
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
}
