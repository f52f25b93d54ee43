package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/visaev-dn/fleetctl/pkg/types"
	"github.com/visaev-dn/fleetctl/pkg/util"
)

// errorMarkers are substrings that, if present in a command's echoed
// output, indicate the device rejected the command.
var errorMarkers = []string{"ERROR:", "error:", "% Unknown command", "syntax error"}

func containsErrorMarker(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		for _, marker := range errorMarkers {
			if strings.Contains(line, marker) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

// Configure enters configuration mode, applies commands in order, and
// either commits or discards depending on commit. It returns one
// types.CommandResult per submitted command plus the final commit/exit
// step, and stops submitting further commands as soon as one reports an
// error marker.
//
// Commit is attempted first as `commit and-exit`; if the device rejects
// that combined form (some NOS dialects require separate steps), it falls
// back to `commit` followed by `exit`.
func (s *Session) Configure(commands []string, commit bool) ([]types.CommandResult, error) {
	var results []types.CommandResult

	if _, err := s.Send("configure", configModeSettleDelay); err != nil {
		return results, util.NewSessionError(s.device.Name, "configure", err)
	}

	for _, cmd := range commands {
		out, err := s.SendUntilPrompt(cmd, defaultPromptTimeout)
		cr := types.CommandResult{Command: cmd, Output: out}
		if err != nil {
			cr.IsError = true
			cr.Output = out + "\n" + err.Error()
			results = append(results, cr)
			s.abortConfig()
			return results, util.NewCommandError(s.device.Name, cmd, err.Error())
		}
		if line, bad := containsErrorMarker(out); bad {
			cr.IsError = true
			results = append(results, cr)
			s.abortConfig()
			return results, util.NewCommandError(s.device.Name, cmd, line)
		}
		results = append(results, cr)
	}

	if !commit {
		s.abortConfig()
		return results, nil
	}

	commitResult, err := s.commitAndExit()
	results = append(results, commitResult)
	return results, err
}

func (s *Session) commitAndExit() (types.CommandResult, error) {
	out, err := s.SendUntilPrompt("commit and-exit", defaultPromptTimeout)
	if err == nil {
		if line, bad := containsErrorMarker(out); !bad {
			return types.CommandResult{Command: "commit and-exit", Output: out}, nil
		} else {
			util.WithDevice(s.device.Name).Warnf("commit and-exit rejected (%s), falling back to separate commit+exit", line)
		}
	}

	time.Sleep(commitSettleDelay)
	commitOut, commitErr := s.SendUntilPrompt("commit", defaultPromptTimeout)
	if commitErr != nil {
		return types.CommandResult{Command: "commit", Output: commitOut, IsError: true}, util.NewCommandError(s.device.Name, "commit", commitErr.Error())
	}
	if line, bad := containsErrorMarker(commitOut); bad {
		return types.CommandResult{Command: "commit", Output: commitOut, IsError: true}, util.NewCommandError(s.device.Name, "commit", line)
	}

	exitOut, exitErr := s.Send("exit", commitSettleDelay)
	combined := commitOut + "\n" + exitOut
	if exitErr != nil {
		return types.CommandResult{Command: "commit+exit", Output: combined, IsError: true}, util.NewCommandError(s.device.Name, "exit", exitErr.Error())
	}
	return types.CommandResult{Command: "commit+exit", Output: combined}, nil
}

// abortConfig leaves configuration mode without committing, matching the
// device's "rollback" on a plain exit from an uncommitted config session.
func (s *Session) abortConfig() {
	if _, err := s.Send("exit", commitSettleDelay); err != nil {
		util.WithDevice(s.device.Name).Warnf("error exiting configuration mode: %v", err)
	}
}

// CommitCheck validates staged configuration without committing it,
// returning the device's diagnostic text and whether it reported errors.
func (s *Session) CommitCheck() (string, bool, error) {
	out, err := s.SendUntilPrompt("commit check", defaultPromptTimeout)
	if err != nil {
		return out, false, util.NewSessionError(s.device.Name, "commit-check", err)
	}
	if line, bad := containsErrorMarker(out); bad {
		return out, false, fmt.Errorf("%w: %s", util.ErrCommandFailed, line)
	}
	return out, true, nil
}
