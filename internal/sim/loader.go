package sim

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pagesim/kernelsim/internal/cli"
	"github.com/pagesim/kernelsim/internal/kerrors"
)

// loadProgramFile reads dir/name, parses each instruction line, and
// honors a leading "#require-engine <constraint>" directive. An
// unsatisfied directive returns a *kerrors.SimError; any other returned
// error is a plain filesystem error (callers translate it to the
// appropriate kerrors.SimError, since "missing init" and "missing fork
// target" are distinct fatal conditions).
func loadProgramFile(dir, name string) ([]Instruction, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}

	var instructions []Instruction
	directiveChecked := false
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" {
			continue
		}
		if !directiveChecked {
			directiveChecked = true
			if strings.HasPrefix(line, "#require-engine") {
				if err := checkEngineDirective(line); err != nil {
					return nil, err
				}
				continue
			}
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		instructions = append(instructions, ParseInstruction(line))
	}
	return instructions, nil
}

// checkEngineDirective enforces "#require-engine <semver constraint>",
// rejecting the program if the running engine doesn't satisfy it. A
// malformed constraint is ignored rather than treated as fatal: the
// directive is a convenience guard, not load-bearing grammar.
func checkEngineDirective(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil
	}
	constraint, err := semver.NewConstraint(fields[1])
	if err != nil {
		return nil
	}
	engineVer, err := semver.NewVersion(cli.EngineVersion)
	if err != nil {
		return nil
	}
	if !constraint.Check(engineVer) {
		return kerrors.EngineVersionUnsatisfied(fields[1], cli.EngineVersion)
	}
	return nil
}
