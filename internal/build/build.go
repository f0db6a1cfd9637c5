// Package build implements the Build Driver (C3, §4.3): the
// Configured -> Built -> Tested -> Staged state machine that runs a
// recipe's shell-embedded build_cmd/check_cmd/install_cmd.
//
// Commands are handed to a shell verbatim (§9 Design Notes): this
// package never parses or splits them, mirroring the teacher's
// internal/actions/run_command.go, which does the same for its single
// shell-command primitive.
package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/log"
	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// Run drives the full state machine for bc: Configured -> Built ->
// Tested -> Staged. The build and check stages are skipped if their
// recipe command is empty, per §4.3; install_cmd always runs.
func Run(ctx context.Context, bc *buildctx.Context) error {
	logger := log.Default().With("recipe", bc.Recipe.Name)

	if err := os.MkdirAll(bc.StageRoot, 0o755); err != nil {
		return pkgerr.Wrap(pkgerr.BuildFailed, bc.Recipe.Name, "creating stage root", err)
	}
	if err := os.MkdirAll(filepath.Dir(bc.LogFile), 0o755); err != nil {
		return pkgerr.Wrap(pkgerr.BuildFailed, bc.Recipe.Name, "creating log directory", err)
	}

	logFile, err := os.OpenFile(bc.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return pkgerr.Wrap(pkgerr.BuildFailed, bc.Recipe.Name, "opening log file", err)
	}
	defer logFile.Close()

	env := buildEnv(bc)

	if bc.Recipe.BuildCmd != "" {
		logger.Info("running build_cmd")
		if err := runShell(ctx, bc.Recipe.BuildCmd, bc.BuildDir(), env, logFile); err != nil {
			return pkgerr.Wrap(pkgerr.BuildFailed, bc.Recipe.Name, "see log file "+bc.LogFile, err)
		}
	}

	if bc.Recipe.CheckCmd != "" {
		logger.Info("running check_cmd")
		if err := runShell(ctx, bc.Recipe.CheckCmd, bc.BuildDir(), env, logFile); err != nil {
			return pkgerr.Wrap(pkgerr.TestFailed, bc.Recipe.Name, "see log file "+bc.LogFile, err)
		}
	}

	installEnv := append(append([]string{}, env...), "DESTDIR="+bc.StageRoot)
	bc.PreInstallTS = time.Now()
	logger.Info("running install_cmd", "destdir", bc.StageRoot)
	if err := runPrivilegeEmulated(ctx, bc.Recipe.InstallCmd, bc.BuildDir(), installEnv, logFile); err != nil {
		return pkgerr.Wrap(pkgerr.InstallFailed, bc.Recipe.Name, "see log file "+bc.LogFile, err)
	}

	if err := maybeStrip(bc, logger); err != nil {
		logger.Warn("strip encountered errors", "err", err)
	}

	return nil
}

// buildEnv computes the child process environment, appending MAKEFLAGS
// per §4.3: inherited MAKEFLAGS, then extra_make_flags if present, else
// -j{jobs} if MAKEFLAGS wasn't otherwise specified.
func buildEnv(bc *buildctx.Context) []string {
	env := os.Environ()
	makeflags := computeMakeflags(bc)
	env = setEnvVar(env, "MAKEFLAGS", makeflags)
	return env
}

func computeMakeflags(bc *buildctx.Context) string {
	inherited := os.Getenv("MAKEFLAGS")
	if bc.Recipe.ExtraMakeFlags != "" {
		if inherited == "" {
			return bc.Recipe.ExtraMakeFlags
		}
		return inherited + " " + bc.Recipe.ExtraMakeFlags
	}
	if inherited != "" {
		return inherited
	}
	return "-j" + strconv.Itoa(bc.Jobs)
}

func setEnvVar(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// runShell hands cmdStr to /bin/sh verbatim.
func runShell(ctx context.Context, cmdStr, dir string, env []string, logw *os.File) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	logw.Write(out)
	return err
}

// runPrivilegeEmulated runs cmdStr under the fakeroot-like
// privilege-emulation shim (§4.3, §5), scoped to exactly this
// install-to-stage command. If fakeroot is unavailable on the host the
// command still runs, just without ownership emulation — staging into
// DESTDIR as an unprivileged user already produces correct relative
// ownership for most recipes, and fakeroot's absence is not itself
// fatal to the build.
func runPrivilegeEmulated(ctx context.Context, cmdStr, dir string, env []string, logw *os.File) error {
	shim := "fakeroot"
	if _, err := exec.LookPath(shim); err != nil {
		return runShell(ctx, cmdStr, dir, env, logw)
	}
	cmd := exec.CommandContext(ctx, shim, "sh", "-c", cmdStr)
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	logw.Write(out)
	return err
}
