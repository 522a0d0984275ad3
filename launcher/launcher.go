// Package launcher starts the emulator process that hosts the Lua bridge
// script. The hunter itself never depends on how the emulator comes up, only
// that a peer eventually connects.
package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pkmn-tools/shinyhunt-go/logger"
)

// Launcher builds and starts an emulator process for a ROM plus Lua script.
type Launcher interface {
	Command(ctx context.Context, romPath, scriptPath string, extraArgs ...string) *exec.Cmd
	Launch(ctx context.Context, romPath, scriptPath string, extraArgs ...string) (*exec.Cmd, error)
}

// New returns the launcher for an emulator kind ("mgba" or "bizhawk").
func New(kind, executablePath string) (Launcher, error) {
	switch strings.ToLower(kind) {
	case "mgba":
		return &MGBALauncher{ExecutablePath: executablePath}, nil
	case "bizhawk":
		return &BizHawkLauncher{ExecutablePath: executablePath}, nil
	default:
		return nil, fmt.Errorf("unknown emulator kind %q: expected one of [mgba bizhawk]", kind)
	}
}

// MGBALauncher starts mGBA, which takes the script via --lua-script.
type MGBALauncher struct {
	ExecutablePath string
}

func (l *MGBALauncher) Command(ctx context.Context, romPath, scriptPath string, extraArgs ...string) *exec.Cmd {
	args := []string{romPath, "--lua-script", scriptPath}
	args = append(args, extraArgs...)
	return exec.CommandContext(ctx, l.ExecutablePath, args...)
}

func (l *MGBALauncher) Launch(ctx context.Context, romPath, scriptPath string, extraArgs ...string) (*exec.Cmd, error) {
	return launch(l.Command(ctx, romPath, scriptPath, extraArgs...), "mGBA")
}

// BizHawkLauncher starts BizHawk, which takes the script via --lua=.
type BizHawkLauncher struct {
	ExecutablePath string
}

func (l *BizHawkLauncher) Command(ctx context.Context, romPath, scriptPath string, extraArgs ...string) *exec.Cmd {
	args := []string{fmt.Sprintf("--lua=%s", scriptPath), romPath}
	args = append(args, extraArgs...)
	return exec.CommandContext(ctx, l.ExecutablePath, args...)
}

func (l *BizHawkLauncher) Launch(ctx context.Context, romPath, scriptPath string, extraArgs ...string) (*exec.Cmd, error) {
	return launch(l.Command(ctx, romPath, scriptPath, extraArgs...), "BizHawk")
}

func launch(cmd *exec.Cmd, name string) (*exec.Cmd, error) {
	logger.Info("Launching emulator", "emulator", name, "command", strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", name, err)
	}
	return cmd, nil
}
