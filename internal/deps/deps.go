// Package deps ensures that modules required by a compiled program are
// available before the program is deployed.
//
// Resolution is an explicit, caller-supplied effect of a compilation pass.
// The compiler never installs anything on its own: it calls a Resolver, and
// the default Resolver does nothing.
package deps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Resolver makes a module available. Ensure may block while installing.
type Resolver interface {
	Ensure(ctx context.Context, module string) error
}

// Disabled resolves every module without doing anything.
type Disabled struct{}

func (Disabled) Ensure(context.Context, string) error { return nil }

// InstallError reports a module that could not be made available.
type InstallError struct {
	Module string
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing module %q: %v", e.Module, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Runner executes an external command in dir.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) error
}

// ExecRunner runs commands with os/exec, forwarding their output to Stderr.
type ExecRunner struct {
	Stderr *os.File
}

func (r ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out := r.Stderr
	if out == nil {
		out = os.Stderr
	}
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

// DefaultCommand is the install command used when NPM.Command is empty. The
// module name is appended as the last argument.
var DefaultCommand = []string{"npm", "install"}

// NPM resolves modules against a node_modules directory, installing the
// missing ones with an external command.
type NPM struct {
	Dir     string   // directory holding node_modules
	Command []string // install command; the module name is appended
	Runner  Runner
	Logger  *slog.Logger
}

// Ensure returns nil if <Dir>/node_modules/<module> exists; otherwise it runs
// the install command and checks again.
func (n *NPM) Ensure(ctx context.Context, module string) error {
	if err := checkModuleName(module); err != nil {
		return &InstallError{Module: module, Err: err}
	}
	if n.present(module) {
		return nil
	}
	command := n.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	runner := n.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	n.logger().Info("installing module", "module", module, "dir", n.Dir, "command", strings.Join(command, " "))
	args := append(append([]string{}, command[1:]...), module)
	if err := runner.Run(ctx, n.Dir, command[0], args...); err != nil {
		return &InstallError{Module: module, Err: err}
	}
	if !n.present(module) {
		return &InstallError{Module: module, Err: fmt.Errorf("%s still missing from %s after install", module, filepath.Join(n.Dir, "node_modules"))}
	}
	return nil
}

func (n *NPM) present(module string) bool {
	_, err := os.Stat(filepath.Join(n.Dir, "node_modules", filepath.FromSlash(module)))
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

func (n *NPM) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func checkModuleName(module string) error {
	switch {
	case module == "":
		return errors.New("empty module name")
	case strings.HasPrefix(module, "-"):
		return errors.New("module name must not start with '-'")
	case strings.ContainsAny(module, " \t\n\\"):
		return errors.New("module name contains whitespace or backslash")
	case strings.Contains(module, ".."):
		return errors.New("module name must not contain '..'")
	}
	return nil
}

// Recorder is a Resolver that records every request. Err, when set, is
// returned for the modules listed in Fail, or for every module if Fail is
// empty.
type Recorder struct {
	Err  error
	Fail []string

	mu      sync.Mutex
	modules []string
}

func (r *Recorder) Ensure(_ context.Context, module string) error {
	r.mu.Lock()
	r.modules = append(r.modules, module)
	r.mu.Unlock()
	if r.Err == nil {
		return nil
	}
	if len(r.Fail) == 0 {
		return &InstallError{Module: module, Err: r.Err}
	}
	for _, m := range r.Fail {
		if m == module {
			return &InstallError{Module: module, Err: r.Err}
		}
	}
	return nil
}

// Modules returns the requested modules in request order.
func (r *Recorder) Modules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.modules...)
}
