package terminal

import (
	"context"
	"os/exec"
	"slices"
	"strings"

	"github.com/Strob0t/promptbox/internal/port/launcher"
)

// emulator describes how to hand a bash script to one terminal program.
type emulator struct {
	name string
	args func(script string) []string
}

func bashArgs(prefix ...string) func(string) []string {
	return func(script string) []string {
		return append(slices.Clone(prefix), "bash", "-c", script)
	}
}

// emulators in probe order.
var emulators = []emulator{
	{"gnome-terminal", bashArgs("--")},
	{"konsole", bashArgs("-e")},
	{"xfce4-terminal", bashArgs("-x")},
	{"lxterminal", bashArgs("-e")},
	{"mate-terminal", bashArgs("-x")},
	{"tilix", bashArgs("-e")},
	{"terminator", bashArgs("-x")},
	{"alacritty", bashArgs("-e")},
	{"kitty", bashArgs()},
	{"wezterm", bashArgs("start", "--")},
	{"urxvt", bashArgs("-e")},
	{"xterm", bashArgs("-e")},
}

// Linux opens commands in the first installed terminal emulator, in a new
// session. The pid is the emulator process.
type Linux struct {
	run       runner
	emulators []emulator
}

// NewLinux creates the Linux launcher. A known preferred emulator is tried
// first.
func NewLinux(preferred string) *Linux {
	order := slices.Clone(emulators)
	if i := slices.IndexFunc(order, func(e emulator) bool { return e.name == preferred }); i > 0 {
		e := order[i]
		order = slices.Delete(order, i, i+1)
		order = slices.Insert(order, 0, e)
	}
	return &Linux{run: osRunner{}, emulators: order}
}

// Name implements launcher.Launcher.
func (l *Linux) Name() string { return "linux" }

// Launch implements launcher.Launcher.
func (l *Linux) Launch(ctx context.Context, shellCommand, workDir string) (launcher.Result, error) {
	dir, err := resolveWorkDir(workDir)
	if err != nil {
		return launcher.Result{}, err
	}
	script := "cd " + shellQuote(dir) + " && " + shellCommand + "; exec bash"

	tried := make([]string, 0, len(l.emulators))
	for _, e := range l.emulators {
		if err := ctx.Err(); err != nil {
			return launcher.Result{}, err
		}
		tried = append(tried, e.name)

		path, err := l.run.LookPath(e.name)
		if err != nil {
			continue
		}
		// Not bound to ctx: the window must outlive the request.
		pid, err := l.run.Start(exec.Command(path, e.args(script)...)) //nolint:gosec // G204: emulator from fixed list
		if err != nil {
			return launcher.Result{}, &launcher.LaunchError{Reason: "start " + e.name, Err: err}
		}
		return launcher.Result{PID: &pid, Terminal: e.name}, nil
	}

	return launcher.Result{}, &launcher.LaunchError{
		Reason: "no supported terminal emulator found, tried: " + strings.Join(tried, ", "),
	}
}
