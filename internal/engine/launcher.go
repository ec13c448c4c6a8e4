package engine

import (
	"io"

	"github.com/pkg/errors"
	"k8s.io/utils/exec"
)

// MainClass is the entry point of the engine when it is started through the JVM.
const MainClass = "org.apache.jmeter.NewDriver"

// LauncherConfig describes how engine processes are started.
type LauncherConfig struct {
	// Executable to run instead of the JVM, e.g., the engine's own start script.
	// When set, Java, JvmArgs and Classpath are ignored.
	Executable string
	// JVM binary. Defaults to "java".
	Java    string
	JvmArgs []string
	// Classpath handed to the JVM.
	Classpath string
	// Base directory of the engine. Processes are started in it.
	BaseDir string
}

// Launcher turns engine arguments into processes. It is the only place where the engine's base
// directory becomes process state: it is set as the child's working directory, and passed as
// user.dir when the JVM is started directly.
type Launcher struct {
	exec   exec.Interface
	config LauncherConfig
}

func NewLauncher(executor exec.Interface, config LauncherConfig) *Launcher {
	if config.Java == "" {
		config.Java = "java"
	}
	return &Launcher{exec: executor, config: config}
}

// CommandLine returns the program and full argument list used to run the engine with args.
func (l *Launcher) CommandLine(args []string) (string, []string) {
	if l.config.Executable != "" {
		return l.config.Executable, append([]string{}, args...)
	}
	full := make([]string, 0, len(l.config.JvmArgs)+len(args)+4)
	full = append(full, l.config.JvmArgs...)
	full = append(full, "-Duser.dir="+l.config.BaseDir)
	if l.config.Classpath != "" {
		full = append(full, "-cp", l.config.Classpath)
	}
	full = append(full, MainClass)
	full = append(full, args...)
	return l.config.Java, full
}

// Command prepares an engine process. The caller is responsible for starting and waiting on it.
// The process is not bound to any context: once started, an engine always runs to completion.
func (l *Launcher) Command(args []string, stdout, stderr io.Writer) exec.Cmd {
	program, full := l.CommandLine(args)
	cmd := l.exec.Command(program, full...)
	cmd.SetDir(l.config.BaseDir)
	cmd.SetStdout(stdout)
	cmd.SetStderr(stderr)
	return cmd
}

// ExitCode extracts the exit status from an error returned by Wait.
// ok is false if err does not describe a process that ran and exited.
func ExitCode(err error) (code int, ok bool) {
	if err == nil {
		return 0, true
	}
	var exitErr exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return exitErr.ExitStatus(), true
	}
	return -1, false
}
