package procexec

import "os/exec"

// Command returns a command whose children share a new process group, for
// callers that need to stream a tool's output themselves.
func Command(name string, args ...string) *exec.Cmd {
	// #nosec G204 -- name comes from operator configuration
	cmd := exec.Command(name, args...)
	setProcessGroup(cmd)
	return cmd
}

// Kill terminates the process group started by a Command.
func Kill(cmd *exec.Cmd) error {
	return killProcessGroup(cmd)
}
