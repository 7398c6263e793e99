package executor

import "fmt"

// ContainerWorkdir is the fixed mount point for the workspace inside the
// container; it is also the working directory for every command.
const ContainerWorkdir = "/workspace"

// BuildDockerArgs composes the argument vector for a single container
// invocation. User code never appears in the vector: it travels only through
// the workspace mount and, for test cases, the child's standard input.
//
// The canonical order is: run flags, mount and workdir, resource flags,
// security hardening, image, command.
func BuildDockerArgs(hostPath, image string, limits ResourceLimits, command []string) []string {
	limits = limits.sanitized()

	args := []string{
		"run", "--rm", "-i",
		"-v", fmt.Sprintf("%s:%s", hostPath, ContainerWorkdir),
		"-w", ContainerWorkdir,
		"--memory", fmt.Sprintf("%d", limits.MemoryBytes),
		"--ulimit", fmt.Sprintf("cpu=%d:%d", limits.CPUSeconds, limits.CPUSeconds),
		"--ulimit", fmt.Sprintf("stack=%d:%d", limits.StackBytes, limits.StackBytes),
		"--ulimit", fmt.Sprintf("nproc=%d:%d", limits.MaxProcesses, limits.MaxProcesses),
		"--ulimit", fmt.Sprintf("nofile=%d:%d", limits.MaxOpenFiles, limits.MaxOpenFiles),
	}

	if !limits.NetworkEnabled {
		args = append(args, "--network", "none")
	}

	args = append(args,
		"--security-opt", "no-new-privileges",
		"--cap-drop", "ALL",
	)

	args = append(args, image)
	args = append(args, command...)

	return args
}
