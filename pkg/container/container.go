// Package container detects whether the process is running inside a container.
package container

import (
	"os"
	"strings"
)

// IsContainerised reports whether the process appears to be running in a
// container. It looks for the Docker marker file, container runtimes in the
// init process cgroup, and the Kubernetes service environment.
func IsContainerised() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	return cgroupMentionsRuntime()
}

func cgroupMentionsRuntime() bool {
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	for _, marker := range []string{"docker", "containerd", "kubepods"} {
		if strings.Contains(string(data), marker) {
			return true
		}
	}
	return false
}
