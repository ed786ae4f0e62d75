//go:build !unix

package inference

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
