package sandbox

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"

	"github.com/probeworks/toolhost/internal/shell"
)

// Runner executes commands in one-shot containers with no network, a
// read-only root filesystem, and all capabilities dropped.
type Runner struct {
	Image       string
	MemoryLimit string
	CPULimit    int
	Timeout     time.Duration
}

// NewRunner creates a container runner.
func NewRunner(image, memoryLimit string, cpuLimit int, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		Image:       image,
		MemoryLimit: memoryLimit,
		CPULimit:    cpuLimit,
		Timeout:     timeout,
	}
}

// Exec runs command in a fresh container with workdir bind-mounted
// read-only at /workspace. Timeouts surface as exit code 124, matching
// the host executor.
func (r *Runner) Exec(ctx context.Context, command, workdir string) (shell.Result, error) {
	var result shell.Result

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return result, fmt.Errorf("failed to create docker client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	containerConfig := &container.Config{
		Image:      r.Image,
		Cmd:        strslice.StrSlice{"sh", "-c", command},
		WorkingDir: "/workspace",
		User:       "1000:1000",
	}

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   parseMemoryLimit(r.MemoryLimit),
			NanoCPUs: int64(r.CPULimit) * 1000000000,
		},
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   workdir,
				Target:   "/workspace",
				ReadOnly: true,
			},
		},
		CapDrop:        strslice.StrSlice{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			"/tmp": "exec",
		},
	}

	resp, err := cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return result, fmt.Errorf("failed to create container: %w", err)
	}
	defer cli.ContainerRemove(context.Background(), resp.ID, types.ContainerRemoveOptions{Force: true})

	if err := cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return result, fmt.Errorf("failed to start container: %w", err)
	}

	statusCh, errCh := cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return result, fmt.Errorf("error waiting for container: %w", err)
		}
	case status := <-statusCh:
		result.ExitCode = int(status.StatusCode)
	case <-ctx.Done():
		result.ExitCode = shell.TimeoutExitCode
		result.Stderr = fmt.Sprintf("command timed out after %s", r.Timeout)
		return result, nil
	}

	logReader, err := cli.ContainerLogs(ctx, resp.ID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return result, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logReader.Close()

	var stdout, stderr strings.Builder
	if err := demuxLogs(logReader, &stdout, &stderr); err != nil {
		return result, fmt.Errorf("failed to read container logs: %w", err)
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	return result, nil
}

// parseMemoryLimit converts a limit like "512m" or "1g" to bytes.
func parseMemoryLimit(limit string) int64 {
	if limit == "" {
		return 0
	}
	if strings.HasSuffix(limit, "m") || strings.HasSuffix(limit, "M") {
		var mb int64
		fmt.Sscanf(limit, "%d", &mb)
		return mb * 1024 * 1024
	}
	if strings.HasSuffix(limit, "g") || strings.HasSuffix(limit, "G") {
		var gb int64
		fmt.Sscanf(limit, "%d", &gb)
		return gb * 1024 * 1024 * 1024
	}
	return 0
}

// demuxLogs separates stdout and stderr from Docker's multiplexed log
// stream. Each frame starts with an 8-byte header: stream type, three
// zero bytes, then a big-endian payload size.
func demuxLogs(reader io.Reader, stdout, stderr io.Writer) error {
	buf := make([]byte, 8)
	for {
		if _, err := io.ReadFull(reader, buf); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		streamType := buf[0]
		size := int(buf[4])<<24 | int(buf[5])<<16 | int(buf[6])<<8 | int(buf[7])

		payload := make([]byte, size)
		if _, err := io.ReadFull(reader, payload); err != nil {
			return err
		}

		switch streamType {
		case 1:
			stdout.Write(payload)
		case 2:
			stderr.Write(payload)
		}
	}
}
