package container

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/hearth-faas/hearth/internal/config"
)

// DockerFactory drives function containers through the local Docker daemon.
type DockerFactory struct {
	cli *client.Client
	ctx context.Context

	mu        sync.Mutex
	refreshed map[string]bool // images pulled at least once by this process
}

func NewDockerFactory() (*DockerFactory, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("could not connect to the Docker daemon: %v", err)
	}

	return &DockerFactory{
		cli:       cli,
		ctx:       context.Background(),
		refreshed: make(map[string]bool),
	}, nil
}

func (df *DockerFactory) Create(img string, opts *ContainerOptions) (ContainerID, error) {
	if err := df.ensureImage(img); err != nil {
		// a stale local copy may still be usable, so creation proceeds
		log.Printf("Image refresh for %s failed: %v\n", img, err)
	}

	resp, err := df.cli.ContainerCreate(df.ctx, &container.Config{
		Image: img,
		Cmd:   opts.Cmd,
		Env:   opts.Env,
		Tty:   false,
	}, &container.HostConfig{}, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("creating container from %s: %v", img, err)
	}

	return resp.ID, nil
}

func (df *DockerFactory) Start(contID ContainerID) error {
	if err := df.cli.ContainerStart(df.ctx, contID, container.StartOptions{}); err != nil {
		return fmt.Errorf("starting container %s: %v", contID, err)
	}
	return nil
}

// Destroy force-removes the container. Force kills a still-running instance
// before removal, so the same call works for idle and busy containers.
func (df *DockerFactory) Destroy(contID ContainerID) error {
	return df.cli.ContainerRemove(df.ctx, contID, container.RemoveOptions{Force: true})
}

func (df *DockerFactory) GetIPAddress(contID ContainerID) (string, error) {
	info, err := df.cli.ContainerInspect(df.ctx, contID)
	if err != nil {
		return "", fmt.Errorf("inspecting container %s: %v", contID, err)
	}
	return info.NetworkSettings.IPAddress, nil
}

// ensureImage pulls img unless a usable local copy exists. The pull stream
// must be fully consumed before the image can be used.
func (df *DockerFactory) ensureImage(img string) error {
	if df.hasUsableImage(img) {
		return nil
	}

	rc, err := df.cli.ImagePull(df.ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling %s: %v", img, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Printf("Could not close the pull stream for %s: %v\n", img, err)
		}
	}()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pulling %s: %v", img, err)
	}
	log.Printf("Pulled image: %s\n", img)

	df.mu.Lock()
	df.refreshed[img] = true
	df.mu.Unlock()
	return nil
}

// hasUsableImage reports whether a local copy of img can back a new
// container. With factory.images.refresh enabled, the first use of each
// image in this process forces a pull even if a copy exists.
func (df *DockerFactory) hasUsableImage(img string) bool {
	list, err := df.cli.ImageList(df.ctx, image.ListOptions{})
	if err != nil {
		log.Printf("Could not list images: %v\n", err)
		return false
	}

	found := false
	for _, summary := range list {
		if len(summary.RepoTags) > 0 && strings.HasPrefix(summary.RepoTags[0], img) {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	if config.GetBool(config.FACTORY_REFRESH_IMAGES, false) {
		df.mu.Lock()
		defer df.mu.Unlock()
		return df.refreshed[img]
	}
	return true
}
