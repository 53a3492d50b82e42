package docker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stringid"
)

// ImageRefLabel is the OCI label carrying the image reference of the backup service.
const ImageRefLabel = "org.opencontainers.image.ref.name"

var (
	ErrSelfNotFound      = errors.New("cannot determine own container")
	ErrDuplicateInstance = errors.New("detected another instance of this image; running multiple instances of the backup service is not supported")
)

// Container is a running container as the backup service sees it.
type Container struct {
	ID        string
	ShortID   string
	Name      string
	Images    []string
	Labels    map[string]string
	StartedAt time.Time
}

// apiClient is the part of the Docker Engine API used here.
type apiClient interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error)
	NetworkInspect(ctx context.Context, networkID string, options network.InspectOptions) (network.Inspect, error)
	NetworkConnect(ctx context.Context, networkID, containerID string, config *network.EndpointSettings) error
	NetworkDisconnect(ctx context.Context, networkID, containerID string, force bool) error
	NetworkRemove(ctx context.Context, networkID string) error
	Close() error
}

type Options struct {
	// OwnImageRef is the image reference label value the own container is found by.
	OwnImageRef string
	// InstanceID, when set, names the own container directly.
	InstanceID string
}

// Client talks to the Docker Engine of the host the service runs on.
type Client struct {
	api  apiClient
	opts Options
}

// New connects using the standard DOCKER_* environment.
func New(opts Options) (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("error initializing Docker client: %w", err)
	}
	return &Client{api: cli, opts: opts}, nil
}

func (c *Client) Close() error {
	return c.api.Close()
}

// Self returns the container the service runs in.
func (c *Client) Self(ctx context.Context) (Container, error) {
	if c.opts.InstanceID != "" {
		self, err := c.inspect(ctx, c.opts.InstanceID)
		if err != nil {
			return Container{}, fmt.Errorf("%w %s: %v", ErrSelfNotFound, c.opts.InstanceID, err)
		}
		return self, nil
	}
	found, err := c.list(ctx, ImageRefLabel+"="+c.opts.OwnImageRef)
	if err != nil {
		return Container{}, err
	}
	switch len(found) {
	case 0:
		return Container{}, fmt.Errorf("%w: no running container with label %s=%s", ErrSelfNotFound, ImageRefLabel, c.opts.OwnImageRef)
	case 1:
		return found[0], nil
	}
	return Container{}, ErrDuplicateInstance
}

// ListTargets returns the running containers carrying the label, e.g. "prefix.enable=true".
func (c *Client) ListTargets(ctx context.Context, label string) ([]Container, error) {
	return c.list(ctx, label)
}

func (c *Client) list(ctx context.Context, label string) ([]Container, error) {
	summaries, err := c.api.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("status", "running"),
			filters.Arg("label", label),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	containers := make([]Container, 0, len(summaries))
	for _, s := range summaries {
		ctr, err := c.inspect(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		if s.Image != "" && !slices.Contains(ctr.Images, s.Image) {
			ctr.Images = append(ctr.Images, s.Image)
		}
		containers = append(containers, ctr)
	}
	return containers, nil
}

func (c *Client) inspect(ctx context.Context, id string) (Container, error) {
	info, err := c.api.ContainerInspect(ctx, id)
	if err != nil {
		return Container{}, fmt.Errorf("failed to inspect container %s: %w", id, err)
	}
	var ctr Container
	if info.ContainerJSONBase != nil {
		ctr.ID = info.ID
		ctr.ShortID = stringid.TruncateID(info.ID)
		ctr.Name = strings.TrimPrefix(info.Name, "/")
		if info.State != nil && info.State.StartedAt != "" {
			if ctr.StartedAt, err = time.Parse(time.RFC3339Nano, info.State.StartedAt); err != nil {
				return Container{}, fmt.Errorf("invalid start time of container %s: %w", id, err)
			}
		}
	}
	if info.Config != nil {
		ctr.Labels = info.Config.Labels
		if info.Config.Image != "" {
			ctr.Images = []string{info.Config.Image}
		}
	}
	return ctr, nil
}

// CreateNetwork creates the isolation network. A leftover network of the same name, e.g. from
// a crashed run, is emptied and removed first.
func (c *Client) CreateNetwork(ctx context.Context, name string) (string, error) {
	if err := c.removeStale(ctx, name); err != nil {
		return "", err
	}
	resp, err := c.api.NetworkCreate(ctx, name, network.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create network %s: %w", name, err)
	}
	return resp.ID, nil
}

func (c *Client) removeStale(ctx context.Context, name string) error {
	stale, err := c.api.NetworkInspect(ctx, name, network.InspectOptions{})
	switch {
	case cerrdefs.IsNotFound(err):
		return nil
	case err != nil:
		return fmt.Errorf("failed to inspect network %s: %w", name, err)
	}
	for id := range stale.Containers {
		if err := c.api.NetworkDisconnect(ctx, stale.ID, id, true); err != nil {
			return fmt.Errorf("failed to disconnect %s from stale network %s: %w", stringid.TruncateID(id), name, err)
		}
	}
	if err := c.api.NetworkRemove(ctx, stale.ID); err != nil {
		return fmt.Errorf("failed to remove stale network %s: %w", name, err)
	}
	return nil
}

// Connect attaches the container to the network, reachable under the alias if one is given.
func (c *Client) Connect(ctx context.Context, networkID, containerID, alias string) error {
	settings := &network.EndpointSettings{}
	if alias != "" {
		settings.Aliases = []string{alias}
	}
	if err := c.api.NetworkConnect(ctx, networkID, containerID, settings); err != nil {
		return fmt.Errorf("failed to connect %s: %w", stringid.TruncateID(containerID), err)
	}
	return nil
}

func (c *Client) Disconnect(ctx context.Context, networkID, containerID string) error {
	if err := c.api.NetworkDisconnect(ctx, networkID, containerID, false); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", stringid.TruncateID(containerID), err)
	}
	return nil
}

func (c *Client) RemoveNetwork(ctx context.Context, networkID string) error {
	if err := c.api.NetworkRemove(ctx, networkID); err != nil {
		return fmt.Errorf("failed to remove network: %w", err)
	}
	return nil
}
