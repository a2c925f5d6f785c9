package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const (
	defTag = "latest"
	mib    = 1024 * 1024
)

var errNoLayers = errors.New("no valid layers found in manifest")

type RegistryConfig struct {
	URL       string
	Username  string
	Password  string
	PlainHTTP bool
}

// Load reads the trainer module from file when set, otherwise pulls image
// from the registry.
func Load(ctx context.Context, file, image string, cfg RegistryConfig, logger *slog.Logger) ([]byte, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read trainer module %s: %w", file, err)
		}

		return data, nil
	}

	return Fetch(ctx, cfg, image, logger)
}

// Fetch pulls the largest layer of image, which holds the Wasm binary.
func Fetch(ctx context.Context, cfg RegistryConfig, image string, logger *slog.Logger) ([]byte, error) {
	name, tag := splitReference(image)
	fullPath := fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.URL, "/"), name)

	repo, err := remote.NewRepository(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository for %s: %w", image, err)
	}
	repo.PlainHTTP = cfg.PlainHTTP
	setupAuthentication(repo, cfg)

	manifest, err := fetchManifest(ctx, repo, image, tag)
	if err != nil {
		return nil, err
	}

	largestLayer, err := findLargestLayer(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to find layer for %s: %w", image, err)
	}

	logger.Info("fetching trainer module",
		slog.String("image", image),
		slog.String("digest", largestLayer.Digest.String()),
		slog.String("size", fmt.Sprintf("%.2f MB", float64(largestLayer.Size)/mib)),
	)

	layerReader, err := repo.Fetch(ctx, largestLayer)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch layer for %s: %w", image, err)
	}
	defer layerReader.Close()

	data, err := io.ReadAll(layerReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer for %s: %w", image, err)
	}

	return data, nil
}

func setupAuthentication(repo *remote.Repository, cfg RegistryConfig) {
	if cfg.Username == "" || cfg.Password == "" {
		return
	}

	repo.Client = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: auth.StaticCredential(repo.Reference.Registry, auth.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		}),
	}
}

func fetchManifest(ctx context.Context, repo *remote.Repository, image, tag string) (*ocispec.Manifest, error) {
	descriptor, err := repo.Resolve(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest for %s: %w", image, err)
	}

	reader, err := repo.Fetch(ctx, descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest for %s: %w", image, err)
	}
	defer reader.Close()

	manifestData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest for %s: %w", image, err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest for %s: %w", image, err)
	}

	return &manifest, nil
}

func findLargestLayer(manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	var largestLayer ocispec.Descriptor
	var maxSize int64

	for _, layer := range manifest.Layers {
		if layer.Size > maxSize {
			maxSize = layer.Size
			largestLayer = layer
		}
	}

	if largestLayer.Size == 0 {
		return ocispec.Descriptor{}, errNoLayers
	}

	return largestLayer, nil
}

// splitReference separates an optional tag from image. A colon inside a
// registry host port is not a tag separator.
func splitReference(image string) (name, tag string) {
	i := strings.LastIndex(image, ":")
	if i < 0 || strings.Contains(image[i+1:], "/") {
		return image, defTag
	}

	return image[:i], image[i+1:]
}
