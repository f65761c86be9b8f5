package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Source resolves named secrets, used for the upstream course API credential
// when it is not supplied directly in the environment.
type Source interface {
	Get(ctx context.Context, name string) (string, error)
	Close() error
}

type gcpSource struct {
	client    *secretmanager.Client
	projectID string
}

// NewGCPSource returns a Source backed by Google Secret Manager.
func NewGCPSource(ctx context.Context, projectID string) (Source, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set")
	}

	var opts []option.ClientOption
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &gcpSource{client: client, projectID: projectID}, nil
}

// Get reads the latest version of the named secret.
func (s *gcpSource) Get(ctx context.Context, name string) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}

func (s *gcpSource) Close() error {
	return s.client.Close()
}
