// Package paramstore reads secrets from AWS Systems Manager Parameter Store.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

var (
	ErrNilAPI        = errors.New("paramstore: api must not be nil")
	ErrNameRequired  = errors.New("paramstore: parameter name is required")
	ErrMissingValue  = errors.New("paramstore: parameter has no value")
	ErrNoSecret      = errors.New("paramstore: neither a value nor a parameter name is configured")
	ErrGetParameter  = errors.New("paramstore: get parameter failed")
	ErrLoadAWSConfig = errors.New("paramstore: failed to load aws config")
)

// API is the part of *ssm.Client the package uses.
type API interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter fetches one decrypted parameter value.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client reads SecureString and String parameters.
type Client struct {
	api API
}

// New wraps api.
func New(api API) (*Client, error) {
	if api == nil {
		return nil, ErrNilAPI
	}
	return &Client{api: api}, nil
}

// NewFromEnvironment builds a client from the default AWS credential chain
// (environment, shared config, instance role).
func NewFromEnvironment(ctx context.Context) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Join(ErrLoadAWSConfig, err)
	}
	return New(ssm.NewFromConfig(cfg))
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrGetParameter, name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("%w: %q", ErrMissingValue, name)
	}
	return *out.Parameter.Value, nil
}

// Resolve returns value when it is set and otherwise reads the parameter
// called name. Configs use it for secrets that may come from either the
// environment or Parameter Store.
func Resolve(ctx context.Context, g Getter, value, name string) (string, error) {
	if value != "" {
		return value, nil
	}
	if strings.TrimSpace(name) == "" {
		return "", ErrNoSecret
	}
	if g == nil {
		return "", ErrNilAPI
	}
	return g.GetParameter(ctx, name)
}
