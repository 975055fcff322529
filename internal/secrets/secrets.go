// Package secrets resolves the editor password from AWS Secrets Manager
// when it is not given directly.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// AWS error codes.
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	AccessDeniedException     = "AccessDeniedException"
)

// PasswordKey is the field read when a secret holds a JSON object.
const PasswordKey = "password"

var (
	ErrNotFound     = errors.New("secret not found")
	ErrAccessDenied = errors.New("access denied to secret")
	ErrEmpty        = errors.New("secret has no string value")
)

// ManagerAPI is the part of the Secrets Manager client used here.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver fetches passwords from Secrets Manager.
type Resolver struct {
	api ManagerAPI
}

// New creates a resolver using the default AWS credential chain.
func New(ctx context.Context, region string) (*Resolver, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithAPI(secretsmanager.NewFromConfig(cfg)), nil
}

// NewWithAPI creates a resolver on an existing client.
func NewWithAPI(api ManagerAPI) *Resolver {
	return &Resolver{api: api}
}

// Password returns the secret's value. A secret holding a JSON object
// yields its "password" field; anything else is returned as is.
func (r *Resolver) Password(ctx context.Context, secretID string) (string, error) {
	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case ResourceNotFoundException:
				return "", fmt.Errorf("%w: %s", ErrNotFound, secretID)
			case AccessDeniedException:
				return "", fmt.Errorf("%w: %s", ErrAccessDenied, secretID)
			}
		}
		return "", fmt.Errorf("get secret %s: %w", secretID, err)
	}

	if out.SecretString == nil || *out.SecretString == "" {
		return "", fmt.Errorf("%w: %s", ErrEmpty, secretID)
	}
	value := *out.SecretString

	if strings.HasPrefix(strings.TrimSpace(value), "{") {
		var fields map[string]any
		if err := json.Unmarshal([]byte(value), &fields); err == nil {
			if p, ok := fields[PasswordKey].(string); ok && p != "" {
				return p, nil
			}
			return "", fmt.Errorf("secret %s has no %q field", secretID, PasswordKey)
		}
	}
	return value, nil
}

// Resolve returns password when set, otherwise the value of secretID.
// With neither, it returns an empty string and no error so the caller's
// credential check reports the missing password.
func Resolve(ctx context.Context, r *Resolver, password, secretID string) (string, error) {
	if password != "" || secretID == "" {
		return password, nil
	}
	if r == nil {
		return "", errors.New("no secrets resolver configured")
	}
	return r.Password(ctx, secretID)
}
