package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManager struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: ResourceNotFoundException, Message: "no such secret"}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestPassword_Plain(t *testing.T) {
	r := NewWithAPI(&fakeManager{values: map[string]string{"p5": "hunter2"}})

	got, err := r.Password(context.Background(), "p5")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestPassword_JSON(t *testing.T) {
	r := NewWithAPI(&fakeManager{values: map[string]string{
		"p5":     `{"username":"ada","password":"s3cret"}`,
		"nopass": `{"username":"ada"}`,
	}})

	got, err := r.Password(context.Background(), "p5")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	_, err = r.Password(context.Background(), "nopass")
	assert.ErrorContains(t, err, `"password"`)
}

func TestPassword_Errors(t *testing.T) {
	r := NewWithAPI(&fakeManager{values: map[string]string{"empty": ""}})

	_, err := r.Password(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Password(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrEmpty)

	r = NewWithAPI(&fakeManager{err: &smithy.GenericAPIError{Code: AccessDeniedException}})
	_, err = r.Password(context.Background(), "p5")
	assert.ErrorIs(t, err, ErrAccessDenied)

	r = NewWithAPI(&fakeManager{err: errors.New("dial tcp: timeout")})
	_, err = r.Password(context.Background(), "p5")
	assert.ErrorContains(t, err, "dial tcp")
}

func TestResolve(t *testing.T) {
	fake := &fakeManager{values: map[string]string{"p5": "from-secret"}}
	r := NewWithAPI(fake)
	ctx := context.Background()

	got, err := Resolve(ctx, r, "direct", "p5")
	require.NoError(t, err)
	assert.Equal(t, "direct", got)
	assert.Zero(t, fake.calls, "explicit password must not hit secrets manager")

	got, err = Resolve(ctx, r, "", "p5")
	require.NoError(t, err)
	assert.Equal(t, "from-secret", got)

	got, err = Resolve(ctx, r, "", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Resolve(ctx, nil, "", "p5")
	assert.Error(t, err)
}
