package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	value  *string
	err    error
	called *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.called = in
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: f.value}}, nil
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvSSMParam, "")
}

func TestGetAPIKey_FromEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIKey, "test-api-key-12345")
	params := &fakeSSM{value: aws.String("from-ssm")}
	t.Setenv(EnvSSMParam, "/noteclean/key")

	key, err := GetAPIKey(t.Context(), params)
	require.NoError(t, err)
	assert.Equal(t, "test-api-key-12345", key)
	assert.Nil(t, params.called, "env wins before SSM is consulted")
}

func TestGetAPIKey_FromSSM(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSSMParam, "/noteclean/key")
	params := &fakeSSM{value: aws.String("  from-ssm\n")}

	key, err := GetAPIKey(t.Context(), params)
	require.NoError(t, err)
	assert.Equal(t, "from-ssm", key)
	require.NotNil(t, params.called)
	assert.Equal(t, "/noteclean/key", aws.ToString(params.called.Name))
	assert.True(t, aws.ToBool(params.called.WithDecryption))
}

func TestGetAPIKey_SSMFailureFallsThrough(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSSMParam, "/noteclean/key")

	_, err := GetAPIKey(t.Context(), &fakeSSM{err: errors.New("access denied")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = GetAPIKey(t.Context(), &fakeSSM{value: aws.String("")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAPIKey_SSMSkippedWithoutClient(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSSMParam, "/noteclean/key")

	_, err := GetAPIKey(t.Context(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAPIKey_NoSource(t *testing.T) {
	isolate(t)

	_, err := GetAPIKey(t.Context(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

func TestGetCredentialPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := getCredentialPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".noteclean", "credentials.gpg"), path)
}

func TestGetFromGPG_FileNotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := getFromGPG()
	assert.ErrorContains(t, err, "not found")
}
