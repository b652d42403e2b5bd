package secrets_test

import (
	"context"
	"testing"

	"github.com/straye-as/pipeline-api/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapStore map[string]string

func (m mapStore) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", secrets.ErrSecretNotFound
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		source      secrets.SecretSource
		environment string
		want        secrets.SecretSource
	}{
		{secrets.SourceAuto, "development", secrets.SourceEnvironment},
		{secrets.SourceAuto, "", secrets.SourceEnvironment},
		{secrets.SourceAuto, "test", secrets.SourceEnvironment},
		{secrets.SourceAuto, "staging", secrets.SourceVault},
		{secrets.SourceAuto, "production", secrets.SourceVault},
		{secrets.SourceEnvironment, "production", secrets.SourceEnvironment},
		{secrets.SourceVault, "development", secrets.SourceVault},
	}

	for _, tt := range tests {
		t.Run(string(tt.source)+"/"+tt.environment, func(t *testing.T) {
			assert.Equal(t, tt.want, secrets.ResolveSource(tt.source, tt.environment))
		})
	}
}

func TestNewProvider_Environment(t *testing.T) {
	t.Setenv("PIPELINE_TEST_SECRET", "s3cret")

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:      secrets.SourceAuto,
		Environment: "development",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, provider.IsVaultEnabled())

	value, err := provider.GetSecret(context.Background(), "PIPELINE_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	_, err = provider.GetSecret(context.Background(), "PIPELINE_TEST_MISSING")
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestNewProvider_VaultRequiresName(t *testing.T) {
	_, err := secrets.NewProvider(&secrets.ProviderConfig{Source: secrets.SourceVault}, zap.NewNop())
	assert.Error(t, err)
}

func TestGetSecretOrEnv_PrefersEnvironment(t *testing.T) {
	provider := secrets.NewProviderWithStore(secrets.SourceVault, mapStore{"jwt-secret": "from-vault"}, zap.NewNop())

	value, err := provider.GetSecretOrEnv(context.Background(), "jwt-secret", "PIPELINE_TEST_JWT")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", value)

	t.Setenv("PIPELINE_TEST_JWT", "from-env")
	value, err = provider.GetSecretOrEnv(context.Background(), "jwt-secret", "PIPELINE_TEST_JWT")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}
