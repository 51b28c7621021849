package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAppAddress = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"
	testAppKey     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

func validConfig() *GatewayConfig {
	return &GatewayConfig{
		Gateway:       "https://sandbox.silamoney.com/0.2",
		AppHandle:     "app.silamoney.eth",
		AppAddress:    testAppAddress,
		AppPrivateKey: testAppKey,
	}
}

func Test_GatewayConfigValidate(t *testing.T) {
	t.Run("valid local config gets defaults", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, SignerTypeLocal, cfg.SignerType)
		assert.Equal(t, MessageFormatMessage, cfg.MessageFormat)
		assert.Equal(t, DefaultProtocolVersion, cfg.ProtocolVersion)
		assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
		assert.Equal(t, DefaultRequestsPerSecond, cfg.RequestsPerSecond)
	})

	t.Run("missing required fields are aggregated", func(t *testing.T) {
		cfg := &GatewayConfig{}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gateway")
		assert.Contains(t, err.Error(), "appHandle")
		assert.Contains(t, err.Error(), "appAddress")
		assert.Contains(t, err.Error(), "appPrivateKey")
	})

	t.Run("bad gateway url and address", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gateway = "ftp://example"
		cfg.AppAddress = "0x1234"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be an http(s) url")
		assert.Contains(t, err.Error(), "must be a hex address")
	})

	t.Run("short private key does not leak the key", func(t *testing.T) {
		cfg := validConfig()
		cfg.AppPrivateKey = "0xdeadbeef"
		err := cfg.Validate()
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "deadbeef")
	})

	t.Run("web3signer requires remote signer", func(t *testing.T) {
		cfg := validConfig()
		cfg.AppPrivateKey = ""
		cfg.SignerType = SignerTypeWeb3Signer
		require.Error(t, cfg.Validate())

		cfg.RemoteSigner = &RemoteSignerConfig{Url: "http://localhost:9000"}
		require.NoError(t, cfg.Validate())
	})

	t.Run("awskms requires key id", func(t *testing.T) {
		cfg := validConfig()
		cfg.SignerType = SignerTypeAWSKMS
		cfg.AWSKMS = &AWSKMSSignerConfig{}
		require.Error(t, cfg.Validate())

		cfg.AWSKMS.KeyId = "alias/sila-app"
		require.NoError(t, cfg.Validate())
	})

	t.Run("unknown signer type and format", func(t *testing.T) {
		cfg := validConfig()
		cfg.SignerType = "hsm"
		cfg.MessageFormat = "xml"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signerType")
		assert.Contains(t, err.Error(), "messageFormat")
	})
}

func Test_ApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvGateway:         "https://sandbox.silamoney.com/0.2",
		EnvAppHandle:       "app.silamoney.eth",
		EnvAppAddress:      testAppAddress,
		EnvSignerType:      "WEB3SIGNER",
		EnvWeb3SignerUrl:   "http://localhost:9000",
		EnvMessageFormat:   MessageFormatHeaderOnly,
		EnvRequestsPerSec:  "2.5",
		EnvRequestTimeout:  "5s",
		EnvDebug:           "true",
		EnvProtocolVersion: "0.2",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := &GatewayConfig{}
	require.NoError(t, applyEnv(cfg, lookup))
	assert.Equal(t, SignerTypeWeb3Signer, cfg.SignerType)
	assert.Equal(t, "http://localhost:9000", cfg.RemoteSigner.Url)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Debug)
	require.NoError(t, cfg.Validate())

	t.Run("invalid numbers are rejected", func(t *testing.T) {
		bad := func(k string) (string, bool) {
			if k == EnvRequestsPerSec {
				return "fast", true
			}
			return "", false
		}
		require.Error(t, applyEnv(&GatewayConfig{}, bad))
	})
}

func Test_LoadGatewayConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
gateway: https://sandbox.silamoney.com/0.2
appHandle: app.silamoney.eth
appAddress: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"
signerType: awskms
awsKms:
  keyId: alias/sila-app
  region: us-east-1
requestTimeout: 15s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(EnvAWSRegion, "eu-west-1")

	cfg, err := LoadGatewayConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, SignerTypeAWSKMS, cfg.SignerType)
	assert.Equal(t, "alias/sila-app", cfg.AWSKMS.KeyId)
	assert.Equal(t, "eu-west-1", cfg.AWSKMS.Region)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	require.NoError(t, cfg.Validate())

	_, err = LoadGatewayConfigFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
