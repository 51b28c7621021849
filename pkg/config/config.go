package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the gateway client configuration
const (
	EnvGateway         = "SILA_GATEWAY"
	EnvAppHandle       = "SILA_APP_HANDLE"
	EnvAppAddress      = "SILA_APP_ADDRESS"
	EnvAppKey          = "SILA_APP_KEY"
	EnvSignerType      = "SILA_SIGNER_TYPE"
	EnvWeb3SignerUrl   = "SILA_WEB3SIGNER_URL"
	EnvAWSKMSKeyId     = "SILA_AWS_KMS_KEY_ID"
	EnvAWSRegion       = "SILA_AWS_REGION"
	EnvMessageFormat   = "SILA_MESSAGE_FORMAT"
	EnvProtocolVersion = "SILA_PROTOCOL_VERSION"
	EnvRequestsPerSec  = "SILA_REQUESTS_PER_SECOND"
	EnvRequestTimeout  = "SILA_REQUEST_TIMEOUT"
	EnvDebug           = "SILA_DEBUG"
)

type SignerType string

func (s SignerType) String() string {
	return string(s)
}

const (
	SignerTypeLocal      SignerType = "local"
	SignerTypeWeb3Signer SignerType = "web3signer"
	SignerTypeAWSKMS     SignerType = "awskms"
)

const (
	MessageFormatMessage    = "message"
	MessageFormatHeaderOnly = "header"
)

const (
	DefaultProtocolVersion   = "0.2"
	DefaultRequestTimeout    = 30 * time.Second
	DefaultRequestsPerSecond = 10.0
)

type RemoteSignerConfig struct {
	Url         string `json:"url" yaml:"url"`
	CACert      string `json:"caCert" yaml:"caCert"`
	Cert        string `json:"cert" yaml:"cert"`
	Key         string `json:"key" yaml:"key"`
	FromAddress string `json:"fromAddress" yaml:"fromAddress"`
	PublicKey   string `json:"publicKey" yaml:"publicKey"`
}

func (rsc *RemoteSignerConfig) Validate() error {
	var allErrors field.ErrorList
	if rsc.Url == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("url"), "url is required"))
	}
	if rsc.FromAddress != "" && !common.IsHexAddress(rsc.FromAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("fromAddress"), rsc.FromAddress, "must be a hex address"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

type AWSKMSSignerConfig struct {
	KeyId   string `json:"keyId" yaml:"keyId"`
	Region  string `json:"region" yaml:"region"`
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`
}

func (c *AWSKMSSignerConfig) Validate() error {
	var allErrors field.ErrorList
	if c.KeyId == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("keyId"), "keyId is required"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// GatewayConfig holds the application credentials and gateway settings. It is
// built once at startup and passed to whatever needs it.
type GatewayConfig struct {
	Gateway   string `json:"gateway" yaml:"gateway"`
	AppHandle string `json:"appHandle" yaml:"appHandle"`

	AppAddress    string `json:"appAddress" yaml:"appAddress"`
	AppPrivateKey string `json:"appPrivateKey,omitempty" yaml:"appPrivateKey,omitempty"`

	SignerType   SignerType          `json:"signerType" yaml:"signerType"`
	RemoteSigner *RemoteSignerConfig `json:"remoteSigner,omitempty" yaml:"remoteSigner,omitempty"`
	AWSKMS       *AWSKMSSignerConfig `json:"awsKms,omitempty" yaml:"awsKms,omitempty"`

	MessageFormat   string `json:"messageFormat" yaml:"messageFormat"`
	ProtocolVersion string `json:"protocolVersion" yaml:"protocolVersion"`

	RequestsPerSecond float64       `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	RequestTimeout    time.Duration `json:"requestTimeout" yaml:"requestTimeout"`

	Debug bool `json:"debug" yaml:"debug"`
}

func (c *GatewayConfig) applyDefaults() {
	if c.SignerType == "" {
		c.SignerType = SignerTypeLocal
	}
	if c.MessageFormat == "" {
		c.MessageFormat = MessageFormatMessage
	}
	if c.ProtocolVersion == "" {
		c.ProtocolVersion = DefaultProtocolVersion
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}

// Validate fills defaults and checks the configuration
func (c *GatewayConfig) Validate() error {
	c.applyDefaults()

	var allErrors field.ErrorList
	if c.Gateway == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("gateway"), "gateway is required"))
	} else if !strings.HasPrefix(c.Gateway, "http://") && !strings.HasPrefix(c.Gateway, "https://") {
		allErrors = append(allErrors, field.Invalid(field.NewPath("gateway"), c.Gateway, "must be an http(s) url"))
	}
	if c.AppHandle == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("appHandle"), "appHandle is required"))
	}
	if c.AppAddress == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("appAddress"), "appAddress is required"))
	} else if !common.IsHexAddress(c.AppAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("appAddress"), c.AppAddress, "must be a hex address"))
	}

	switch c.SignerType {
	case SignerTypeLocal:
		if c.AppPrivateKey == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("appPrivateKey"), "appPrivateKey is required for the local signer"))
		} else {
			key := strings.TrimPrefix(c.AppPrivateKey, "0x")
			if len(key) != 64 {
				allErrors = append(allErrors, field.Invalid(field.NewPath("appPrivateKey"), "<redacted>",
					fmt.Sprintf("must be 32 bytes (64 hex chars), got %d chars", len(key))))
			}
		}
	case SignerTypeWeb3Signer:
		if c.RemoteSigner == nil {
			allErrors = append(allErrors, field.Required(field.NewPath("remoteSigner"), "remoteSigner is required for the web3signer signer"))
		} else if err := c.RemoteSigner.Validate(); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("remoteSigner"), c.RemoteSigner.Url, err.Error()))
		}
	case SignerTypeAWSKMS:
		if c.AWSKMS == nil {
			allErrors = append(allErrors, field.Required(field.NewPath("awsKms"), "awsKms is required for the awskms signer"))
		} else if err := c.AWSKMS.Validate(); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("awsKms"), c.AWSKMS.KeyId, err.Error()))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("signerType"), c.SignerType,
			[]string{SignerTypeLocal.String(), SignerTypeWeb3Signer.String(), SignerTypeAWSKMS.String()}))
	}

	if c.MessageFormat != MessageFormatMessage && c.MessageFormat != MessageFormatHeaderOnly {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("messageFormat"), c.MessageFormat,
			[]string{MessageFormatMessage, MessageFormatHeaderOnly}))
	}
	if c.RequestsPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestsPerSecond"), c.RequestsPerSecond, "must not be negative"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// LoadGatewayConfigFile reads a YAML config file. Environment variables
// override values from the file.
func LoadGatewayConfigFile(path string) (*GatewayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &GatewayConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewGatewayConfigFromEnv reads the configuration from the environment.
func NewGatewayConfigFromEnv() (*GatewayConfig, error) {
	cfg := &GatewayConfig{}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *GatewayConfig, lookup func(string) (string, bool)) error {
	setString := func(name string, target *string) {
		if v, ok := lookup(name); ok && v != "" {
			*target = v
		}
	}

	setString(EnvGateway, &cfg.Gateway)
	setString(EnvAppHandle, &cfg.AppHandle)
	setString(EnvAppAddress, &cfg.AppAddress)
	setString(EnvAppKey, &cfg.AppPrivateKey)
	setString(EnvMessageFormat, &cfg.MessageFormat)
	setString(EnvProtocolVersion, &cfg.ProtocolVersion)

	if v, ok := lookup(EnvSignerType); ok && v != "" {
		cfg.SignerType = SignerType(strings.ToLower(v))
	}
	if v, ok := lookup(EnvWeb3SignerUrl); ok && v != "" {
		if cfg.RemoteSigner == nil {
			cfg.RemoteSigner = &RemoteSignerConfig{}
		}
		cfg.RemoteSigner.Url = v
	}
	if v, ok := lookup(EnvAWSKMSKeyId); ok && v != "" {
		if cfg.AWSKMS == nil {
			cfg.AWSKMS = &AWSKMSSignerConfig{}
		}
		cfg.AWSKMS.KeyId = v
	}
	if v, ok := lookup(EnvAWSRegion); ok && v != "" {
		if cfg.AWSKMS == nil {
			cfg.AWSKMS = &AWSKMSSignerConfig{}
		}
		cfg.AWSKMS.Region = v
	}
	if v, ok := lookup(EnvRequestsPerSec); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRequestsPerSec, err)
		}
		cfg.RequestsPerSecond = rps
	}
	if v, ok := lookup(EnvRequestTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		cfg.Debug = debug
	}
	return nil
}
