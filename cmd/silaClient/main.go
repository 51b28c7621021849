package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/sila-gateway-go/internal/aws"
	"github.com/Layr-Labs/sila-gateway-go/pkg/auth"
	"github.com/Layr-Labs/sila-gateway-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/config"
	"github.com/Layr-Labs/sila-gateway-go/pkg/gateway"
	"github.com/Layr-Labs/sila-gateway-go/pkg/logger"
	"github.com/Layr-Labs/sila-gateway-go/pkg/message"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer/awsKmsSigner"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
)

func main() {
	app := &cli.App{
		Name:  "sila-client",
		Usage: "Sign and send authenticated requests to the Sila gateway",
		Description: `A client for the Sila gateway request-authentication layer.

Configuration is read from SILA_* environment variables, optionally layered
over a YAML file passed with --config. The application key can be held
locally, in Web3Signer or in AWS KMS.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "sign",
				Usage: "Sign a message body and print the signature headers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "message",
						Usage:    "Message body, or @path to read it from a file",
						Required: true,
					},
					userKeyFlag,
				},
				Action: signCommand,
			},
			{
				Name:  "verify",
				Usage: "Check that signatures over a message body recover to the expected addresses",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "message",
						Usage:    "Message body, or @path to read it from a file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "authsignature",
						Usage:    "Application signature (hex)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "usersignature",
						Usage: "User signature (hex)",
					},
					&cli.StringFlag{
						Name:     "app-address",
						Usage:    "Expected application address",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "user-address",
						Usage: "Expected user address",
					},
				},
				Action: verifyCommand,
			},
			{
				Name:  "check-handle",
				Usage: "Check whether a handle is available",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "handle",
						Usage:    "Handle to check",
						Required: true,
					},
				},
				Action: checkHandleCommand,
			},
			{
				Name:  "transfer",
				Usage: "Transfer Sila from one handle to another",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "handle",
						Usage:    "Source user handle",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "destination",
						Usage:    "Destination user handle",
						Required: true,
					},
					&cli.Int64Flag{
						Name:     "amount",
						Usage:    "Amount in Sila",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "descriptor",
						Usage: "Optional transaction descriptor",
					},
					userKeyFlag,
				},
				Action: transferCommand,
			},
			{
				Name:   "key-address",
				Usage:  "Print the address of the configured application key and check it against SILA_APP_ADDRESS",
				Action: keyAddressCommand,
			},
			{
				Name:   "kms-identity",
				Usage:  "Print the AWS identity used for KMS signing",
				Action: kmsIdentityCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var userKeyFlag = &cli.StringFlag{
	Name:    "user-key",
	Usage:   "End-user private key (hex)",
	EnvVars: []string{"SILA_USER_KEY"},
}

func loadConfig(c *cli.Context) (*config.GatewayConfig, error) {
	var (
		cfg *config.GatewayConfig
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadGatewayConfigFile(path)
	} else {
		cfg, err = config.NewGatewayConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// createClient builds a gateway client from the CLI context
func createClient(c *cli.Context) (*gateway.Client, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	zapLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	s, err := gateway.NewSignerFromConfig(c.Context, cfg, zapLogger)
	if err != nil {
		return nil, err
	}

	return gateway.NewClient(cfg, s, zapLogger)
}

// userKey derives the end-user key from --user-key, or returns nil.
func userKey(c *cli.Context) (*types.KeyMaterial, error) {
	raw := c.String("user-key")
	if raw == "" {
		return nil, nil
	}
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid user key: %w", err)
	}
	params := &types.KeyParams{
		Address:    crypto.PubkeyToAddress(pk.PublicKey).Hex(),
		PrivateKey: &raw,
	}
	return params.ToKeyMaterial()
}

func readMessage(arg string) ([]byte, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read message file: %w", err)
		}
		return data, nil
	}
	return []byte(arg), nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func signCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	zapLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	body, err := readMessage(c.String("message"))
	if err != nil {
		return err
	}
	user, err := userKey(c)
	if err != nil {
		return err
	}
	appKey, err := gateway.AppKeyFromConfig(cfg)
	if err != nil {
		return err
	}

	s, err := gateway.NewSignerFromConfig(c.Context, cfg, zapLogger)
	if err != nil {
		return err
	}
	req, err := auth.NewAuthenticator(s, zapLogger).Authenticate(c.Context, message.FromBytes(body), appKey, user)
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}

	return printJSON(struct {
		Digest string `json:"digest"`
		types.SignatureSet
	}{
		Digest:       req.Digest.Hex(),
		SignatureSet: req.Signatures,
	})
}

func verifyCommand(c *cli.Context) error {
	body, err := readMessage(c.String("message"))
	if err != nil {
		return err
	}

	appAddr := c.String("app-address")
	if !common.IsHexAddress(appAddr) {
		return fmt.Errorf("invalid app address: %s", appAddr)
	}

	msg := message.FromBytes(body)
	req := &auth.SignedRequest{
		Message:    msg,
		Digest:     msg.Digest(),
		Signatures: types.SignatureSet{AppSignature: c.String("authsignature")},
	}

	var userAddr *common.Address
	if sig := c.String("usersignature"); sig != "" {
		raw := c.String("user-address")
		if !common.IsHexAddress(raw) {
			return fmt.Errorf("--user-address is required with --usersignature")
		}
		addr := common.HexToAddress(raw)
		userAddr = &addr
		req.Signatures.UserSignature = &sig
	}

	if err := auth.Verify(req, common.HexToAddress(appAddr), userAddr); err != nil {
		return err
	}
	fmt.Printf("Signatures valid for digest %s\n", req.Digest.Hex())
	return nil
}

func checkHandleCommand(c *cli.Context) error {
	client, err := createClient(c)
	if err != nil {
		return err
	}

	resp, err := client.CheckHandle(c.Context, c.String("handle"), nil)
	if err != nil {
		return fmt.Errorf("check_handle failed: %w", err)
	}
	return printJSON(resp)
}

func transferCommand(c *cli.Context) error {
	client, err := createClient(c)
	if err != nil {
		return err
	}
	user, err := userKey(c)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("--user-key is required for transfers")
	}

	params := &gateway.TransferSilaParams{
		Handle:            c.String("handle"),
		Amount:            c.Int64("amount"),
		DestinationHandle: c.String("destination"),
	}
	if d := c.String("descriptor"); d != "" {
		params.Descriptor = &d
	}

	resp, err := client.TransferSila(c.Context, params, user)
	if err != nil {
		return fmt.Errorf("transfer_sila failed: %w", err)
	}
	return printJSON(resp)
}

func keyAddressCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	zapLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	var addresses []common.Address
	switch cfg.SignerType {
	case config.SignerTypeLocal:
		pk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.AppPrivateKey, "0x"))
		if err != nil {
			return fmt.Errorf("invalid app private key: %w", err)
		}
		addresses = append(addresses, crypto.PubkeyToAddress(pk.PublicKey))
	case config.SignerTypeAWSKMS:
		kmsSigner, err := awsKmsSigner.NewAWSKMSSignerFromConfig(c.Context, cfg.AWSKMS, zapLogger)
		if err != nil {
			return err
		}
		addr, err := kmsSigner.Address(c.Context, "")
		if err != nil {
			return err
		}
		addresses = append(addresses, addr)
	case config.SignerTypeWeb3Signer:
		client, err := web3signer.NewWeb3SignerClientFromRemoteSignerConfig(cfg.RemoteSigner, zapLogger)
		if err != nil {
			return err
		}
		accounts, err := client.EthAccounts(c.Context)
		if err != nil {
			return fmt.Errorf("failed to list web3signer accounts: %w", err)
		}
		for _, a := range accounts {
			addresses = append(addresses, common.HexToAddress(a))
		}
	}

	expected := common.HexToAddress(cfg.AppAddress)
	for _, addr := range addresses {
		if addr == expected {
			fmt.Printf("Key for %s is available via %s\n", addr.Hex(), cfg.SignerType)
			return nil
		}
	}
	for _, addr := range addresses {
		fmt.Printf("Signer holds %s\n", addr.Hex())
	}
	return fmt.Errorf("%s signer does not hold a key for %s", cfg.SignerType, expected.Hex())
}

func kmsIdentityCommand(c *cli.Context) error {
	opts := aws.Options{Region: os.Getenv(config.EnvAWSRegion)}
	if path := c.String("config"); path != "" {
		cfg, err := config.LoadGatewayConfigFile(path)
		if err != nil {
			return err
		}
		if cfg.AWSKMS != nil {
			opts = aws.Options{Region: cfg.AWSKMS.Region, Profile: cfg.AWSKMS.Profile}
		}
	}

	awsCfg, err := aws.LoadAWSConfig(c.Context, opts)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	identity, err := aws.GetCallerIdentity(c.Context, awsCfg)
	if err != nil {
		return fmt.Errorf("failed to get caller identity: %w", err)
	}
	return printJSON(identity)
}
