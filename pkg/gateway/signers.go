package gateway

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/sila-gateway-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/config"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer/awsKmsSigner"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer/localSigner"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer/routingSigner"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer/web3Signer"
	"go.uber.org/zap"
)

// NewSignerFromConfig builds the signer selected by cfg.SignerType. Keys that
// carry private material are always signed locally, so end-user keys work
// whichever backend holds the application key.
func NewSignerFromConfig(ctx context.Context, cfg *config.GatewayConfig, logger *zap.Logger) (signer.ISigner, error) {
	local := localSigner.NewLocalSigner(logger)

	switch cfg.SignerType {
	case config.SignerTypeLocal, "":
		return routingSigner.NewRoutingSigner(local, nil), nil
	case config.SignerTypeWeb3Signer:
		client, err := web3signer.NewWeb3SignerClientFromRemoteSignerConfig(cfg.RemoteSigner, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create web3signer client: %w", err)
		}
		return routingSigner.NewRoutingSigner(local, web3Signer.NewWeb3Signer(client, logger)), nil
	case config.SignerTypeAWSKMS:
		kmsSigner, err := awsKmsSigner.NewAWSKMSSignerFromConfig(ctx, cfg.AWSKMS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create aws kms signer: %w", err)
		}
		return routingSigner.NewRoutingSigner(local, kmsSigner), nil
	default:
		return nil, fmt.Errorf("unsupported signer type: %s", cfg.SignerType)
	}
}
