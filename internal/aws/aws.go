package aws

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const (
	EnvAWSProfile = "AWS_PROFILE"

	serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
)

// Options selects where AWS credentials come from. Empty fields fall back to
// the SDK's default chain.
type Options struct {
	Region  string
	Profile string
}

func LoadAWSConfig(ctx context.Context, opts Options) (aws.Config, error) {
	var loadOptions []func(*config.LoadOptions) error

	if profile := resolveProfile(opts.Profile, os.Getenv(EnvAWSProfile), isInKubernetes()); profile != "" {
		loadOptions = append(loadOptions, config.WithSharedConfigProfile(profile))
	}
	if opts.Region != "" {
		loadOptions = append(loadOptions, config.WithRegion(opts.Region))
	}

	return config.LoadDefaultConfig(ctx, loadOptions...)
}

// resolveProfile picks a shared config profile. Pods use their service
// account role, so no profile is set there unless one is explicit.
func resolveProfile(explicit string, fromEnv string, inKubernetes bool) string {
	if explicit != "" {
		return explicit
	}
	if inKubernetes {
		return ""
	}
	if fromEnv != "" {
		return fromEnv
	}
	return "default"
}

func isInKubernetes() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	_, err := os.Stat(serviceAccountTokenPath)
	return err == nil
}

// CallerIdentity is the AWS principal requests are made as.
type CallerIdentity struct {
	Account string `json:"account"`
	Arn     string `json:"arn"`
	UserId  string `json:"userId"`
}

func GetCallerIdentity(ctx context.Context, cfg aws.Config) (*CallerIdentity, error) {
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, err
	}
	return &CallerIdentity{
		Account: aws.ToString(out.Account),
		Arn:     aws.ToString(out.Arn),
		UserId:  aws.ToString(out.UserId),
	}, nil
}
