package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"
)

// Loader retrieves secrets from AWS Secrets Manager. The production
// deployment keeps the payment provider API key there rather than in the
// environment; credentials come from the default chain (IAM role in
// production, shared config locally).
type Loader struct {
	client *secretsmanager.Client
	logger *zap.Logger
}

// NewLoader creates a Secrets Manager loader using the default AWS
// credentials chain. Region is taken from AWS_REGION / shared config.
func NewLoader(ctx context.Context, logger *zap.Logger) (*Loader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Loader{
		client: secretsmanager.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

// GetSecret retrieves a secret string by name or full ARN.
func (l *Loader) GetSecret(ctx context.Context, name string) (string, error) {
	l.logger.Info("Retrieving secret from AWS Secrets Manager", zap.String("name", name))

	startTime := time.Now()
	result, err := l.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}

	l.logger.Info("Secret retrieved successfully",
		zap.String("name", name),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	return aws.ToString(result.SecretString), nil
}
