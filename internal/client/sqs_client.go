package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/myadbox/thumbnailer/internal/config"
)

// QueuePublisher delivers result payloads to a destination queue.
// Fire-and-forget from the pipeline's perspective.
type QueuePublisher interface {
	Publish(ctx context.Context, queueURL string, payload interface{}) error
}

// SQSClient implements QueuePublisher on AWS SQS
type SQSClient struct {
	sqsClient *sqs.Client
}

// NewSQSClient creates a new queue client
func NewSQSClient(cfg *config.AWSConfig) (*SQSClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SQSClient{sqsClient: sqs.NewFromConfig(awsCfg)}, nil
}

// Publish marshals payload to JSON and sends it to queueURL
func (c *SQSClient) Publish(ctx context.Context, queueURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal queue payload: %w", err)
	}

	_, err = c.sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", queueURL, err)
	}
	return nil
}
