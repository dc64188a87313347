// Package aws provides the AWS transports: "aws" consumes SQS queues
// directly and "aws-sns" subscribes SQS queues to SNS topics. Both convert
// messages with adapters.SQS, so receipt handles and message attributes
// reach the normalizer.
package aws

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	amazonsqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	smithyendpoints "github.com/aws/smithy-go/endpoints"

	"github.com/drblury/ingress/internal/runtime/adapters"
	"github.com/drblury/ingress/transport"
)

// TransportName is the name used to register the SQS transport.
const TransportName = "aws"

const (
	localstackAccountID = "000000000000"
	awsAccountIDLength  = 12
)

// DefaultConfigLoader allows overriding the AWS config loader for testing.
var DefaultConfigLoader = awsconfig.LoadDefaultConfig

// SQSSubscriberFactory allows overriding the SQS subscriber creation for testing.
var SQSSubscriberFactory = func(cfg sqs.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return sqs.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register registers both AWS transports with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.AWSCapabilities)
	transport.RegisterWithCapabilities(SNSTransportName, BuildSNS, transport.AWSSNSCapabilities)
}

// Unmarshaler converts SQS messages through the SQS adapter.
type Unmarshaler struct {
	Adapter adapters.SQS
}

func (u Unmarshaler) Unmarshal(msg *types.Message) (*message.Message, error) {
	return adapters.EncodeWatermill(u.Adapter.ToRawMessage(msg)), nil
}

// Build creates an SQS subscriber. Subscribed topics are queue names.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	awsCfg, err := createAWSConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Created AWS config", watermill.LogFields{
		"region":          safeAWSRegion(awsCfg),
		"custom_endpoint": hasCustomEndpoint(awsCfg),
	})

	sqsCfg, err := sqsSubscriberConfig(awsCfg)
	if err != nil {
		return nil, err
	}
	return SQSSubscriberFactory(sqsCfg, logger)
}

// Capabilities returns the capabilities of the SQS transport.
func Capabilities() transport.Capabilities {
	return transport.AWSCapabilities
}

func sqsSubscriberConfig(awsCfg *aws.Config) (sqs.SubscriberConfig, error) {
	endpoint, err := baseEndpoint(awsCfg)
	if err != nil {
		return sqs.SubscriberConfig{}, err
	}
	var opts []func(*amazonsqs.Options)
	if endpoint != nil {
		opts = append(opts, amazonsqs.WithEndpointResolverV2(sqs.OverrideEndpointResolver{
			Endpoint: smithyendpoints.Endpoint{URI: *endpoint},
		}))
	}
	return sqs.SubscriberConfig{
		AWSConfig:                   *awsCfg,
		OptFns:                      opts,
		GenerateReceiveMessageInput: receiveMessageInput,
		Unmarshaler:                 Unmarshaler{},
	}, nil
}

// receiveMessageInput asks SQS for ApproximateReceiveCount so the adapter can
// report redeliveries as HandledCount.
func receiveMessageInput(ctx context.Context, queueURL sqs.QueueURL) (*amazonsqs.ReceiveMessageInput, error) {
	input, err := sqs.GenerateReceiveMessageInputDefault(ctx, queueURL)
	if err != nil {
		return nil, err
	}
	input.MessageSystemAttributeNames = append(input.MessageSystemAttributeNames,
		types.MessageSystemAttributeNameApproximateReceiveCount)
	return input, nil
}

// createAWSConfig loads the SDK default chain and applies the configured
// region, static credentials and endpoint on top of it.
func createAWSConfig(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (*aws.Config, error) {
	region := cfg.GetAWSRegion()
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if key, secret := cfg.GetAWSAccessKeyID(), cfg.GetAWSSecretAccessKey(); key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(staticCredentialsProvider(key, secret)))
	}

	awsCfg, err := DefaultConfigLoader(ctx, opts...)
	if err != nil {
		logger.Error("Failed to load AWS config", err, watermill.LogFields{"region": region})
		return nil, err
	}
	if region != "" {
		awsCfg.Region = region
	}

	endpoint, err := awsEndpointURL(cfg)
	if err != nil {
		return nil, err
	}
	if endpoint != nil {
		awsCfg.BaseEndpoint = aws.String(endpoint.String())
	}
	return &awsCfg, nil
}

func resolveAccountAndRegion(cfg transport.Config, logger watermill.LoggerAdapter, fallbackRegion string) (string, string) {
	if cfg == nil {
		return "", fallbackRegion
	}

	accountID := strings.Trim(cfg.GetAWSAccountID(), "\"' ")
	region := cfg.GetAWSRegion()
	if region == "" {
		region = fallbackRegion
	}

	if accountID == "" && useLocalstackEndpoint(cfg) {
		accountID = localstackAccountID
		logger.Info("AWS account ID empty; using LocalStack default", watermill.LogFields{"accountID": accountID})
		return accountID, region
	}

	if accountID != "" && len(accountID) != awsAccountIDLength && useLocalstackEndpoint(cfg) {
		logger.Info("Invalid AWS account ID; falling back to LocalStack default", watermill.LogFields{"accountID": accountID})
		accountID = localstackAccountID
	}

	return accountID, region
}

func useLocalstackEndpoint(cfg transport.Config) bool {
	return cfg != nil && cfg.GetAWSEndpoint() != ""
}

func awsEndpointURL(cfg transport.Config) (*url.URL, error) {
	if cfg == nil || cfg.GetAWSEndpoint() == "" {
		return nil, nil
	}

	parsedURL, err := url.Parse(cfg.GetAWSEndpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to parse AWS endpoint: %w", err)
	}
	return parsedURL, nil
}

// baseEndpoint returns the custom endpoint of awsCfg, or nil.
func baseEndpoint(awsCfg *aws.Config) (*url.URL, error) {
	if !hasCustomEndpoint(awsCfg) {
		return nil, nil
	}
	parsedURL, err := url.Parse(*awsCfg.BaseEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse BaseEndpoint: %w", err)
	}
	return parsedURL, nil
}

func safeAWSRegion(cfg *aws.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.Region
}

func hasCustomEndpoint(cfg *aws.Config) bool {
	return cfg != nil && cfg.BaseEndpoint != nil && *cfg.BaseEndpoint != ""
}

func staticCredentialsProvider(accessKeyID, secretAccessKey string) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
		}, nil
	})
}
