package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSClient publishes notification events to a topic.
type SNSClient struct {
	client *sns.Client
}

func NewSNSClient(cfg awssdk.Config, endpoint string) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg, func(o *sns.Options) {
		if endpoint != "" {
			o.EndpointResolver = sns.EndpointResolverFromURL(endpoint)
		}
	})}
}

func (s *SNSClient) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, params, optFns...)
}
