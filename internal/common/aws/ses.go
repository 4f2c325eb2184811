package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// LoadConfig resolves credentials from the default chain for region.
func LoadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}

// SESClient sends mail through Amazon SES.
type SESClient struct {
	client *ses.Client
}

// NewSESClient builds the client. endpoint overrides the AWS endpoint (localstack).
func NewSESClient(cfg awssdk.Config, endpoint string) *SESClient {
	return &SESClient{client: ses.NewFromConfig(cfg, func(o *ses.Options) {
		if endpoint != "" {
			o.EndpointResolver = ses.EndpointResolverFromURL(endpoint)
		}
	})}
}

func (s *SESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, params, optFns...)
}
