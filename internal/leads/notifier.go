package leads

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"aspada.com/assistant/internal/store"
)

// Notifier tells the sales team about a newly stored lead.
type Notifier interface {
	NotifyLead(ctx context.Context, lead *store.Lead) error
}

// SNSPublisher is the subset of the SNS client the notifier needs.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSNotifier struct {
	client   SNSPublisher
	topicARN string
}

func NewSNSNotifier(ctx context.Context, region, topicARN string) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SNSNotifier{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

func NewSNSNotifierWithClient(client SNSPublisher, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

func (n *SNSNotifier) NotifyLead(ctx context.Context, lead *store.Lead) error {
	body, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("New lead from " + lead.Source),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
