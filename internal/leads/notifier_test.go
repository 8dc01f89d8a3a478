package leads

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aspada.com/assistant/internal/store"
)

type fakePublisher struct {
	input *sns.PublishInput
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSNotifier_NotifyLead(t *testing.T) {
	pub := &fakePublisher{}
	n := NewSNSNotifierWithClient(pub, "arn:aws:sns:ap-south-1:123:leads")

	lead := &store.Lead{ID: "l1", ContactNo: "9876543210", Status: store.LeadStatusNew, Source: store.LeadSourceChat}
	require.NoError(t, n.NotifyLead(context.Background(), lead))

	require.NotNil(t, pub.input)
	assert.Equal(t, "arn:aws:sns:ap-south-1:123:leads", *pub.input.TopicArn)
	assert.Contains(t, *pub.input.Subject, store.LeadSourceChat)

	var body store.Lead
	require.NoError(t, json.Unmarshal([]byte(*pub.input.Message), &body))
	assert.Equal(t, "9876543210", body.ContactNo)
}

func TestSNSNotifier_PublishError(t *testing.T) {
	n := NewSNSNotifierWithClient(&fakePublisher{err: errors.New("throttled")}, "arn")
	err := n.NotifyLead(context.Background(), &store.Lead{ContactNo: "9876543210"})
	assert.ErrorContains(t, err, "throttled")
}
