package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/veriflow/orchestrator/internal/config"
	"github.com/veriflow/orchestrator/internal/domain"
)

// DecisionEvent is published once per terminal session transition. The
// human-review workflow and the compliance surface consume these.
type DecisionEvent struct {
	SessionID        string           `json:"session_id"`
	UserID           string           `json:"user_id"`
	Decision         domain.Decision  `json:"decision"`
	RejectionReason  string           `json:"rejection_reason,omitempty"`
	OverallRiskScore *float64         `json:"overall_risk_score,omitempty"`
	RiskLevel        domain.RiskLevel `json:"risk_level,omitempty"`
	DecidedAt        time.Time        `json:"decided_at"`
}

// DecisionPublisher publishes decision events to AWS SNS.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, ev DecisionEvent) error
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (DecisionPublisher, error) {
	if cfg.SNSTopicARN == "" {
		return nil, fmt.Errorf("SNS_DECISION_TOPIC_ARN not set")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &publisher{client: sns.NewFromConfig(awsCfg, clientOpts...), topicARN: cfg.SNSTopicARN}, nil
}

func (p *publisher) PublishDecision(ctx context.Context, ev DecisionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}
	msg := string(body)
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  &msg,
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"decision": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(ev.Decision)),
			},
		},
	})
	return err
}
