// internal/gateway/aws.go
package gateway

import (
	"context"
	"fmt"

	"opsdesk-engine/internal/common/config"
	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AWSGateway delivers email through SES and SMS through SNS.
type AWSGateway struct {
	cfg       config.GatewayConfig
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

func NewAWS(ctx context.Context, cfg config.GatewayConfig, log logger.Logger) (*AWSGateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &AWSGateway{
		cfg:       cfg,
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
		logger:    log.WithFields(map[string]interface{}{"component": "gateway"}),
	}, nil
}

func (g *AWSGateway) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	if !g.cfg.AWS.SES.Enabled {
		return "", errors.NewBusinessRuleError("Email delivery is disabled", "ses is disabled in gateway config")
	}

	out, err := g.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(g.cfg.AWS.SES.FromEmail),
	})
	if err != nil {
		return "", errors.NewExternalServiceError("ses", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}

	g.logger.Debug("email dispatched", map[string]interface{}{
		"to":        to,
		"messageId": messageID,
	})

	return messageID, nil
}

func (g *AWSGateway) SendSMS(ctx context.Context, to, body string) (string, error) {
	if !g.cfg.AWS.SNS.Enabled {
		return "", errors.NewBusinessRuleError("SMS delivery is disabled", "sns is disabled in gateway config")
	}

	out, err := g.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
	})
	if err != nil {
		return "", errors.NewExternalServiceError("sns", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}

	g.logger.Debug("sms dispatched", map[string]interface{}{
		"to":        to,
		"messageId": messageID,
	})

	return messageID, nil
}
