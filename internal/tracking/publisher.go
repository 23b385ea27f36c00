package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/ignite/pixel-tracker/internal/domain"
	"github.com/ignite/pixel-tracker/internal/metrics"
	"github.com/ignite/pixel-tracker/internal/pkg/logger"
)

// MessageTypeOpenRecorded is the type attribute of every open notification.
const MessageTypeOpenRecorded = "open.recorded"

// SQSAPI is the subset of the SQS client the publisher uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// OpenMessage is the JSON body published for each recorded open.
type OpenMessage struct {
	MessageID string    `json:"messageId"`
	Type      string    `json:"type"`
	EventID   int64     `json:"eventId"`
	PixelID   string    `json:"pixelId"`
	EmailID   string    `json:"emailId"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject,omitempty"`
	OpenedAt  time.Time `json:"openedAt"`
	IsBot     bool      `json:"isBot"`
	BotReason string    `json:"botReason,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// Publisher forwards recorded opens to an SQS queue. Sends run in the
// background with their own timeout; Close waits for in-flight sends.
type Publisher struct {
	client   SQSAPI
	queueURL string
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewPublisher creates a publisher over an existing client.
func NewPublisher(client SQSAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, timeout: 5 * time.Second}
}

// NewSQSPublisher loads the default AWS credential chain and builds a
// publisher for queueURL.
func NewSQSPublisher(ctx context.Context, queueURL, region string) (*Publisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return NewPublisher(sqs.NewFromConfig(awsCfg), queueURL), nil
}

// OpenRecorded implements the recorder's Notifier. It never blocks on the
// network and never reports failure to the caller.
func (p *Publisher) OpenRecorded(ctx context.Context, px *domain.Pixel, e *domain.OpenEvent) {
	msg := OpenMessage{
		MessageID: uuid.NewString(),
		Type:      MessageTypeOpenRecorded,
		EventID:   e.ID,
		PixelID:   e.PixelID,
		EmailID:   px.EmailID,
		Recipient: px.Recipient,
		Subject:   px.Subject,
		OpenedAt:  e.OpenedAt,
		IsBot:     e.IsBot,
		BotReason: e.BotReason,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorCtx(ctx, "marshal open notification", "error", err)
		return
	}

	requestID := logger.RequestIDFromContext(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		sendCtx = logger.ContextWithRequestID(sendCtx, requestID)

		_, err := p.client.SendMessage(sendCtx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"type": {DataType: aws.String("String"), StringValue: aws.String(MessageTypeOpenRecorded)},
			},
		})
		if err != nil {
			metrics.NotificationsPublished.WithLabelValues("error").Inc()
			logger.ErrorCtx(sendCtx, "publish open notification", "message_id", msg.MessageID, "error", err)
			return
		}
		metrics.NotificationsPublished.WithLabelValues("ok").Inc()
	}()
}

// Close waits for in-flight sends or until ctx is done.
func (p *Publisher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
