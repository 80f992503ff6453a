package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// EmailJob is one per-employee notification, consumed by the downstream
// mailer worker. Field names match the queue contract the worker expects.
type EmailJob struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	CheckIns int    `json:"checkIns"`
}

// JobQueue abstracts the per-recipient notification queue.
type JobQueue interface {
	Enqueue(ctx context.Context, job EmailJob) error
}

// SQSQueue submits email jobs to an SQS queue.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSQueue creates a queue publisher for the given queue URL.
func NewSQSQueue(cfg aws.Config, queueURL string) *SQSQueue {
	return &SQSQueue{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}
}

// Enqueue submits one job. Callers tolerate individual failures; a bad
// recipient never blocks the rest of the batch.
func (q *SQSQueue) Enqueue(ctx context.Context, job EmailJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send email job: %w", err)
	}
	return nil
}
