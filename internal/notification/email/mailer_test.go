package email

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func TestMailer_Send(t *testing.T) {
	var got *ses.SendEmailInput
	svc := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		got = params
		return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
	}}

	err := NewMailer(svc, "noreply@edumatch.io").Send(context.Background(), Copy{
		To: "student@uni.edu", Title: "Maintenance", Body: "Down at 2am", Type: "ADMIN_SYSTEM",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"student@uni.edu"}, got.Destination.ToAddresses)
	assert.Equal(t, "noreply@edumatch.io", aws.ToString(got.Source))
	assert.Equal(t, "Maintenance", aws.ToString(got.Message.Subject.Data))
	assert.Contains(t, aws.ToString(got.Message.Body.Text.Data), "Down at 2am")
	assert.Contains(t, aws.ToString(got.Message.Body.Text.Data), "admin system notification")
}

func TestMailer_SendErrors(t *testing.T) {
	svc := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		return nil, fmt.Errorf("throttled")
	}}
	m := NewMailer(svc, "noreply@edumatch.io")

	assert.Error(t, m.Send(context.Background(), Copy{To: "a@b.c"}))
	assert.Error(t, m.Send(context.Background(), Copy{}))
}

func TestRenderTemplate(t *testing.T) {
	out := renderTemplate("Hi {{name}}, {{missing}}done", map[string]interface{}{"name": "Ada"})
	assert.Equal(t, "Hi Ada, done", out)
}
