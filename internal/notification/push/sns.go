package push

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	awsclient "edumatch-notifications/internal/common/aws"
)

// SNSSender delivers through SNS mobile push. The registered token is the
// platform endpoint ARN.
type SNSSender struct {
	client awsclient.SNSService
}

func NewSNSSender(client awsclient.SNSService) *SNSSender {
	return &SNSSender{client: client}
}

func (s *SNSSender) Provider() string { return "sns" }

func (s *SNSSender) Send(ctx context.Context, token string, msg Message) error {
	payload, err := snsPayload(msg)
	if err != nil {
		return err
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(token),
		Message:          aws.String(payload),
		MessageStructure: aws.String("json"),
	})
	return err
}

func (s *SNSSender) IsPermanent(err error) bool {
	var disabled *types.EndpointDisabledException
	var notFound *types.NotFoundException
	var invalid *types.InvalidParameterException
	return stderrors.As(err, &disabled) || stderrors.As(err, &notFound) || stderrors.As(err, &invalid)
}

// RemoveEndpoint deletes the platform endpoint of an invalidated token.
func (s *SNSSender) RemoveEndpoint(ctx context.Context, token string) error {
	_, err := s.client.DeleteEndpoint(ctx, &sns.DeleteEndpointInput{EndpointArn: aws.String(token)})
	return err
}

// snsPayload builds the per-platform JSON envelope SNS expects with
// MessageStructure "json".
func snsPayload(msg Message) (string, error) {
	gcm, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{"title": msg.Title, "body": msg.Body, "sound": "default"},
		"data":         msg.Data,
		"android":      map[string]string{"priority": "high"},
	})
	if err != nil {
		return "", err
	}

	apsDoc := map[string]interface{}{
		"aps": map[string]interface{}{
			"alert": map[string]string{"title": msg.Title, "body": msg.Body},
			"sound": "default",
			"badge": 1,
		},
	}
	for k, v := range msg.Data {
		apsDoc[k] = v
	}
	apns, err := json.Marshal(apsDoc)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(map[string]string{
		"default":      msg.Body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
