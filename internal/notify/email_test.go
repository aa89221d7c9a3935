package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != DefaultFromName {
		t.Errorf("expected default from name %q, got %q", DefaultFromName, sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	var sender *SendGridSender

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})

	if !errors.Is(err, ErrEmailNotConfigured) {
		t.Errorf("expected ErrEmailNotConfigured, got %v", err)
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:          "recipient@example.com",
		Subject:     "Test Subject",
		Body:        "Test body",
		Attachments: []Attachment{{Filename: "guide.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}},
	})

	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

type mockSESClient struct {
	input *sesv2.SendEmailInput
	err   error
}

func (m *mockSESClient) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.input = in
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{FromEmail: "a@b.co"}, nil))
}

func TestSESSender_SendsRawMIMEWithAttachment(t *testing.T) {
	client := &mockSESClient{}
	sender := NewSESSender(client, SESConfig{FromEmail: "no-reply@astroliana.com"}, logging.New("error"))

	pdf := []byte("%PDF-1.4 fake pdf body that is long enough to wrap across more than one base64 line of output")
	err := sender.Send(context.Background(), EmailMessage{
		To:          "anna@test.com",
		ToName:      "Anna",
		Subject:     "Ваш гайд",
		Body:        "Привет, Anna!",
		HTML:        "<p>Привет, Anna!</p>",
		Attachments: []Attachment{{Filename: "guide.pdf", ContentType: "application/pdf", Content: pdf}},
	})
	require.NoError(t, err)
	require.NotNil(t, client.input)
	assert.Equal(t, []string{"anna@test.com"}, client.input.Destination.ToAddresses)
	require.NotNil(t, client.input.Content.Raw)

	msg, err := mail.ReadMessage(strings.NewReader(string(client.input.Content.Raw.Data)))
	require.NoError(t, err)

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Ваш гайд", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	first, err := mr.NextPart()
	require.NoError(t, err)
	altType, _, err := mime.ParseMediaType(first.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", altType)

	second, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "guide.pdf", second.FileName())
	raw, err := io.ReadAll(second)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(raw)), ""))
	require.NoError(t, err)
	assert.Equal(t, pdf, decoded)

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSESSender_PropagatesError(t *testing.T) {
	client := &mockSESClient{err: errors.New("throttled")}
	sender := NewSESSender(client, SESConfig{FromEmail: "no-reply@astroliana.com"}, logging.New("error"))

	err := sender.Send(context.Background(), EmailMessage{To: "anna@test.com", Subject: "s", Body: "b"})
	assert.ErrorContains(t, err, "throttled")
}
