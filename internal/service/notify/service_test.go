package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/nogal/internal/config"
	"github.com/mamadbah2/nogal/internal/domain/models"
	client "github.com/mamadbah2/nogal/pkg/clients/whatsapp"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) SendTextMessage(ctx context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*client.SendTextMessageResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestNotifyManager(t *testing.T) {
	c := &mockClient{}
	svc := NewWhatsAppService(config.WhatsAppConfig{ManagerID: "5491100000000"}, c, nil)

	c.On("SendTextMessage", mock.Anything, client.SendTextMessageRequest{To: "5491100000000", Body: "Campaign 2025 summary"}).
		Return(&client.SendTextMessageResponse{}, nil).Once()
	require.NoError(t, svc.NotifyManager(context.Background(), "Campaign 2025 summary"))

	c.On("SendTextMessage", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited")).Once()
	err := svc.Send(context.Background(), models.Notification{To: "1", Message: "x"})
	require.ErrorContains(t, err, "rate limited")

	c.AssertExpectations(t)
}

func TestSendRequiresRecipient(t *testing.T) {
	svc := NewWhatsAppService(config.WhatsAppConfig{}, &mockClient{}, nil)
	require.ErrorIs(t, svc.NotifyManager(context.Background(), "hola"), ErrNoRecipient)
	require.ErrorIs(t, svc.Send(context.Background(), models.Notification{To: "  ", Message: "hola"}), ErrNoRecipient)
}

func TestSendDefaultsToManager(t *testing.T) {
	c := &mockClient{}
	svc := NewWhatsAppService(config.WhatsAppConfig{ManagerID: "m"}, c, nil)

	c.On("SendTextMessage", mock.Anything, client.SendTextMessageRequest{To: "m", Body: "cosecha", PreviewURL: true}).
		Return(&client.SendTextMessageResponse{}, nil).Once()
	require.NoError(t, svc.Send(context.Background(), models.Notification{Message: "cosecha", PreviewURL: true}))
	c.AssertExpectations(t)
}

func TestNewNotifierFallsBackToLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewNotifier(config.WhatsAppConfig{ManagerID: "m"}, zap.New(core))

	_, ok := n.(*LogNotifier)
	require.True(t, ok)
	require.NoError(t, n.NotifyManager(context.Background(), "weekly"))

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "weekly", entries[0].ContextMap()["message"])
	assert.Equal(t, "m", entries[0].ContextMap()["to"])

	_, ok = NewNotifier(config.WhatsAppConfig{AccessToken: "t", PhoneNumberID: "1"}, nil).(*WhatsAppService)
	assert.True(t, ok)
}
