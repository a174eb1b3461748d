package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/models"
)

type fakeNotificationRepo struct {
	notifications []models.Notification
	nextID        uint
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	f.nextID++
	notification.ID = f.nextID
	f.notifications = append(f.notifications, *notification)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	var out []models.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			out = append(out, notification)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id uint, userID string) (models.Notification, error) {
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications[i].Read = true
			return f.notifications[i], nil
		}
	}
	return models.Notification{}, gorm.ErrRecordNotFound
}

func (f *fakeNotificationRepo) FindByID(_ context.Context, id uint) (models.Notification, error) {
	for _, notification := range f.notifications {
		if notification.ID == id {
			return notification, nil
		}
	}
	return models.Notification{}, gorm.ErrRecordNotFound
}

func TestPublishSanitizesAndPersists(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, "", nil, testValidator(), testLogger())

	response, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "1",
		Type:    NotificationTypeGrade,
		Message: `<b>Nota</b> publicada`,
	})
	require.NoError(t, err)
	require.Equal(t, "Nota publicada", response.Message)
	require.Len(t, repo.notifications, 1)
}

func TestPublishRejectsEmptyAfterSanitization(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, "", nil, testValidator(), testLogger())

	_, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "1",
		Type:    "generic",
		Message: `<script>alert("x")</script>`,
	})
	require.Error(t, err)
	require.Empty(t, repo.notifications)
}

func TestPublishFansOutToRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(context.Background(), "aula:notifications")
	t.Cleanup(func() { _ = sub.Close() })
	// Wait for the subscription confirmation before publishing so the
	// channel reader is the only consumer of the connection.
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)
	received := sub.Channel()

	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, client, "aula", nil, testValidator(), testLogger())

	_, err = svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "1",
		Type:    NotificationTypeGrade,
		Message: "Nota publicada",
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		var event struct {
			Notification dto.NotificationResponse `json:"notification"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		require.Equal(t, "Nota publicada", event.Notification.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a published notification event")
	}
}

func TestNotifyQuizScoredPublishesGradeNotification(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, "", nil, testValidator(), testLogger())

	svc.NotifyQuizScored(context.Background(), 1, "Unidad 3", 85)

	require.Len(t, repo.notifications, 1)
	require.Equal(t, "1", repo.notifications[0].UserID)
	require.Equal(t, NotificationTypeGrade, repo.notifications[0].Type)
	require.Contains(t, repo.notifications[0].Message, "85")
}

func TestMarkReadFlipsFlag(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, "", nil, testValidator(), testLogger())

	created, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "1",
		Type:    "generic",
		Message: "hola",
	})
	require.NoError(t, err)

	updated, err := svc.MarkRead(context.Background(), created.ID, "1")
	require.NoError(t, err)
	require.True(t, updated.Read)
}
