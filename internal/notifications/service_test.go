package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
)

func newServiceFixture(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return db, svc
}

func seedNotification(t *testing.T, db *gorm.DB, accountID uuid.UUID, createdAt time.Time) *models.Notification {
	t.Helper()
	notification := &models.Notification{
		AccountID: accountID,
		Kind:      enums.NotificationKindOrderPlaced,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(notification).Error)
	return notification
}

func TestListPaginatesNewestFirst(t *testing.T) {
	t.Parallel()

	db, svc := newServiceFixture(t)
	accountID := uuid.New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seeded := map[uuid.UUID]struct{}{}
	for i := 0; i < 5; i++ {
		n := seedNotification(t, db, accountID, base.Add(time.Duration(i)*time.Minute))
		seeded[n.ID] = struct{}{}
	}
	seedNotification(t, db, uuid.New(), base)
	ctx := context.Background()

	first, err := svc.List(ctx, ListParams{AccountID: accountID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.Cursor)
	assert.True(t, first.Items[0].CreatedAt.After(first.Items[1].CreatedAt))

	second, err := svc.List(ctx, ListParams{AccountID: accountID, Limit: 3, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Empty(t, second.Cursor)

	// the two pages together cover every row exactly once
	seen := map[uuid.UUID]struct{}{}
	for _, item := range append(first.Items, second.Items...) {
		_, dup := seen[item.ID]
		require.False(t, dup, "notification %s returned twice", item.ID)
		seen[item.ID] = struct{}{}
	}
	assert.Equal(t, seeded, seen)
}

func TestListUnreadOnly(t *testing.T) {
	t.Parallel()

	db, svc := newServiceFixture(t)
	accountID := uuid.New()
	read := seedNotification(t, db, accountID, time.Now().UTC().Add(-time.Hour))
	now := time.Now().UTC()
	require.NoError(t, db.Model(read).UpdateColumn("read_at", now).Error)
	unread := seedNotification(t, db, accountID, time.Now().UTC())
	ctx := context.Background()

	result, err := svc.List(ctx, ListParams{AccountID: accountID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, unread.ID, result.Items[0].ID)
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	db, svc := newServiceFixture(t)
	accountID := uuid.New()
	notification := seedNotification(t, db, accountID, time.Now().UTC())
	ctx := context.Background()

	require.NoError(t, svc.MarkRead(ctx, accountID, notification.ID))

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", notification.ID).Error)
	require.NotNil(t, stored.ReadAt)

	// marking again is a no-op, not an error
	require.NoError(t, svc.MarkRead(ctx, accountID, notification.ID))

	err := svc.MarkRead(ctx, accountID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	// another account's notification is invisible
	err = svc.MarkRead(ctx, uuid.New(), notification.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMarkAllRead(t *testing.T) {
	t.Parallel()

	db, svc := newServiceFixture(t)
	accountID := uuid.New()
	seedNotification(t, db, accountID, time.Now().UTC())
	seedNotification(t, db, accountID, time.Now().UTC())
	seedNotification(t, db, uuid.New(), time.Now().UTC())
	ctx := context.Background()

	count, err := svc.MarkAllRead(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var unread int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("account_id = ? AND read_at IS NULL", accountID).
		Count(&unread).Error)
	assert.Zero(t, unread)
}
