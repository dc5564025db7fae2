package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"duocall/backend/internal/models"
	"duocall/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveRoom(rec *models.RoomRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockStorage) CloseRoom(c storage.Closure) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *MockStorage) GetRoomRecord(sessionID string) (*models.RoomRecord, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomRecord), args.Error(1)
}

func TestArchiver_WritesOpenAndClose(t *testing.T) {
	closed := make(chan struct{})
	storageMock := new(MockStorage)
	storageMock.On("SaveRoom", mock.MatchedBy(func(r *models.RoomRecord) bool {
		return r.SessionID == "s1" && r.Code == "4821"
	})).Return(nil).Once()
	storageMock.On("CloseRoom", mock.MatchedBy(func(c storage.Closure) bool {
		return c.SessionID == "s1" && c.Reason == models.EndReasonEmpty && c.MessageCount == 3
	})).Return(nil).Once().Run(func(mock.Arguments) { close(closed) })

	a := storage.NewArchiver(storageMock, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	a.RoomOpened(models.RoomRecord{SessionID: "s1", Code: "4821"})
	a.RoomClosed(storage.Closure{SessionID: "s1", Reason: models.EndReasonEmpty, MessageCount: 3})

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("archive worker did not write the closing record")
	}
	cancel()
	<-done
	storageMock.AssertExpectations(t)
}

func TestArchiver_DrainsOnShutdown(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("SaveRoom", mock.Anything).Return(nil).Times(3)

	a := storage.NewArchiver(storageMock, 8, nil)
	a.RoomOpened(models.RoomRecord{SessionID: "a"})
	a.RoomOpened(models.RoomRecord{SessionID: "b"})
	a.RoomOpened(models.RoomRecord{SessionID: "c"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)

	storageMock.AssertExpectations(t)
}

func TestArchiver_FullQueueDrops(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("SaveRoom", mock.Anything).Return(nil)

	a := storage.NewArchiver(storageMock, 1, nil)
	a.RoomOpened(models.RoomRecord{SessionID: "kept"})
	a.RoomOpened(models.RoomRecord{SessionID: "dropped"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)

	storageMock.AssertNumberOfCalls(t, "SaveRoom", 1)
}

func TestArchiver_StorageErrorsDoNotStopWorker(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("SaveRoom", mock.Anything).Return(errors.New("db down")).Once()
	storageMock.On("CloseRoom", mock.Anything).Return(nil).Once()

	a := storage.NewArchiver(storageMock, 4, nil)
	a.RoomOpened(models.RoomRecord{SessionID: "s1"})
	a.RoomClosed(storage.Closure{SessionID: "s1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)

	storageMock.AssertExpectations(t)
}
