package storage

import (
	"context"
	"log/slog"

	"duocall/backend/internal/models"
)

type archiveJob struct {
	open  *models.RoomRecord
	close *Closure
}

// Archiver feeds Storage from a buffered queue so the hub lock never
// waits on the database. When the queue is full the record is dropped.
type Archiver struct {
	storage Storage
	jobs    chan archiveJob
	log     *slog.Logger
}

func NewArchiver(s Storage, buffer int, log *slog.Logger) *Archiver {
	if log == nil {
		log = slog.Default()
	}
	return &Archiver{storage: s, jobs: make(chan archiveJob, buffer), log: log}
}

// RoomOpened queues the opening record.
func (a *Archiver) RoomOpened(rec models.RoomRecord) {
	a.enqueue(archiveJob{open: &rec})
}

// RoomClosed queues the closing update.
func (a *Archiver) RoomClosed(c Closure) {
	a.enqueue(archiveJob{close: &c})
}

func (a *Archiver) enqueue(j archiveJob) {
	select {
	case a.jobs <- j:
	default:
		a.log.Warn("archive.queue_full")
	}
}

// Run writes queued records until ctx is done, then drains what is left.
func (a *Archiver) Run(ctx context.Context) {
	for {
		select {
		case j := <-a.jobs:
			a.write(j)
		case <-ctx.Done():
			for {
				select {
				case j := <-a.jobs:
					a.write(j)
				default:
					return
				}
			}
		}
	}
}

func (a *Archiver) write(j archiveJob) {
	switch {
	case j.open != nil:
		if err := a.storage.SaveRoom(j.open); err != nil {
			a.log.Error("archive.save_room", "session", j.open.SessionID, "err", err)
		}
	case j.close != nil:
		if err := a.storage.CloseRoom(*j.close); err != nil {
			a.log.Error("archive.close_room", "session", j.close.SessionID, "err", err)
		}
	}
}
