package workers

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"log/slog"
)

// IndexerWorker drains the directory index queue. Register and
// profile-update paths enqueue users without blocking; this worker is
// the only writer to the search index.
type IndexerWorker struct {
	directory repositories.IDirectory
	jobs      <-chan domain.User
	log       *slog.Logger
}

func NewIndexerWorker(directory repositories.IDirectory, jobs <-chan domain.User, log *slog.Logger) *IndexerWorker {
	return &IndexerWorker{directory: directory, jobs: jobs, log: log}
}

func (w *IndexerWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping directory indexer")
			return nil
		case user := <-w.jobs:
			if err := w.directory.Index(user); err != nil {
				w.log.Error("Indexing user failed", "user", user.ID, "error", err)
				continue
			}
			w.log.Debug("User indexed", "handle", user.Handle)
		}
	}
}
