//go:generate go run go.uber.org/mock/mockgen -source=directory.go -destination=../mocks/mock_directory.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"strings"

	"github.com/blugelabs/bluge"
)

type IDirectory interface {
	Index(user domain.User) error
	Search(ctx context.Context, query string) (string, error)
}

// Directory is the bluge-backed user search index behind the
// search_user event. It stores only what lookup needs: the user ID as
// document ID, plus handle and username fields. Profiles are always
// re-read from badger so the index never serves stale data.
type Directory struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewDirectory(writer *bluge.Writer, log *slog.Logger) *Directory {
	return &Directory{writer: writer, log: log}
}

// Index upserts a user in the directory. Called on register and on
// profile updates (the handle changes with the username).
func (d *Directory) Index(user domain.User) error {
	doc := bluge.NewDocument(user.ID).
		AddField(bluge.NewKeywordField("handle", strings.ToLower(user.Handle)).StoreValue()).
		AddField(bluge.NewTextField("username", user.Username).StoreValue())
	return d.writer.Update(doc.ID(), doc)
}

// Search resolves a query to a single user ID. An exact handle match
// ("name#1234") takes priority over a username match. Empty string
// when nothing matches.
func (d *Directory) Search(ctx context.Context, query string) (string, error) {
	reader, err := d.writer.Reader()
	if err != nil {
		return "", err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			d.log.Warn("Closing index reader failed", "error", err)
		}
	}()

	if strings.Contains(query, "#") {
		handleQuery := bluge.NewTermQuery(strings.ToLower(query)).SetField("handle")
		if id, err := d.firstHit(ctx, reader, handleQuery); err != nil || id != "" {
			return id, err
		}
	}

	usernameQuery := bluge.NewMatchQuery(query).SetField("username")
	return d.firstHit(ctx, reader, usernameQuery)
}

func (d *Directory) firstHit(ctx context.Context, reader *bluge.Reader, query bluge.Query) (string, error) {
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(1, query))
	if err != nil {
		return "", err
	}

	match, err := iterator.Next()
	if err != nil || match == nil {
		return "", err
	}

	var id string
	err = match.VisitStoredFields(func(field string, value []byte) bool {
		if field == "_id" {
			id = string(value)
			return false
		}
		return true
	})
	return id, err
}
