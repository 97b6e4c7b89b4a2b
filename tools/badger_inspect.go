package main

import (
	"chat-relay/domain"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Offline store inspector. Points at a relay's badger directory and
// dumps one namespace as a table. Run with the relay stopped, or rely
// on the lock guard bypass.
func main() {
	dbPath := flag.String("db", "/tmp/chat-relay/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			// Secondary indexes hold bare IDs, not documents
			key := string(item.Key())
			if strings.HasPrefix(key, "user_handle:") || strings.HasPrefix(key, "group_code:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
}

// toRow renders one entry according to its namespace. Unknown
// namespaces fall back to a raw size row instead of failing the scan.
func toRow(key string, val []byte) []string {
	namespace, _, _ := strings.Cut(key, ":")

	switch namespace {
	case "msg":
		var message domain.Message
		if err := json.Unmarshal(val, &message); err == nil {
			detail := message.Content
			if len(detail) > 48 {
				detail = detail[:48] + "..."
			}
			return []string{key, "MSG",
				time.UnixMilli(message.Timestamp).Format("15:04:05"),
				shorten(message.SenderID), detail}
		}
	case "user":
		var user domain.User
		if err := json.Unmarshal(val, &user); err == nil {
			return []string{key, "USER",
				user.CreatedAt.Format("15:04:05"),
				shorten(user.ID), user.Handle}
		}
	case "group":
		var group domain.Group
		if err := json.Unmarshal(val, &group); err == nil {
			return []string{key, "GROUP",
				group.CreatedAt.Format("15:04:05"),
				shorten(group.ID),
				fmt.Sprintf("%s (%d members)", group.Name, len(group.Members))}
		}
	case "notif":
		var notification domain.Notification
		if err := json.Unmarshal(val, &notification); err == nil {
			return []string{key, "NOTIF",
				notification.CreatedAt.Format("15:04:05"),
				shorten(notification.ID), notification.Title}
		}
	case "media":
		var ref domain.MediaRef
		if err := json.Unmarshal(val, &ref); err == nil {
			return []string{key, "MEDIA",
				ref.CreatedAt.Format("15:04:05"),
				shorten(ref.ID),
				fmt.Sprintf("%s %s (%d bytes)", ref.MimeType, ref.Filename, ref.Size)}
		}
	}
	return []string{key, "RAW", "--:--:--", "--------", fmt.Sprintf("Size: %d bytes", len(val))}
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	return badger.Open(opts)
}
