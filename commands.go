// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/handler"
	"github.com/CrawX/go-imap-mailtool/listing"
	"github.com/CrawX/go-imap-mailtool/log"
	"github.com/CrawX/go-imap-mailtool/migration"
	"github.com/CrawX/go-imap-mailtool/persistence"
	"github.com/CrawX/go-imap-mailtool/predicate"
	"github.com/CrawX/go-imap-mailtool/search"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const dateLayout = "2006-01-02 15:04"

var cmdMigrate = &cli.Command{
	Name:   "migrate",
	Usage:  "Copy a folder tree with all messages into another store",
	Action: runMigrate,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "from",
			Required: true,
			Usage:    "Source as imap[s]://user@host[:port]/[folder]",
		},
		&cli.StringFlag{
			Name:     "to",
			Required: true,
			Usage:    "Destination as imap[s]://user@host[:port]/[folder]",
		},
		&cli.BoolFlag{
			Name:  "count-only",
			Usage: "Only count the source folders and messages",
		},
	},
}

func runMigrate(c *cli.Context) error {
	logger := log.Logger(log.LOG_MAIN)

	sourceStore, source, err := connect(c.Context, c.String("from"))
	if err != nil {
		return err
	}
	defer sourceStore.Close()

	destinationStore, destination, err := connect(c.Context, c.String("to"))
	if err != nil {
		return err
	}
	defer destinationStore.Close()

	configs := []migration.ConfigFunc{migration.MaxDepth(conf.MaxDepth)}
	if c.Bool("count-only") {
		configs = append(configs, migration.CountOnly())
	}

	migrator, err := migration.NewMigrator(source, destination, configs...)
	if err != nil {
		return err
	}

	summary, err := migrator.Run(c.Context)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"folders":  summary.Folders,
		"messages": summary.Messages,
		"copied":   summary.Copied,
	}).Info("Migration done")
	return summary.Err()
}

var cmdSearch = &cli.Command{
	Name:   "search",
	Usage:  "Find messages and optionally copy, handle or purge them",
	Action: runSearch,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "uri", Required: true, Usage: "Store as imap[s]://user@host[:port]/[folder]"},
		&cli.StringSliceFlag{Name: "folders", Usage: "Folders to search, defaults to the folder of the uri"},
		&cli.BoolFlag{Name: "recursive", Usage: "Search the subfolders too"},
		&cli.BoolFlag{Name: "purge", Usage: "Delete the matching messages"},
		&cli.BoolFlag{Name: "quiet", Usage: "Only print the counts per folder"},
		&cli.BoolFlag{Name: "sort", Usage: "Sort the matches of a folder by date"},
		&cli.StringFlag{Name: "copyto", Usage: "Copy the matching messages into this folder"},
		&cli.StringFlag{Name: "handler", Usage: "Handle every match with simple, tabular, headers or database"},
		&cli.BoolFlag{Name: "danger-mode", Usage: "Allow purging recursively"},

		&cli.StringFlag{Name: "sender", Usage: "Sender address"},
		&cli.StringFlag{Name: "senderlike", Usage: "Part of the sender"},
		&cli.StringFlag{Name: "recipient", Usage: "Address in To or Cc"},
		&cli.StringFlag{Name: "subject", Usage: "Subject, case insensitive"},
		&cli.StringFlag{Name: "mimetype", Usage: "Content type of a part, e.g. application/pdf"},
		&cli.StringFlag{Name: "after", Usage: "Sent on or after " + dateLayout},
		&cli.StringFlag{Name: "before", Usage: "Sent on or before " + dateLayout},
		&cli.IntFlag{Name: "older", Usage: "Sent at least this many days ago"},
		&cli.IntFlag{Name: "newer", Usage: "Sent at most this many days ago"},
		&cli.StringFlag{Name: "messageid", Usage: "Message-Id"},
		&cli.Int64Flag{Name: "largerthan", Usage: "Size in bytes"},
		&cli.BoolFlag{Name: "unread", Usage: "Not seen"},
		&cli.BoolFlag{Name: "deleted", Usage: "Flagged deleted instead of not flagged deleted"},
	},
}

// buildPredicate ANDs the criteria flags in a fixed order.
func buildPredicate(c *cli.Context, now time.Time) (predicate.Predicate, error) {
	b := predicate.NewBuilder()

	if c.IsSet("sender") {
		b.Sender(c.String("sender"))
	}
	if c.IsSet("senderlike") {
		b.SenderLike(c.String("senderlike"))
	}
	if c.IsSet("recipient") {
		b.Recipient(c.String("recipient"))
	}
	if c.IsSet("subject") {
		b.Subject(c.String("subject"))
	}
	if c.IsSet("mimetype") {
		b.MimeType(c.String("mimetype"))
	}
	for _, name := range []string{"after", "before"} {
		if !c.IsSet(name) {
			continue
		}
		t, err := time.ParseInLocation(dateLayout, c.String(name), time.Local)
		if err != nil {
			return nil, &domain.PredicateConstructionError{Criterion: name, Value: c.String(name), Err: err}
		}
		if name == "after" {
			b.After(t)
		} else {
			b.Before(t)
		}
	}
	if c.IsSet("older") {
		b.OlderThan(c.Int("older"), now)
	}
	if c.IsSet("newer") {
		b.NewerThan(c.Int("newer"), now)
	}
	if c.IsSet("messageid") {
		b.MessageID(c.String("messageid"))
	}
	if c.IsSet("largerthan") {
		b.LargerThan(c.Int64("largerthan"))
	}
	if c.Bool("unread") {
		b.Unread()
	}
	if c.Bool("deleted") {
		b.Deleted()
	}

	return b.Build()
}

func runSearch(c *cli.Context) error {
	logger := log.Logger(log.LOG_MAIN)

	p, err := buildPredicate(c, time.Now())
	if err != nil {
		return err
	}

	configs := []search.ConfigFunc{search.MaxDepth(conf.MaxDepth)}
	if c.Bool("recursive") {
		configs = append(configs, search.Recursive())
	}
	if c.Bool("purge") {
		configs = append(configs, search.Purge())
	}
	if c.Bool("danger-mode") || conf.DangerMode {
		configs = append(configs, search.DangerMode())
	}
	if c.Bool("quiet") {
		configs = append(configs, search.Quiet())
	}
	if c.Bool("sort") {
		configs = append(configs, search.Sort())
	}
	if c.IsSet("copyto") {
		configs = append(configs, search.CopyTo(c.String("copyto")))
	}

	if c.IsSet("handler") {
		kind, err := handler.ParseKind(c.String("handler"))
		if err != nil {
			return err
		}

		var sink domain.Persistence
		if kind == handler.KindDatabase {
			db, err := persistence.NewPersistence(conf.Database.Driver, conf.Database.DataSource)
			if err != nil {
				return fmt.Errorf("could not connect to database: %w", err)
			}
			defer db.Close()
			sink = db
		}

		h, err := handler.New(kind, os.Stdout, sink)
		if err != nil {
			return err
		}
		configs = append(configs, search.Handler(h))
	}

	store, root, err := connect(c.Context, c.String("uri"))
	if err != nil {
		return err
	}
	defer store.Close()

	folders := c.StringSlice("folders")
	if len(root.FullName()) > 0 {
		configs = append(configs, search.DefaultFolder(root.FullName()))
	}

	searcher, err := search.NewSearcher(store, configs...)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"folders": folders, "predicate": p}).Debug("Searching")
	summary, err := searcher.Run(c.Context, folders, p)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"folders": summary.Folders,
		"matched": summary.Matched,
		"purged":  summary.Purged,
		"copied":  summary.Copied,
	}).Info("Search done")
	return summary.Err()
}

var cmdList = &cli.Command{
	Name:   "list",
	Usage:  "List all folders below the folder of the uri",
	Action: runList,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "uri", Required: true, Usage: "Store as imap[s]://user@host[:port]/[folder]"},
		&cli.BoolFlag{Name: "counters", Usage: "Print total, new, unread and deleted counts"},
		&cli.BoolFlag{Name: "sizes", Usage: "Print count and total size of messages not deleted"},
	},
}

func runList(c *cli.Context) error {
	store, root, err := connect(c.Context, c.String("uri"))
	if err != nil {
		return err
	}
	defer store.Close()

	configs := []listing.ConfigFunc{listing.MaxDepth(conf.MaxDepth)}
	if c.Bool("counters") {
		configs = append(configs, listing.Counters())
	}
	if c.Bool("sizes") {
		configs = append(configs, listing.Sizes())
	}

	lister, err := listing.NewLister(configs...)
	if err != nil {
		return err
	}
	return lister.ListFolders(c.Context, root)
}

var cmdParents = &cli.Command{
	Name:   "parents",
	Usage:  "Print the folder of the uri and all of its parents",
	Action: runParents,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "uri", Required: true, Usage: "Store as imap[s]://user@host[:port]/[folder]"},
	},
}

func runParents(c *cli.Context) error {
	store, folder, err := connect(c.Context, c.String("uri"))
	if err != nil {
		return err
	}
	defer store.Close()

	lister, err := listing.NewLister()
	if err != nil {
		return err
	}
	return lister.ListFolderParents(folder)
}
