// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/log"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

const (
	DriverSqlite = "sqlite3"
	DriverMysql  = "mysql"
)

//go:embed migrations
var migrations embed.FS

type Persistence struct {
	db *sqlx.DB
	l  *logrus.Logger
}

func NewPersistence(driver string, datasource string) (*Persistence, error) {
	l := log.Logger(log.LOG_PERSISTENCE)
	fields := logrus.Fields{"driver": driver}

	switch driver {
	case DriverSqlite:
	case DriverMysql:
		cfg, err := mysql.ParseDSN(datasource)
		if err != nil {
			return nil, fmt.Errorf("could not parse mysql datasource: %w", err)
		}
		// DATETIME columns are scanned into time.Time
		cfg.ParseTime = true
		datasource = cfg.FormatDSN()
		fields["addr"] = cfg.Addr
		fields["db"] = cfg.DBName
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}

	if driver == DriverSqlite {
		db.SetMaxOpenConns(1)

		_, err = db.Exec(`PRAGMA journal_mode=WAL`)
		if err != nil {
			return nil, fmt.Errorf("could not set journal mode: %w", err)
		}
		_, err = db.Exec(`PRAGMA synchronous=normal`)
		if err != nil {
			return nil, fmt.Errorf("could not set synchronous mode: %w", err)
		}
		_, err = db.Exec(`PRAGMA foreign_keys=ON`)
		if err != nil {
			return nil, fmt.Errorf("could not enable foreign keys: %w", err)
		}
	}
	l.WithFields(fields).Info("Connected")

	migrationSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       "migrations/" + driver,
	}

	appliedMigrations, err := migrate.Exec(db.DB, driver, migrationSource, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &Persistence{
		db: db,
		l:  l,
	}, nil
}

func (p *Persistence) Close() error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	p.l.Info("Disconnected")
	return nil
}

// SaveMessage stores a message with its recipients and attachments in one
// transaction. Folder and address ids are looked up in the cache first and
// added to it once the transaction is committed.
func (p *Persistence) SaveMessage(cache *domain.IDCache, msg domain.SaveMessage) (int64, error) {
	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return 0, fmt.Errorf("could not start transaction: %w", err)
	}

	pending := domain.NewIDCache()

	folderID, err := getOrInsert(tx, cache.Folders, pending.Folders, "folder", "name", msg.Folder)
	if err != nil {
		return 0, txEnd(tx, err)
	}

	sentDate := sql.NullTime{Time: msg.SentDate, Valid: !msg.SentDate.IsZero()}
	result, err := tx.Exec(
		"INSERT INTO message(folder_id, `from`, sent_date, subject, `size`) VALUES (?, ?, ?, ?, ?)",
		folderID, msg.From, sentDate, msg.Subject, msg.Size,
	)
	if err != nil {
		return 0, txEnd(tx, fmt.Errorf("could not save message: %w", err))
	}
	messageID, err := result.LastInsertId()
	if err != nil {
		return 0, txEnd(tx, fmt.Errorf("could not get message id: %w", err))
	}

	for _, r := range msg.Recipients {
		addressID, err := getOrInsert(tx, cache.Addresses, pending.Addresses, "address", "address", r.Address)
		if err != nil {
			return 0, txEnd(tx, err)
		}

		_, err = tx.Exec(
			"INSERT INTO recipient(message_id, address_id, type) VALUES (?, ?, ?)",
			messageID, addressID, string(r.Type),
		)
		if err != nil {
			return 0, txEnd(tx, fmt.Errorf("could not save recipient: %w", err))
		}
	}

	for _, a := range msg.Attachments {
		_, err = tx.Exec(
			"INSERT INTO attachment(message_id, mime_type, filename, `size`) VALUES (?, ?, ?, ?)",
			messageID, a.MimeType, a.Filename, a.Size,
		)
		if err != nil {
			return 0, txEnd(tx, fmt.Errorf("could not save attachment: %w", err))
		}
	}

	if err := txEnd(tx, nil); err != nil {
		return 0, err
	}

	for k, v := range pending.Folders {
		cache.Folders[k] = v
	}
	for k, v := range pending.Addresses {
		cache.Addresses[k] = v
	}

	p.l.WithFields(logrus.Fields{"id": messageID, "folder": msg.Folder, "recipients": len(msg.Recipients), "attachments": len(msg.Attachments)}).Debug("Persisted message")
	return messageID, nil
}

// getOrInsert returns the id of the row of table whose column equals value,
// inserting the row if there is none. New ids are added to pending.
func getOrInsert(tx *sqlx.Tx, cached, pending map[string]int64, table, column, value string) (int64, error) {
	if id, ok := cached[value]; ok {
		return id, nil
	}
	if id, ok := pending[value]; ok {
		return id, nil
	}

	var id int64
	err := tx.Get(&id, fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", table, column), value)
	if errors.Is(err, sql.ErrNoRows) {
		result, err := tx.Exec(fmt.Sprintf("INSERT INTO %s(%s) VALUES (?)", table, column), value)
		if err != nil {
			return 0, fmt.Errorf("could not save %s: %w", table, err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("could not get %s id: %w", table, err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("could not query %s: %w", table, err)
	}

	pending[value] = id
	return id, nil
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
	} else {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			errStr := err.Error()
			return fmt.Errorf("%s, could not rollback tx: %w", errStr, rollbackErr)
		} else {
			return err
		}
	}

	return nil
}
