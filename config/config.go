// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-mailtool/persistence"
	"github.com/CrawX/go-imap-mailtool/walker"

	"github.com/BurntSushi/toml"
)

type Database struct {
	Driver     string
	DataSource string
}

type Config struct {
	Loglevel *string

	// Compress enables COMPRESS=DEFLATE on servers that support it.
	Compress bool

	// Accounts maps user@host:port to the password of that account.
	Accounts map[string]string

	Database Database

	MaxDepth int

	DangerMode bool
}

func Default() *Config {
	return &Config{
		Accounts: map[string]string{},
		Database: Database{
			Driver:     persistence.DriverSqlite,
			DataSource: "mailtool.db",
		},
		MaxDepth: walker.DefaultMaxDepth,
	}
}

func ReadConfig(filename string) (*Config, error) {
	config := Default()

	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

// Password looks up the password of an account, see imapconnection.Endpoint.Account.
func (c *Config) Password(account string) (string, bool) {
	password, ok := c.Accounts[account]
	return password, ok
}

func (c *Config) validate() error {
	if c.Database.Driver != persistence.DriverSqlite && c.Database.Driver != persistence.DriverMysql {
		return fmt.Errorf("Database.Driver must be %s or %s, got %q", persistence.DriverSqlite, persistence.DriverMysql, c.Database.Driver)
	}

	if err := validateNonEmptyStringField(c.Database.DataSource, "Database.DataSource must not be empty, set to a filename for sqlite3 or a DSN for mysql"); err != nil {
		return err
	}

	if c.MaxDepth <= 0 {
		return fmt.Errorf("MaxDepth must be positive, got %d", c.MaxDepth)
	}

	for account, password := range c.Accounts {
		if err := validateNonEmptyStringField(account, "Accounts must not contain an empty account, use user@host:port"); err != nil {
			return err
		}
		if err := validateNonEmptyStringField(password, fmt.Sprintf("password for account %s must not be empty", account)); err != nil {
			return err
		}
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}
