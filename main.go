// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/CrawX/go-imap-mailtool/config"
	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/imapconnection"
	"github.com/CrawX/go-imap-mailtool/log"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

const passwordEnv = "IMAP_PASSWORD"

func main() {
	log.InitLogging("info")
	logger := log.Logger(log.LOG_MAIN)

	app := &cli.App{
		Name:  "mailtool",
		Usage: "Migrate, search and list folders of IMAP mail stores",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.toml",
				Usage: "TOML configuration file, optional unless set explicitly",
			},
			&cli.StringFlag{
				Name:  "loglevel",
				Usage: "trace, debug, info, warn or error, overrides the configuration",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			cmdMigrate,
			cmdSearch,
			cmdList,
			cmdParents,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		logger.WithField("error", err).Fatal("Command failed")
	}
}

var conf *config.Config

// setup loads the configuration before any command runs. A missing default
// configuration file is not an error.
func setup(c *cli.Context) error {
	var err error
	conf, err = config.ReadConfig(c.String("config"))
	if err != nil {
		if c.IsSet("config") || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		conf = config.Default()
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}
	if c.IsSet("loglevel") {
		log.SetLogLevel(c.String("loglevel"))
	}
	return nil
}

func password(ep *imapconnection.Endpoint) (string, error) {
	if len(ep.Password) > 0 {
		return ep.Password, nil
	}
	if p, ok := conf.Password(ep.Account()); ok {
		return p, nil
	}
	if p := os.Getenv(passwordEnv); len(p) > 0 {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password for %s, set it in the configuration or %s", ep.Account(), passwordEnv)
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", ep.Account())
	p, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("could not read password: %w", err)
	}
	return string(p), nil
}

// connect opens a session for uri and returns it with the folder the uri
// names, the default folder if it names none.
func connect(ctx context.Context, uri string) (*imapconnection.Store, domain.Folder, error) {
	ep, err := imapconnection.ParseURI(uri)
	if err != nil {
		return nil, nil, err
	}

	pw, err := password(ep)
	if err != nil {
		return nil, nil, err
	}

	store, err := imapconnection.Connect(ctx, ep, imapconnection.Options{
		Password: pw,
		Compress: conf.Compress,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Logger(log.LOG_MAIN).WithFields(logrus.Fields{"uri": ep.String()}).Debug("Connected")

	var folder domain.Folder
	if len(ep.Folder) == 0 {
		folder, err = store.DefaultFolder()
	} else {
		folder, err = store.Folder(ep.Folder)
	}
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, folder, nil
}
