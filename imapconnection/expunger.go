// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

//go:generate mockgen -destination=expunger_mocks_test.go -package=imapconnection -source expunger.go
import (
	"fmt"

	"github.com/emersion/go-imap"
)

// expunger removes the messages that were flagged as deleted in the current
// session when their folder is closed.
type expunger interface {
	expunge(uids []uint32) error
	expungeReady(uids []uint32) (error, error)
}

type uidExpunger interface {
	UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error
}

type uidPlusExpunger struct {
	imapConn uidExpunger
}

func (u *uidPlusExpunger) expunge(uids []uint32) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- u.imapConn.UidExpunge(seqset, out)
	}()

	expunged := []uint32{}
	for seq := range out {
		expunged = append(expunged, seq)
	}

	err := <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}

func (u *uidPlusExpunger) expungeReady(uids []uint32) (error, error) {
	// UIDPLUS can expunge by uid and is therefore always ready
	return nil, nil
}

type deletedSearcherAndExpunger interface {
	Expunge(ch chan uint32) error
	UidSearch(criteria *imap.SearchCriteria) (uids []uint32, err error)
}

type compatibilityExpunger struct {
	imapConn deletedSearcherAndExpunger
}

func (c *compatibilityExpunger) expunge(uids []uint32) error {
	notExpungeReadyReason, err := c.expungeReady(uids)
	if err != nil {
		return fmt.Errorf("could not check for expunge readiness: %w", err)
	}

	if notExpungeReadyReason != nil {
		return fmt.Errorf("folder is not ready for expunge: %w", notExpungeReadyReason)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- c.imapConn.Expunge(out)
	}()

	expunged := []uint32{}
	for seq := range out {
		expunged = append(expunged, seq)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}

var ItemsWithDeletedFlagPresent = fmt.Errorf("folder has other items with delete flag set")

func (c *compatibilityExpunger) expungeReady(uids []uint32) (error, error) {
	// Plain EXPUNGE removes everything that has the flag set, so the folder is
	// only ready if the flagged messages are exactly the ones of this session.
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	ids, err := c.imapConn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could search for deleted in folder: %w", err)
	}

	own := map[uint32]bool{}
	for _, uid := range uids {
		own[uid] = true
	}
	for _, id := range ids {
		if !own[id] {
			return ItemsWithDeletedFlagPresent, nil
		}
	}

	return nil, nil
}
