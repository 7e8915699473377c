// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"errors"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

func deletedCriteria() *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	return criteria
}

func TestUidPlusExpunger_ExpungeReady(t *testing.T) {
	expunger := uidPlusExpunger{nil}

	notExpungeReadyReason, err := expunger.expungeReady(u32a(1))
	assert.NoError(t, notExpungeReadyReason)
	assert.NoError(t, err)
}

func TestUidPlusExpunger_Expunge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockuidExpunger(ctrl)
	expunger := uidPlusExpunger{conn}

	seqset := &imap.SeqSet{}
	seqset.AddNum(u32a(1, 2, 3)...)
	conn.EXPECT().
		UidExpunge(gomock.Eq(seqset), gomock.Any()).
		DoAndReturn(func(seqSet *imap.SeqSet, ch chan uint32) error {
			ch <- u32(1)
			ch <- u32(1)
			ch <- u32(1)
			close(ch)
			return nil
		})

	err := expunger.expunge(u32a(1, 2, 3))
	assert.NoError(t, err)
}

func TestUidPlusExpunger_ExpungeCountMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockuidExpunger(ctrl)
	expunger := uidPlusExpunger{conn}

	conn.EXPECT().
		UidExpunge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(seqSet *imap.SeqSet, ch chan uint32) error {
			ch <- u32(1)
			close(ch)
			return nil
		})

	err := expunger.expunge(u32a(1, 2))
	assert.EqualError(t, err, "unexpected number of expunges, expected 2 got 1")
}

func TestCompatibilityExpunger_ExpungeReady(t *testing.T) {
	tests := []struct {
		name    string
		flagged []uint32
		ready   bool
	}{
		{"none", u32a(), true},
		{"own", u32a(2, 3), true},
		{"others", u32a(1, 2, 3), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			conn := NewMockdeletedSearcherAndExpunger(ctrl)
			expunger := compatibilityExpunger{conn}

			conn.EXPECT().
				UidSearch(gomock.Eq(deletedCriteria())).
				Return(tc.flagged, nil)

			notExpungeReadyReason, err := expunger.expungeReady(u32a(2, 3))
			assert.NoError(t, err)
			if tc.ready {
				assert.NoError(t, notExpungeReadyReason)
			} else {
				assert.EqualError(t, notExpungeReadyReason, "folder has other items with delete flag set")
			}
		})
	}
}

func TestCompatibilityExpunger_Expunge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockdeletedSearcherAndExpunger(ctrl)
	expunger := compatibilityExpunger{conn}

	conn.EXPECT().
		UidSearch(gomock.Eq(deletedCriteria())).
		Return(u32a(1, 2, 3), nil)

	conn.EXPECT().
		Expunge(gomock.Any()).
		DoAndReturn(func(ch chan uint32) error {
			ch <- u32(1)
			ch <- u32(1)
			ch <- u32(1)
			close(ch)
			return nil
		})

	err := expunger.expunge(u32a(1, 2, 3))
	assert.NoError(t, err)
}

func TestCompatibilityExpunger_ExpungeButNotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockdeletedSearcherAndExpunger(ctrl)
	expunger := compatibilityExpunger{conn}

	conn.EXPECT().
		UidSearch(gomock.Eq(deletedCriteria())).
		Return(u32a(1, 4), nil)

	err := expunger.expunge(u32a(1))
	assert.EqualError(t, err, "folder is not ready for expunge: folder has other items with delete flag set")
}

func TestCompatibilityExpunger_SearchFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockdeletedSearcherAndExpunger(ctrl)
	expunger := compatibilityExpunger{conn}

	conn.EXPECT().
		UidSearch(gomock.Any()).
		Return(nil, errors.New("connection reset"))

	err := expunger.expunge(u32a(1))
	assert.EqualError(t, err, "could not check for expunge readiness: could search for deleted in folder: connection reset")
}

func u32(val int) uint32 {
	return uint32(val)
}

func u32a(val ...int) []uint32 {
	uids := make([]uint32, 0, len(val))
	for _, v := range val {
		uids = append(uids, u32(v))
	}
	return uids
}
