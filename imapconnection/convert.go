// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"strings"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/mail"

	"github.com/emersion/go-imap"
)

// BatchSize limits the number of messages per UID FETCH.
const BatchSize = 50

var metadataItems = []imap.FetchItem{
	imap.FetchUid,
	imap.FetchEnvelope,
	imap.FetchFlags,
	imap.FetchInternalDate,
	imap.FetchRFC822Size,
	imap.FetchBodyStructure,
}

func partitionUids(uids []uint32, partitionSize int) [][]uint32 {
	batches := make([][]uint32, 0, (len(uids)+partitionSize-1)/partitionSize)

	for partitionSize < len(uids) {
		uids, batches = uids[partitionSize:], append(batches, uids[0:partitionSize:partitionSize])
	}
	batches = append(batches, uids)

	return batches
}

func convertMessage(folder domain.Folder, msg *imap.Message) *domain.Message {
	m := &domain.Message{
		Uid:          msg.Uid,
		Folder:       folder,
		ReceivedDate: msg.InternalDate,
		Size:         int64(msg.Size),
		Flags:        convertFlags(msg.Flags),
		Parts:        convertParts(msg.BodyStructure),
	}

	if e := msg.Envelope; e != nil {
		m.From = convertAddresses(e.From)
		m.To = convertAddresses(e.To)
		m.Cc = convertAddresses(e.Cc)
		m.Bcc = convertAddresses(e.Bcc)
		m.Subject = mail.DecodeHeader(e.Subject)
		m.MessageID = mail.NormalizeMessageID(e.MessageId)
		m.SentDate = e.Date
	}

	return m
}

// convertFlags canonicalises system flags. Keywords are opaque and keep their
// case so that they survive a migration unchanged.
func convertFlags(flags []string) []domain.Flag {
	result := make([]domain.Flag, 0, len(flags))
	for _, f := range flags {
		if strings.HasPrefix(f, "\\") {
			f = imap.CanonicalFlag(f)
		}
		result = append(result, domain.Flag(f))
	}
	return result
}

func convertAddresses(list []*imap.Address) []domain.Address {
	addresses := []domain.Address{}
	for _, a := range list {
		// group syntax shows up as addresses without host
		if a == nil || len(a.HostName) == 0 {
			continue
		}
		addresses = append(addresses, domain.Address{
			Name:    mail.DecodeHeader(a.PersonalName),
			Address: a.Address(),
		})
	}
	return addresses
}

// convertParts lists the direct children of a multipart body, single part
// bodies have no parts.
func convertParts(bs *imap.BodyStructure) []domain.Part {
	if bs == nil || !strings.EqualFold(bs.MIMEType, "multipart") {
		return nil
	}

	parts := []domain.Part{}
	for _, p := range bs.Parts {
		filename, err := p.Filename()
		if err != nil {
			filename = ""
		}
		parts = append(parts, domain.Part{
			ContentType: strings.ToLower(p.MIMEType + "/" + p.MIMESubType),
			Size:        int64(p.Size),
			Filename:    filename,
		})
	}
	return parts
}

func uidsOf(msgs []*domain.Message) []uint32 {
	uids := make([]uint32, 0, len(msgs))
	for _, m := range msgs {
		uids = append(uids, m.Uid)
	}
	return uids
}

func seqSetOf(uids []uint32) *imap.SeqSet {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	return seqset
}

// appendFlags drops \Recent, which only the server may set.
func appendFlags(flags []domain.Flag) []string {
	result := []string{}
	for _, f := range flags {
		if strings.EqualFold(string(f), string(domain.RecentFlag)) {
			continue
		}
		result = append(result, string(f))
	}
	return result
}
