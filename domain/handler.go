// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "context"

//go:generate mockgen -destination=mocks/handler.go -package=mocks . MessageHandler

// MessageHandler is invoked once for every message a search matched.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *Message) error
}
