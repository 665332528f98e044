package persistence

import (
	"context"

	"github.com/radioconsole/rcd/internal/bus"
	"github.com/radioconsole/rcd/internal/connectors"
)

// pruneEvery bounds how often Prune runs relative to appends.
const pruneEvery = 100

// WriteQueue serializes persistence writes from bus events.
type WriteQueue interface {
	Enqueue(name string, fn func(context.Context) error)
}

// StartJournalProjection records published status snapshots and command
// results until ctx ends or the bus closes. keep bounds both tables.
func StartJournalProjection(ctx context.Context, b bus.MessageBus, queue WriteQueue, statuses *StatusRepo, commands *CommandRepo, keep int) {
	sub := b.Subscribe(connectors.TopicRadioStatus, connectors.TopicCommandResult)

	go func() {
		defer b.Unsubscribe(sub, connectors.TopicRadioStatus, connectors.TopicCommandResult)
		appended := 0
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				switch ev := raw.(type) {
				case connectors.StatusEvent:
					appended++
					prune := keep > 0 && appended%pruneEvery == 0
					queue.Enqueue("append_status", func(writeCtx context.Context) error {
						_, err := statuses.Append(writeCtx, ev.Timestamp, ev.Status)
						return err
					})
					if prune {
						queue.Enqueue("prune_journal", func(writeCtx context.Context) error {
							if _, err := statuses.Prune(writeCtx, keep); err != nil {
								return err
							}
							return commands.Prune(writeCtx, keep)
						})
					}
				case connectors.CommandResult:
					rec := CommandRecord{At: ev.Timestamp, Command: ev.Command, OK: ev.OK, Attempts: ev.Attempts}
					queue.Enqueue("append_command", func(writeCtx context.Context) error {
						return commands.Append(writeCtx, rec)
					})
				}
			}
		}
	}()
}
