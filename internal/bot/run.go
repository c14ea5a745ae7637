package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/i18n"
)

const (
	// DefaultMaxConcurrentUpdates bounds in-flight updates.
	DefaultMaxConcurrentUpdates = 16
	// DefaultDrainTimeout bounds how long accepted updates keep running
	// after shutdown starts.
	DefaultDrainTimeout = 30 * time.Second
)

var commandOrder = []string{"start", "balance", "reset", "help", "stats"}

// RegisterCommands publishes the command menu shown by Telegram clients.
func RegisterCommands(api Sender, texts *i18n.Texts) error {
	cmds := make([]tgbotapi.BotCommand, 0, len(commandOrder))
	for _, name := range commandOrder {
		desc := texts.Commands[name]
		if desc == "" {
			desc = name
		}
		cmds = append(cmds, tgbotapi.BotCommand{Command: name, Description: desc})
	}
	if _, err := api.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

// Run handles updates until ctx is done or updates is closed, with at most
// limit updates in flight.
//
// Cancelling ctx stops intake but not the work already accepted: updates in
// flight and those still buffered in the channel run to completion under a
// context that outlives ctx by at most the drain timeout. Telegram does not
// redeliver an update once it has been fetched.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxConcurrentUpdates
	}
	work, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var g errgroup.Group
	g.SetLimit(limit)
	handle := h.tracer.Wrap(h.HandleUpdate)
	dispatch := func(upd tgbotapi.Update) {
		g.Go(func() error {
			handle(work, upd)
			return nil
		})
	}
	defer func() {
		m := h.tracer.GetMetrics()
		h.logger.Info("Update loop stopped", "total_updates", m.TotalUpdates)
	}()

	for {
		select {
		case <-ctx.Done():
			deadline := time.AfterFunc(h.drain, cancelWork)
			defer deadline.Stop()
			n := drainBuffered(updates, dispatch)
			h.logger.Info("Draining updates", "buffered", n, "timeout", h.drain.String())
			return g.Wait()
		case upd, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			dispatch(upd)
		}
	}
}

// drainBuffered dispatches whatever is already queued in updates without
// waiting for more.
func drainBuffered(updates <-chan tgbotapi.Update, dispatch func(tgbotapi.Update)) int {
	n := 0
	for {
		select {
		case upd, ok := <-updates:
			if !ok {
				return n
			}
			dispatch(upd)
			n++
		default:
			return n
		}
	}
}
