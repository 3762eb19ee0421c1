package ipc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Daemon is the surface the command dispatcher needs from the running
// daemon. It keeps the ipc package free of engine imports.
type Daemon interface {
	Status() StatusData
	Stats() StatsData
	Flush() error
	SetEnabled(enabled bool)
	Suggest(ctx context.Context, word string) (SuggestData, error)
}

// NewHandler builds the standard command dispatcher over a Daemon.
func NewHandler(d Daemon) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) *Response {
		switch req.Command {
		case CmdPing:
			return OKResponse(req.ID, nil)

		case CmdStatus:
			return OKResponse(req.ID, d.Status())

		case CmdStats:
			return OKResponse(req.ID, d.Stats())

		case CmdFlush:
			if err := d.Flush(); err != nil {
				return ErrResponse(req.ID, fmt.Errorf("flush learning data: %w", err))
			}
			return OKResponse(req.ID, FlushData{Persisted: true})

		case CmdEnable:
			d.SetEnabled(true)
			return OKResponse(req.ID, EnableData{Enabled: true})

		case CmdDisable:
			d.SetEnabled(false)
			return OKResponse(req.ID, EnableData{Enabled: false})

		case CmdSuggest:
			var args SuggestArgs
			if err := json.Unmarshal(req.Args, &args); err != nil {
				return ErrResponse(req.ID, fmt.Errorf("decode suggest args: %w", err))
			}
			if args.Word == "" {
				return ErrResponse(req.ID, fmt.Errorf("suggest: word is required"))
			}
			data, err := d.Suggest(ctx, args.Word)
			if err != nil {
				return ErrResponse(req.ID, fmt.Errorf("suggest %q: %w", args.Word, err))
			}
			return OKResponse(req.ID, data)

		default:
			return ErrResponse(req.ID, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command))
		}
	})
}
