package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/worker"
)

// Serve is the child side of ProcessSpawner. It reads the worker data from
// in, runs the session and writes frames to out. End of input cancels the
// session, so a child never outlives a parent that went away.
func Serve(ctx context.Context, in io.Reader, out io.Writer, newEngine engine.Factory, logger *slog.Logger) error {
	if newEngine == nil {
		newEngine = engine.New
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	first, err := newFrameReader(in).read()
	if err != nil {
		return fmt.Errorf("read worker data: %w", err)
	}
	if first.Kind != frameData || first.Data == nil {
		return errors.New("read worker data: first frame carries no data")
	}
	data := *first.Data

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_, _ = io.Copy(io.Discard, in)
		cancel()
	}()

	fw := newFrameWriter(out)
	eng, err := newEngine(data.Engine, logger)
	if err != nil {
		_ = fw.write(frame{Kind: frameError, Error: err.Error()})
		return err
	}
	if err := fw.write(frame{Kind: frameOnline}); err != nil {
		return err
	}

	ch := worker.ChannelFunc(func(m worker.Message) error {
		return fw.write(frame{Kind: frameMessage, Message: &m})
	})
	if err := runSession(ctx, eng, data, ch, logger); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = fw.write(frame{Kind: frameError, Error: err.Error()})
		return err
	}
	return nil
}
