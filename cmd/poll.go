package cmd

import (
	"context"
	"errors"
	"io"
	"time"
)

// errorPause is the minimum wait after a failed stream poll.
var errorPause = time.Second

type pollOptions struct {
	stream   bool
	interval time.Duration
}

func poll(ctx context.Context, svc BaratronService, opts pollOptions, out, errOut io.Writer) (err error) {
	if err := svc.Connect(ctx); err != nil {
		printError(errOut, err)
		return err
	}
	defer func() {
		err = errors.Join(err, svc.Close())
	}()

	if opts.stream {
		return stream(ctx, svc, opts.interval, out, errOut)
	}
	return once(ctx, svc, out, errOut)
}

func once(ctx context.Context, svc BaratronService, out, errOut io.Writer) error {
	state, err := svc.Get(ctx)
	if err != nil {
		printError(errOut, err)
		return err
	}
	return printState(out, state)
}

// stream polls until ctx is done. A failed poll is reported and skipped.
func stream(ctx context.Context, svc BaratronService, interval time.Duration, out, errOut io.Writer) error {
	start := time.Now()
	printHeader(out)
	for ctx.Err() == nil {
		wait := interval
		state, err := svc.Get(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			printError(errOut, err)
			wait = max(interval, errorPause)
		default:
			printRow(out, time.Since(start), state)
		}
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
	return nil
}
