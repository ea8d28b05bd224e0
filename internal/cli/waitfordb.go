package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sakif/base-backend/internal/apperror"
)

// WaitOptions bounds WaitForDB.
type WaitOptions struct {
	Attempts int           // total tries, including the first
	Interval time.Duration // pause between tries
}

// DefaultWaitOptions tries for about 30 seconds.
var DefaultWaitOptions = WaitOptions{Attempts: 30, Interval: time.Second}

// WaitForDB calls ping until it succeeds or the attempts run out, printing
// progress to out. It returns an apperror.ErrUnavailable error carrying the
// last ping failure when the database never answered.
//
//	Waiting for database...
//	Database unavailable (attempt 1/30): dial tcp 10.0.0.5:5432: connect: connection refused
//	Database available!
func WaitForDB(ctx context.Context, ping func(context.Context) error, out io.Writer, opts WaitOptions) error {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	fmt.Fprintln(out, "Waiting for database...")

	backoff := retry.WithMaxRetries(uint64(opts.Attempts-1), retry.NewConstant(opts.Interval))

	attempt := 0
	var last error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			last = err
			fmt.Fprintf(out, "Database unavailable (attempt %d/%d): %v\n", attempt, opts.Attempts, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if last == nil {
			last = err
		}
		return apperror.Unavailable("database", last)
	}

	fmt.Fprintln(out, "Database available!")
	return nil
}
