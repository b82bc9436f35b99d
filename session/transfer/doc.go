// Package transfer runs session tasks and moves request and response bodies
// between the network and disk.
//
// # Queue
//
// A [Queue] runs work functions on their own goroutines with an optional
// concurrency limit. Sessions use one queue each; background sessions bound
// it, default sessions do not:
//
//	q := transfer.NewQueue(4)
//	r := q.Start(ctx, "task-id", func(ctx context.Context) error { ... })
//	err := r.Err()
//
// # Files
//
// [WriteFile] streams a response body to a path, optionally starting at an
// offset so a partial download can be continued. [ResumeData] records what
// is needed to continue it later. [VerifyFile] checks a finished file against
// an expected digest.
package transfer
