package datasets

import "errors"

// The three failure classes of this package. Call sites wrap these with
// fmt.Errorf("...: %w", Err...) so callers can discriminate with errors.Is
// while still getting the full context in the message.
var (
	// ErrFileSystem reports a missing data directory or a directory with no
	// matching image files.
	ErrFileSystem = errors.New("file system error")

	// ErrDecode reports a malformed image file.
	ErrDecode = errors.New("image decode error")

	// ErrContract reports a caller-side contract violation: mismatched
	// request-batch length, mismatched feed-tensor count, split counts that
	// exceed the available characters, and the like.
	ErrContract = errors.New("contract violation")
)
