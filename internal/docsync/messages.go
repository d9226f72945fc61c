package docsync

import (
	"errors"

	"healthlog/internal/docstore"
	"healthlog/pkg/domain"
)

// UserMessage renders err as a single line suitable for showing to a person,
// with a hint on what to do next. Nothing is ever retried automatically, so
// every message ends with the action the user should take.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrBusy):
		return "A save is still in progress. Wait for it to finish, then try again."
	case errors.Is(err, ErrNoDocument):
		return "No household is set up on this device yet. Run `healthlog init` to create or attach one."
	}
	var nf domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf.Error()
	}
	var ve domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	switch docstore.KindOf(err) {
	case docstore.KindForbidden:
		return "Access to the shared file was denied. Sign in again or ask the owner to share it with you."
	case docstore.KindOffline:
		return "The file store could not be reached and nothing was saved. Check your connection and try again."
	case docstore.KindNotFound:
		return "The shared file could not be found. It may have been moved or deleted; run `healthlog init` to pick it again."
	case docstore.KindPreconditionFailed:
		return "Someone else saved changes at the same moment. Your change was not saved; try again."
	case docstore.KindUserCancelled:
		return "No file was selected."
	case docstore.KindMissingToken:
		return "The document has not been loaded yet. Reload and try again."
	case docstore.KindCancelled:
		return "The operation was interrupted and nothing was saved. Try again."
	default:
		return "Something went wrong: " + err.Error()
	}
}
