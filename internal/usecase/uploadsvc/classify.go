package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/sir_venger/upload_lite/internal/models"
)

// classify делит ошибки записи на Transient (повтор того же чанка имеет смысл) и FatalIO.
// Всё, что не опознано как временное, считается фатальным, чтобы клиент не повторял вслепую.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound):
		return err
	case isTransient(err):
		return fmt.Errorf("%w: %w", models.ErrTransient, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrFatalIO, err)
	}
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, os.ErrClosed),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	if fatalErrno(err) {
		return false
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	return transientErrno(err)
}
