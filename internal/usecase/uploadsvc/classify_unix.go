//go:build unix

package uploadsvc

import (
	"errors"

	"golang.org/x/sys/unix"
)

// transientErrno: обрыв потока, устаревший или закрытый дескриптор, прерванный вызов.
func transientErrno(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}

	switch errno {
	case unix.EAGAIN, unix.EINTR, unix.EBADF, unix.ESTALE,
		unix.ECONNRESET, unix.ECONNABORTED, unix.EPIPE, unix.ETIMEDOUT:
		return true
	}

	return false
}

// fatalErrno: место, квота, права или сбой устройства сами не пройдут.
func fatalErrno(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}

	switch errno {
	case unix.ENOSPC, unix.EDQUOT, unix.EROFS, unix.EIO, unix.EFBIG,
		unix.EACCES, unix.EPERM, unix.ENAMETOOLONG:
		return true
	}

	return false
}
