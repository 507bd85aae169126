//go:build !unix

package uploadsvc

func transientErrno(error) bool { return false }

func fatalErrno(error) bool { return false }
