package session

import (
	"fmt"

	"github.com/scylladb/go-cql-driver/cqlerr"
)

func argumentErrorf(format string, args ...interface{}) error {
	return cqlerr.ArgumentError{Msg: fmt.Sprintf(format, args...)}
}

func driverInternalf(format string, args ...interface{}) error {
	return cqlerr.DriverInternal{Msg: fmt.Sprintf(format, args...)}
}
