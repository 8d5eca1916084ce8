package workflow

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry 'evt_1' for key 'event_id'"}
	if !isDuplicateKeyErr(dup) {
		t.Error("1062 must be detected as duplicate key")
	}
	if !isDuplicateKeyErr(fmt.Errorf("create processing record: %w", dup)) {
		t.Error("wrapped 1062 must be detected")
	}

	if isDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"}) {
		t.Error("deadlock is not a duplicate key")
	}
	if isDuplicateKeyErr(errors.New("connection refused")) {
		t.Error("plain error is not a duplicate key")
	}
	if isDuplicateKeyErr(nil) {
		t.Error("nil is not a duplicate key")
	}
}
