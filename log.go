package hived

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// traceLevel is used for chatty, per-node-mutation log lines — node
// creation and leaf updates — the way
// direktiv-vorteil/pkg/elog.CLI.Debugf gates its own chattiest output
// behind a level check before ever touching logrus.
const traceLevel = logrus.TraceLevel

// newSessionLogger wraps l with a "session" field set to a freshly minted
// UUID, so that log lines from concurrent test runs against different
// files — or successive Open/Close cycles against the same file — can be
// told apart without plumbing a request ID through every call.
func newSessionLogger(l *logrus.Logger, path string) (*logrus.Entry, uuid.UUID) {
	id := uuid.New()
	return l.WithFields(logrus.Fields{
		"session": id.String(),
		"path":    path,
	}), id
}

// logf emits a formatted message at level, a no-op cost-wise when that
// level is disabled since logrus.Entry itself checks IsLevelEnabled
// before formatting.
func (db *Database) logf(level logrus.Level, format string, args ...any) {
	db.log.Logf(level, format, args...)
}
