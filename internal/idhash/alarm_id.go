// Package idhash derives deterministic identifiers.
package idhash

import (
	"fmt"

	"github.com/google/uuid"
)

// alarmNamespace scopes alarm IDs so they never collide with other SHA1 UUIDs.
var alarmNamespace = uuid.MustParse("5f0c7c1e-8d2a-4f6b-9a43-2f1d6c0e9b71")

// AlarmID computes a deterministic alarm_id.
// Formula: UUIDv5(namespace, monitor|mint|bucket_timestamp)
// The same bucket of the same mint seen by the same monitor always maps to
// the same ID, so re-inserting an alarm is a duplicate-key no-op.
func AlarmID(monitor, mint string, bucketTimestamp int64) string {
	data := fmt.Sprintf("%s|%s|%d", monitor, mint, bucketTimestamp)
	return uuid.NewSHA1(alarmNamespace, []byte(data)).String()
}
