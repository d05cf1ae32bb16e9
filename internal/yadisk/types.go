package yadisk

import "time"

// RemoteFile describes one file in the cloud folder, as reported by the
// folder listing endpoint.
type RemoteFile struct {
	Name     string
	Size     int64
	Modified time.Time
}
