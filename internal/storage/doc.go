// Package storage persists the last-seen update markers that the watch
// pipeline dedups against. The store is a plain key/value surface:
// keys are "DF:CodeUpdate:<section>:<owner/repo[:branch]>", values are
// small JSON blobs owned by the caller.
package storage
