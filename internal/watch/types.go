// Package watch implements the repository update pipeline: resolving the
// configured watch lists, fetching the newest commits/releases across
// platforms, deduplicating against persisted markers, formatting the new
// activity, and fanning the rendered digest out to the delivery targets.
package watch

import (
	"context"

	"codewatch/internal/gitapi"
)

// Artifact is the opaque rendered digest handed to the transport.
type Artifact struct {
	MIME string
	Data []byte
}

func (a Artifact) IsZero() bool { return len(a.Data) == 0 }

type EntryKind string

const (
	EntryCommit  EntryKind = "commit"
	EntryRelease EntryKind = "release"
)

// ContentEntry is the tagged presentation record for one commit or
// release. Exactly one of Commit/Release is set, matching Kind.
type ContentEntry struct {
	Kind    EntryKind
	Commit  *CommitEntry
	Release *ReleaseEntry
}

type CommitEntry struct {
	Source string
	Repo   string
	Branch string

	AuthorName       string
	CommitterName    string
	AuthorAvatar     string
	CommitterAvatar  string
	AvatarsDiffer    bool
	AuthorInitial    string
	CommitterInitial string

	// TimeInfo is the humanized one- or two-actor sentence.
	TimeInfo string

	// Text is the commit message with the first line wrapped as a
	// headline; remaining lines verbatim.
	Text string

	// Stats is nil unless the payload carried both change statistics
	// and a file list.
	Stats *ChangeStats
}

type ChangeStats struct {
	Files     int
	Additions int
	Deletions int
}

type ReleaseEntry struct {
	Source string
	Repo   string
	Tag    string

	AuthorName    string
	AuthorAvatar  string
	AuthorInitial string

	TimeInfo string

	// Text is the headline-wrapped release name followed by the body
	// converted from markdown to HTML.
	Text string
}

// FetchRequest is one (platform, type) unit of work within a cycle.
type FetchRequest struct {
	Repos    []string
	Platform gitapi.Platform
	Tokens   []string
	Type     gitapi.DataType

	// Section is the dedup key segment for this request, e.g. "GitHub"
	// or "GiteeReleases".
	Section string
}

// Request identifies the requester of an on-demand run.
type Request struct {
	ChatID int64
	UserID int64
}

// Renderer turns a content batch into one shareable artifact.
type Renderer interface {
	Render(ctx context.Context, template string, req RenderRequest) (Artifact, error)
}

type RenderRequest struct {
	Entries []ContentEntry
	// CacheID tags the render for caching/debugging ("auto" for
	// scheduled runs, the requesting user otherwise).
	CacheID string
}

// Transport delivers artifacts and plain replies.
type Transport interface {
	SendToGroup(ctx context.Context, chatID int64, art Artifact) error
	SendToDirect(ctx context.Context, userID int64, art Artifact) error
	SendText(ctx context.Context, chatID int64, text string) error
}
