package watch

import (
	"bytes"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"

	"codewatch/internal/gitapi"
)

// Formatting is pure: missing optional fields (accounts, avatars, stats)
// degrade to empty/placeholder values, never abort.

const headOpen, headClose = "<b>", "</b>"

// FormatCommit builds the presentation record for the newest commit of
// one repository.
func FormatCommit(c gitapi.Commit, platform gitapi.Platform, repo, branch string) ContentEntry {
	authorName := c.Commit.Author.Name
	committerName := c.Commit.Committer.Name

	var timeInfo string
	if authorName == committerName {
		timeInfo = authorName + " authored " + timeAgo(c.Commit.Author.Date)
	} else {
		timeInfo = authorName + " authored " + timeAgo(c.Commit.Author.Date) +
			", " + committerName + " committed " + timeAgo(c.Commit.Committer.Date)
	}

	authorAvatar := actorAvatar(c.Author)
	committerAvatar := actorAvatar(c.Committer)

	entry := &CommitEntry{
		Source:           string(platform),
		Repo:             repo,
		Branch:           branch,
		AuthorName:       authorName,
		CommitterName:    committerName,
		AuthorAvatar:     authorAvatar,
		CommitterAvatar:  committerAvatar,
		AvatarsDiffer:    authorAvatar != committerAvatar,
		AuthorInitial:    initial(authorName),
		CommitterInitial: initial(committerName),
		TimeInfo:         timeInfo,
		Text:             formatMessage(c.Commit.Message),
	}

	// Stats render only when the payload carried both the statistics
	// object and the file list; partial presence is omitted entirely.
	if c.Stats != nil && c.Files != nil {
		entry.Stats = &ChangeStats{
			Files:     len(c.Files),
			Additions: c.Stats.Additions,
			Deletions: c.Stats.Deletions,
		}
	}

	return ContentEntry{Kind: EntryCommit, Commit: entry}
}

// FormatRelease builds the presentation record for the newest release of
// one repository.
func FormatRelease(r gitapi.Release, platform gitapi.Platform, repo string) ContentEntry {
	var login, name, avatar string
	if r.Author != nil {
		login, name, avatar = r.Author.Login, r.Author.Name, r.Author.AvatarURL
	}
	authorName := login
	if authorName == "" {
		authorName = name
	}

	timeInfo := timeAgo(r.PublishedAt)
	if authorName != "" {
		timeInfo = authorName + " released " + timeInfo
	}

	entry := &ReleaseEntry{
		Source:        string(platform),
		Repo:          repo,
		Tag:           r.TagName,
		AuthorName:    authorName,
		AuthorAvatar:  avatar,
		AuthorInitial: initial(authorName),
		TimeInfo:      timeInfo,
		Text:          headOpen + r.Name + headClose + "\n" + markdownToHTML(r.Body),
	}

	return ContentEntry{Kind: EntryRelease, Release: entry}
}

// formatMessage wraps the first line of a commit message as the headline
// and keeps the remaining lines verbatim, embedded breaks included.
func formatMessage(message string) string {
	lines := strings.Split(message, "\n")
	lines[0] = headOpen + lines[0] + headClose
	return strings.Join(lines, "\n")
}

func markdownToHTML(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		// Conversion failure degrades to the raw text.
		return md
	}
	return strings.TrimRight(buf.String(), "\n")
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func actorAvatar(a *gitapi.Actor) string {
	if a == nil {
		return ""
	}
	return a.AvatarURL
}

// initial returns the first rune of a display name, "?" when absent.
func initial(name string) string {
	for _, r := range name {
		return string(r)
	}
	return "?"
}
