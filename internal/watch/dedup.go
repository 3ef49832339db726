package watch

import (
	"context"
	"encoding/json"

	"codewatch/internal/storage"
	logx "codewatch/pkg/logx"
)

// KeyPrefix is the namespace of all persisted update markers. Kept
// compatible with the stored format of earlier deployments.
const KeyPrefix = "DF:CodeUpdate"

// marker is the persisted value: a single-element list holding the last
// seen commit SHA or release node id.
type marker struct {
	Shacode string `json:"shacode"`
}

// Dedup decides "new" vs "already seen" against the persisted store.
// With a nil store everything looks new and nothing is recorded.
type Dedup struct {
	store storage.Store
	log   logx.Logger
}

func NewDedup(store storage.Store, log logx.Logger) *Dedup {
	return &Dedup{store: store, log: log}
}

func dedupKey(section, repo string) string {
	return KeyPrefix + ":" + section + ":" + repo
}

// IsUpToDate reports whether the stored marker for repo exactly equals
// newID. Absence of a record, or any other stored value, means false.
func (d *Dedup) IsUpToDate(ctx context.Context, section, repo, newID string) bool {
	if d.store == nil || newID == "" {
		return false
	}
	raw, ok, err := d.store.Get(ctx, dedupKey(section, repo))
	if err != nil {
		d.log.Warn("marker read failed", logx.String("repo", repo), logx.Err(err))
		return false
	}
	if !ok {
		return false
	}
	var ms []marker
	if err := json.Unmarshal([]byte(raw), &ms); err != nil || len(ms) == 0 {
		return false
	}
	return ms[0].Shacode == newID
}

// Record persists newID as the last-seen marker. Only scheduled runs
// write; on-demand runs always report current state and must not disturb
// what the next scheduled run compares against.
func (d *Dedup) Record(ctx context.Context, section, repo, newID string, scheduled bool) {
	if !scheduled || d.store == nil {
		return
	}
	b, err := json.Marshal([]marker{{Shacode: newID}})
	if err != nil {
		return
	}
	if err := d.store.Put(ctx, dedupKey(section, repo), string(b)); err != nil {
		d.log.Warn("marker write failed", logx.String("repo", repo), logx.Err(err))
	}
}
