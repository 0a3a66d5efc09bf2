package gitp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the well-known manifest filename checked into every
// composed repository (spec §3).
const ManifestName = ".gitp_manifest"

// EntryType distinguishes a cloned repo entry from a top-level-only overlay.
type EntryType string

const (
	EntryRepo    EntryType = "repo"
	EntryOverlay EntryType = "overlay"
)

// RepoEntry is one child-path's declared state inside a Manifest (spec §3).
type RepoEntry struct {
	Type        EntryType `yaml:"type,omitempty"`
	URL         string    `yaml:"url,omitempty"`
	Branch      string    `yaml:"branch,omitempty"`
	Commit      string    `yaml:"commit,omitempty"`
	Link        string    `yaml:"link,omitempty"`
	LinkNewest  bool      `yaml:"link_newest,omitempty"`
	LinkFilter  string    `yaml:"link_filter,omitempty"`
}

// EffectiveBranch returns the declared branch, defaulting to "master" when
// neither a commit pin nor a link is set (spec §3).
func (e *RepoEntry) EffectiveBranch() string {
	if e.Branch != "" {
		return e.Branch
	}
	if e.Commit != "" || e.Link != "" {
		return ""
	}
	return "master"
}

// IsOverlay reports whether this entry is a top-level-only overlay.
func (e *RepoEntry) IsOverlay() bool { return e.Type == EntryOverlay }

// Manifest is the parsed contents of one .gitp_manifest file.
type Manifest struct {
	LockServer string               `yaml:"lock_server,omitempty"`
	PostClone  []string             `yaml:"post_clone,omitempty"`
	PostPull   []string             `yaml:"post_pull,omitempty"`
	Repos      map[string]*RepoEntry `yaml:"repos,omitempty"`

	// dir is the directory this manifest was loaded from/will be saved to;
	// not serialized.
	dir string
}

// rawManifest mirrors Manifest's wire shape. Top-level keys not listed here
// are ignored on decode; unknown keys are rejected only inside repos
// entries (see checkUnknownKeys).
type rawManifest struct {
	LockServer string                `yaml:"lock_server,omitempty"`
	PostClone  []string              `yaml:"post_clone,omitempty"`
	PostPull   []string              `yaml:"post_pull,omitempty"`
	Repos      map[string]yaml.Node  `yaml:"repos,omitempty"`
}

// rawEntryKeys mirrors RepoEntry's wire keys; unknown-key detection itself
// goes through knownEntryKeys in checkUnknownKeys.
type rawEntryKeys struct {
	Type       *string `yaml:"type"`
	URL        *string `yaml:"url"`
	Branch     *string `yaml:"branch"`
	Commit     *string `yaml:"commit"`
	Link       *string `yaml:"link"`
	LinkNewest *bool   `yaml:"link_newest"`
	LinkFilter *string `yaml:"link_filter"`
}

var knownEntryKeys = map[string]bool{
	"type": true, "url": true, "branch": true, "commit": true,
	"link": true, "link_newest": true, "link_filter": true,
}

// ManifestCache is a process-wide cache of parsed manifests keyed by
// canonical directory path, invalidated by file modification time. It is
// not a write-back cache: Save writes straight to disk, then records the
// saved manifest under the file's new mtime (spec §4.2).
type ManifestCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	m     *Manifest
	mtime time.Time
}

// NewManifestCache builds an empty cache.
func NewManifestCache() *ManifestCache {
	return &ManifestCache{entries: make(map[string]cacheEntry)}
}

func (c *ManifestCache) get(dir string) (*Manifest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[dir]
	if !ok {
		return nil, false
	}

	fi, err := os.Stat(filepath.Join(dir, ManifestName))
	if err != nil {
		delete(c.entries, dir)
		return nil, false
	}
	if !fi.ModTime().Equal(e.mtime) {
		delete(c.entries, dir)
		return nil, false
	}
	return e.m, true
}

func (c *ManifestCache) put(dir string, m *Manifest) {
	fi, err := os.Stat(filepath.Join(dir, ManifestName))
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dir] = cacheEntry{m: m, mtime: fi.ModTime()}
}

func (c *ManifestCache) invalidate(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, dir)
}

// Load parses the manifest in dir, or returns (nil, nil) if none exists.
func (cache *ManifestCache) Load(dir string) (*Manifest, error) {
	dir = filepath.Clean(dir)
	if cache != nil {
		if m, ok := cache.get(dir); ok {
			return m, nil
		}
	}

	path := filepath.Join(dir, ManifestName)
	regular, err := IsRegular(path)
	if err != nil {
		return nil, NewFsError("stat", path, err)
	}
	if !regular {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewFsError("read", path, err)
	}

	m, err := parseManifest(path, data)
	if err != nil {
		return nil, err
	}
	m.dir = dir

	if cache != nil {
		cache.put(dir, m)
	}
	return m, nil
}

// LoadOrCreate loads dir's manifest, creating an empty one on disk if none
// exists yet (spec §3 lifecycle: "created empty on first sync/new in a bare
// parent").
func (cache *ManifestCache) LoadOrCreate(dir string) (*Manifest, error) {
	m, err := cache.Load(dir)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	m = &Manifest{dir: filepath.Clean(dir), Repos: make(map[string]*RepoEntry)}
	if err := cache.Save(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ParentOf returns the manifest of dir's parent directory, or (nil, nil) if
// the parent has none (i.e. dir is a top-level repo).
func (cache *ManifestCache) ParentOf(dir string) (*Manifest, error) {
	parent := filepath.Dir(filepath.Clean(dir))
	return cache.Load(parent)
}

func parseManifest(path string, data []byte) (*Manifest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return &Manifest{Repos: make(map[string]*RepoEntry)}, nil
	}

	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, NewParseError(path, "invalid YAML", err)
	}

	m := &Manifest{
		LockServer: raw.LockServer,
		PostClone:  raw.PostClone,
		PostPull:   raw.PostPull,
		Repos:      make(map[string]*RepoEntry, len(raw.Repos)),
	}

	seen := make(map[string]bool, len(raw.Repos))
	for rawKey, node := range raw.Repos {
		key := strings.TrimRight(rawKey, "/")
		if strings.Contains(key, "..") {
			return nil, NewParseError(path, fmt.Sprintf("child path %q must not contain ..", rawKey), nil)
		}
		if seen[key] {
			return nil, NewParseError(path, fmt.Sprintf("duplicate child path %q", key), nil)
		}
		seen[key] = true

		if err := checkUnknownKeys(path, key, &node); err != nil {
			return nil, err
		}

		var e RepoEntry
		if err := node.Decode(&e); err != nil {
			return nil, NewParseError(path, fmt.Sprintf("entry %q", key), err)
		}
		if e.Type == "" {
			e.Type = EntryRepo
		}
		if e.Type == EntryRepo && e.URL == "" && e.Link == "" {
			return nil, NewParseError(path, fmt.Sprintf("entry %q: repo entries require url or link", key), nil)
		}
		if e.Type == EntryOverlay && e.Link == "" {
			return nil, NewParseError(path, fmt.Sprintf("entry %q: overlay entries require link", key), nil)
		}
		if e.LinkFilter != "" {
			if _, err := compileRegex(e.LinkFilter); err != nil {
				return nil, NewParseError(path, fmt.Sprintf("entry %q: invalid link_filter", key), err)
			}
		}
		m.Repos[key] = &e
	}

	return m, nil
}

func checkUnknownKeys(path, entryKey string, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return NewParseError(path, fmt.Sprintf("entry %q must be a mapping", entryKey), nil)
	}
	for i := 0; i < len(node.Content); i += 2 {
		k := node.Content[i].Value
		if !knownEntryKeys[k] {
			return NewParseError(path, fmt.Sprintf("entry %q: unknown key %q", entryKey, k), nil)
		}
	}
	return nil
}

// Save serializes m back to its directory with a deterministic key order
// (spec §4.2), then records m in the cache under the file's new mtime.
func (cache *ManifestCache) Save(m *Manifest) error {
	if m.dir == "" {
		return NewFsError("save", ManifestName, fmt.Errorf("manifest has no associated directory"))
	}
	path := filepath.Join(m.dir, ManifestName)

	data, err := encodeManifest(m)
	if err != nil {
		return NewParseError(path, "encoding manifest", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewFsError("write", path, err)
	}

	if cache != nil {
		cache.invalidate(m.dir)
		cache.put(m.dir, m)
	}
	return nil
}

// Dir returns the directory a manifest was loaded from or will be saved to.
func (m *Manifest) Dir() string { return m.dir }

// SetDir associates m with dir, used when constructing a fresh manifest
// that has not yet been saved.
func (m *Manifest) SetDir(dir string) { m.dir = filepath.Clean(dir) }

// SortedChildPaths returns the manifest's child paths in a stable order,
// used everywhere recursion order must be deterministic (spec §5).
func (m *Manifest) SortedChildPaths() []string {
	keys := make([]string, 0, len(m.Repos))
	for k := range m.Repos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// encodeManifest renders m with a fixed top-level and per-entry key order,
// since yaml.v3's map encoding is otherwise unordered and would make every
// save a spurious diff.
func encodeManifest(m *Manifest) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	addScalar := func(key, val string) {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: val})
	}
	addSeq := func(key string, vals []string) {
		if len(vals) == 0 {
			return
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, v := range vals {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key}, seq)
	}

	if m.LockServer != "" {
		addScalar("lock_server", m.LockServer)
	}
	addSeq("post_clone", m.PostClone)
	addSeq("post_pull", m.PostPull)

	if len(m.Repos) > 0 {
		reposNode := &yaml.Node{Kind: yaml.MappingNode}
		for _, key := range m.SortedChildPaths() {
			e := m.Repos[key]
			entryNode := encodeEntry(e)
			reposNode.Content = append(reposNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key}, entryNode)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "repos"}, reposNode)
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	return yaml.Marshal(doc)
}

func encodeEntry(e *RepoEntry) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key, val string) {
		if val == "" {
			return
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: val})
	}
	if e.Type != "" && e.Type != EntryRepo {
		add("type", string(e.Type))
	}
	add("url", e.URL)
	add("branch", e.Branch)
	add("commit", e.Commit)
	add("link", e.Link)
	if e.LinkNewest {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "link_newest"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: "true", Tag: "!!bool"})
	}
	add("link_filter", e.LinkFilter)
	return n
}
