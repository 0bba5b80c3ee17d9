package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/setting"
)

var (
	ErrDupName   = errs.NewFatal("duplicate table name")
	ErrDupConfig = errs.NewFatal("duplicate config name")
	ErrNoTable   = errs.NewWarn("table does not exist in catalog")
)

// Entry 將表名對應到設定檔檔名。
type Entry struct {
	Name       string `json:"name"`
	ConfigName string `json:"config"`
}

// Catalog 索引一或多個扁平 fs.FS 中的表設定檔。
type Catalog struct {
	byName map[string]Entry
	names  []string            // 用來穩定排序
	unique map[string]struct{} // 一個設定檔只能對應一張表
	config *multiFS
	frozen bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byName: map[string]Entry{},
		names:  make([]string, 0, 16),
		unique: map[string]struct{}{},
		config: multFS,
	}, nil
}

// Register 手動登錄表名與設定檔；整批檢查通過才寫入。
func (c *Catalog) Register(entries ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seenName := map[string]struct{}{}
	seenCfg := map[string]struct{}{}
	for i := range entries {
		e := &entries[i]
		e.Name = normalize(e.Name)
		if e.Name == "" {
			return errs.NewFatal("table name required")
		}
		if err := validFileName(e.ConfigName); err != nil {
			return err
		}
		if _, ok := c.config.index[e.ConfigName]; !ok {
			return errs.NewFatal(fmt.Sprintf("config file not found: %s", e.ConfigName))
		}
		if _, ok := c.byName[e.Name]; ok {
			return errs.WrapWithExtra(ErrDupName, "register", e.Name)
		}
		if _, ok := seenName[e.Name]; ok {
			return errs.WrapWithExtra(ErrDupName, "register", e.Name)
		}
		if _, ok := c.unique[e.ConfigName]; ok {
			return errs.WrapWithExtra(ErrDupConfig, "register", e.ConfigName)
		}
		if _, ok := seenCfg[e.ConfigName]; ok {
			return errs.WrapWithExtra(ErrDupConfig, "register", e.ConfigName)
		}
		seenName[e.Name] = struct{}{}
		seenCfg[e.ConfigName] = struct{}{}
	}
	for _, e := range entries {
		c.unique[e.ConfigName] = struct{}{}
		c.byName[e.Name] = e
		c.names = append(c.names, e.Name)
	}
	slices.Sort(c.names)
	return nil
}

// Discover 讀取所有尚未登錄的設定檔，以檔內的 name 自動登錄。
// 任何一個檔案解析失敗都會中止，且不登錄任何表。
func (c *Catalog) Discover() error {
	entries := make([]Entry, 0, len(c.config.index))
	for _, file := range c.config.Names() {
		if _, ok := c.unique[file]; ok {
			continue
		}
		ts, err := c.load(file)
		if err != nil {
			return errs.WrapWithExtra(err, "discover", file)
		}
		entries = append(entries, Entry{Name: ts.Name, ConfigName: file})
	}
	return c.Register(entries...)
}

func (c *Catalog) Get(name string) (Entry, bool) {
	e, ok := c.byName[normalize(name)]
	return e, ok
}

// Names 回傳排序後的表名複本。
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

func (c *Catalog) All() []Entry {
	out := make([]Entry, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byName[n])
	}
	return out
}

func (c *Catalog) Cfg() *multiFS {
	return c.config
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

// TableSetting
//
// 讀取 fs.FS 中的 YAML/JSON 設定、正規化並執行基本檢查後回傳
func (c *Catalog) TableSetting(name string) (*setting.TableSetting, error) {
	e, ok := c.Get(name)
	if !ok {
		return nil, errs.WrapWithExtra(ErrNoTable, "table setting", name)
	}
	ts, err := c.load(e.ConfigName)
	if err != nil {
		return nil, err
	}
	if ts.Name != e.Name {
		return nil, errs.NewFatal(fmt.Sprintf("config %s declares table %q, registered as %q", e.ConfigName, ts.Name, e.Name))
	}
	return ts, nil
}

func (c *Catalog) load(file string) (*setting.TableSetting, error) {
	src, ok := c.config.GetFS(file)
	if !ok {
		return nil, errs.NewWarn("file name does not exist in catalog")
	}
	raw, err := fs.ReadFile(src, file)
	if err != nil {
		return nil, errs.Wrap(err, "catalog read file error")
	}
	return parseTableSettingByExt(file, raw)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isConfigFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must be a basename; no / \\ :)", file))
	}
	if !isConfigFile(file) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must end with .yaml, .yml, or .json)", file))
	}
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (cannot start with '.')", file))
	}
	return nil
}

func parseTableSettingByExt(filename string, raw []byte) (*setting.TableSetting, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return setting.GetTableSettingByYAML(raw)
	case ".json":
		return setting.GetTableSettingByJSON(raw)
	default:
		return nil, errs.NewFatal(fmt.Sprintf("unsupported config format: %q", filename))
	}
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 64),
	}

	for i := range src {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 設定目錄必須是扁平的，只允許根目錄
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}
			if !isConfigFile(path) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}

// Names 回傳排序後的設定檔名。
func (m *multiFS) Names() []string {
	out := make([]string, 0, len(m.index))
	for n := range m.index {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Sources exposes config FS sources for read-only iteration.
func (m *multiFS) Sources() []fs.FS {
	if m == nil || len(m.src) == 0 {
		return nil
	}
	return append([]fs.FS(nil), m.src...)
}
