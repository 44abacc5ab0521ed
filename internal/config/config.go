package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取主配置及其 include 链，应用默认值并校验。
// include 按深度优先顺序合并，后加载的文件覆盖先加载的键。
func Load(path string) (*Config, error) {
	files, err := expandIncludes(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ORDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, file := range files {
		if err := overlayFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}

	var cfg Config
	decode := func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}
	if err := v.Unmarshal(&cfg, decode); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	// defaults only fill keys the operator never wrote, so an explicit
	// false survives
	explicit := make(keySet)
	markKeys("", v.AllSettings(), explicit)
	cfg.applyDefaults(explicit)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overlayFile(v *viper.Viper, path string) error {
	layer := viper.New()
	layer.SetConfigFile(path)
	if err := layer.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(layer.AllSettings())
}

// expandIncludes resolves the include chain rooted at path into a flat,
// depth-first ordered file list. Cycles are an error, repeats load once.
func expandIncludes(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := includeWalk{seen: map[string]bool{}, stack: map[string]bool{}}
	if err := w.visit(abs); err != nil {
		return nil, err
	}
	if len(w.ordered) == 0 {
		return []string{abs}, nil
	}
	return w.ordered, nil
}

type includeWalk struct {
	seen    map[string]bool
	stack   map[string]bool
	ordered []string
}

func (w *includeWalk) visit(path string) error {
	path = filepath.Clean(path)
	if w.stack[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if w.seen[path] {
		return nil
	}
	w.stack[path] = true
	defer delete(w.stack, path)

	includes, err := readIncludeList(path)
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	dir := filepath.Dir(path)
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(dir, inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	w.seen[path] = true
	w.ordered = append(w.ordered, path)
	return nil
}

func readIncludeList(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	raw := v.Get("include")
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			return trimNonEmpty(strs), nil
		}
		return nil, fmt.Errorf("include must be a string array")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include only supports strings")
		}
		out = append(out, s)
	}
	return trimNonEmpty(out), nil
}

func trimNonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// markKeys flattens the settings tree into dotted paths. A list marks
// its own path and descends into map elements so per-venue keys under
// venues.sources are tracked too.
func markKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, child := range val {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			if prefix != "" {
				k = prefix + "." + k
			}
			markKeys(k, child, dest)
		}
	case map[any]any:
		for k, child := range val {
			s, ok := k.(string)
			if !ok {
				continue
			}
			markKeys(prefix, map[string]any{s: child}, dest)
		}
	case []any:
		dest.mark(prefix)
		for _, item := range val {
			markKeys(prefix, item, dest)
		}
	default:
		dest.mark(prefix)
	}
}
