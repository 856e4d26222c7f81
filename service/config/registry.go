/*
 * @module service/config/registry
 * @description 配置注册表：递归扫描目录，按文件名前缀分类为 sql-config/job-config 文档，
 *              反序列化为 EndpointDef/JobDef，支持基于 mtime 轮询的热更新
 * @architecture 分层架构 - 业务服务层
 * @documentReference SPEC_FULL.md #4.1
 * @stateFlow Load -> 遍历目录 -> 按前缀分类 -> 反序列化 -> 校验或跳过 -> 原子替换只读快照
 * @rules 配置读写全程由 RWMutex 保护；单个文档解析失败不影响其余文档装载（partial success）
 * @dependencies orm-engine/service/models, gopkg.in/yaml.v3
 * @refs service/config/config_manager.go（热更新/通知器结构），original_source/config/ConfigManagers.java（前缀匹配装载算法）
 */

package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"orm-engine/service/models"
	"orm-engine/service/ormerr"

	"gopkg.in/yaml.v3"
)

const (
	sqlConfigPrefix    = "sql-config"
	jobConfigPrefix    = "job-config"
	dbConfigBaseName   = "db-config"
	authConfigBaseName = "auth-config"
	watchInterval      = 5 * time.Second
)

// knownExtensions 是 db-config/auth-config 固定文件名尝试装载时的后缀优先级。
var knownExtensions = []string{".yaml", ".yml", ".json"}

// ChangeListener 在一批配置文件重新装载完成后被通知一次，configType 为 "sql" 或 "job"。
type ChangeListener interface {
	OnConfigChanged(configType string)
}

// Registry 持有当前生效的端点/任务配置快照，以及可选的全局 DB/Auth 配置。
type Registry struct {
	baseDir         string
	globPattern     string
	watchEnabled    bool
	requireDBConfig bool

	mu       sync.RWMutex
	sqlDefs  map[string]*models.EndpointDef
	jobDefs  map[string]*models.JobDef
	dbConfig *models.DbConfig
	authCfg  *models.AuthConfig

	mtimes map[string]time.Time // 文件路径 -> 最后一次装载时看到的 mtime

	listenersMu sync.Mutex
	listeners   []ChangeListener

	stopWatch chan struct{}
}

var deserializers = map[string]func([]byte, any) error{
	".json": json.Unmarshal,
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
}

// NewRegistry 创建一个配置注册表并立即执行一次全量装载；pattern 可以是一个纯目录（等价于该目录下
// 任意深度的 "**"），也可以携带 **/*/? 通配符。watchEnabled 为 true 时后台轮询热更新；requireDBConfig
// 为 true 时，若装载批次结束仍未得到任何 DbConfig，构造直接失败（对应进程启动时的强制要求）。
func NewRegistry(pattern string, watchEnabled bool, requireDBConfig bool) (*Registry, error) {
	baseDir, glob := splitGlobBase(pattern)
	r := &Registry{
		baseDir:         baseDir,
		globPattern:     glob,
		watchEnabled:    watchEnabled,
		requireDBConfig: requireDBConfig,
		sqlDefs:         map[string]*models.EndpointDef{},
		jobDefs:         map[string]*models.JobDef{},
		mtimes:          map[string]time.Time{},
		authCfg:         models.DefaultAuthConfig(),
	}
	if err := r.Load(); err != nil {
		return nil, err
	}
	if requireDBConfig && r.GetDBConfig() == nil {
		return nil, ormerr.New(ormerr.KindConfig, "required db-config not found under "+baseDir)
	}
	if watchEnabled {
		r.stopWatch = make(chan struct{})
		go r.watch()
	}
	return r, nil
}

// splitGlobBase 把模式拆成不含通配符的目录前缀与剩余通配部分；纯目录模式剩余部分视为 "**"（任意深度全量扫描）。
func splitGlobBase(pattern string) (base, rel string) {
	segments := strings.Split(filepath.ToSlash(pattern), "/")
	i := 0
	for i < len(segments) && !strings.ContainsAny(segments[i], "*?") {
		i++
	}
	// strings.Join (not filepath.Join) preserves a leading empty segment, so an
	// absolute pattern's "/" prefix survives reconstruction.
	baseSlash := strings.Join(segments[:i], "/")
	if baseSlash == "" {
		baseSlash = "."
	}
	base = filepath.FromSlash(baseSlash)
	rel = strings.Join(segments[i:], "/")
	if rel == "" {
		rel = "**"
	}
	return base, rel
}

// globMatch 判断 relPath（相对 baseDir，使用 "/" 分隔）是否匹配 pattern；
// 支持 "**"（任意深度，包括零级）、"*"（一个路径分量内的任意字符）、"?"（任意单字符）。
func globMatch(pattern, relPath string) bool {
	var sb strings.Builder
	sb.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				sb.WriteString(".*")
				i++
				if i+1 < len(runes) && runes[i+1] == '/' {
					i++
				}
			} else {
				sb.WriteString("[^/]*")
			}
		case '?':
			sb.WriteString("[^/]")
		case '.', '+', '(', ')', '^', '$', '|', '[', ']', '{', '}', '\\':
			sb.WriteString("\\" + string(c))
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(filepath.ToSlash(relPath))
}

// Subscribe 注册一个配置变更监听器。
func (r *Registry) Subscribe(l ChangeListener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Load 遍历 baseDir，按文件名前缀分类装载全部 sql-config/job-config 文档。
func (r *Registry) Load() error {
	newSQL := map[string]*models.EndpointDef{}
	newJob := map[string]*models.JobDef{}
	newMtimes := map[string]time.Time{}

	err := filepath.WalkDir(r.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		deserialize, ok := deserializers[ext]
		if !ok {
			return nil
		}

		rel, relErr := filepath.Rel(r.baseDir, path)
		if relErr != nil {
			return nil
		}
		if !globMatch(r.globPattern, rel) {
			return nil
		}

		prefix := classify(filepath.Base(path))
		if prefix == "" {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Warn("config: failed to read file, skipping", "path", path, "error", readErr)
			return nil
		}

		switch prefix {
		case sqlConfigPrefix:
			batch := map[string]*models.EndpointDef{}
			if err := deserialize(data, &batch); err != nil {
				slog.Warn("config: failed to parse sql-config, skipping", "path", path, "error", err)
				return nil
			}
			for apiKey, def := range batch {
				if apiKey == "" || def == nil {
					slog.Warn("config: sql-config entry missing apiKey or value, skipping", "path", path, "apiKey", apiKey)
					continue
				}
				def.APIKey = apiKey
				newSQL[apiKey] = def
			}
		case jobConfigPrefix:
			batch := map[string]*models.JobDef{}
			if err := deserialize(data, &batch); err != nil {
				slog.Warn("config: failed to parse job-config, skipping", "path", path, "error", err)
				return nil
			}
			for jobKey, def := range batch {
				if jobKey == "" || def == nil {
					slog.Warn("config: job-config entry missing jobKey or value, skipping", "path", path, "jobKey", jobKey)
					continue
				}
				def.JobKey = jobKey
				newJob[jobKey] = def
			}
		}

		if info, statErr := d.Info(); statErr == nil {
			newMtimes[path] = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return ormerr.Wrap(ormerr.KindConfig, fmt.Sprintf("walk config dir %s failed", r.baseDir), err)
	}

	r.mu.Lock()
	dbConfig := r.dbConfig
	authCfg := r.authCfg
	r.mu.Unlock()

	if data, ext, ok := findKnownConfigFile(r.baseDir, dbConfigBaseName); ok {
		cfg := &models.DbConfig{}
		if parseErr := deserializers[ext](data, cfg); parseErr != nil {
			slog.Warn("config: failed to parse db-config, keeping previous value", "dir", r.baseDir, "error", parseErr)
		} else {
			dbConfig = cfg
		}
	}
	if data, ext, ok := findKnownConfigFile(r.baseDir, authConfigBaseName); ok {
		cfg := models.DefaultAuthConfig()
		if parseErr := deserializers[ext](data, cfg); parseErr != nil {
			slog.Warn("config: failed to parse auth-config, keeping previous value", "dir", r.baseDir, "error", parseErr)
		} else {
			authCfg = cfg
		}
	}

	r.mu.Lock()
	r.sqlDefs = newSQL
	r.jobDefs = newJob
	r.mtimes = newMtimes
	r.dbConfig = dbConfig
	r.authCfg = authCfg
	r.mu.Unlock()

	slog.Info("config: loaded", "sqlConfigs", len(newSQL), "jobConfigs", len(newJob), "dir", r.baseDir)
	return nil
}

// findKnownConfigFile 在 baseDir 下按固定文件名尝试每个已知后缀，直到命中为止。
func findKnownConfigFile(baseDir, base string) (data []byte, ext string, ok bool) {
	for _, e := range knownExtensions {
		path := filepath.Join(baseDir, base+e)
		b, err := os.ReadFile(path)
		if err == nil {
			return b, e, true
		}
	}
	return nil, "", false
}

// classify 按文件名最长匹配前缀分类；两个前缀都不匹配时返回空字符串（忽略该文件）。
func classify(filename string) string {
	switch {
	case strings.HasPrefix(filename, sqlConfigPrefix):
		return sqlConfigPrefix
	case strings.HasPrefix(filename, jobConfigPrefix):
		return jobConfigPrefix
	default:
		return ""
	}
}

// LoadDbConfig 从单个文件装载全局数据源配置（DB_CONFIG_PATH）。
func (r *Registry) LoadDbConfig(path string) error {
	data, ext, err := readWithExt(path)
	if err != nil {
		return err
	}
	deserialize, ok := deserializers[ext]
	if !ok {
		return ormerr.New(ormerr.KindConfig, "unsupported db config extension: "+ext)
	}
	cfg := &models.DbConfig{}
	if err := deserialize(data, cfg); err != nil {
		return ormerr.Wrap(ormerr.KindConfig, "parse db config failed", err)
	}
	r.mu.Lock()
	r.dbConfig = cfg
	r.mu.Unlock()
	return nil
}

// LoadAuthConfig 从单个文件装载全局默认鉴权配置（AUTH_CONFIG_PATH），未提供字段沿用默认值。
func (r *Registry) LoadAuthConfig(path string) error {
	data, ext, err := readWithExt(path)
	if err != nil {
		return err
	}
	deserialize, ok := deserializers[ext]
	if !ok {
		return ormerr.New(ormerr.KindConfig, "unsupported auth config extension: "+ext)
	}
	cfg := models.DefaultAuthConfig()
	if err := deserialize(data, cfg); err != nil {
		return ormerr.Wrap(ormerr.KindConfig, "parse auth config failed", err)
	}
	r.mu.Lock()
	r.authCfg = cfg
	r.mu.Unlock()
	return nil
}

func readWithExt(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", ormerr.Wrap(ormerr.KindConfig, "read config file failed: "+path, err)
	}
	return data, strings.ToLower(filepath.Ext(path)), nil
}

// GetSQLConfig 按 apiKey 查找端点定义。
func (r *Registry) GetSQLConfig(apiKey string) (*models.EndpointDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.sqlDefs[apiKey]
	return def, ok
}

// GetJobConfig 按 jobKey 查找任务定义。
func (r *Registry) GetJobConfig(jobKey string) (*models.JobDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.jobDefs[jobKey]
	return def, ok
}

// GetDBConfig 返回当前生效的全局数据源配置，可能为 nil（未装载）。
func (r *Registry) GetDBConfig() *models.DbConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dbConfig
}

// GetEffectiveAuth 按字段逐一合并全局默认与 override（端点/任务级），override 非零字段优先。
func (r *Registry) GetEffectiveAuth(override *models.AuthConfig) *models.AuthConfig {
	r.mu.RLock()
	base := r.authCfg
	r.mu.RUnlock()
	if base == nil {
		base = models.DefaultAuthConfig()
	}
	if override == nil {
		return base
	}

	merged := *base
	if override.SignatureExpire != 0 {
		merged.SignatureExpire = override.SignatureExpire
	}
	if override.RateLimitWindow != 0 {
		merged.RateLimitWindow = override.RateLimitWindow
	}
	if override.RateLimitMax != 0 {
		merged.RateLimitMax = override.RateLimitMax
	}
	if override.IntervalMin != 0 {
		merged.IntervalMin = override.IntervalMin
	}
	if override.SignatureAlgorithm != "" {
		merged.SignatureAlgorithm = override.SignatureAlgorithm
	}
	if override.AuditFieldPrefix != "" {
		merged.AuditFieldPrefix = override.AuditFieldPrefix
	}
	if override.AuditSignature != "" {
		merged.AuditSignature = override.AuditSignature
	}
	if override.AuditTimestamp != "" {
		merged.AuditTimestamp = override.AuditTimestamp
	}
	if override.Secret != "" {
		merged.Secret = override.Secret
	}
	if override.SlowLog != nil {
		merged.SlowLog = override.SlowLog
	}
	if override.SlowLogThreshold != 0 {
		merged.SlowLogThreshold = override.SlowLogThreshold
	}
	if override.LogLevel != "" {
		merged.LogLevel = override.LogLevel
	}
	return &merged
}

// watch 每 watchInterval 轮询一次 baseDir 下所有已知配置文件的 mtime，发现变化则触发全量重装载。
func (r *Registry) watch() {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopWatch:
			return
		case <-ticker.C:
			if r.hasChanges() {
				if err := r.Load(); err != nil {
					slog.Error("config: reload failed", "error", err)
					continue
				}
				r.notify("sql")
				r.notify("job")
			}
		}
	}
}

func (r *Registry) hasChanges() bool {
	r.mu.RLock()
	known := make(map[string]time.Time, len(r.mtimes))
	for k, v := range r.mtimes {
		known[k] = v
	}
	baseDir := r.baseDir
	glob := r.globPattern
	r.mu.RUnlock()

	changed := false
	_ = filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || changed {
			return nil
		}
		if classify(filepath.Base(path)) == "" {
			return nil
		}
		if rel, relErr := filepath.Rel(baseDir, path); relErr != nil || !globMatch(glob, rel) {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		prev, ok := known[path]
		if !ok || info.ModTime().After(prev) {
			changed = true
		}
		return nil
	})
	return changed
}

func (r *Registry) notify(configType string) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	for _, l := range r.listeners {
		l.OnConfigChanged(configType)
	}
}

// Close 停止后台热更新协程。
func (r *Registry) Close() {
	if r.stopWatch != nil {
		close(r.stopWatch)
	}
}
