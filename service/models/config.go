/*
 * @module service/models/config
 * @description 配置文档的数据模型：EndpointDef（sql-config）、JobDef（job-config）、AuthConfig、DbConfig
 * @architecture 数据模型层
 * @documentReference SPEC_FULL.md #3
 * @dependencies 无
 */

package models

// ParamsMapping 描述一个运行期参数如何从 StandardParams 中取值、校验、转换类型。
type ParamsMapping struct {
	Field      string      `json:"field" yaml:"field"`
	Alias      string      `json:"alias,omitempty" yaml:"alias,omitempty"`
	Source     string      `json:"source,omitempty" yaml:"source,omitempty"` // path/query/body/all
	DataType   string      `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Validators []Validator `json:"validators,omitempty" yaml:"validators,omitempty"`
}

// Key 返回该映射在 resolved map 中应使用的 key：alias 优先，否则是 field。
func (m ParamsMapping) Key() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Field
}

// Validator 是单条校验规则：type 决定校验语义，param 是该类型需要的参数（min 的数值、enum 的列表……）。
type Validator struct {
	Type    string `json:"type" yaml:"type"`
	Param   any    `json:"param,omitempty" yaml:"param,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ConditionSchema 描述一个查询参数如何展开为一个或多个列上的过滤条件。
type ConditionSchema struct {
	Fields   []string `json:"fields" yaml:"fields"`
	Operator string   `json:"operator,omitempty" yaml:"operator,omitempty"`
	Logic    string   `json:"logic,omitempty" yaml:"logic,omitempty"` // AND/OR, 默认 AND
}

// SortConfig 描述一个排序字段。
type SortConfig struct {
	Field string `json:"field" yaml:"field"`
	Order string `json:"order,omitempty" yaml:"order,omitempty"` // asc/desc，默认 asc
}

// DbDrive 标识一个逻辑数据源：方言 + 主机别名。
type DbDrive struct {
	Drive string `json:"drive" yaml:"drive"` // mysql/mssql/sqlite
	Host  string `json:"host" yaml:"host"`
}

// Key 返回该数据源在连接缓存中使用的键：dialect+host 原样拼接。
func (d DbDrive) Key() string {
	return d.Drive + d.Host
}

// EndpointDef 是 sql-config 文档里一个 apiKey 对应的声明式端点描述。
type EndpointDef struct {
	APIKey                string                     `json:"apiKey" yaml:"apiKey"`
	Name                  string                     `json:"name,omitempty" yaml:"name,omitempty"`
	Comments              string                     `json:"comments,omitempty" yaml:"comments,omitempty"`
	Author                string                     `json:"author,omitempty" yaml:"author,omitempty"`
	Department            string                     `json:"department,omitempty" yaml:"department,omitempty"`
	Group                 string                     `json:"group,omitempty" yaml:"group,omitempty"`
	TableName             string                     `json:"tableName" yaml:"tableName"`
	DbDrive               DbDrive                    `json:"dbDrive" yaml:"dbDrive"`
	Field                 string                     `json:"field,omitempty" yaml:"field,omitempty"`
	ParamsMapping         []ParamsMapping            `json:"paramsMapping,omitempty" yaml:"paramsMapping,omitempty"`
	ConditionSchema       map[string]ConditionSchema `json:"conditionSchema,omitempty" yaml:"conditionSchema,omitempty"`
	Sort                  []SortConfig               `json:"sort,omitempty" yaml:"sort,omitempty"`
	MutableFields         []string                   `json:"mutableFields,omitempty" yaml:"mutableFields,omitempty"`
	PK                    string                     `json:"pk,omitempty" yaml:"pk,omitempty"`
	Action                string                     `json:"action,omitempty" yaml:"action,omitempty"`
	PresetParams          map[string]any             `json:"presetParams,omitempty" yaml:"presetParams,omitempty"`
	ShallowToDeepThreshold int                       `json:"shallowToDeepThreshold,omitempty" yaml:"shallowToDeepThreshold,omitempty"`
	RequireAuth           bool                       `json:"requireAuth,omitempty" yaml:"requireAuth,omitempty"`
	AuthConfig            *AuthConfig                `json:"authConfig,omitempty" yaml:"authConfig,omitempty"`
}

// EffectivePK 返回配置的 pk，未配置时回退到 "id"。
func (e *EndpointDef) EffectivePK() string {
	if e.PK == "" {
		return "id"
	}
	return e.PK
}

// EffectiveField 返回配置的投影列表，未配置时回退到 "*"。
func (e *EndpointDef) EffectiveField() string {
	if e.Field == "" {
		return "*"
	}
	return e.Field
}

// JobStep 是 job-config 里的单个步骤：api 或 script 二选一。
type JobStep struct {
	Type          string `json:"type" yaml:"type"` // api/script
	APIKey        string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	Operation     string `json:"operation,omitempty" yaml:"operation,omitempty"`
	ScriptType    string `json:"scriptType,omitempty" yaml:"scriptType,omitempty"`
	ScriptContent string `json:"scriptContent,omitempty" yaml:"scriptContent,omitempty"`
}

// JobDef 是 job-config 文档里一个 jobKey 对应的有序步骤流。
type JobDef struct {
	JobKey      string      `json:"jobKey" yaml:"jobKey"`
	Transaction *bool       `json:"transaction,omitempty" yaml:"transaction,omitempty"`
	Jobs        []JobStep   `json:"jobs" yaml:"jobs"`
	RequireAuth bool        `json:"requireAuth,omitempty" yaml:"requireAuth,omitempty"`
	AuthConfig  *AuthConfig `json:"authConfig,omitempty" yaml:"authConfig,omitempty"`
}

// IsTransactional 返回该任务是否在事务信封下运行，默认 true。
func (j *JobDef) IsTransactional() bool {
	return j.Transaction == nil || *j.Transaction
}

// AuthConfig 是签名校验与限流的配置，可以是全局默认，也可以是端点/任务级覆盖。
type AuthConfig struct {
	SignatureExpire    int    `json:"signatureExpire,omitempty" yaml:"signatureExpire,omitempty"`
	RateLimitWindow    int    `json:"rateLimitWindow,omitempty" yaml:"rateLimitWindow,omitempty"`
	RateLimitMax       int    `json:"rateLimitMax,omitempty" yaml:"rateLimitMax,omitempty"`
	IntervalMin        int    `json:"intervalMin,omitempty" yaml:"intervalMin,omitempty"`
	SignatureAlgorithm string `json:"signatureAlgorithm,omitempty" yaml:"signatureAlgorithm,omitempty"`
	AuditFieldPrefix   string `json:"auditFieldPrefix,omitempty" yaml:"auditFieldPrefix,omitempty"`
	AuditSignature     string `json:"auditSignature,omitempty" yaml:"auditSignature,omitempty"`
	AuditTimestamp     string `json:"auditTimestamp,omitempty" yaml:"auditTimestamp,omitempty"`
	Secret             string `json:"secret,omitempty" yaml:"secret,omitempty"`
	SlowLog            *bool  `json:"slowLog,omitempty" yaml:"slowLog,omitempty"`
	SlowLogThreshold   int    `json:"slowLogThreshold,omitempty" yaml:"slowLogThreshold,omitempty"`
	LogLevel           string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
}

// DefaultAuthConfig 返回 SPEC_FULL.md #3 里列出的默认值。
func DefaultAuthConfig() *AuthConfig {
	t := true
	return &AuthConfig{
		SignatureExpire:    300,
		RateLimitWindow:    60,
		RateLimitMax:       100,
		IntervalMin:        0,
		SignatureAlgorithm: "sha256",
		AuditFieldPrefix:   "audit_",
		AuditSignature:     "signature",
		AuditTimestamp:     "timestamp",
		SlowLog:            &t,
		SlowLogThreshold:   1000,
		LogLevel:           "info",
	}
}

// IsSlowLogEnabled 读取 SlowLog，nil 视为 true（修正原始 Java 源里对装箱 Boolean 的空值误判）。
func (a *AuthConfig) IsSlowLogEnabled() bool {
	return a.SlowLog == nil || *a.SlowLog
}

// EffectiveSlowLogThreshold 返回慢查询阈值，0/未配置回退到 1000ms。
func (a *AuthConfig) EffectiveSlowLogThreshold() int {
	if a.SlowLogThreshold == 0 {
		return 1000
	}
	return a.SlowLogThreshold
}

// PoolConfig 是一个连接池的策略参数。
type PoolConfig struct {
	MaxPoolSize       int   `json:"maxPoolSize,omitempty" yaml:"maxPoolSize,omitempty"`
	MinIdle           int   `json:"minIdle,omitempty" yaml:"minIdle,omitempty"`
	ConnectionTimeout int64 `json:"connectionTimeout,omitempty" yaml:"connectionTimeout,omitempty"` // ms
	IdleTimeout       int64 `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty"`             // ms
}

// DefaultPoolConfig 返回 original_source DbConfig.PoolConfig 的默认值。
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxPoolSize: 10, MinIdle: 0, ConnectionTimeout: 30000, IdleTimeout: 600000}
}

// MySQLConfig / MssqlConfig / SqliteConfig 描述单个逻辑数据源的连接信息。
type MySQLConfig struct {
	Host     string     `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int        `json:"port,omitempty" yaml:"port,omitempty"`
	Database string     `json:"database" yaml:"database"`
	User     string     `json:"user" yaml:"user"`
	Password string     `json:"password" yaml:"password"`
	Pool     PoolConfig `json:"pool,omitempty" yaml:"pool,omitempty"`
}

type MssqlConfig struct {
	Host     string     `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int        `json:"port,omitempty" yaml:"port,omitempty"`
	Database string     `json:"database" yaml:"database"`
	User     string     `json:"user" yaml:"user"`
	Password string     `json:"password" yaml:"password"`
	Pool     PoolConfig `json:"pool,omitempty" yaml:"pool,omitempty"`
}

type SqliteConfig struct {
	FilePath string     `json:"filePath" yaml:"filePath"`
	Pool     PoolConfig `json:"pool,omitempty" yaml:"pool,omitempty"`
}

// DbConfig 是三种方言下，逻辑数据源名 -> 连接信息的映射。
type DbConfig struct {
	MySQL  map[string]MySQLConfig `json:"mysql,omitempty" yaml:"mysql,omitempty"`
	MSSQL  map[string]MssqlConfig `json:"mssql,omitempty" yaml:"mssql,omitempty"`
	SQLite map[string]SqliteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
}
