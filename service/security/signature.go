/*
 * @module service/security/signature
 * @description HMAC/摘要签名校验：从合并参数构造规范字符串，计算并比对签名
 * @architecture 核心领域层 - 安全校验
 * @documentReference SPEC_FULL.md #4.5
 * @refs original_source/security/SignatureValidator.java
 * @dependencies crypto/md5, crypto/sha1, crypto/sha256, crypto/hmac
 */

package security

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strconv"
	"strings"
	"time"

	"orm-engine/service/models"
	"orm-engine/service/ormerr"

	"github.com/spf13/cast"
)

// Validator 校验一次请求的签名，返回用于审计日志的规范字符串。
type Validator struct {
	auth *models.AuthConfig
}

// NewValidator 用一个有效（已合并全局与端点覆盖）的 AuthConfig 构造签名校验器。
func NewValidator(auth *models.AuthConfig) *Validator {
	return &Validator{auth: auth}
}

// Validate 执行 SPEC_FULL.md #4.5 描述的六步流程，成功时返回规范字符串。
func (v *Validator) Validate(params map[string]any) (string, error) {
	a := v.auth
	tsField := fallback(a.AuditTimestamp, "timestamp")
	sigField := fallback(a.AuditSignature, "signature")

	tsRaw, tsOk := params[tsField]
	sigRaw, sigOk := params[sigField]
	if !tsOk || !sigOk || tsRaw == nil || sigRaw == nil {
		return "", ormerr.New(ormerr.KindSignature, "missing timestamp or signature")
	}

	ts, err := cast.ToInt64E(tsRaw)
	if err != nil {
		return "", ormerr.Wrap(ormerr.KindSignature, "malformed timestamp", err)
	}
	signature := cast.ToString(sigRaw)

	now := time.Now().Unix()
	expire := a.SignatureExpire
	if expire == 0 {
		expire = models.DefaultAuthConfig().SignatureExpire
	}
	if now-ts > int64(expire) {
		return "", ormerr.New(ormerr.KindSignature, "signature expired")
	}

	canonical := canonicalString(params, fallback(a.AuditFieldPrefix, "audit_"), sigField, tsField, cast.ToString(tsRaw))

	key := signingKey(a.Secret, now)
	computed, err := computeSignature(canonical, key, a.SignatureAlgorithm)
	if err != nil {
		return "", err
	}

	if computed != signature {
		return "", ormerr.New(ormerr.KindSignature, "verification failed")
	}
	return canonical, nil
}

// canonicalString 扫描 audit_ 前缀键（升序），拼接 k=v&，末尾追加 timestamp=<ts>。
func canonicalString(params map[string]any, prefix, sigField, tsField, tsRaw string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == sigField || k == tsField {
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(cast.ToString(params[k]))
		sb.WriteString("&")
	}
	sb.WriteString(tsField)
	sb.WriteString("=")
	sb.WriteString(tsRaw)
	return sb.String()
}

// signingKey 返回配置的 secret，否则回退到当前秒数的前 9 位十进制字符。
func signingKey(secret string, nowSeconds int64) string {
	if strings.TrimSpace(secret) != "" {
		return secret
	}
	s := strconv.FormatInt(nowSeconds, 10)
	if len(s) > 9 {
		return s[:9]
	}
	return s
}

func computeSignature(canonical, key, algorithm string) (string, error) {
	switch strings.ToLower(algorithm) {
	case "", "sha256":
		sum := sha256.Sum256([]byte(canonical + key))
		return hex.EncodeToString(sum[:]), nil
	case "sha1":
		sum := sha1.Sum([]byte(canonical + key))
		return hex.EncodeToString(sum[:]), nil
	case "md5":
		sum := md5.Sum([]byte(canonical + key))
		return hex.EncodeToString(sum[:]), nil
	case "hmacsha256":
		return hmacBase64(sha256.New, canonical, key), nil
	case "hmacsha1":
		return hmacBase64(sha1.New, canonical, key), nil
	case "hmacmd5":
		return hmacBase64(md5.New, canonical, key), nil
	default:
		return "", ormerr.New(ormerr.KindSignature, fmt.Sprintf("unsupported algorithm: %s", algorithm))
	}
}

func hmacBase64(newHash func() hash.Hash, canonical, key string) string {
	mac := hmac.New(newHash, []byte(key))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
