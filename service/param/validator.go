/*
 * @module service/param/validator
 * @description 校验器词汇表：required/number/integer/string/min/max/length/email/phone/date/...
 * @architecture 核心领域层 - 参数校验
 * @documentReference SPEC_FULL.md #4.3
 * @rules value 为 nil 时除 required 外全部通过
 * @refs original_source/validator/Joi.java
 */

package param

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"orm-engine/service/models"
	"orm-engine/service/ormerr"

	"github.com/spf13/cast"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_+&*-]+(?:\.[a-zA-Z0-9_+&*-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}$`)
	phonePattern  = regexp.MustCompile(`^1[3-9]\d{9}$`)
	ipv4Pattern   = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	urlPattern    = regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)
)

// normalizeValidatorType 规范别名：maxlen/minlen/num/int -> 标准名。
func normalizeValidatorType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "maxlen":
		return "maxLength"
	case "minlen":
		return "minLength"
	case "num":
		return "number"
	case "int":
		return "integer"
	default:
		return t
	}
}

// RunValidators 按顺序执行 validators，首个失败即中止并返回携带其 message（自定义优先，否则默认文案）的 ValidationError。
func RunValidators(validators []models.Validator, value any, fieldKey string) error {
	for _, v := range validators {
		if err := checkOne(v, value, fieldKey); err != nil {
			return err
		}
	}
	return nil
}

func checkOne(v models.Validator, value any, fieldKey string) error {
	vtype := normalizeValidatorType(v.Type)

	if value == nil {
		if vtype == "required" {
			return validationError(v, fieldKey, vtype)
		}
		return nil
	}

	var ok bool
	switch vtype {
	case "required":
		ok = !isBlank(value)
	case "number":
		_, err := cast.ToFloat64E(value)
		ok = err == nil
	case "integer":
		_, err := strconv.ParseInt(strings.TrimSpace(cast.ToString(value)), 10, 64)
		ok = err == nil
	case "string":
		_, isStr := value.(string)
		ok = isStr
	case "min":
		ok = numericCompare(value, v.Param, func(a, b float64) bool { return a >= b })
	case "max":
		ok = numericCompare(value, v.Param, func(a, b float64) bool { return a <= b })
	case "minLength":
		ok = lengthCompare(value, v.Param, func(a, b int) bool { return a >= b })
	case "maxLength":
		ok = lengthCompare(value, v.Param, func(a, b int) bool { return a <= b })
	case "length":
		ok = lengthCompare(value, v.Param, func(a, b int) bool { return a == b })
	case "email":
		ok = emailPattern.MatchString(cast.ToString(value))
	case "phone":
		ok = phonePattern.MatchString(cast.ToString(value))
	case "date":
		ok = isValidDate(value, v.Param)
	case "boolean":
		_, isBool := value.(bool)
		if !isBool {
			s := strings.ToLower(cast.ToString(value))
			isBool = s == "true" || s == "false"
		}
		ok = isBool
	case "enum":
		ok = enumContains(v.Param, value)
	case "pattern":
		ok = patternMatch(v.Param, value)
	case "ipv4":
		ok = ipv4Pattern.MatchString(cast.ToString(value))
	case "url":
		ok = urlPattern.MatchString(cast.ToString(value)) && urlParses(cast.ToString(value))
	case "trim":
		s := cast.ToString(value)
		ok = s == strings.TrimSpace(s)
	default:
		return ormerr.New(ormerr.KindValidation, fmt.Sprintf("unsupported validator type: %s", v.Type))
	}

	if !ok {
		return validationError(v, fieldKey, vtype)
	}
	return nil
}

func validationError(v models.Validator, fieldKey, vtype string) error {
	if v.Message != "" {
		return ormerr.New(ormerr.KindValidation, v.Message)
	}
	return ormerr.New(ormerr.KindValidation, defaultMessage(fieldKey, vtype, v.Param))
}

func defaultMessage(field, vtype string, param any) string {
	switch vtype {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be >= %v", field, param)
	case "max":
		return fmt.Sprintf("%s must be <= %v", field, param)
	case "minLength":
		return fmt.Sprintf("%s must have length >= %v", field, param)
	case "maxLength":
		return fmt.Sprintf("%s must have length <= %v", field, param)
	case "length":
		return fmt.Sprintf("%s must have length == %v", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, vtype)
	}
}

func isBlank(value any) bool {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func numericCompare(value, param any, cmp func(a, b float64) bool) bool {
	v, err := cast.ToFloat64E(value)
	if err != nil {
		return false
	}
	p, err := cast.ToFloat64E(param)
	if err != nil {
		return false
	}
	return cmp(v, p)
}

func lengthCompare(value, param any, cmp func(a, b int) bool) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	p := cast.ToInt(param)
	return cmp(len(s), p)
}

func isValidDate(value, param any) bool {
	layout := "2006-01-02"
	if param != nil {
		if javaLayout := cast.ToString(param); javaLayout != "" {
			layout = javaToGoLayout(javaLayout)
		}
	}
	_, err := time.Parse(layout, cast.ToString(value))
	return err == nil
}

// javaToGoLayout 把常见的 Java SimpleDateFormat 模式翻译成 Go 的参考时间模板。
func javaToGoLayout(javaLayout string) string {
	replacer := strings.NewReplacer(
		"yyyy", "2006", "MM", "01", "dd", "02",
		"HH", "15", "mm", "04", "ss", "05",
	)
	return replacer.Replace(javaLayout)
}

func enumContains(param, value any) bool {
	list, ok := param.([]any)
	if !ok {
		return false
	}
	target := cast.ToString(value)
	for _, item := range list {
		if cast.ToString(item) == target {
			return true
		}
	}
	return false
}

func patternMatch(param, value any) bool {
	pattern, ok := param.(string)
	if !ok {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(cast.ToString(value))
}

func urlParses(s string) bool {
	_, err := url.ParseRequestURI(s)
	return err == nil
}
