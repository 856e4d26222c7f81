/*
 * @module service/param/validator_test
 * @description 校验器词汇表的单元测试
 * @documentReference SPEC_FULL.md #4.3
 */

package param

import (
	"testing"

	"orm-engine/service/models"

	"github.com/stretchr/testify/assert"
)

func TestRequiredValidator(t *testing.T) {
	assert.Error(t, RunValidators([]models.Validator{{Type: "required"}}, nil, "name"))
	assert.Error(t, RunValidators([]models.Validator{{Type: "required"}}, "  ", "name"))
	assert.NoError(t, RunValidators([]models.Validator{{Type: "required"}}, "ok", "name"))
}

func TestNilValuePassesNonRequiredValidators(t *testing.T) {
	validators := []models.Validator{{Type: "number"}, {Type: "email"}, {Type: "maxLength", Param: 10}}
	assert.NoError(t, RunValidators(validators, nil, "field"))
}

func TestValidatorAliases(t *testing.T) {
	assert.NoError(t, RunValidators([]models.Validator{{Type: "num"}}, "3.14", "x"))
	assert.Error(t, RunValidators([]models.Validator{{Type: "int"}}, "3.14", "x"))
	assert.NoError(t, RunValidators([]models.Validator{{Type: "maxlen", Param: 3}}, "ab", "x"))
	assert.Error(t, RunValidators([]models.Validator{{Type: "minlen", Param: 5}}, "ab", "x"))
}

func TestMinMaxValidators(t *testing.T) {
	assert.NoError(t, RunValidators([]models.Validator{{Type: "min", Param: 10}}, 15, "age"))
	assert.Error(t, RunValidators([]models.Validator{{Type: "min", Param: 10}}, 5, "age"))
	assert.NoError(t, RunValidators([]models.Validator{{Type: "max", Param: 100}}, 50, "age"))
	assert.Error(t, RunValidators([]models.Validator{{Type: "max", Param: 100}}, 150, "age"))
}

func TestEmailValidator(t *testing.T) {
	assert.NoError(t, RunValidators([]models.Validator{{Type: "email"}}, "a.b+c@example.com", "mail"))
	assert.Error(t, RunValidators([]models.Validator{{Type: "email"}}, "not-an-email", "mail"))
}

func TestPhoneValidator(t *testing.T) {
	assert.NoError(t, RunValidators([]models.Validator{{Type: "phone"}}, "13812345678", "mobile"))
	assert.Error(t, RunValidators([]models.Validator{{Type: "phone"}}, "12345", "mobile"))
}

func TestEnumValidator(t *testing.T) {
	validators := []models.Validator{{Type: "enum", Param: []any{"a", "b", "c"}}}
	assert.NoError(t, RunValidators(validators, "b", "choice"))
	assert.Error(t, RunValidators(validators, "z", "choice"))
}

func TestDateValidatorWithCustomLayout(t *testing.T) {
	validators := []models.Validator{{Type: "date", Param: "yyyy/MM/dd"}}
	assert.NoError(t, RunValidators(validators, "2024/03/15", "dob"))
	assert.Error(t, RunValidators(validators, "2024-03-15", "dob"))
}

func TestCustomMessageOverridesDefault(t *testing.T) {
	err := RunValidators([]models.Validator{{Type: "required", Message: "must be present"}}, nil, "name")
	assert.EqualError(t, err, "ValidationError: must be present")
}

func TestLengthValidators(t *testing.T) {
	assert.NoError(t, RunValidators([]models.Validator{{Type: "length", Param: 4}}, "1234", "code"))
	assert.Error(t, RunValidators([]models.Validator{{Type: "length", Param: 4}}, "123", "code"))
}

func TestUnsupportedValidatorTypeErrors(t *testing.T) {
	err := RunValidators([]models.Validator{{Type: "nonsense"}}, "x", "field")
	assert.Error(t, err)
}

func TestPatternValidator(t *testing.T) {
	validators := []models.Validator{{Type: "pattern", Param: `^[A-Z]{2}\d{4}$`}}
	assert.NoError(t, RunValidators(validators, "AB1234", "code"))
	assert.Error(t, RunValidators(validators, "ab1234", "code"))
}
