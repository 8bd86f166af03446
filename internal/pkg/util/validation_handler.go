package util

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateDTO 校验结构体 validate 标签，只返回第一个失败字段
func ValidateDTO(dto any) error {
	if err := validate.Struct(dto); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			firstError := vErrs[0]
			msg := fmt.Sprintf("field [%s] failed on rule [%s]",
				firstError.Field(),
				firstError.Tag())
			return errors.New(msg)
		}
		return err
	}
	return nil
}
