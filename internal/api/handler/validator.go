package handler

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
)

// RegisterValidators 在 gin 的校验引擎上注册自定义标签
//   - datestr: 严格的 YYYY-MM-DD 日历日期
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 校验引擎不是 validator/v10")
	}
	return v.RegisterValidation("datestr", validateDateString)
}

func validateDateString(fl validator.FieldLevel) bool {
	_, err := model.ParseDate(fl.Field().String())
	return err == nil
}

// validChildID 路径参数中的 child_id 必须为 UUID
func validChildID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
