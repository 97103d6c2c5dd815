package controllers

import (
	"LearnForge/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("nodetype", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case models.NodeFormation, models.NodeModule, models.NodeCourse, models.NodeLesson, models.NodeQuiz:
			return true
		}
		return false
	})
}
