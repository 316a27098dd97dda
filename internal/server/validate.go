package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/guiyumin/vscribe/internal/core/audio"
)

var registerOnce sync.Once

// registerValidators adds the "videoid" tag to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("videoid", func(fl validator.FieldLevel) bool {
			return audio.ValidVideoID(fl.Field().String())
		})
	})
}

// describeBindError turns validator output into a short message.
func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request: " + err.Error()
	}

	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			messages = append(messages, "video id is required")
		case "videoid":
			messages = append(messages, fmt.Sprintf("invalid video id %q: expected 1-64 letters, digits, '-' or '_'", e.Value()))
		default:
			messages = append(messages, e.Field()+" failed "+e.Tag())
		}
	}
	return strings.Join(messages, "; ")
}
