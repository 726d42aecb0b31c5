package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"google.golang.org/protobuf/proto"

	"goim-friend/pkg/errs"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteObject 兼容protobuf和json，状态码由错误分类决定
func WriteObject(c *gin.Context, obj interface{}, err error) {
	status := errs.HTTPStatus(err)

	switch c.ContentType() {
	case binding.MIMEPROTOBUF:
		if msg, ok := obj.(proto.Message); ok {
			c.ProtoBuf(status, msg)
			return
		}
		c.String(http.StatusInternalServerError, "expected proto.Message for protobuf response")
	default:
		c.JSON(status, obj)
	}
}

// WriteError 写错误响应
func WriteError(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), &ErrorResponse{
		Success: false,
		Code:    string(errs.GetCode(err)),
		Message: errs.PublicMessage(err),
	})
}

// AbortWithError 写错误响应并终止后续处理器
func AbortWithError(c *gin.Context, err error) {
	WriteError(c, err)
	c.Abort()
}
