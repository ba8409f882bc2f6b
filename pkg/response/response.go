package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response 标准响应结构
// 字段顺序：code -> message -> data -> timestamp
type Response struct {
	Code      int         `json:"code"`      // 状态码，与 HTTP 状态码一致，200 表示成功
	Message   string      `json:"message"`   // 响应消息（中文）
	Data      interface{} `json:"data"`      // 响应数据
	Timestamp int64       `json:"timestamp"` // 毫秒时间戳
}

// 状态码
const (
	CodeSuccess         = http.StatusOK
	CodeBadRequest      = http.StatusBadRequest
	CodeUnauthorized    = http.StatusUnauthorized
	CodeForbidden       = http.StatusForbidden
	CodeNotFound        = http.StatusNotFound
	CodeConflict        = http.StatusConflict
	CodeTooLarge        = http.StatusRequestEntityTooLarge
	CodeTooManyRequests = http.StatusTooManyRequests
	CodeServerError     = http.StatusInternalServerError
)

// 状态码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:         "操作成功",
	CodeBadRequest:      "请求参数无效",
	CodeUnauthorized:    "未登录或登录已过期",
	CodeForbidden:       "无权访问该资源",
	CodeNotFound:        "资源不存在",
	CodeConflict:        "资源冲突",
	CodeTooLarge:        "上传文件过大",
	CodeTooManyRequests: "请求过于频繁，请稍后重试",
	CodeServerError:     "服务器内部错误，请稍后重试",
}

// Message 返回状态码的默认消息
func Message(code int) string {
	msg, ok := codeMessages[code]
	if !ok {
		return "未知错误"
	}
	return msg
}

// New 构造响应体
func New(code int, msg string, data interface{}) Response {
	return Response{
		Code:      code,
		Message:   msg,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, New(CodeSuccess, Message(CodeSuccess), data))
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, New(CodeSuccess, msg, data))
}

// Created 创建成功，HTTP 201，响应体 code 仍为 200
func Created(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusCreated, New(CodeSuccess, msg, data))
}

// Error 错误响应
func Error(c *gin.Context, code int) {
	ErrorWithMsg(c, code, Message(code))
}

// ErrorWithMsg 错误响应（自定义消息）
func ErrorWithMsg(c *gin.Context, code int, msg string) {
	c.JSON(codeToHTTPStatus(code), New(code, msg, nil))
}

// Abort 错误响应并中止后续处理，供中间件使用
func Abort(c *gin.Context, code int, msg string) {
	if msg == "" {
		msg = Message(code)
	}
	c.AbortWithStatusJSON(codeToHTTPStatus(code), New(code, msg, nil))
}

// codeToHTTPStatus 状态码转 HTTP 状态码，未知状态码按服务器错误处理
func codeToHTTPStatus(code int) int {
	if code >= 400 && code < 600 {
		return code
	}
	if code == CodeSuccess {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}
