package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func Fail(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"code":    codeOf(httpStatus),
		"message": msg,
	})
}

// FailErr writes err using its Kind. Internal errors never leak their cause;
// the caller passes the message the client should see in fallback.
func FailErr(c *gin.Context, err error, fallback string) {
	status := StatusOf(err)
	msg := fallback
	var e *Error
	if status != http.StatusInternalServerError && errors.As(err, &e) && e.Message != "" {
		msg = e.Message
	}
	_ = c.Error(err)
	Fail(c, status, msg)
}
