package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// fail 统一错误响应
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": -1, "message": message})
}

// badRequest 400 错误响应
func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message)
}

// notFound 404 错误响应
func notFound(c *gin.Context, message string) {
	fail(c, http.StatusNotFound, message)
}

// serverError 500 错误响应
func serverError(c *gin.Context, err error) {
	fail(c, http.StatusInternalServerError, err.Error())
}

// getPagination 获取分页参数
func getPagination(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

// pathID 解析路径中的整数 ID
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
