package middleware

import (
	"net/http"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
)

// HTTPStatus maps domain error codes to HTTP status codes.
func HTTPStatus(err error) int {
	switch domain.ErrorCode(err) {
	case "":
		return http.StatusOK
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	default:
		return http.StatusInternalServerError // 500
	}
}
