package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogcms/config"
	"github.com/cppla/blogcms/media"
	"github.com/cppla/blogcms/middleware"
	"github.com/cppla/blogcms/services"
	"github.com/cppla/blogcms/utils"
)

// respondError maps a service error onto the HTTP status and error body. Anything
// unclassified is a storage failure and is logged.
func respondError(ctx *gin.Context, log *zap.Logger, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		switch {
		case errors.Is(se.Kind, services.ErrValidation):
			utils.Error(ctx, http.StatusBadRequest, 40001, se.Msg)
		case errors.Is(se.Kind, services.ErrUnauthorized):
			utils.Error(ctx, http.StatusUnauthorized, 40106, se.Msg)
		case errors.Is(se.Kind, services.ErrForbidden):
			utils.Error(ctx, http.StatusForbidden, 40301, se.Msg)
		case errors.Is(se.Kind, services.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, 40401, se.Msg)
		case errors.Is(se.Kind, services.ErrConflict):
			utils.Error(ctx, http.StatusConflict, 40901, se.Msg)
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50000, se.Msg)
		}
		return
	}

	switch {
	case errors.Is(err, media.ErrTooLarge):
		utils.Error(ctx, http.StatusBadRequest, 40031, err.Error())
		return
	case errors.Is(err, media.ErrNotImage):
		utils.Error(ctx, http.StatusBadRequest, 40032, err.Error())
		return
	}

	log.Error("request failed",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
		zap.Error(err),
	)
	utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
}

// parseID reads a positive numeric path parameter, writing a 400 when it is malformed.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func parsePagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.Query("page"))
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	return page, limit
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

// viewerFrom builds the caller identity; anonymous requests yield the zero Viewer.
func viewerFrom(ctx *gin.Context, cfg config.AppConfig) services.Viewer {
	userID, ok := getUserID(ctx)
	if !ok {
		return services.Viewer{}
	}
	email := ctx.GetString(middleware.ContextEmailKey)
	return services.Viewer{UserID: userID, Email: email, Admin: cfg.IsAdmin(email)}
}
