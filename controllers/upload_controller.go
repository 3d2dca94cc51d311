package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogcms/media"
	"github.com/cppla/blogcms/utils"
)

// UploadController accepts standalone image uploads.
type UploadController struct {
	storage *media.Storage
	log     *zap.Logger
}

func NewUploadController(storage *media.Storage, log *zap.Logger) *UploadController {
	return &UploadController{storage: storage, log: log}
}

// UploadImage stores the multipart "image" field and returns its relative URL, which
// can be used as a post's featuredImage.
func (u *UploadController) UploadImage(ctx *gin.Context) {
	header, err := ctx.FormFile("image")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}

	stored, err := u.storage.Save(ctx.Request.Context(), header)
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	utils.Success(ctx, http.StatusCreated, gin.H{
		"filename":     stored.Filename,
		"url":          stored.Path,
		"originalname": stored.OriginalName,
		"size":         stored.Size,
	})
}
