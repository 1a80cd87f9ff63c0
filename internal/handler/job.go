package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clipforge/internal/dto"
	"clipforge/internal/response"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

func (h Handler) GetJob(c *gin.Context) {
	job, err := h.Service.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.NewJobRes(job))
}

func (h Handler) GetVideo(c *gin.Context) {
	video, clips, err := h.Service.VideoWithClips(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.NewVideoRes(video, clips))
}

func (h Handler) StartTranscription(c *gin.Context) {
	var req dto.TranscribeReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.GetLogger().Error("StartTranscription ShouldBindJSON err", zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid parameters", err))
		return
	}

	videoID := c.Param("id")
	log.GetLogger().Info("StartTranscription received request", zap.String("video_id", videoID), zap.Int("priority", req.Priority))
	job, err := h.Service.EnqueueTranscription(c.Request.Context(), videoID, req.Priority)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.NewJobRes(job))
}

func (h Handler) RegenerateClips(c *gin.Context) {
	videoID := c.Param("id")
	clips, err := h.Service.RegenerateClips(c.Request.Context(), videoID)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	out := make([]dto.ClipRes, 0, len(clips))
	for _, clip := range clips {
		out = append(out, dto.NewClipRes(clip))
	}
	response.Success(c, out)
}

func (h Handler) RenderAllClips(c *gin.Context) {
	jobs, err := h.Service.EnqueueRenderAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	out := make([]dto.JobRes, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, dto.NewJobRes(job))
	}
	response.Success(c, out)
}

// RenderClip answers with null data when the clip is already rendered.
func (h Handler) RenderClip(c *gin.Context) {
	job, err := h.Service.EnqueueRender(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	if job == nil {
		response.Success(c, nil)
		return
	}
	response.Success(c, dto.NewJobRes(job))
}

func (h Handler) DeleteVideo(c *gin.Context) {
	videoID := c.Param("id")
	if err := h.Service.DeleteVideo(c.Request.Context(), videoID); err != nil {
		log.GetLogger().Error("DeleteVideo err", zap.String("video_id", videoID), zap.Error(err))
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, gin.H{"id": videoID})
}
