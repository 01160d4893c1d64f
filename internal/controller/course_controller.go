package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
)

// CourseController proxies the Canvas LMS endpoints the frontend consumes.
type CourseController struct {
	CanvasService *service.CanvasService
}

func NewCourseController(canvas *service.CanvasService) *CourseController {
	return &CourseController{CanvasService: canvas}
}

// ParseCustomRequest carries caller-supplied raw assignment objects.
// swagger:model ParseCustomRequest
type ParseCustomRequest struct {
	Assignments []map[string]interface{} `json:"assignments" binding:"required"`
}

// DownloadFileRequest names a Canvas file URL and an optional destination
// path on the server.
// swagger:model DownloadFileRequest
type DownloadFileRequest struct {
	FileURL  string `json:"file_url" binding:"required"`
	DestPath string `json:"dest_path"`
}

// defaultDownloadPath receives downloads when the caller names no
// destination.
const defaultDownloadPath = "tmp/downloaded_file"

// Courses godoc
// @Summary List courses
// @Description Lists Canvas courses for a user; defaults to the token owner
// @Tags canvas
// @Produce json
// @Param user_id query string false "Canvas user id, defaults to self"
// @Success 200 {object} util.Response{data=map[string]interface{}} "Course list"
// @Failure 500 {object} util.Response "Canvas request failed"
// @Failure 503 {object} util.Response "Canvas integration not configured"
// @Router /api/courses [get]
func (c *CourseController) Courses(ctx *gin.Context) {
	courses, err := c.CanvasService.GetUserCourses(ctx.DefaultQuery("user_id", "self"))
	if err != nil {
		c.canvasError(ctx, "Failed to fetch courses", err)
		return
	}

	util.Success(ctx, gin.H{"courses": courses})
}

// Assignments godoc
// @Summary List parsed assignments for a course
// @Description Fetches the course's assignments and standardizes name, due date, and description
// @Tags canvas
// @Produce json
// @Param course_id query string true "Canvas course id"
// @Success 200 {object} util.Response{data=map[string]interface{}} "Parsed assignment list"
// @Failure 400 {object} util.Response "Missing course_id"
// @Failure 500 {object} util.Response "Canvas request failed"
// @Router /api/assignments [get]
func (c *CourseController) Assignments(ctx *gin.Context) {
	courseID := ctx.Query("course_id")
	if courseID == "" {
		util.BadRequest(ctx, "Missing query parameter: course_id")
		return
	}

	parsed, err := c.CanvasService.GetParsedAssignments(courseID)
	if err != nil {
		c.canvasError(ctx, "Failed to fetch parsed assignments", err)
		return
	}

	util.Success(ctx, gin.H{"assignments": parsed})
}

// AssignmentsRaw godoc
// @Summary List raw assignments for a course
// @Description Fetches the course's assignments exactly as Canvas returns them
// @Tags canvas
// @Produce json
// @Param course_id query string true "Canvas course id"
// @Success 200 {object} util.Response{data=map[string]interface{}} "Raw assignment list"
// @Failure 400 {object} util.Response "Missing course_id"
// @Failure 500 {object} util.Response "Canvas request failed"
// @Router /api/assignments/raw [get]
func (c *CourseController) AssignmentsRaw(ctx *gin.Context) {
	courseID := ctx.Query("course_id")
	if courseID == "" {
		util.BadRequest(ctx, "Missing query parameter: course_id")
		return
	}

	raw, err := c.CanvasService.GetCourseAssignments(courseID)
	if err != nil {
		c.canvasError(ctx, "Failed to fetch raw assignments", err)
		return
	}

	util.Success(ctx, gin.H{"assignments_raw": raw})
}

// Assignment godoc
// @Summary Fetch one assignment
// @Tags canvas
// @Produce json
// @Param assignment_id path string true "Canvas assignment id"
// @Param course_id query string true "Canvas course id"
// @Success 200 {object} util.Response{data=map[string]interface{}} "Assignment object"
// @Failure 400 {object} util.Response "Missing course_id"
// @Failure 500 {object} util.Response "Canvas request failed"
// @Router /api/assignment/{assignment_id} [get]
func (c *CourseController) Assignment(ctx *gin.Context) {
	courseID := ctx.Query("course_id")
	if courseID == "" {
		util.BadRequest(ctx, "Missing query parameter: course_id")
		return
	}

	assignment, err := c.CanvasService.GetAssignment(courseID, ctx.Param("assignment_id"))
	if err != nil {
		c.canvasError(ctx, "Failed to fetch assignment", err)
		return
	}

	util.Success(ctx, gin.H{"assignment": assignment})
}

// Submissions godoc
// @Summary List submissions for one assignment
// @Tags canvas
// @Produce json
// @Param assignment_id path string true "Canvas assignment id"
// @Param course_id query string true "Canvas course id"
// @Success 200 {object} util.Response{data=map[string]interface{}} "Submission list"
// @Failure 400 {object} util.Response "Missing course_id"
// @Failure 500 {object} util.Response "Canvas request failed"
// @Router /api/assignment/{assignment_id}/subs [get]
func (c *CourseController) Submissions(ctx *gin.Context) {
	courseID := ctx.Query("course_id")
	if courseID == "" {
		util.BadRequest(ctx, "Missing query parameter: course_id")
		return
	}

	subs, err := c.CanvasService.GetAssignmentSubmissions(courseID, ctx.Param("assignment_id"))
	if err != nil {
		c.canvasError(ctx, "Failed to fetch submissions", err)
		return
	}

	util.Success(ctx, gin.H{"submissions": subs})
}

// Files godoc
// @Summary List course files
// @Tags canvas
// @Produce json
// @Param course_id path string true "Canvas course id"
// @Success 200 {object} util.Response{data=map[string]interface{}} "File list"
// @Failure 500 {object} util.Response "Canvas request failed"
// @Router /api/course/{course_id}/files [get]
func (c *CourseController) Files(ctx *gin.Context) {
	files, err := c.CanvasService.GetCourseFiles(ctx.Param("course_id"))
	if err != nil {
		c.canvasError(ctx, "Failed to fetch course files", err)
		return
	}

	util.Success(ctx, gin.H{"files": files})
}

// ParseCustom godoc
// @Summary Parse caller-supplied assignment objects
// @Description Standardizes raw assignment objects without calling Canvas and returns a plain-text summary
// @Tags canvas
// @Accept json
// @Produce json
// @Param request body ParseCustomRequest true "Raw assignment objects"
// @Success 200 {object} util.Response{data=map[string]interface{}} "Parsed assignments and summary text"
// @Failure 400 {object} util.Response "Missing assignments field"
// @Router /api/parse_custom [post]
func (c *CourseController) ParseCustom(ctx *gin.Context) {
	var req ParseCustomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Request JSON must contain 'assignments' field (list)")
		return
	}

	parsed := make([]model.ParsedAssignment, len(req.Assignments))
	for i, raw := range req.Assignments {
		parsed[i] = service.ParseCanvasAssignment(raw)
	}

	util.Success(ctx, gin.H{
		"parsed":  parsed,
		"summary": service.SummarizeAssignments(parsed),
	})
}

// DownloadFile godoc
// @Summary Download a Canvas file to the server
// @Description Streams the named file URL to a server-side path, default tmp/downloaded_file
// @Tags canvas
// @Accept json
// @Produce json
// @Param request body DownloadFileRequest true "File URL and optional destination path"
// @Success 200 {object} util.Response{data=map[string]interface{}} "Path the file was written to"
// @Failure 400 {object} util.Response "Missing file_url field"
// @Failure 500 {object} util.Response "Download failed"
// @Failure 503 {object} util.Response "Canvas integration not configured"
// @Router /api/download_file [post]
func (c *CourseController) DownloadFile(ctx *gin.Context) {
	var req DownloadFileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Request JSON must contain 'file_url'")
		return
	}
	if req.DestPath == "" {
		req.DestPath = defaultDownloadPath
	}

	if err := c.CanvasService.DownloadFile(req.FileURL, req.DestPath); err != nil {
		c.canvasError(ctx, "Failed to download file", err)
		return
	}

	util.Success(ctx, gin.H{"downloaded_to": req.DestPath})
}

func (c *CourseController) canvasError(ctx *gin.Context, message string, err error) {
	if errors.Is(err, util.ErrCanvasNotConfigured) {
		util.ServiceUnavailable(ctx, err.Error())
		return
	}
	util.ErrorWithDetails(ctx, http.StatusInternalServerError, message, err.Error())
}
