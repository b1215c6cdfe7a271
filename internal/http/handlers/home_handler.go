package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HomeMessageboard links one messageboard from the home page.
type HomeMessageboard struct {
	Name string `json:"name" example:"General"`
	Path string `json:"path" example:"/forums/general"`
}

// HomeResponse is the home page payload.
type HomeResponse struct {
	Name          string             `json:"name" example:"Beast Forums"`
	ForumsPath    string             `json:"forums_path" example:"/forums"`
	Messageboards []HomeMessageboard `json:"messageboards"`
}

// Home godoc
// @ID          home
// @Summary     Home page
// @Description Application name and links into the forum.
// @Tags        Home
// @Produce     json
// @Success     200  {object}  handlers.HomeResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      / [get]
func (h *Handlers) Home(c *gin.Context) {
	boards, err := h.boards.Messageboards(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list messageboards")
		return
	}
	links := make([]HomeMessageboard, 0, len(boards))
	for _, b := range boards {
		links = append(links, HomeMessageboard{Name: b.Name, Path: h.paths.MessageboardPath(b.Slug)})
	}
	ok(c, http.StatusOK, HomeResponse{
		Name:          h.appName,
		ForumsPath:    h.paths.MessageboardsPath(),
		Messageboards: links,
	})
}
